package chunker

// Splitter cuts text into fixed-size overlapping pieces with stable
// rune offsets. Piece i starts at i*(size-overlap) and spans size
// runes; the last piece is truncated to the remaining text. The
// overlap keeps sentences near a boundary whole in at least one piece.
type Splitter struct {
	size    int
	overlap int
}

type Piece struct {
	Seq       int
	Text      string
	CharStart int
	CharEnd   int
}

func New(size, overlap int) *Splitter {
	if size <= 0 {
		size = 500
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	return &Splitter{size: size, overlap: overlap}
}

func (s *Splitter) Size() int {
	return s.size
}

func (s *Splitter) Overlap() int {
	return s.overlap
}

// Split returns the ordered pieces covering text with no gaps. Empty
// input yields nil; callers treat that as "nothing to index".
func (s *Splitter) Split(text string) []Piece {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	step := s.size - s.overlap
	var pieces []Piece
	for start, seq := 0, 0; start < len(runes); start, seq = start+step, seq+1 {
		end := start + s.size
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, Piece{
			Seq:       seq,
			Text:      string(runes[start:end]),
			CharStart: start,
			CharEnd:   end,
		})
		if end == len(runes) {
			break
		}
	}
	return pieces
}
