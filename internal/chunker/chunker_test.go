package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplit_Empty(t *testing.T) {
	s := New(500, 50)
	require.Nil(t, s.Split(""))
}

func TestSplit_SinglePiece(t *testing.T) {
	s := New(500, 50)
	pieces := s.Split("short text")
	require.Len(t, pieces, 1)
	require.Equal(t, 0, pieces[0].Seq)
	require.Equal(t, "short text", pieces[0].Text)
	require.Equal(t, 0, pieces[0].CharStart)
	require.Equal(t, 10, pieces[0].CharEnd)
}

func TestSplit_OffsetsAndOverlap(t *testing.T) {
	s := New(10, 3)
	text := strings.Repeat("abcdefghij", 3)
	pieces := s.Split(text)
	require.NotEmpty(t, pieces)

	runes := []rune(text)
	for i, piece := range pieces {
		require.Equal(t, i, piece.Seq)
		require.Equal(t, string(runes[piece.CharStart:piece.CharEnd]), piece.Text)
		if i > 0 {
			prev := pieces[i-1]
			require.Equal(t, prev.CharStart+s.Size()-s.Overlap(), piece.CharStart)
			require.Greater(t, prev.CharEnd, piece.CharStart, "pieces must overlap")
		}
	}
	last := pieces[len(pieces)-1]
	require.Equal(t, len(runes), last.CharEnd)
}

func TestSplit_CoversWholeText(t *testing.T) {
	s := New(7, 2)
	text := "the quick brown fox jumps over the lazy dog"
	pieces := s.Split(text)

	covered := make([]bool, len([]rune(text)))
	for _, piece := range pieces {
		for i := piece.CharStart; i < piece.CharEnd; i++ {
			covered[i] = true
		}
	}
	for i, ok := range covered {
		require.True(t, ok, "rune %d is not covered by any piece", i)
	}
}

func TestSplit_MultiByteRunes(t *testing.T) {
	s := New(4, 1)
	text := "héllo wörld ünïcode"
	pieces := s.Split(text)
	runes := []rune(text)
	for _, piece := range pieces {
		require.Equal(t, string(runes[piece.CharStart:piece.CharEnd]), piece.Text)
	}
}

func TestNew_ClampsBadArguments(t *testing.T) {
	s := New(0, -1)
	require.Equal(t, 500, s.Size())
	require.Equal(t, 0, s.Overlap())

	s = New(10, 100)
	require.Equal(t, 10, s.Size())
	require.Equal(t, 9, s.Overlap())
}
