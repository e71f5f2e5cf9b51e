package service

import (
	"context"

	"github.com/docask/docask/internal/vectorindex"
)

// Retriever ranks indexed chunks against a query vector and drops
// anything below the similarity floor. The floor keeps barely related
// chunks out of the synthesis context; an empty result is a valid
// outcome and triggers the decline path upstream.
type Retriever struct {
	index vectorindex.Index
	floor float32
}

func NewRetriever(index vectorindex.Index, floor float32) *Retriever {
	return &Retriever{index: index, floor: floor}
}

func (r *Retriever) Retrieve(ctx context.Context, vector []float32, userID string, documentIDs []string, k int) ([]vectorindex.Match, error) {
	matches, err := r.index.Query(ctx, vector, userID, documentIDs, k)
	if err != nil {
		return nil, err
	}
	kept := matches[:0]
	for _, m := range matches {
		if m.Score >= r.floor {
			kept = append(kept, m)
		}
	}
	return kept, nil
}

func (r *Retriever) Floor() float32 {
	return r.floor
}
