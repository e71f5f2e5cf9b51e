package vectorindex

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/docask/docask/internal/model"
)

// memoryIndex is a mutex-guarded in-process index. It serves tests and
// single-node setups without Postgres; durability and the
// completed-documents-only filter are out of its scope, callers rely
// on DeleteByDocument being invoked when ingestion fails.
type memoryIndex struct {
	mu        sync.RWMutex
	entries   map[string]*model.Chunk
	dimension int
	modelName string
}

func newMemoryIndex(opts Options) (Index, error) {
	return &memoryIndex{
		entries:   make(map[string]*model.Chunk),
		dimension: opts.Dimension,
		modelName: opts.ModelName,
	}, nil
}

func (idx *memoryIndex) Upsert(ctx context.Context, chunks []*model.Chunk) error {
	for _, chunk := range chunks {
		if err := checkChunk(chunk, idx.dimension, idx.modelName); err != nil {
			return err
		}
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, chunk := range chunks {
		clone := *chunk
		clone.Embedding = append([]float32(nil), chunk.Embedding...)
		idx.entries[chunk.ID] = &clone
	}
	return nil
}

func (idx *memoryIndex) DeleteByDocument(ctx context.Context, userID, documentID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for id, chunk := range idx.entries {
		if chunk.UserID == userID && chunk.DocumentID == documentID {
			delete(idx.entries, id)
		}
	}
	return nil
}

func (idx *memoryIndex) Query(ctx context.Context, vector []float32, userID string, documentIDs []string, k int) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}
	var docSet map[string]struct{}
	if len(documentIDs) > 0 {
		docSet = make(map[string]struct{}, len(documentIDs))
		for _, id := range documentIDs {
			docSet[id] = struct{}{}
		}
	}
	idx.mu.RLock()
	matches := make([]Match, 0, len(idx.entries))
	for _, chunk := range idx.entries {
		if chunk.UserID != userID {
			continue
		}
		if docSet != nil {
			if _, ok := docSet[chunk.DocumentID]; !ok {
				continue
			}
		}
		clone := *chunk
		clone.Embedding = nil
		matches = append(matches, Match{
			Chunk: clone,
			Score: cosineSimilarity(vector, chunk.Embedding),
		})
	}
	idx.mu.RUnlock()
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Chunk.ID < matches[j].Chunk.ID
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (idx *memoryIndex) CountByDocument(ctx context.Context, documentID string) (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	count := 0
	for _, chunk := range idx.entries {
		if chunk.DocumentID == documentID {
			count++
		}
	}
	return count, nil
}

func (idx *memoryIndex) CountByOwner(ctx context.Context, userID string) (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	count := 0
	for _, chunk := range idx.entries {
		if chunk.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (idx *memoryIndex) TotalChunks(ctx context.Context) (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries), nil
}

func (idx *memoryIndex) Ping(ctx context.Context) error {
	return nil
}

func (idx *memoryIndex) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries = make(map[string]*model.Chunk)
	return nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

func init() {
	Register("memory", newMemoryIndex)
}
