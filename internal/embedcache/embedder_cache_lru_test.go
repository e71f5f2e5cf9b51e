package embedcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	embedCalls int
	batchCalls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	c.embedCalls++
	return []float32{float32(len(text)), 0, 0}, nil
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	c.batchCalls++
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		out = append(out, []float32{float32(len(text)), 0, 0})
	}
	return out, nil
}

func (c *countingEmbedder) ModelName() string { return "count-embed" }

func (c *countingEmbedder) Dimension() int { return 3 }

func (c *countingEmbedder) Ping(ctx context.Context) error { return nil }

func TestWrapLRU_CachesRepeatedQueries(t *testing.T) {
	backend := &countingEmbedder{}
	e := WrapLRU(backend, 16, time.Minute)

	first, err := e.Embed(context.Background(), "question", "retrieval_query")
	require.NoError(t, err)
	second, err := e.Embed(context.Background(), "question", "retrieval_query")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, backend.embedCalls)
}

func TestWrapLRU_TaskTypeSeparatesEntries(t *testing.T) {
	backend := &countingEmbedder{}
	e := WrapLRU(backend, 16, time.Minute)

	_, err := e.Embed(context.Background(), "text", "retrieval_query")
	require.NoError(t, err)
	_, err = e.Embed(context.Background(), "text", "retrieval_document")
	require.NoError(t, err)
	require.Equal(t, 2, backend.embedCalls)
}

func TestWrapLRU_BatchOnlyFetchesMisses(t *testing.T) {
	backend := &countingEmbedder{}
	e := WrapLRU(backend, 16, time.Minute)

	_, err := e.Embed(context.Background(), "aa", "retrieval_document")
	require.NoError(t, err)

	vecs, err := e.EmbedBatch(context.Background(), []string{"aa", "bbb"}, "retrieval_document")
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	require.Equal(t, []float32{2, 0, 0}, vecs[0])
	require.Equal(t, []float32{3, 0, 0}, vecs[1])
	require.Equal(t, 1, backend.batchCalls)

	// everything cached now, no further backend calls
	_, err = e.EmbedBatch(context.Background(), []string{"aa", "bbb"}, "retrieval_document")
	require.NoError(t, err)
	require.Equal(t, 1, backend.batchCalls)
}

func TestWrapLRU_DisabledPassthrough(t *testing.T) {
	backend := &countingEmbedder{}
	require.Equal(t, backend, WrapLRU(backend, 0, time.Minute))
	require.Equal(t, backend, WrapLRU(backend, 16, 0))
}

func TestWrapLRU_ReturnedSliceIsACopy(t *testing.T) {
	backend := &countingEmbedder{}
	e := WrapLRU(backend, 16, time.Minute)

	first, err := e.Embed(context.Background(), "text", "retrieval_query")
	require.NoError(t, err)
	first[0] = -100

	second, err := e.Embed(context.Background(), "text", "retrieval_query")
	require.NoError(t, err)
	require.NotEqual(t, float32(-100), second[0])
}
