package vectorindex

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/docask/docask/internal/model"
)

// Match is a nearest-neighbor hit: the stored chunk (embedding
// omitted) plus its cosine similarity to the query vector.
type Match struct {
	Chunk model.Chunk
	Score float32
}

// Index stores chunk vectors with metadata and answers
// nearest-neighbor queries scoped by owner. All mutation goes through
// Upsert/DeleteByDocument so the backing structures stay consistent.
//
// Query contract: cosine similarity ranking, ties broken by ascending
// chunk id, at most k results (fewer when fewer candidates exist),
// and never a chunk belonging to another owner; the owner predicate
// is applied inside the backend, not on the returned rows.
type Index interface {
	Upsert(ctx context.Context, chunks []*model.Chunk) error
	DeleteByDocument(ctx context.Context, userID, documentID string) error
	Query(ctx context.Context, vector []float32, userID string, documentIDs []string, k int) ([]Match, error)
	CountByDocument(ctx context.Context, documentID string) (int, error)
	CountByOwner(ctx context.Context, userID string) (int, error)
	TotalChunks(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

// Options carries backend construction inputs. The database handle is
// injected; the index never opens its own connection.
type Options struct {
	DB        *sql.DB
	Dimension int
	ModelName string
}

type Factory func(opts Options) (Index, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(name string, opts Options) (Index, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("rag.index_type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported vector index type: %s", name)
	}
	return factory(opts)
}

func checkChunk(chunk *model.Chunk, dimension int, modelName string) error {
	if chunk.ID == "" || chunk.DocumentID == "" || chunk.UserID == "" {
		return fmt.Errorf("chunk id/document/owner are required")
	}
	if dimension > 0 && len(chunk.Embedding) != dimension {
		return fmt.Errorf("chunk %s: embedding dimension %d, index expects %d", chunk.ID, len(chunk.Embedding), dimension)
	}
	if modelName != "" && chunk.ModelName != "" && chunk.ModelName != modelName {
		return fmt.Errorf("chunk %s: embedding model %q, index expects %q", chunk.ID, chunk.ModelName, modelName)
	}
	return nil
}
