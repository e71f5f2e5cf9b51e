package repo

import (
	"context"
	"database/sql"
)

// ChunkRepo covers maintenance queries on the chunks table that the
// vector index does not expose. Retrieval never goes through here.
type ChunkRepo struct {
	db *sql.DB
}

func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// DeleteOrphans removes chunks whose document row no longer exists.
// Normal deletion removes chunks first, so orphans only appear after a
// crash between the two steps.
func (r *ChunkRepo) DeleteOrphans(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM chunks c WHERE NOT EXISTS (SELECT 1 FROM documents d WHERE d.id = c.document_id)`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
