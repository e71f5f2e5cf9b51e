package vectorindex

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"

	"github.com/docask/docask/internal/model"
)

// pgvectorIndex keeps chunk vectors in the chunks table and ranks with
// the pgvector cosine distance operator. Retrieval joins documents so
// only chunks of completed documents are candidates; a document mid
// ingest or mid delete never surfaces in answers.
type pgvectorIndex struct {
	db        *sql.DB
	dimension int
	modelName string
}

func newPgvectorIndex(opts Options) (Index, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("pgvector index requires a database handle")
	}
	return &pgvectorIndex{
		db:        opts.DB,
		dimension: opts.Dimension,
		modelName: opts.ModelName,
	}, nil
}

const upsertChunkSQL = `
INSERT INTO chunks (id, document_id, user_id, seq, content, char_start, char_end, embedding, model_name)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
  content = EXCLUDED.content,
  char_start = EXCLUDED.char_start,
  char_end = EXCLUDED.char_end,
  embedding = EXCLUDED.embedding,
  model_name = EXCLUDED.model_name`

func (idx *pgvectorIndex) Upsert(ctx context.Context, chunks []*model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	for _, chunk := range chunks {
		if err := checkChunk(chunk, idx.dimension, idx.modelName); err != nil {
			return err
		}
	}
	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	stmt, err := tx.PrepareContext(ctx, upsertChunkSQL)
	if err != nil {
		return fmt.Errorf("prepare chunk upsert: %w", err)
	}
	defer stmt.Close()
	for _, chunk := range chunks {
		_, err := stmt.ExecContext(ctx,
			chunk.ID, chunk.DocumentID, chunk.UserID, chunk.Seq,
			chunk.Content, chunk.CharStart, chunk.CharEnd,
			pgvector.NewVector(chunk.Embedding), chunk.ModelName,
		)
		if err != nil {
			return fmt.Errorf("upsert chunk %s: %w", chunk.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chunk upsert: %w", err)
	}
	return nil
}

// DeleteByDocument removes every chunk of the document in one
// statement, so readers never observe a partially deleted document.
func (idx *pgvectorIndex) DeleteByDocument(ctx context.Context, userID, documentID string) error {
	_, err := idx.db.ExecContext(ctx,
		`DELETE FROM chunks WHERE user_id = $1 AND document_id = $2`,
		userID, documentID)
	if err != nil {
		return fmt.Errorf("delete chunks of document %s: %w", documentID, err)
	}
	return nil
}

func (idx *pgvectorIndex) Query(ctx context.Context, vector []float32, userID string, documentIDs []string, k int) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}
	if idx.dimension > 0 && len(vector) != idx.dimension {
		return nil, fmt.Errorf("query vector dimension %d, index expects %d", len(vector), idx.dimension)
	}
	query := `
SELECT c.id, c.document_id, c.user_id, c.seq, c.content, c.char_start, c.char_end, c.model_name,
       1 - (c.embedding <=> ?) AS score
FROM chunks c
JOIN documents d ON d.id = c.document_id AND d.user_id = c.user_id
WHERE c.user_id = ? AND d.status = 'completed'`
	args := []interface{}{pgvector.NewVector(vector), userID}
	if len(documentIDs) > 0 {
		in, inArgs, err := sqlx.In(` AND c.document_id IN (?)`, documentIDs)
		if err != nil {
			return nil, fmt.Errorf("build document filter: %w", err)
		}
		query += in
		args = append(args, inArgs...)
	}
	query += `
ORDER BY c.embedding <=> ? ASC, c.id ASC
LIMIT ?`
	args = append(args, pgvector.NewVector(vector), k)
	rows, err := idx.db.QueryContext(ctx, sqlx.Rebind(sqlx.DOLLAR, query), args...)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()
	var matches []Match
	for rows.Next() {
		var m Match
		err := rows.Scan(&m.Chunk.ID, &m.Chunk.DocumentID, &m.Chunk.UserID,
			&m.Chunk.Seq, &m.Chunk.Content, &m.Chunk.CharStart, &m.Chunk.CharEnd,
			&m.Chunk.ModelName, &m.Score)
		if err != nil {
			return nil, fmt.Errorf("scan chunk match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunk matches: %w", err)
	}
	return matches, nil
}

func (idx *pgvectorIndex) CountByDocument(ctx context.Context, documentID string) (int, error) {
	var count int
	err := idx.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM chunks WHERE document_id = $1`, documentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count chunks of document %s: %w", documentID, err)
	}
	return count, nil
}

func (idx *pgvectorIndex) CountByOwner(ctx context.Context, userID string) (int, error) {
	var count int
	err := idx.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM chunks WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count chunks of owner: %w", err)
	}
	return count, nil
}

func (idx *pgvectorIndex) TotalChunks(ctx context.Context) (int, error) {
	var count int
	if err := idx.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM chunks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return count, nil
}

func (idx *pgvectorIndex) Ping(ctx context.Context) error {
	return idx.db.PingContext(ctx)
}

// Close is a no-op: the database handle is owned by the caller.
func (idx *pgvectorIndex) Close() error {
	return nil
}

func init() {
	Register("pgvector", newPgvectorIndex)
}
