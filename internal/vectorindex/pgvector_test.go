package vectorindex

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/docask/docask/internal/config"
	"github.com/docask/docask/internal/db"
	"github.com/docask/docask/internal/model"
)

const testDimension = 768

// These tests need a Postgres instance with the pgvector extension.
// Run them with TEST_DB_DSN, for example:
//
//	TEST_DB_DSN="host=localhost user=postgres dbname=docask_test sslmode=disable" go test ./internal/vectorindex/
func openTestIndex(t *testing.T) (Index, *sql.DB) {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN is not set")
	}
	dbc, err := db.Open(config.DatabaseConfig{DSN: dsn})
	require.NoError(t, err)
	require.NoError(t, db.ApplyMigrations(dbc))
	t.Cleanup(func() {
		_, _ = dbc.Exec("DELETE FROM chunks")
		_, _ = dbc.Exec("DELETE FROM documents")
		_ = dbc.Close()
	})
	idx, err := New("pgvector", Options{DB: dbc, Dimension: testDimension, ModelName: "test-embed"})
	require.NoError(t, err)
	return idx, dbc
}

func insertTestDocument(t *testing.T, dbc *sql.DB, id, userID, status string) {
	t.Helper()
	_, err := dbc.Exec(
		`INSERT INTO documents (id, user_id, filename, status, ctime) VALUES ($1, $2, $3, $4, $5)`,
		id, userID, id+".pdf", status, time.Now().UnixMilli())
	require.NoError(t, err)
}

// axisVector puts all weight on one dimension so cosine similarity
// between distinct axes is exactly 0 and same axes exactly 1.
func axisVector(axis int) []float32 {
	v := make([]float32, testDimension)
	v[axis] = 1
	return v
}

func testDBChunk(docID, userID string, seq, axis int) *model.Chunk {
	return &model.Chunk{
		ID:         fmt.Sprintf("%s_%05d", docID, seq),
		DocumentID: docID,
		UserID:     userID,
		Seq:        seq,
		Content:    fmt.Sprintf("chunk %d of %s", seq, docID),
		CharStart:  seq * 10,
		CharEnd:    seq*10 + 10,
		Embedding:  axisVector(axis),
		ModelName:  "test-embed",
	}
}

func TestPgvectorIndex_QueryScopesAndRanks(t *testing.T) {
	idx, dbc := openTestIndex(t)
	ctx := context.Background()

	insertTestDocument(t, dbc, "doc-a", "u1", model.DocumentStatusCompleted)
	insertTestDocument(t, dbc, "doc-b", "u1", model.DocumentStatusProcessing)
	insertTestDocument(t, dbc, "doc-c", "u2", model.DocumentStatusCompleted)

	require.NoError(t, idx.Upsert(ctx, []*model.Chunk{
		testDBChunk("doc-a", "u1", 0, 0),
		testDBChunk("doc-a", "u1", 1, 1),
		testDBChunk("doc-b", "u1", 0, 0),
		testDBChunk("doc-c", "u2", 0, 0),
	}))

	matches, err := idx.Query(ctx, axisVector(0), "u1", nil, 10)
	require.NoError(t, err)
	// doc-b is still processing and doc-c belongs to u2; only the two
	// completed doc-a chunks qualify, best axis match first.
	require.Len(t, matches, 2)
	require.Equal(t, "doc-a_00000", matches[0].Chunk.ID)
	require.InDelta(t, 1.0, float64(matches[0].Score), 1e-4)
	require.Equal(t, "doc-a_00001", matches[1].Chunk.ID)
	require.InDelta(t, 0.0, float64(matches[1].Score), 1e-4)
}

func TestPgvectorIndex_DocumentFilter(t *testing.T) {
	idx, dbc := openTestIndex(t)
	ctx := context.Background()

	insertTestDocument(t, dbc, "doc-d", "u1", model.DocumentStatusCompleted)
	insertTestDocument(t, dbc, "doc-e", "u1", model.DocumentStatusCompleted)
	require.NoError(t, idx.Upsert(ctx, []*model.Chunk{
		testDBChunk("doc-d", "u1", 0, 0),
		testDBChunk("doc-e", "u1", 0, 0),
	}))

	matches, err := idx.Query(ctx, axisVector(0), "u1", []string{"doc-e"}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "doc-e", matches[0].Chunk.DocumentID)
}

func TestPgvectorIndex_UpsertIsIdempotent(t *testing.T) {
	idx, dbc := openTestIndex(t)
	ctx := context.Background()

	insertTestDocument(t, dbc, "doc-f", "u1", model.DocumentStatusCompleted)
	chunk := testDBChunk("doc-f", "u1", 0, 0)
	require.NoError(t, idx.Upsert(ctx, []*model.Chunk{chunk}))

	chunk.Content = "rewritten content"
	require.NoError(t, idx.Upsert(ctx, []*model.Chunk{chunk}))

	count, err := idx.CountByDocument(ctx, "doc-f")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	matches, err := idx.Query(ctx, axisVector(0), "u1", nil, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "rewritten content", matches[0].Chunk.Content)
}

func TestPgvectorIndex_DeleteAndCounts(t *testing.T) {
	idx, dbc := openTestIndex(t)
	ctx := context.Background()

	insertTestDocument(t, dbc, "doc-g", "u1", model.DocumentStatusCompleted)
	insertTestDocument(t, dbc, "doc-h", "u2", model.DocumentStatusCompleted)
	require.NoError(t, idx.Upsert(ctx, []*model.Chunk{
		testDBChunk("doc-g", "u1", 0, 0),
		testDBChunk("doc-g", "u1", 1, 1),
		testDBChunk("doc-h", "u2", 0, 2),
	}))

	count, err := idx.CountByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	total, err := idx.TotalChunks(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, total)

	// wrong owner deletes nothing
	require.NoError(t, idx.DeleteByDocument(ctx, "u2", "doc-g"))
	count, err = idx.CountByDocument(ctx, "doc-g")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	require.NoError(t, idx.DeleteByDocument(ctx, "u1", "doc-g"))
	count, err = idx.CountByDocument(ctx, "doc-g")
	require.NoError(t, err)
	require.Equal(t, 0, count)

	count, err = idx.CountByOwner(ctx, "u2")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
