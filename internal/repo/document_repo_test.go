package repo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/docask/docask/internal/config"
	"github.com/docask/docask/internal/db"
	"github.com/docask/docask/internal/model"
	appErr "github.com/docask/docask/internal/pkg/errors"
)

// These tests need a Postgres instance with the pgvector extension.
// Run them with TEST_DB_DSN, for example:
//
//	TEST_DB_DSN="host=localhost user=postgres dbname=docask_test sslmode=disable" go test ./internal/repo/
func openTestRepo(t *testing.T) *DocumentRepo {
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
	return NewDocumentRepo(dbc)
}

func testDocument(id, userID string) *model.Document {
	return &model.Document{
		ID:       id,
		UserID:   userID,
		Filename: id + ".pdf",
		ByteSize: 1024,
		Status:   model.DocumentStatusPending,
		Ctime:    time.Now().UnixMilli(),
	}
}

func TestDocumentRepo_Lifecycle(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, testDocument("doc-1", "u1")))

	doc, err := r.GetByID(ctx, "u1", "doc-1")
	require.NoError(t, err)
	require.Equal(t, model.DocumentStatusPending, doc.Status)

	_, err = r.GetByID(ctx, "u2", "doc-1")
	require.ErrorIs(t, err, appErr.ErrNotFound)

	require.NoError(t, r.MarkProcessing(ctx, "u1", "doc-1"))
	require.NoError(t, r.MarkCompleted(ctx, "u1", "doc-1", 7, "preview text"))

	doc, err = r.GetByID(ctx, "u1", "doc-1")
	require.NoError(t, err)
	require.Equal(t, model.DocumentStatusCompleted, doc.Status)
	require.Equal(t, 7, doc.ChunkCount)
	require.Equal(t, "preview text", doc.ContentPreview)
	require.NotZero(t, doc.Ptime)
}

func TestDocumentRepo_TransitionsAreMonotonic(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, testDocument("doc-2", "u1")))

	// completed before processing is rejected
	require.ErrorIs(t, r.MarkCompleted(ctx, "u1", "doc-2", 1, ""), appErr.ErrNotFound)

	require.NoError(t, r.MarkProcessing(ctx, "u1", "doc-2"))
	// a second claim finds no pending row
	require.ErrorIs(t, r.MarkProcessing(ctx, "u1", "doc-2"), appErr.ErrNotFound)

	require.NoError(t, r.MarkFailed(ctx, "u1", "doc-2", "extract: boom"))
	// terminal states never move again
	require.ErrorIs(t, r.MarkCompleted(ctx, "u1", "doc-2", 1, ""), appErr.ErrNotFound)

	doc, err := r.GetByID(ctx, "u1", "doc-2")
	require.NoError(t, err)
	require.Equal(t, model.DocumentStatusFailed, doc.Status)
	require.Equal(t, "extract: boom", doc.Error)
}

func TestDocumentRepo_ListAndStats(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, testDocument("doc-3", "u1")))
	require.NoError(t, r.Create(ctx, testDocument("doc-4", "u1")))
	require.NoError(t, r.Create(ctx, testDocument("doc-5", "u2")))
	require.NoError(t, r.MarkProcessing(ctx, "u1", "doc-3"))
	require.NoError(t, r.MarkCompleted(ctx, "u1", "doc-3", 4, ""))

	docs, err := r.List(ctx, "u1", "", 10, 0)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	docs, err = r.List(ctx, "u1", model.DocumentStatusCompleted, 10, 0)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	ids, err := r.ListCompletedIDs(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, []string{"doc-3"}, ids)

	stats, err := r.Stats(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 2, stats.TotalDocuments)
	require.Equal(t, 4, stats.TotalChunks)
	require.Equal(t, 1, stats.CountsByStatus[model.DocumentStatusCompleted])

	require.NoError(t, r.Delete(ctx, "u1", "doc-4"))
	require.ErrorIs(t, r.Delete(ctx, "u1", "doc-4"), appErr.ErrNotFound)
}
