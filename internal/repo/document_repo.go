package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/didi/gendry/builder"

	"github.com/docask/docask/internal/model"
	"github.com/docask/docask/internal/pkg/dbutil"
	appErr "github.com/docask/docask/internal/pkg/errors"
)

var documentFields = []string{
	"id", "user_id", "filename", "byte_size", "status", "error",
	"content_preview", "chunk_count", "ctime", "ptime",
}

// statusPredecessors encodes the allowed transitions. A document only
// moves forward: pending to processing, processing to completed or
// failed. Anything else leaves the row untouched.
var statusPredecessors = map[string][]string{
	model.DocumentStatusProcessing: {model.DocumentStatusPending},
	model.DocumentStatusCompleted:  {model.DocumentStatusProcessing},
	model.DocumentStatusFailed:     {model.DocumentStatusProcessing},
}

type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	data := map[string]interface{}{
		"id":              doc.ID,
		"user_id":         doc.UserID,
		"filename":        doc.Filename,
		"byte_size":       doc.ByteSize,
		"status":          doc.Status,
		"error":           doc.Error,
		"content_preview": doc.ContentPreview,
		"chunk_count":     doc.ChunkCount,
		"ctime":           doc.Ctime,
		"ptime":           doc.Ptime,
	}
	sqlStr, args, err := builder.BuildInsert("documents", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// MarkProcessing claims a pending document for ingestion. ErrNotFound
// means the document is gone or already past pending.
func (r *DocumentRepo) MarkProcessing(ctx context.Context, userID, docID string) error {
	return r.transition(ctx, userID, docID, model.DocumentStatusProcessing, map[string]interface{}{})
}

// MarkCompleted finalizes a successful ingestion with the chunk count
// and the leading text preview.
func (r *DocumentRepo) MarkCompleted(ctx context.Context, userID, docID string, chunkCount int, preview string) error {
	return r.transition(ctx, userID, docID, model.DocumentStatusCompleted, map[string]interface{}{
		"chunk_count":     chunkCount,
		"content_preview": preview,
		"error":           "",
		"ptime":           time.Now().UnixMilli(),
	})
}

// MarkFailed records the stage-tagged failure message. The chunk count
// stays zero: failed documents hold no retrievable chunks.
func (r *DocumentRepo) MarkFailed(ctx context.Context, userID, docID string, message string) error {
	return r.transition(ctx, userID, docID, model.DocumentStatusFailed, map[string]interface{}{
		"error":       message,
		"chunk_count": 0,
		"ptime":       time.Now().UnixMilli(),
	})
}

func (r *DocumentRepo) transition(ctx context.Context, userID, docID, status string, extra map[string]interface{}) error {
	allowed := statusPredecessors[status]
	if len(allowed) == 0 {
		return appErr.ErrInternal
	}
	from := make([]interface{}, 0, len(allowed))
	for _, s := range allowed {
		from = append(from, s)
	}
	where := map[string]interface{}{
		"id":        docID,
		"user_id":   userID,
		"status in": from,
	}
	update := map[string]interface{}{
		"status": status,
	}
	for k, v := range extra {
		update[k] = v
	}
	sqlStr, args, err := builder.BuildUpdate("documents", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *DocumentRepo) GetByID(ctx context.Context, userID, docID string) (*model.Document, error) {
	where := map[string]interface{}{
		"id":      docID,
		"user_id": userID,
	}
	sqlStr, args, err := builder.BuildSelect("documents", where, documentFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	doc, err := scanDocument(rows)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *DocumentRepo) List(ctx context.Context, userID string, status string, limit, offset uint) ([]model.Document, error) {
	where := map[string]interface{}{
		"user_id":  userID,
		"_orderby": "ctime desc, id desc",
	}
	if status != "" {
		where["status"] = status
	}
	if limit > 0 {
		where["_limit"] = []uint{offset, limit}
	}
	sqlStr, args, err := builder.BuildSelect("documents", where, documentFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	docs := make([]model.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// ListCompletedIDs returns the ids of every completed document the
// owner holds; retrieval without an explicit document filter spans
// exactly this set.
func (r *DocumentRepo) ListCompletedIDs(ctx context.Context, userID string) ([]string, error) {
	where := map[string]interface{}{
		"user_id": userID,
		"status":  model.DocumentStatusCompleted,
	}
	sqlStr, args, err := builder.BuildSelect("documents", where, []string{"id"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *DocumentRepo) Delete(ctx context.Context, userID, docID string) error {
	where := map[string]interface{}{
		"id":      docID,
		"user_id": userID,
	}
	sqlStr, args, err := builder.BuildDelete("documents", where)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *DocumentRepo) Stats(ctx context.Context, userID string) (*model.OwnerStats, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(1), COALESCE(SUM(byte_size), 0), COALESCE(SUM(chunk_count), 0)
		 FROM documents WHERE user_id = $1 GROUP BY status`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	stats := &model.OwnerStats{CountsByStatus: make(map[string]int)}
	for rows.Next() {
		var status string
		var count, chunks int
		var bytes int64
		if err := rows.Scan(&status, &count, &bytes, &chunks); err != nil {
			return nil, err
		}
		stats.CountsByStatus[status] = count
		stats.TotalDocuments += count
		stats.TotalBytes += bytes
		stats.TotalChunks += chunks
	}
	return stats, rows.Err()
}

// ListStaleProcessing returns documents stuck in processing since
// before the cutoff, across all owners. The reaper marks them failed.
func (r *DocumentRepo) ListStaleProcessing(ctx context.Context, cutoff int64, limit uint) ([]model.Document, error) {
	where := map[string]interface{}{
		"status":   model.DocumentStatusProcessing,
		"ctime <":  cutoff,
		"_orderby": "ctime asc",
	}
	if limit > 0 {
		where["_limit"] = []uint{0, limit}
	}
	sqlStr, args, err := builder.BuildSelect("documents", where, documentFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	docs := make([]model.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

func scanDocument(rows *sql.Rows) (*model.Document, error) {
	var doc model.Document
	err := rows.Scan(&doc.ID, &doc.UserID, &doc.Filename, &doc.ByteSize,
		&doc.Status, &doc.Error, &doc.ContentPreview, &doc.ChunkCount,
		&doc.Ctime, &doc.Ptime)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}
