package service

import (
	"context"

	"github.com/docask/docask/internal/model"
)

// DocumentStore is the slice of document persistence the services
// need. *repo.DocumentRepo satisfies it; tests substitute fakes.
type DocumentStore interface {
	Create(ctx context.Context, doc *model.Document) error
	MarkProcessing(ctx context.Context, userID, docID string) error
	MarkCompleted(ctx context.Context, userID, docID string, chunkCount int, preview string) error
	MarkFailed(ctx context.Context, userID, docID string, message string) error
	GetByID(ctx context.Context, userID, docID string) (*model.Document, error)
	List(ctx context.Context, userID string, status string, limit, offset uint) ([]model.Document, error)
	ListCompletedIDs(ctx context.Context, userID string) ([]string, error)
	Delete(ctx context.Context, userID, docID string) error
	Stats(ctx context.Context, userID string) (*model.OwnerStats, error)
}
