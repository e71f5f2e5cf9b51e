package service

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docask/docask/internal/filestore"
	"github.com/docask/docask/internal/model"
	"github.com/docask/docask/internal/vectorindex"
)

type DocumentService struct {
	docRepo DocumentStore
	index   vectorindex.Index
	store   filestore.Store
	locks   *DocLocks
}

func NewDocumentService(docRepo DocumentStore, index vectorindex.Index, store filestore.Store, locks *DocLocks) *DocumentService {
	return &DocumentService{docRepo: docRepo, index: index, store: store, locks: locks}
}

func (s *DocumentService) Get(ctx context.Context, userID, docID string) (*model.Document, error) {
	return s.docRepo.GetByID(ctx, userID, docID)
}

func (s *DocumentService) List(ctx context.Context, userID, status string, limit, offset uint) ([]model.Document, error) {
	return s.docRepo.List(ctx, userID, status, limit, offset)
}

// Delete removes the document and everything derived from it. Chunks
// go first so retrieval cannot surface a chunk whose document row is
// already gone; the orphan sweeper covers a crash in between.
func (s *DocumentService) Delete(ctx context.Context, userID, docID string) error {
	unlock := s.locks.lock(docID)
	defer unlock()

	if _, err := s.docRepo.GetByID(ctx, userID, docID); err != nil {
		return err
	}
	if err := s.index.DeleteByDocument(ctx, userID, docID); err != nil {
		return err
	}
	if err := s.docRepo.Delete(ctx, userID, docID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, storeKey(docID)); err != nil {
		logutil.GetLogger(ctx).Warn("delete stored file failed",
			zap.String("document_id", docID), zap.Error(err))
	}
	s.locks.forget(docID)
	return nil
}

// Stats reports document counts from the metadata store and the live
// chunk count from the index. The two can briefly disagree while an
// ingestion or deletion is in flight.
func (s *DocumentService) Stats(ctx context.Context, userID string) (*model.OwnerStats, error) {
	stats, err := s.docRepo.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}
	indexed, err := s.index.CountByOwner(ctx, userID)
	if err != nil {
		logutil.GetLogger(ctx).Warn("count indexed chunks failed",
			zap.String("user_id", userID), zap.Error(err))
		return stats, nil
	}
	stats.TotalChunks = indexed
	return stats, nil
}
