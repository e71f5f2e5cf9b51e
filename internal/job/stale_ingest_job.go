package job

import (
	"context"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docask/docask/internal/repo"
	"github.com/docask/docask/internal/vectorindex"
)

const staleIngestBatch = 100

// StaleIngestJob fails documents stuck in processing, typically after
// a crash mid pipeline. Their chunks are removed so the failed state
// holds zero retrievable chunks.
type StaleIngestJob struct {
	docRepo *repo.DocumentRepo
	index   vectorindex.Index
	maxAge  time.Duration
}

func NewStaleIngestJob(docRepo *repo.DocumentRepo, index vectorindex.Index, maxAge time.Duration) *StaleIngestJob {
	return &StaleIngestJob{docRepo: docRepo, index: index, maxAge: maxAge}
}

func (j *StaleIngestJob) Name() string {
	return "stale_ingest"
}

func (j *StaleIngestJob) Run(ctx context.Context) error {
	maxAge := j.maxAge
	if maxAge <= 0 {
		maxAge = 30 * time.Minute
	}
	cutoff := time.Now().Add(-maxAge).UnixMilli()
	docs, err := j.docRepo.ListStaleProcessing(ctx, cutoff, staleIngestBatch)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if err := j.index.DeleteByDocument(ctx, doc.UserID, doc.ID); err != nil {
			logutil.GetLogger(ctx).Error("remove chunks of stale document failed",
				zap.String("document_id", doc.ID), zap.Error(err))
			continue
		}
		message := fmt.Sprintf("ingest: timed out after %s", maxAge)
		if err := j.docRepo.MarkFailed(ctx, doc.UserID, doc.ID, message); err != nil {
			logutil.GetLogger(ctx).Error("mark stale document failed errored",
				zap.String("document_id", doc.ID), zap.Error(err))
			continue
		}
		logutil.GetLogger(ctx).Info("stale document failed",
			zap.String("document_id", doc.ID),
			zap.String("user_id", doc.UserID))
	}
	return nil
}
