package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docask/docask/internal/repo"
)

// OrphanChunkJob sweeps chunks whose document row disappeared, which
// can only happen when a delete crashed between removing chunks and
// removing the document record in the reverse direction.
type OrphanChunkJob struct {
	chunkRepo *repo.ChunkRepo
}

func NewOrphanChunkJob(chunkRepo *repo.ChunkRepo) *OrphanChunkJob {
	return &OrphanChunkJob{chunkRepo: chunkRepo}
}

func (j *OrphanChunkJob) Name() string {
	return "orphan_chunk"
}

func (j *OrphanChunkJob) Run(ctx context.Context) error {
	removed, err := j.chunkRepo.DeleteOrphans(ctx)
	if err != nil {
		return err
	}
	if removed > 0 {
		logutil.GetLogger(ctx).Info("orphan chunks removed", zap.Int64("count", removed))
	}
	return nil
}
