package orphan

import (
	"context"

	"go.uber.org/zap"
)

const sweepBatchSize = 50

// BlobRemover deletes a single object from the store.
type BlobRemover interface {
	Remove(ctx context.Context, key string) error
}

// Reaper drains the blob_orphans queue against the object store. Entries
// whose removal fails stay queued and are retried on the next sweep.
type Reaper struct {
	repo   Repository
	blob   BlobRemover
	logger *zap.Logger
}

func NewReaper(repo Repository, blob BlobRemover, logger *zap.Logger) *Reaper {
	return &Reaper{repo: repo, blob: blob, logger: logger}
}

func (r *Reaper) Sweep(ctx context.Context) {
	orphans, err := r.repo.SelectBatch(sweepBatchSize)
	if err != nil {
		r.logger.Warn("Failed to load orphaned blobs", zap.Error(err))
		return
	}

	for _, o := range orphans {
		if err := r.blob.Remove(ctx, o.Key); err != nil {
			r.logger.Warn("Failed to remove orphaned blob",
				zap.String("bucket", o.Bucket),
				zap.String("key", o.Key),
				zap.Error(err))
			continue
		}
		if err := r.repo.Delete(o.ID); err != nil {
			r.logger.Warn("Failed to dequeue orphaned blob",
				zap.Int64("id", o.ID),
				zap.Error(err))
		}
	}
}
