package queue

import (
	"context"

	"go.uber.org/zap"
)

// StartBatch runs the batch in the background and returns once it has
// started. The run ends when all jobs are attempted or ctx is cancelled.
func (q *QueueService) StartBatch(ctx context.Context, id string, transform Transform) error {
	b, ok := q.GetBatch(id)
	if !ok {
		return errBatchNotFound()
	}

	ids, err := b.begin()
	if err != nil {
		return err
	}

	go func() {
		summary := b.runReserved(ctx, ids, transform)
		q.logger.Info("Background batch completed",
			zap.String("batch_id", id),
			zap.Int("done", summary.Done),
			zap.Int("failed", summary.Failed),
			zap.Bool("cancelled", summary.Cancelled),
		)
	}()
	return nil
}
