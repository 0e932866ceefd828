package queue

import (
	"sort"
	"sync"

	"github.com/phambaophuc/convert-toolkit/internal/apperrors"
	"go.uber.org/zap"
)

// QueueService owns every batch. Batches run independently of each other.
type QueueService struct {
	mu        sync.RWMutex
	batches   map[string]*Batch
	publisher EventPublisher
	logger    *zap.Logger
}

func NewQueueService(publisher EventPublisher, logger *zap.Logger) *QueueService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueService{
		batches:   make(map[string]*Batch),
		publisher: publisher,
		logger:    logger,
	}
}

func (q *QueueService) CreateBatch(tool string) *Batch {
	b := NewBatch(tool, q.publisher, q.logger)

	q.mu.Lock()
	q.batches[b.ID()] = b
	q.mu.Unlock()

	q.logger.Info("Batch created", zap.String("batch_id", b.ID()), zap.String("tool", tool))
	return b
}

func (q *QueueService) GetBatch(id string) (*Batch, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	b, ok := q.batches[id]
	return b, ok
}

// DeleteBatch drops an idle batch.
func (q *QueueService) DeleteBatch(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	b, ok := q.batches[id]
	if !ok {
		return errBatchNotFound()
	}
	if b.Processing() {
		return ErrBatchBusy
	}
	delete(q.batches, id)
	return nil
}

// Batches returns all batches ordered by creation time.
func (q *QueueService) Batches() []*Batch {
	q.mu.RLock()
	out := make([]*Batch, 0, len(q.batches))
	for _, b := range q.batches {
		out = append(out, b)
	}
	q.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].createdAt.Before(out[j].createdAt) })
	return out
}

func errBatchNotFound() error {
	return apperrors.NotFound("batch not found")
}
