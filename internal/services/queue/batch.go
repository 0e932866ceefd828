package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phambaophuc/convert-toolkit/internal/apperrors"
	"github.com/phambaophuc/convert-toolkit/internal/models"
	"go.uber.org/zap"
)

// Batch runs its jobs strictly one at a time in submission order. It is the
// only writer of job status, progress and result.
type Batch struct {
	mu         sync.Mutex
	id         string
	tool       string
	jobs       []*models.Job
	processing bool
	createdAt  time.Time
	publisher  EventPublisher
	logger     *zap.Logger
	now        func() time.Time
}

func NewBatch(tool string, publisher EventPublisher, logger *zap.Logger) *Batch {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Batch{
		id:        uuid.New().String(),
		tool:      tool,
		createdAt: time.Now(),
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (b *Batch) ID() string   { return b.id }
func (b *Batch) Tool() string { return b.tool }

func (b *Batch) Processing() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.processing
}

// Add appends new idle jobs. Files whose (name, size) matches a job already
// in the batch are dropped. Two different files sharing both name and size
// are therefore treated as one.
func (b *Batch) Add(files ...models.InputFile) []models.Job {
	b.mu.Lock()
	defer b.mu.Unlock()

	seen := make(map[string]struct{}, len(b.jobs))
	for _, j := range b.jobs {
		seen[j.File.DedupKey()] = struct{}{}
	}

	added := make([]models.Job, 0, len(files))
	for _, f := range files {
		key := f.DedupKey()
		if _, dup := seen[key]; dup {
			b.logger.Debug("Duplicate file dropped", zap.String("batch_id", b.id), zap.String("filename", f.Name))
			continue
		}
		seen[key] = struct{}{}

		job := &models.Job{
			ID:        uuid.New().String(),
			File:      f,
			Status:    models.StatusIdle,
			UpdatedAt: b.now(),
		}
		b.jobs = append(b.jobs, job)
		added = append(added, *job)
	}
	return added
}

func (b *Batch) Remove(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.processing {
		return ErrBatchBusy
	}
	for i, j := range b.jobs {
		if j.ID == id {
			b.jobs = append(b.jobs[:i], b.jobs[i+1:]...)
			return nil
		}
	}
	return apperrors.NotFound("job not found")
}

func (b *Batch) Clear() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.processing {
		return ErrBatchBusy
	}
	b.jobs = nil
	return nil
}

// Run processes every job present when it starts. A failing job is marked
// error and the run moves on. Cancelling ctx stops before the next job; the
// remaining jobs stay idle.
func (b *Batch) Run(ctx context.Context, transform Transform) (models.BatchSummary, error) {
	ids, err := b.begin()
	if err != nil {
		return models.BatchSummary{}, err
	}
	return b.runReserved(ctx, ids, transform), nil
}

// runReserved processes ids after begin has marked the batch processing.
func (b *Batch) runReserved(ctx context.Context, ids []string, transform Transform) models.BatchSummary {
	defer b.finish()

	start := b.now()
	summary := models.BatchSummary{BatchID: b.id, Total: len(ids)}

	b.logger.Info("Batch started",
		zap.String("batch_id", b.id),
		zap.String("tool", b.tool),
		zap.Int("jobs", len(ids)),
	)

	for i, id := range ids {
		if ctx.Err() != nil {
			summary.Cancelled = true
			summary.Skipped = len(ids) - i
			break
		}

		file, ok := b.markProcessing(ctx, id)
		if !ok {
			summary.Skipped++
			continue
		}

		result, err := b.runOne(ctx, transform, file, id)
		if err != nil {
			summary.Failed++
			b.logger.Warn("Job failed",
				zap.String("batch_id", b.id),
				zap.String("job_id", id),
				zap.String("filename", file.Name),
				zap.Error(err),
			)
			b.markError(ctx, id, err)
			continue
		}
		summary.Done++
		b.markDone(ctx, id, result)
	}

	summary.Duration = b.now().Sub(start)
	b.logger.Info("Batch finished",
		zap.String("batch_id", b.id),
		zap.Int("done", summary.Done),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.Duration("duration", summary.Duration),
	)
	return summary
}

func (b *Batch) begin() ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.processing {
		return nil, ErrBatchBusy
	}
	if len(b.jobs) == 0 {
		return nil, ErrEmptyBatch
	}
	b.processing = true

	ids := make([]string, len(b.jobs))
	for i, j := range b.jobs {
		ids[i] = j.ID
		j.Status = models.StatusIdle
		j.Progress = 0
		j.Message = ""
		j.Result = nil
		j.UpdatedAt = b.now()
	}
	return ids, nil
}

func (b *Batch) finish() {
	b.mu.Lock()
	b.processing = false
	b.mu.Unlock()
}

// runOne isolates a panicking transform to its own job.
func (b *Batch) runOne(ctx context.Context, transform Transform, file models.InputFile, id string) (result *models.JobResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transform panicked: %v", r)
		}
	}()

	result, err = transform(ctx, file, func(percent int, message string) {
		b.updateProgress(ctx, id, percent, message)
	})
	if err == nil && result == nil {
		err = fmt.Errorf("transform returned no result")
	}
	return result, err
}

func (b *Batch) markProcessing(ctx context.Context, id string) (models.InputFile, bool) {
	b.mu.Lock()
	job := b.findLocked(id)
	if job == nil {
		b.mu.Unlock()
		return models.InputFile{}, false
	}
	job.Status = models.StatusProcessing
	job.Progress = 0
	job.Message = "Processing"
	job.UpdatedAt = b.now()
	event := b.eventLocked(job)
	file := job.File
	b.mu.Unlock()

	b.publish(ctx, event)
	return file, true
}

func (b *Batch) updateProgress(ctx context.Context, id string, percent int, message string) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	b.mu.Lock()
	job := b.findLocked(id)
	if job == nil || job.Status != models.StatusProcessing {
		b.mu.Unlock()
		return
	}
	changed := false
	if percent > job.Progress {
		job.Progress = percent
		changed = true
	}
	if message != "" && message != job.Message {
		job.Message = message
		changed = true
	}
	if !changed {
		b.mu.Unlock()
		return
	}
	job.UpdatedAt = b.now()
	event := b.eventLocked(job)
	b.mu.Unlock()

	b.publish(ctx, event)
}

func (b *Batch) markDone(ctx context.Context, id string, result *models.JobResult) {
	b.mu.Lock()
	job := b.findLocked(id)
	if job == nil {
		b.mu.Unlock()
		return
	}
	if result.Size == 0 {
		result.Size = int64(len(result.Data))
	}
	job.Status = models.StatusDone
	job.Progress = 100
	job.Message = "Done"
	job.Result = result
	job.UpdatedAt = b.now()
	event := b.eventLocked(job)
	b.mu.Unlock()

	b.publish(ctx, event)
}

func (b *Batch) markError(ctx context.Context, id string, err error) {
	b.mu.Lock()
	job := b.findLocked(id)
	if job == nil {
		b.mu.Unlock()
		return
	}
	job.Status = models.StatusError
	job.Progress = 0
	job.Message = jobErrorMessage(err)
	job.Result = nil
	job.UpdatedAt = b.now()
	event := b.eventLocked(job)
	b.mu.Unlock()

	b.publish(ctx, event)
}

func jobErrorMessage(err error) string {
	if apperrors.KindOf(err) != apperrors.KindInternal {
		return apperrors.Message(err)
	}
	return err.Error()
}

func (b *Batch) findLocked(id string) *models.Job {
	for _, j := range b.jobs {
		if j.ID == id {
			return j
		}
	}
	return nil
}

func (b *Batch) eventLocked(job *models.Job) models.JobEvent {
	return models.JobEvent{
		BatchID:   b.id,
		JobID:     job.ID,
		Filename:  job.File.Name,
		Status:    job.Status,
		Progress:  job.Progress,
		Message:   job.Message,
		Timestamp: job.UpdatedAt,
	}
}

func (b *Batch) publish(ctx context.Context, event models.JobEvent) {
	if b.publisher == nil {
		return
	}
	if err := b.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		b.logger.Warn("Failed to publish job event",
			zap.String("job_id", event.JobID),
			zap.Error(err),
		)
	}
}

// Snapshot returns a copy of the batch state. Progress is the mean job progress.
func (b *Batch) Snapshot() models.BatchSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := models.BatchSnapshot{
		ID:         b.id,
		Tool:       b.tool,
		Processing: b.processing,
		Jobs:       make([]models.Job, len(b.jobs)),
		CreatedAt:  b.createdAt,
	}
	total := 0
	for i, j := range b.jobs {
		snap.Jobs[i] = *j
		total += j.Progress
	}
	if len(b.jobs) > 0 {
		snap.Progress = total / len(b.jobs)
	}
	return snap
}

// Job returns a copy of one job.
func (b *Batch) Job(id string) (models.Job, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if j := b.findLocked(id); j != nil {
		return *j, true
	}
	return models.Job{}, false
}

// DoneJobs returns the finished jobs in submission order.
func (b *Batch) DoneJobs() []models.Job {
	b.mu.Lock()
	defer b.mu.Unlock()
	var done []models.Job
	for _, j := range b.jobs {
		if j.Status == models.StatusDone && j.Result != nil {
			done = append(done, *j)
		}
	}
	return done
}

// DownloadAll hands every finished job to sink in order, waiting interval
// between deliveries. Failed deliveries are reported, not fatal.
func (b *Batch) DownloadAll(ctx context.Context, sink Downloader, interval time.Duration) ([]DeliveryFailure, error) {
	if b.Processing() {
		return nil, ErrBatchBusy
	}

	var failures []DeliveryFailure
	for i, job := range b.DoneJobs() {
		if i > 0 && interval > 0 {
			timer := time.NewTimer(interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return failures, ctx.Err()
			case <-timer.C:
			}
		}

		if err := sink.Deliver(ctx, job); err != nil {
			b.logger.Warn("Delivery failed",
				zap.String("batch_id", b.id),
				zap.String("job_id", job.ID),
				zap.Error(err),
			)
			failures = append(failures, DeliveryFailure{
				JobID:    job.ID,
				Filename: job.Result.Filename,
				Error:    err.Error(),
			})
		}
	}
	return failures, nil
}
