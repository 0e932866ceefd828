package queue

import (
	"context"

	"github.com/phambaophuc/convert-toolkit/internal/apperrors"
	"github.com/phambaophuc/convert-toolkit/internal/models"
)

var (
	ErrBatchBusy  error = apperrors.New(apperrors.KindConflict, "BATCH_BUSY", "batch is processing", nil)
	ErrEmptyBatch error = apperrors.New(apperrors.KindValidation, "BATCH_EMPTY", "batch has no jobs", nil)
)

// Transform turns one input file into a result, reporting progress as it goes.
type Transform func(ctx context.Context, file models.InputFile, progress models.ProgressFunc) (*models.JobResult, error)

// Downloader delivers one finished job to the user.
type Downloader interface {
	Deliver(ctx context.Context, job models.Job) error
}

type DeliveryFailure struct {
	JobID    string `json:"job_id"`
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// EventPublisher receives every job state change.
type EventPublisher interface {
	Publish(ctx context.Context, event models.JobEvent) error
}
