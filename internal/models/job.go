package models

import (
	"strconv"
	"time"
)

type JobStatus string

const (
	StatusIdle       JobStatus = "idle"
	StatusProcessing JobStatus = "processing"
	StatusDone       JobStatus = "done"
	StatusError      JobStatus = "error"
)

// InputFile is the immutable input of a job.
type InputFile struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}

type JobResult struct {
	Data        []byte `json:"-"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Job is one file's progress through a batch. Result is set only when
// Status is StatusDone.
type Job struct {
	ID        string     `json:"id"`
	File      InputFile  `json:"file"`
	Status    JobStatus  `json:"status"`
	Progress  int        `json:"progress"`
	Message   string     `json:"message,omitempty"`
	Result    *JobResult `json:"result,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// DedupKey identifies a submission by name and byte size.
func (f InputFile) DedupKey() string {
	return f.Name + "_" + strconv.FormatInt(f.Size, 10)
}
