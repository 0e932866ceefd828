package models

import "time"

type BatchSnapshot struct {
	ID         string    `json:"id"`
	Tool       string    `json:"tool"`
	Processing bool      `json:"processing"`
	Progress   int       `json:"progress"`
	Jobs       []Job     `json:"jobs"`
	CreatedAt  time.Time `json:"created_at"`
}

type BatchSummary struct {
	BatchID   string        `json:"batch_id"`
	Total     int           `json:"total"`
	Done      int           `json:"done"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Duration  time.Duration `json:"duration"`
	Cancelled bool          `json:"cancelled"`
}

// JobEvent is emitted on every job state change.
type JobEvent struct {
	BatchID   string    `json:"batch_id"`
	JobID     string    `json:"job_id"`
	Filename  string    `json:"filename"`
	Status    JobStatus `json:"status"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
