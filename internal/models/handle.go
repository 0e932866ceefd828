package models

import "time"

// Handle is a transient download reference owned by a session or batch.
type Handle struct {
	ID          string    `json:"id"`
	Owner       string    `json:"owner"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
}

// Output pairs a tool result with the handle its bytes can be fetched from.
type Output struct {
	Handle Handle      `json:"handle"`
	Result interface{} `json:"result"`
}
