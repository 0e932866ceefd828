package models

import "time"

type HealthCheck struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Engines   map[string]bool   `json:"engines"`
	AuthMode  string            `json:"auth_mode"`
}
