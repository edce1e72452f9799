package models

import (
	"time"
)

// Dead letter entry statuses.
const (
	DeadLetterPending  = "PENDING"
	DeadLetterResolved = "RESOLVED"
	DeadLetterIgnored  = "IGNORED"
)

// DeadLetterEntry records an operation that exhausted all retries, for later
// inspection and manual reprocessing.
type DeadLetterEntry struct {
	ID              string         `gorm:"primaryKey;type:uuid" json:"id"`
	OperationName   string         `gorm:"index;not null" json:"operation_name"`
	ErrorMessage    string         `gorm:"type:text" json:"error_message"`
	ErrorCode       string         `json:"error_code,omitempty"`
	Attempts        int            `json:"attempts"`
	TotalDurationMs int64          `json:"total_duration_ms"`
	Context         map[string]any `gorm:"serializer:json" json:"context"`
	Status          string         `gorm:"type:varchar(16);default:'PENDING';index" json:"status"`
	ResolvedAt      *time.Time     `json:"resolved_at,omitempty"`
	ResolvedBy      string         `json:"resolved_by,omitempty"`
	CreatedAt       time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}
