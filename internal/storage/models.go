package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Review statuses.
const (
	ReviewPending   = "pending"
	ReviewCompleted = "completed"
	ReviewFailed    = "failed"
)

// ReviewRecord is one instructions-review request and its outcome.
type ReviewRecord struct {
	ID           string
	CreatedAt    time.Time
	Instructions string
	Result       string
	Status       string // "pending", "completed", "failed"
	Error        string
}

// ExportRecord is one assistant export attempt.
type ExportRecord struct {
	ID            string
	CreatedAt     time.Time
	AssistantName string
	Destination   string
	Status        string // "completed", "failed"
	Error         string
}
