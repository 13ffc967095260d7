package models

import "time"

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// ValidPriority reports whether p is one of the three allowed
// priority values. Anything else is a caller error.
func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

type Task struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Completed   bool
	Priority    string
	Tags        []string
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
