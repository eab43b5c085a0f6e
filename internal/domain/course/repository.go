// internal/domain/course/repository.go
package course

import (
	"context"
	"time"
)

// Record is one row of a course listing. Err is set when the row could not be decoded;
// ID is still populated so callers can report which record was skipped.
type Record struct {
	ID     string
	Course *Course
	Err    error
}

// Repository defines the course operations the core relies on.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Course, error)
	ListFinished(ctx context.Context) ([]Record, error)
	// MarkFinished flips finished to true. It returns false when the course was already finished.
	MarkFinished(ctx context.Context, id string, at time.Time) (bool, error)
	UpdateRegistrationKey(ctx context.Context, id, key string) error
}
