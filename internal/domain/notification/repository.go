// internal/domain/notification/repository.go
package notification

import "context"

// LogRepository persists the dispatch log used to make the daily scan claim-then-send.
type LogRepository interface {
	// Claim atomically reserves the entry. It returns false when the entry is already claimed.
	Claim(ctx context.Context, entry LogEntry) (bool, error)
	// Complete records the final status of a claimed entry.
	Complete(ctx context.Context, entry LogEntry) error
	// Release drops a claim so a later run may retry the pair.
	Release(ctx context.Context, entry LogEntry) error
}
