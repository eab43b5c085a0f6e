// internal/domain/registration/repository.go
package registration

import "context"

// Repository defines operations for course registrations.
type Repository interface {
	// Create inserts r unless the (trainee, course) pair exists, in which case it returns ErrAlreadyRegistered.
	Create(ctx context.Context, r *Registration) error
	ListByCourse(ctx context.Context, courseID string) ([]*Registration, error)
	// ListTraineeIDs returns the distinct trainee ids registered for the course.
	ListTraineeIDs(ctx context.Context, courseID string) ([]string, error)
}
