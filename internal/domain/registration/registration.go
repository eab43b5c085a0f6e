// internal/domain/registration/registration.go
package registration

import (
	"errors"
	"time"
)

var ErrAlreadyRegistered = errors.New("trainee is already registered for this course")

// Registration enrolls one trainee in one course.
type Registration struct {
	ID           string
	TraineeID    string
	CourseID     string
	RegisteredAt time.Time
}
