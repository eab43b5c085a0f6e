// internal/domain/notification/shared_types.go
package notification

import "course_followup_service/internal/domain/course"

// Status is the delivery result of one (course, checkpoint) dispatch.
type Status string

const (
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Skip and failure reasons surfaced to callers.
const (
	ReasonNoRecipients      = "no registered users"
	ReasonAlreadyDispatched = "already dispatched today"
)

// DuePair is a (course, checkpoint) combination selected for dispatch.
type DuePair struct {
	CourseID    string
	CourseTitle string
	Checkpoint  course.CheckpointKey
}
