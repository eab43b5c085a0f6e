// internal/domain/notification/outcome.go
package notification

import "course_followup_service/internal/domain/course"

// Outcome is produced by one dispatch and returned to the caller; it is not persisted.
type Outcome struct {
	Course     string               `json:"course"`
	CourseID   string               `json:"courseId"`
	Checkpoint course.CheckpointKey `json:"checkpoint"`
	Status     Status               `json:"status"`
	SentTo     int                  `json:"sentTo,omitempty"`
	Reason     string               `json:"reason,omitempty"`
}

func NewOutcome(pair DuePair, status Status) Outcome {
	return Outcome{
		Course:     pair.CourseTitle,
		CourseID:   pair.CourseID,
		Checkpoint: pair.Checkpoint,
		Status:     status,
	}
}

// CountSent returns how many outcomes reached the gateway successfully.
func CountSent(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Status == StatusSent {
			n++
		}
	}
	return n
}
