// internal/domain/notification/log.go
package notification

import (
	"time"

	"course_followup_service/internal/domain/course"
)

// LogEntry identifies one scheduled dispatch. (CourseID, Checkpoint, Date) is unique.
type LogEntry struct {
	CourseID   string
	Checkpoint course.CheckpointKey
	Date       string // YYYY-MM-DD in the scheduling zone
	Status     Status
	Recipients int
	CreatedAt  time.Time
}

// StatusPending marks a claimed entry whose dispatch has not settled yet.
const StatusPending Status = "pending"
