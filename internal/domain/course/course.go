// internal/domain/course/course.go
package course

import (
	"database/sql"
	"errors"
	"time"
)

var (
	ErrCourseNotFound    = errors.New("course not found")
	ErrInvalidCheckpoint = errors.New("invalid checkpoint key")
)

// DateLayout is the calendar representation used by weekDates.
const DateLayout = "2006-01-02"

// Course owns the checkpoint calendar and the form bound to every checkpoint.
// Finished flips false→true exactly once.
type Course struct {
	ID              string
	Title           string
	Finished        bool
	FinishedAt      sql.NullTime
	WeekDates       map[CheckpointKey]string // YYYY-MM-DD or ""
	WeekForms       map[CheckpointKey]string // form template id or ""
	RegistrationKey string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Deliverable reports whether a checkpoint has both a date and a bound form.
func (c *Course) Deliverable(k CheckpointKey) bool {
	return c.WeekDates[k] != "" && c.WeekForms[k] != ""
}

// DueOn lists the checkpoints among candidates whose calendar date equals day.
func (c *Course) DueOn(day string, candidates []CheckpointKey) []CheckpointKey {
	var due []CheckpointKey
	for _, k := range candidates {
		if date, ok := c.WeekDates[k]; ok && date != "" && date == day {
			due = append(due, k)
		}
	}
	return due
}

// OpenEnrollment is true for legacy courses that carry no registration key.
func (c *Course) OpenEnrollment() bool {
	return c.RegistrationKey == ""
}
