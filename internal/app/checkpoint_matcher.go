// internal/app/checkpoint_matcher.go
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"course_followup_service/internal/domain/course"
	"course_followup_service/internal/domain/notification"
)

// CheckpointMatcher finds the (course, checkpoint) pairs due on a given day.
type CheckpointMatcher struct {
	courses  course.Repository
	policy   course.CheckpointPolicy
	location *time.Location
	logger   *logrus.Entry
}

func NewCheckpointMatcher(courses course.Repository, policy course.CheckpointPolicy, loc *time.Location, logger *logrus.Entry) *CheckpointMatcher {
	return &CheckpointMatcher{
		courses:  courses,
		policy:   policy,
		location: loc,
		logger:   logger.WithField("component", "checkpoint_matcher"),
	}
}

// Today renders now as a calendar date in the scheduling zone.
func (m *CheckpointMatcher) Today(now time.Time) string {
	return now.In(m.location).Format(course.DateLayout)
}

// FindDue scans finished courses and returns every scanned checkpoint whose date equals today.
// Records that cannot be decoded are logged and skipped.
func (m *CheckpointMatcher) FindDue(ctx context.Context, now time.Time) (string, []notification.DuePair, error) {
	today := m.Today(now)

	records, err := m.courses.ListFinished(ctx)
	if err != nil {
		return today, nil, fmt.Errorf("failed to list finished courses: %w", err)
	}

	var pairs []notification.DuePair
	for _, rec := range records {
		if rec.Err != nil || rec.Course == nil {
			m.logger.WithError(rec.Err).WithField("course_id", rec.ID).Warn("Skipping unreadable course record")
			continue
		}
		c := rec.Course
		if !c.Finished {
			continue
		}
		for _, k := range c.DueOn(today, m.policy.Scanned) {
			log := m.logger.WithFields(logrus.Fields{
				"course_id":    c.ID,
				"course_title": c.Title,
				"checkpoint":   k,
				"date":         today,
			})
			if c.Deliverable(k) {
				log.Info("Checkpoint due")
			} else {
				log.Warn("Checkpoint due without a bound form")
			}
			pairs = append(pairs, notification.DuePair{CourseID: c.ID, CourseTitle: c.Title, Checkpoint: k})
		}
	}
	return today, pairs, nil
}
