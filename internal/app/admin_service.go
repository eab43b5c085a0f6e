package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"course_followup_service/internal/domain/course"
	"course_followup_service/internal/domain/notification"
)

var ErrAdminNotAuthorized = fmt.Errorf("performing user is not authorized as an admin")

// FinishResult reports what the manual trigger did.
type FinishResult struct {
	CourseID        string                `json:"courseId"`
	AlreadyFinished bool                  `json:"alreadyFinished"`
	Notification    *notification.Outcome `json:"notification,omitempty"`
}

type AdminService struct {
	courses         course.Repository
	dispatcher      *Dispatcher
	policy          course.CheckpointPolicy
	adminTelegramID int64
	location        *time.Location
	now             func() time.Time
	logger          *logrus.Entry
}

// NewAdminService builds the service. loc is the scheduling zone that defines the dispatch day.
func NewAdminService(courses course.Repository, dispatcher *Dispatcher, policy course.CheckpointPolicy, adminID int64, loc *time.Location, logger *logrus.Entry) *AdminService {
	if loc == nil {
		loc = time.UTC
	}
	return &AdminService{
		courses:         courses,
		dispatcher:      dispatcher,
		policy:          policy,
		adminTelegramID: adminID,
		location:        loc,
		now:             time.Now,
		logger:          logger.WithField("component", "admin_service"),
	}
}

// IsAdmin reports whether the Telegram user may run admin commands.
func (s *AdminService) IsAdmin(telegramID int64) bool {
	return s.adminTelegramID != 0 && telegramID == s.adminTelegramID
}

// FinishCourse marks the course finished and sends the completion checkpoint.
// Only the call that flips the flag sends; later calls return AlreadyFinished.
func (s *AdminService) FinishCourse(ctx context.Context, courseID, courseTitle string) (*FinishResult, error) {
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return nil, ErrMissingFields
	}
	if !s.dispatcher.Configured() {
		return nil, ErrGatewayNotConfigured
	}

	flipped, err := s.courses.MarkFinished(ctx, courseID, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to mark course %s finished: %w", courseID, err)
	}
	log := s.logger.WithField("course_id", courseID)
	if !flipped {
		log.Info("Course already finished, completion notification not resent")
		return &FinishResult{CourseID: courseID, AlreadyFinished: true}, nil
	}

	if courseTitle == "" {
		if c, err := s.courses.GetByID(ctx, courseID); err == nil {
			courseTitle = c.Title
		} else {
			log.WithError(err).Warn("Could not load course title for completion notification")
		}
	}

	pair := notification.DuePair{CourseID: courseID, CourseTitle: courseTitle, Checkpoint: s.policy.Finish}
	outcome := s.dispatcher.Dispatch(ctx, pair, DispatchOptions{Date: s.today()})
	log.WithField("status", outcome.Status).Info("Course marked finished")
	return &FinishResult{CourseID: courseID, Notification: &outcome}, nil
}

func (s *AdminService) today() string {
	return s.now().In(s.location).Format(course.DateLayout)
}
