// internal/app/notification_service.go
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

// Application-level errors surfaced to the transport layers.
var ErrGatewayNotConfigured = fmt.Errorf("push gateway is not configured")
var ErrMissingFields = fmt.Errorf("missing required fields")

// DailySummary is returned by the scheduled trigger.
type DailySummary struct {
	Success           bool                   `json:"success"`
	Date              string                 `json:"date"`
	NotificationsSent int                    `json:"notificationsSent"`
	Results           []notification.Outcome `json:"results"`
}

// CheckpointSend is an operator request to dispatch one checkpoint immediately.
type CheckpointSend struct {
	CourseID    string               `json:"courseId"`
	CourseTitle string               `json:"courseTitle"`
	Checkpoint  course.CheckpointKey `json:"checkpointKey"`
}

type NotificationService struct {
	matcher    *CheckpointMatcher
	dispatcher *Dispatcher
	policy     course.CheckpointPolicy
	logger     *logrus.Entry
}

func NewNotificationService(matcher *CheckpointMatcher, dispatcher *Dispatcher, policy course.CheckpointPolicy, logger *logrus.Entry) *NotificationService {
	return &NotificationService{
		matcher:    matcher,
		dispatcher: dispatcher,
		policy:     policy,
		logger:     logger.WithField("component", "notification_service"),
	}
}

// RunDailyScan matches every finished course against today's calendar and dispatches each due pair.
// Per-pair failures end up in the summary; only a failed course scan returns an error.
func (s *NotificationService) RunDailyScan(ctx context.Context, now time.Time) (*DailySummary, error) {
	if !s.dispatcher.Configured() {
		return nil, ErrGatewayNotConfigured
	}

	today, pairs, err := s.matcher.FindDue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("daily scan for %s: %w", today, err)
	}
	s.logger.WithFields(logrus.Fields{"date": today, "due_pairs": len(pairs)}).Info("Daily checkpoint scan started")

	outcomes := s.dispatcher.DispatchAll(ctx, pairs, DispatchOptions{Date: today, Claim: true})
	summary := &DailySummary{
		Success:           true,
		Date:              today,
		NotificationsSent: notification.CountSent(outcomes),
		Results:           outcomes,
	}
	if summary.Results == nil {
		summary.Results = []notification.Outcome{}
	}
	s.logger.WithFields(logrus.Fields{
		"date":               today,
		"notifications_sent": summary.NotificationsSent,
		"results":            len(summary.Results),
	}).Info("Daily checkpoint scan finished")
	return summary, nil
}

// SendCheckpoint dispatches one checkpoint on operator request. It bypasses the dispatch log.
func (s *NotificationService) SendCheckpoint(ctx context.Context, req CheckpointSend) (notification.Outcome, error) {
	req.CourseID = strings.TrimSpace(req.CourseID)
	if req.CourseID == "" || req.CourseTitle == "" || req.Checkpoint == "" {
		return notification.Outcome{}, ErrMissingFields
	}
	if !s.policy.CanSend(req.Checkpoint) {
		return notification.Outcome{}, fmt.Errorf("%w: %q", course.ErrInvalidCheckpoint, string(req.Checkpoint))
	}
	if !s.dispatcher.Configured() {
		return notification.Outcome{}, ErrGatewayNotConfigured
	}

	pair := notification.DuePair{CourseID: req.CourseID, CourseTitle: req.CourseTitle, Checkpoint: req.Checkpoint}
	return s.dispatcher.Dispatch(ctx, pair, DispatchOptions{Date: s.matcher.Today(time.Now())}), nil
}
