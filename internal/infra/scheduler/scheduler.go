package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"course_followup_service/internal/app"
)

const defaultJobTimeout = 10 * time.Minute

// DailyScanner is the part of app.NotificationService the scheduler drives.
type DailyScanner interface {
	RunDailyScan(ctx context.Context, now time.Time) (*app.DailySummary, error)
}

type NotificationScheduler struct {
	cronEngine    *cron.Cron
	scanner       DailyScanner
	logger        *logrus.Entry
	cronSpecDaily string
	jobTimeout    time.Duration
	now           func() time.Time
}

// NewNotificationScheduler runs the daily scan at cronSpecDaily, interpreted in loc.
func NewNotificationScheduler(scanner DailyScanner, logger *logrus.Entry, loc *time.Location, cronSpecDaily string) *NotificationScheduler {
	return &NotificationScheduler{
		cronEngine:    cron.New(cron.WithLocation(loc)),
		scanner:       scanner,
		logger:        logger.WithField("component", "scheduler"),
		cronSpecDaily: cronSpecDaily,
		jobTimeout:    defaultJobTimeout,
		now:           time.Now,
	}
}

func (s *NotificationScheduler) Start() error {
	s.logger.Info("Starting notification scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpecDaily, func() {
		s.logger.Info("Cron job triggered for daily checkpoint scan.")
		s.RunOnce()
	})
	if err != nil {
		return fmt.Errorf("could not add daily checkpoint cron job %q: %w", s.cronSpecDaily, err)
	}

	s.cronEngine.Start()
	s.logger.WithField("spec", s.cronSpecDaily).Info("Notification scheduler started with jobs.")
	return nil
}

// RunOnce executes one daily scan under the job timeout.
func (s *NotificationScheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	summary, err := s.scanner.RunDailyScan(ctx, s.now())
	if err != nil {
		s.logger.WithError(err).Error("Error during daily checkpoint scan")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"date":               summary.Date,
		"notifications_sent": summary.NotificationsSent,
		"results":            len(summary.Results),
	}).Info("Daily checkpoint scan completed")
}

func (s *NotificationScheduler) Stop() {
	s.logger.Info("Stopping notification scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()
	s.logger.Info("Notification scheduler gracefully stopped.")
}
