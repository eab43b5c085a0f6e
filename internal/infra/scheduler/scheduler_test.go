package scheduler

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course_followup_service/internal/app"
)

type fakeScanner struct {
	mu       sync.Mutex
	calls    []time.Time
	deadline bool
	err      error
}

func (f *fakeScanner) RunDailyScan(ctx context.Context, now time.Time) (*app.DailySummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, now)
	_, f.deadline = ctx.Deadline()
	if f.err != nil {
		return nil, f.err
	}
	return &app.DailySummary{Success: true, Date: now.Format("2006-01-02")}, nil
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestNotificationScheduler_RunOnce(t *testing.T) {
	scanner := &fakeScanner{}
	s := NewNotificationScheduler(scanner, quietLogger(), time.UTC, "0 8 * * *")
	fixed := time.Date(2026, 3, 10, 1, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	s.RunOnce()

	require.Len(t, scanner.calls, 1)
	assert.Equal(t, fixed, scanner.calls[0])
	assert.True(t, scanner.deadline, "job must run under a timeout")
}

func TestNotificationScheduler_RunOnceSurvivesErrors(t *testing.T) {
	scanner := &fakeScanner{err: errors.New("db down")}
	s := NewNotificationScheduler(scanner, quietLogger(), time.UTC, "0 8 * * *")

	assert.NotPanics(t, s.RunOnce)
	assert.Len(t, scanner.calls, 1)
}

func TestNotificationScheduler_StartRejectsBadSpec(t *testing.T) {
	s := NewNotificationScheduler(&fakeScanner{}, quietLogger(), time.UTC, "not a cron spec")
	assert.Error(t, s.Start())
}

func TestNotificationScheduler_StartStop(t *testing.T) {
	s := NewNotificationScheduler(&fakeScanner{}, quietLogger(), time.FixedZone("UTC+7", 7*3600), "0 8 * * *")
	require.NoError(t, s.Start())
	s.Stop()
}
