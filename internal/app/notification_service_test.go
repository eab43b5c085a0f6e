package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course_followup_service/internal/domain/course"
	"course_followup_service/internal/domain/notification"
)

type notificationFixture struct {
	courses *mockCourseRepo
	regs    *mockRegistrationRepo
	gateway *recordingGateway
	log     *mockLogRepo
	svc     *NotificationService
}

func setupNotificationService(policy course.CheckpointPolicy, cs ...*course.Course) *notificationFixture {
	fx := &notificationFixture{
		courses: newMockCourseRepo(cs...),
		regs:    newMockRegistrationRepo(),
		gateway: &recordingGateway{},
		log:     newMockLogRepo(),
	}
	matcher := NewCheckpointMatcher(fx.courses, policy, utc7, testLogger())
	dispatcher := NewDispatcher(fx.regs, fx.gateway, fx.log, nil, "liff-test", 4, testLogger())
	fx.svc = NewNotificationService(matcher, dispatcher, policy, testLogger())
	return fx
}

var scanTime = time.Date(2026, 3, 10, 8, 0, 0, 0, utc7)

func TestNotificationService_RunDailyScan_EndToEnd(t *testing.T) {
	c1 := finishedCourse("C1", map[course.CheckpointKey]string{course.CheckpointWeek4: "2026-03-10"})
	c1.Title = "C1"
	fx := setupNotificationService(course.DefaultPolicy(), c1)
	fx.regs.add("C1", "U1", "U2", "U3")

	summary, err := fx.svc.RunDailyScan(context.Background(), scanTime)
	require.NoError(t, err)

	assert.True(t, summary.Success)
	assert.Equal(t, "2026-03-10", summary.Date)
	assert.Equal(t, 1, summary.NotificationsSent)
	assert.Equal(t, []notification.Outcome{{
		Course: "C1", CourseID: "C1", Checkpoint: course.CheckpointWeek4,
		Status: notification.StatusSent, SentTo: 3,
	}}, summary.Results)

	require.Len(t, fx.gateway.calls, 1)
	assert.Len(t, fx.gateway.calls[0].Recipients, 3)
	assert.Equal(t, "Reminder: week 4 follow-up assessment", fx.gateway.calls[0].Message.AltText)
}

func TestNotificationService_RunDailyScan_NoRegistrations(t *testing.T) {
	fx := setupNotificationService(course.DefaultPolicy(),
		finishedCourse("C1", map[course.CheckpointKey]string{course.CheckpointWeek4: "2026-03-10"}))

	summary, err := fx.svc.RunDailyScan(context.Background(), scanTime)
	require.NoError(t, err)

	require.Len(t, summary.Results, 1)
	assert.Equal(t, notification.StatusSkipped, summary.Results[0].Status)
	assert.Equal(t, "no registered users", summary.Results[0].Reason)
	assert.Equal(t, 0, summary.NotificationsSent)
	assert.Equal(t, 0, fx.gateway.callCount())
}

func TestNotificationService_RunDailyScan_SecondRunSameDayDoesNotResend(t *testing.T) {
	fx := setupNotificationService(course.DefaultPolicy(),
		finishedCourse("C1", map[course.CheckpointKey]string{course.CheckpointWeek2: "2026-03-10"}))
	fx.regs.add("C1", "U1")

	_, err := fx.svc.RunDailyScan(context.Background(), scanTime)
	require.NoError(t, err)
	second, err := fx.svc.RunDailyScan(context.Background(), scanTime.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 1, fx.gateway.callCount())
	assert.Equal(t, 0, second.NotificationsSent)
	assert.Equal(t, notification.ReasonAlreadyDispatched, second.Results[0].Reason)
}

func TestNotificationService_RunDailyScan_NothingDue(t *testing.T) {
	fx := setupNotificationService(course.DefaultPolicy())

	summary, err := fx.svc.RunDailyScan(context.Background(), scanTime)
	require.NoError(t, err)
	assert.NotNil(t, summary.Results)
	assert.Empty(t, summary.Results)
}

func TestNotificationService_RunDailyScan_NoGateway(t *testing.T) {
	policy := course.DefaultPolicy()
	matcher := NewCheckpointMatcher(newMockCourseRepo(), policy, utc7, testLogger())
	dispatcher := NewDispatcher(newMockRegistrationRepo(), nil, nil, nil, "liff-test", 1, testLogger())
	svc := NewNotificationService(matcher, dispatcher, policy, testLogger())

	_, err := svc.RunDailyScan(context.Background(), scanTime)
	assert.ErrorIs(t, err, ErrGatewayNotConfigured)
}

func TestNotificationService_SendCheckpoint(t *testing.T) {
	fx := setupNotificationService(course.DefaultPolicy())
	fx.regs.add("C1", "U1", "U2")

	o, err := fx.svc.SendCheckpoint(context.Background(), CheckpointSend{CourseID: "C1", CourseTitle: "Safety", Checkpoint: course.CheckpointWeek2})
	require.NoError(t, err)
	assert.Equal(t, notification.StatusSent, o.Status)
	assert.Equal(t, 2, o.SentTo)

	// Operator resends bypass the dispatch log.
	_, err = fx.svc.SendCheckpoint(context.Background(), CheckpointSend{CourseID: "C1", CourseTitle: "Safety", Checkpoint: course.CheckpointWeek2})
	require.NoError(t, err)
	assert.Equal(t, 2, fx.gateway.callCount())
}

func TestNotificationService_SendCheckpoint_Validation(t *testing.T) {
	fx := setupNotificationService(course.DefaultPolicy())

	tests := []struct {
		name string
		req  CheckpointSend
		want error
	}{
		{"missing course", CheckpointSend{CourseTitle: "T", Checkpoint: course.CheckpointWeek2}, ErrMissingFields},
		{"missing title", CheckpointSend{CourseID: "C1", Checkpoint: course.CheckpointWeek2}, ErrMissingFields},
		{"missing checkpoint", CheckpointSend{CourseID: "C1", CourseTitle: "T"}, ErrMissingFields},
		{"unknown checkpoint", CheckpointSend{CourseID: "C1", CourseTitle: "T", Checkpoint: "3"}, course.ErrInvalidCheckpoint},
		{"pre not allowed by default", CheckpointSend{CourseID: "C1", CourseTitle: "T", Checkpoint: course.CheckpointPre}, course.ErrInvalidCheckpoint},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.svc.SendCheckpoint(context.Background(), tt.req)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
	assert.Equal(t, 0, fx.gateway.callCount())
}

func TestNotificationService_SendCheckpoint_PreUsesCompletionTemplate(t *testing.T) {
	fx := setupNotificationService(course.DefaultPolicy().WithPreSend())
	fx.regs.add("C1", "U1")

	o, err := fx.svc.SendCheckpoint(context.Background(), CheckpointSend{CourseID: "C1", CourseTitle: "Safety", Checkpoint: course.CheckpointPre})
	require.NoError(t, err)
	assert.Equal(t, notification.StatusSent, o.Status)
	assert.Equal(t, notification.BaseColor, fx.gateway.calls[0].Message.Contents.Header.BackgroundColor)
}
