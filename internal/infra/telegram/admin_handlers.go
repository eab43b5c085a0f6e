package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"course_followup_service/internal/app"
	"course_followup_service/internal/domain/course"
	"course_followup_service/internal/domain/notification"
)

const (
	msgUnauthorized = "Error: you are not allowed to run this command."
	callbackFinish  = "finish_yes_"
	callbackCancel  = "finish_no_"
)

// AdminServices groups the application services the admin commands call.
type AdminServices struct {
	Admin         *app.AdminService
	Notifications *app.NotificationService
	Enrollment    *app.EnrollmentService
	Reports       *app.ReportService
}

// RegisterAdminHandlers registers handlers for admin commands.
func RegisterAdminHandlers(ctx context.Context, b *telebot.Bot, svc AdminServices, baseLogger *logrus.Entry) {
	b.Handle("/finish", func(c telebot.Context) error {
		handlerLogger := commandLogger(baseLogger, "/finish", c)
		if !svc.Admin.IsAdmin(c.Sender().ID) {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send(msgUnauthorized)
		}

		args := c.Args()
		// Expected format: /finish <courseId>
		if len(args) != 1 {
			return c.Send("Invalid format. Use: /finish <courseId>")
		}
		courseID := args[0]
		handlerLogger.WithField("course_id", courseID).Info("Asking for finish confirmation")

		markup := &telebot.ReplyMarkup{InlineKeyboard: [][]telebot.InlineButton{{
			{Text: "Yes, finish and notify", Data: callbackFinish + courseID},
			{Text: "Cancel", Data: callbackCancel + courseID},
		}}}
		return c.Send(fmt.Sprintf("Mark course %s as finished and send the week 0 assessment to every registered trainee?", courseID), markup)
	})

	b.Handle("/send", func(c telebot.Context) error {
		handlerLogger := commandLogger(baseLogger, "/send", c)
		if !svc.Admin.IsAdmin(c.Sender().ID) {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send(msgUnauthorized)
		}

		req, err := ParseSendArgs(c.Args())
		if err != nil {
			return c.Send("Invalid format. Use: /send <courseId> <checkpoint> <course title>")
		}
		handlerLogger = handlerLogger.WithFields(logrus.Fields{"course_id": req.CourseID, "checkpoint": req.Checkpoint})

		outcome, err := svc.Notifications.SendCheckpoint(ctx, req)
		if err != nil {
			handlerLogger.WithError(err).Warn("Ad-hoc send rejected")
			switch {
			case errors.Is(err, course.ErrInvalidCheckpoint):
				return c.Send(fmt.Sprintf("Error: checkpoint %q cannot be sent.", req.Checkpoint))
			case errors.Is(err, app.ErrGatewayNotConfigured):
				return c.Send("Error: the push gateway is not configured.")
			default:
				return c.Send(fmt.Sprintf("An error occurred: %s", err.Error()))
			}
		}
		handlerLogger.WithField("status", outcome.Status).Info("Ad-hoc send finished")
		return c.Send(FormatOutcome(outcome))
	})

	b.Handle("/regen_key", func(c telebot.Context) error {
		handlerLogger := commandLogger(baseLogger, "/regen_key", c)
		if !svc.Admin.IsAdmin(c.Sender().ID) {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send(msgUnauthorized)
		}

		args := c.Args()
		if len(args) != 1 {
			return c.Send("Invalid format. Use: /regen_key <courseId>")
		}
		key, err := svc.Enrollment.RegenerateKey(ctx, args[0])
		if err != nil {
			handlerLogger.WithError(err).Warn("Failed to regenerate registration key")
			if errors.Is(err, course.ErrCourseNotFound) {
				return c.Send(fmt.Sprintf("Course %s not found.", args[0]))
			}
			return c.Send(fmt.Sprintf("An error occurred: %s", err.Error()))
		}
		return c.Send(fmt.Sprintf("New registration key for %s: %s", args[0], key))
	})

	b.Handle("/completion", func(c telebot.Context) error {
		handlerLogger := commandLogger(baseLogger, "/completion", c)
		if !svc.Admin.IsAdmin(c.Sender().ID) {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send(msgUnauthorized)
		}

		args := c.Args()
		// Expected format: /completion <courseId> [all|complete|incomplete]
		if len(args) < 1 || len(args) > 2 {
			return c.Send("Invalid format. Use: /completion <courseId> [all|complete|incomplete]")
		}
		q := app.CompletionQuery{Sort: "completion"}
		if len(args) == 2 {
			q.Class = args[1]
		}
		report, err := svc.Reports.Completion(ctx, args[0], q)
		if err != nil {
			handlerLogger.WithError(err).Warn("Failed to build completion report")
			if errors.Is(err, course.ErrCourseNotFound) {
				return c.Send(fmt.Sprintf("Course %s not found.", args[0]))
			}
			return c.Send(fmt.Sprintf("An error occurred: %s", err.Error()))
		}
		return c.Send(FormatCompletion(report))
	})
}

func commandLogger(base *logrus.Entry, command string, c telebot.Context) *logrus.Entry {
	l := base.WithFields(logrus.Fields{
		"handler":   command,
		"sender_id": c.Sender().ID,
	})
	l.Info("Command received")
	return l
}

// ParseSendArgs reads "<courseId> <checkpoint> <title words...>".
func ParseSendArgs(args []string) (app.CheckpointSend, error) {
	if len(args) < 3 {
		return app.CheckpointSend{}, app.ErrMissingFields
	}
	key, err := course.ParseCheckpointKey(args[1])
	if err != nil {
		return app.CheckpointSend{}, err
	}
	return app.CheckpointSend{
		CourseID:    args[0],
		Checkpoint:  key,
		CourseTitle: strings.Join(args[2:], " "),
	}, nil
}

// FormatOutcome renders one dispatch outcome for chat.
func FormatOutcome(o notification.Outcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s, %s: %s", o.CourseID, o.Checkpoint.Label(), o.Status)
	if o.SentTo > 0 {
		fmt.Fprintf(&b, " (%d recipients)", o.SentTo)
	}
	if o.Reason != "" {
		fmt.Fprintf(&b, " - %s", o.Reason)
	}
	return b.String()
}

// FormatCompletion renders a compact completion report for chat.
func FormatCompletion(r *app.CompletionReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "--- %s (%s) ---\n", r.CourseTitle, r.CourseID)
	fmt.Fprintf(&b, "Trainees: %d, registered: %d, responded: %d, complete: %d\n",
		r.Summary.KnownTrainees, r.Summary.RegisteredTrainees, r.Summary.RespondedTrainees, r.Summary.CompleteTrainees)
	for _, k := range r.Checkpoints {
		fmt.Fprintf(&b, "%s: %d\n", k.Label(), r.Summary.PerCheckpoint[k])
	}
	if len(r.Rows) == 0 {
		b.WriteString("No trainees match.")
		return b.String()
	}
	b.WriteString("\n")
	for _, row := range r.Rows {
		marks := make([]string, 0, len(r.Checkpoints))
		for _, k := range r.Checkpoints {
			if row.Done[k] {
				marks = append(marks, "✓")
			} else {
				marks = append(marks, "·")
			}
		}
		fmt.Fprintf(&b, "%s %s %d%%\n", row.DisplayName, strings.Join(marks, ""), row.Percent)
	}
	return strings.TrimRight(b.String(), "\n")
}
