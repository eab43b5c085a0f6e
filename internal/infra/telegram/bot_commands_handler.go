// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"course_followup_service/internal/app"
	"course_followup_service/internal/domain/course"
)

func RegisterBotCommands(
	ctx context.Context,
	b *telebot.Bot,
	adminService *app.AdminService,
	enrollmentService *app.EnrollmentService,
	baseLogger *logrus.Entry,
) {
	startHelpLogger := baseLogger.WithField("handler_group", "start_help")

	b.Handle("/start", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/start").WithField("sender_id", senderID)
		logCtx.Info("Processing /start command")

		if adminService.IsAdmin(senderID) {
			return c.Send(fmt.Sprintf("Hello, administrator %s! Use /help for the list of commands.", c.Sender().FirstName))
		}
		return c.Send("Hello! I send follow-up assessment reminders for your courses. Join a course with /join <courseId> <registration key>.")
	})

	b.Handle("/help", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/help").WithField("sender_id", senderID)
		logCtx.Info("Processing /help command")

		if adminService.IsAdmin(senderID) {
			return c.Send(AdminHelpText(), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
		}
		return c.Send("`/join <courseId> <key>`\n - Register for a course to receive its follow-up reminders.\n\n`/help`\n - Show this message.",
			&telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})

	b.Handle("/join", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := baseLogger.WithFields(logrus.Fields{"handler": "/join", "sender_id": senderID})

		args := c.Args()
		// Expected format: /join <courseId> [key]
		if len(args) < 1 || len(args) > 2 {
			return c.Send("Invalid format. Use: /join <courseId> <registration key>")
		}
		var key string
		if len(args) == 2 {
			key = args[1]
		}

		result, err := enrollmentService.RegisterWithKey(ctx, strconv.FormatInt(senderID, 10), args[0], key)
		if err != nil {
			logCtx.WithError(err).WithField("course_id", args[0]).Warn("Registration failed")
			switch {
			case errors.Is(err, course.ErrCourseNotFound):
				return c.Send("Course not found. Please check the course id.")
			case errors.Is(err, app.ErrInvalidRegistrationKey):
				return c.Send("The registration key is not valid for this course.")
			default:
				return c.Send("An error occurred while registering. Please try again later.")
			}
		}
		if result == app.ResultAlreadyRegistered {
			return c.Send("You are already registered for this course.")
		}
		logCtx.WithField("course_id", args[0]).Info("Trainee registered via Telegram")
		return c.Send("You are registered! You will receive the follow-up assessments for this course here.")
	})
}

func AdminHelpText() string {
	var helpText strings.Builder
	helpText.WriteString("Administrator commands:\n\n")
	helpText.WriteString("`/finish <courseId>`\n - Mark a course finished and send the week 0 assessment (asks for confirmation).\n\n")
	helpText.WriteString("`/send <courseId> <checkpoint> <course title>`\n - Send a checkpoint notification now.\n\n")
	helpText.WriteString("`/regen_key <courseId>`\n - Generate a new registration key.\n\n")
	helpText.WriteString("`/completion <courseId> [all|complete|incomplete]`\n - Show the completion matrix.\n\n")
	helpText.WriteString("`/help`\n - Show this message.")
	return helpText.String()
}
