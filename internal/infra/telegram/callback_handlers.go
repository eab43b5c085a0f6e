// internal/infra/telegram/callback_handlers.go
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
)

// RegisterCallbackHandlers handles the inline confirmation buttons sent by /finish.
func RegisterCallbackHandlers(ctx context.Context, b *telebot.Bot, adminService *app.AdminService, baseLogger *logrus.Entry) {
	b.Handle(telebot.OnCallback, func(c telebot.Context) error {
		data := c.Callback().Data
		logCtx := baseLogger.WithFields(logrus.Fields{"handler": "callback", "sender_id": c.Sender().ID})

		if !adminService.IsAdmin(c.Sender().ID) {
			logCtx.Warn("Unauthorized callback")
			return c.Respond(&telebot.CallbackResponse{Text: msgUnauthorized})
		}

		if strings.HasPrefix(data, callbackFinish) {
			courseID := strings.TrimPrefix(data, callbackFinish)
			if courseID == "" {
				c.Bot().OnError(fmt.Errorf("invalid callback data format for finish: %s", data), c)
				return c.Respond(&telebot.CallbackResponse{Text: "Invalid course."})
			}

			res, err := adminService.FinishCourse(ctx, courseID, "")
			if err != nil {
				logCtx.WithError(err).WithField("course_id", courseID).Error("Manual finish failed")
				_ = c.Respond(&telebot.CallbackResponse{Text: "An error occurred."})
				if errors.Is(err, course.ErrCourseNotFound) {
					return c.Edit(fmt.Sprintf("Course %s not found.", courseID))
				}
				return c.Edit(fmt.Sprintf("Could not finish course %s: %s", courseID, err.Error()))
			}
			_ = c.Respond(&telebot.CallbackResponse{Text: "Done"})
			return c.Edit(FormatFinish(res))

		} else if strings.HasPrefix(data, callbackCancel) {
			_ = c.Respond(&telebot.CallbackResponse{Text: "Cancelled"})
			return c.Edit("Cancelled. The course was not changed.")
		}

		c.Bot().OnError(fmt.Errorf("unhandled callback data: %s", data), c)
		return c.Respond(&telebot.CallbackResponse{Text: "Unknown action."})
	})
}

// FormatFinish renders the manual trigger result for chat.
func FormatFinish(res *app.FinishResult) string {
	if res.AlreadyFinished {
		return fmt.Sprintf("Course %s was already finished. Nothing was sent.", res.CourseID)
	}
	if res.Notification == nil {
		return fmt.Sprintf("Course %s marked as finished.", res.CourseID)
	}
	return fmt.Sprintf("Course %s marked as finished.\n%s", res.CourseID, FormatOutcome(*res.Notification))
}
