package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"course_followup_service/internal/domain/push"
	domaintelegram "course_followup_service/internal/domain/telegram"
)

// Gateway implements push.Gateway over Telegram private chats. Recipients are
// numeric chat ids. Telegram has no multicast, so the message is sent per chat;
// the call fails if any recipient fails.
type Gateway struct {
	client domaintelegram.Client
	logger *logrus.Entry
}

func NewGateway(client domaintelegram.Client, logger *logrus.Entry) *Gateway {
	return &Gateway{client: client, logger: logger.WithField("component", "telegram_gateway")}
}

func (g *Gateway) Multicast(ctx context.Context, recipients []string, msg push.Message) error {
	text := RenderText(msg)
	button := LinkButtonFor(msg)

	var errs []error
	failed := 0
	for _, r := range recipients {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		chatID, err := strconv.ParseInt(r, 10, 64)
		if err != nil {
			failed++
			errs = append(errs, fmt.Errorf("recipient %q is not a telegram chat id", r))
			continue
		}
		if err := g.client.SendNotification(chatID, text, button); err != nil {
			failed++
			errs = append(errs, fmt.Errorf("recipient %d: %w", chatID, err))
		}
	}
	if len(errs) > 0 {
		g.logger.WithFields(logrus.Fields{"recipients": len(recipients), "failed": failed}).Warn("Telegram delivery incomplete")
		return fmt.Errorf("telegram delivery failed for %d of %d recipients: %w", failed, len(recipients), errors.Join(errs...))
	}
	return nil
}

// RenderText flattens a structured message for a text-only channel. The link
// travels separately as a button.
func RenderText(msg push.Message) string {
	var b strings.Builder
	b.WriteString(msg.AltText)
	if body := msg.PlainText(); body != "" {
		b.WriteString("\n\n")
		b.WriteString(body)
	}
	return b.String()
}

// LinkButtonFor maps the message's primary action to an inline button, or nil.
func LinkButtonFor(msg push.Message) *domaintelegram.LinkButton {
	a := msg.PrimaryAction()
	if a == nil {
		return nil
	}
	label := a.Label
	if label == "" {
		label = "Open"
	}
	return &domaintelegram.LinkButton{Text: label, URL: a.URI}
}
