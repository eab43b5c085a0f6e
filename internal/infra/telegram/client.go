// internal/infra/telegram/client.go
package telegram

import (
	"gopkg.in/telebot.v3"

	domaintelegram "course_followup_service/internal/domain/telegram"
)

// TelebotAdapter implements the domain Client with gopkg.in/telebot.v3.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// SendNotification sends text to a private chat, with the link as an inline URL button.
func (tba *TelebotAdapter) SendNotification(chatID int64, text string, button *domaintelegram.LinkButton) error {
	_, err := tba.bot.Send(&telebot.User{ID: chatID}, text, sendOptions(button))
	return err
}

func sendOptions(button *domaintelegram.LinkButton) *telebot.SendOptions {
	opts := &telebot.SendOptions{DisableWebPagePreview: true}
	if button == nil || button.URL == "" {
		return opts
	}
	markup := &telebot.ReplyMarkup{}
	markup.Inline(markup.Row(markup.URL(button.Text, button.URL)))
	opts.ReplyMarkup = markup
	return opts
}
