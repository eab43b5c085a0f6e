package telegram

// LinkButton is an inline button that opens URL.
type LinkButton struct {
	Text string
	URL  string
}

// Client delivers notification text to a private chat.
type Client interface {
	// SendNotification sends text to chatID. button may be nil.
	SendNotification(chatID int64, text string, button *LinkButton) error
}
