package notifier

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram rejects messages longer than this many characters.
const telegramMaxRunes = 4096

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram sends notifications to a single chat through the Bot API.
type Telegram struct {
	api    telegramAPI
	chatID int64
}

// NewTelegram creates a Telegram sender using the given bot token. Every Bot
// API request, including the token check made here, is bounded by timeout.
func NewTelegram(token string, chatID int64, timeout time.Duration) (*Telegram, error) {
	client := &http.Client{Timeout: timeout}
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return &Telegram{api: api, chatID: chatID}, nil
}

// Send posts the subject in bold followed by the body. Telegram HTML has no
// <br />, so line breaks are converted to newlines. Send returns once ctx is
// done even if the request is still in flight.
func (t *Telegram) Send(ctx context.Context, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	text := "<b>" + html.EscapeString(subject) + "</b>\n\n" +
		strings.TrimRight(strings.ReplaceAll(htmlBody, "<br />", "\n"), "\n")
	if r := []rune(text); len(r) > telegramMaxRunes {
		// Cut on a line boundary so no entity or tag is split.
		head := string(r[:telegramMaxRunes-2])
		if i := strings.LastIndex(head, "\n"); i > 0 {
			head = head[:i]
		}
		text = head + "\n…"
	}

	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	done := make(chan error, 1)
	go func() {
		_, err := t.api.Send(msg)
		done <- err
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("send telegram message: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send telegram message: %w", err)
		}
		return nil
	}
}
