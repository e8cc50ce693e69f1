// File: internal/notify/telegram.go
// ============================================
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const telegramAPI = "https://api.telegram.org"

// TelegramSender posts HTML messages through the Bot API
type TelegramSender struct {
	apiURL   string
	botToken string
	chatID   string
	client   *http.Client
}

func NewTelegramSender(botToken, chatID string, timeout time.Duration) *TelegramSender {
	return &TelegramSender{
		apiURL:   telegramAPI,
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: timeout},
	}
}

// WithAPIURL points the sender at another Bot API host
func (t *TelegramSender) WithAPIURL(apiURL string) *TelegramSender {
	t.apiURL = strings.TrimRight(apiURL, "/")
	return t
}

func (t *TelegramSender) Send(ctx context.Context, title, message string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.botToken)

	data := url.Values{}
	data.Set("chat_id", t.chatID)
	data.Set("text", fmt.Sprintf("<b>%s</b>\n\n%s", title, message))
	data.Set("parse_mode", "HTML")
	data.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("telegram: unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

func (t *TelegramSender) Name() string {
	return "telegram"
}
