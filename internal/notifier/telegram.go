package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

const apiBase = "https://api.telegram.org/bot"

// TelegramNotifier delivers trade alerts and command replies to the
// operator chat.
type TelegramNotifier struct {
	BotToken string
	ChatID   string
	Client   *http.Client
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken, chatID, proxyURL string) *TelegramNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &TelegramNotifier{
		BotToken: botToken,
		ChatID:   chatID,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (t *TelegramNotifier) method(name string) string {
	return apiBase + t.BotToken + "/" + name
}

// Send delivers one HTML message to the operator chat.
func (t *TelegramNotifier) Send(text string) error {
	body, err := json.Marshal(map[string]string{
		"chat_id":    t.ChatID,
		"text":       text,
		"parse_mode": "HTML",
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	resp, err := t.Client.Post(t.method("sendMessage"), "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("telegram API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// SendWithRetry retries transient Bot API failures with exponential
// backoff before giving up.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := t.Send(text); err != nil {
			lastErr = err
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			log.Printf("[WARN] Telegram send failed (attempt %d/%d): %v, retrying in %v",
				attempt+1, maxRetries+1, err, backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				continue
			}
		}
		return nil
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}

// Notify delivers a message asynchronously. Trading never blocks on
// Telegram; failures are logged and dropped after the retries.
func (t *TelegramNotifier) Notify(text string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := t.SendWithRetry(ctx, text, 3); err != nil {
			log.Printf("[ERROR] Telegram notification dropped: %v", err)
		}
	}()
}
