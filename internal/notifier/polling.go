package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

const (
	pollTimeout   = 30 * time.Second // Telegram long-poll hold
	pollRetryWait = 5 * time.Second
)

// CommandHandler turns one operator command into a reply. An empty
// reply means nothing is sent back.
type CommandHandler func(command string) string

type update struct {
	UpdateID int `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
	} `json:"message"`
}

// StartPolling long-polls getUpdates and feeds each text message to the
// handler. Blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	// The poll client needs headroom beyond the long-poll hold.
	client := &http.Client{Timeout: pollTimeout + 5*time.Second}
	offset := 0

	for {
		select {
		case <-ctx.Done():
			log.Println("[INFO] Telegram polling stopped")
			return
		default:
		}

		updates, err := t.poll(ctx, client, offset)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[WARN] Telegram poll: %v", err)
			time.Sleep(pollRetryWait)
			continue
		}

		for _, u := range updates {
			offset = u.UpdateID + 1
			if u.Message == nil || u.Message.Text == "" {
				continue
			}
			text := strings.TrimSpace(u.Message.Text)
			log.Printf("[INFO] received command: %s", text)
			if reply := handler(text); reply != "" {
				if err := t.Send(reply); err != nil {
					log.Printf("[ERROR] send reply: %v", err)
				}
			}
		}
	}
}

func (t *TelegramNotifier) poll(ctx context.Context, client *http.Client, offset int) ([]update, error) {
	apiURL := fmt.Sprintf("%s?offset=%d&timeout=%d",
		t.method("getUpdates"), offset, int(pollTimeout.Seconds()))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var result struct {
		OK     bool     `json:"ok"`
		Result []update `json:"result"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !result.OK {
		return nil, fmt.Errorf("getUpdates not ok: %s", strings.TrimSpace(string(body)))
	}
	return result.Result, nil
}
