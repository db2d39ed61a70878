package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Trainer requests a model retraining run for a symbol. The run itself
// happens elsewhere; this only kicks it off.
type Trainer interface {
	Trigger(ctx context.Context, symbol string) error
}

// HTTPTrainer posts retraining requests to the training service.
type HTTPTrainer struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPTrainer(baseURL string) *HTTPTrainer {
	return &HTTPTrainer{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (t *HTTPTrainer) Trigger(ctx context.Context, symbol string) error {
	body, err := json.Marshal(map[string]string{"symbol": symbol})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.BaseURL+"/train", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("trigger training: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("training service: status %d, body: %s", resp.StatusCode, string(raw))
	}
	return nil
}
