package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// Emitter delivers a rendered post to a channel.
type Emitter interface {
	Emit(ctx context.Context, channel, text string) error
}

// LogEmitter writes every post to the log.
type LogEmitter struct{}

func (LogEmitter) Emit(ctx context.Context, channel, text string) error {
	slog.Info("Post", "channel", channel, "text", text)
	return nil
}

// WebhookEmitter posts {"channel": ..., "text": ...} as JSON to a URL.
type WebhookEmitter struct {
	httpClient *http.Client
	url        string
}

func NewWebhookEmitter(httpClient *http.Client, url string) *WebhookEmitter {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &WebhookEmitter{httpClient: httpClient, url: url}
}

type webhookPayload struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

func (w *WebhookEmitter) Emit(ctx context.Context, channel, text string) error {
	body, err := json.Marshal(webhookPayload{Channel: channel, Text: text})
	if err != nil {
		return fmt.Errorf("failed to encode post: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	return nil
}

// MultiEmitter delivers to every emitter and joins their errors.
type MultiEmitter []Emitter

func (m MultiEmitter) Emit(ctx context.Context, channel, text string) error {
	var errs []error
	for _, emitter := range m {
		if err := emitter.Emit(ctx, channel, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
