package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrRateLimited возвращается, если получатель вебхука ответил 429.
// Повторная отправка не выполняется.
var ErrRateLimited = errors.New("webhook rate limited")

// WebhookPublisher отправляет уведомления POST-запросом с JSON-телом.
type WebhookPublisher struct {
	url        string
	httpClient *http.Client
}

// NewWebhookPublisher создаёт издателя для указанного адреса.
func NewWebhookPublisher(url string) *WebhookPublisher {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}

	return &WebhookPublisher{
		url: url,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Name возвращает название канала.
func (p *WebhookPublisher) Name() string {
	return "webhook"
}

// Publish отправляет сообщение получателю вебхука.
func (p *WebhookPublisher) Publish(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		if v := resp.Header.Get("Retry-After"); v != "" {
			return fmt.Errorf("%w: retry after %ss", ErrRateLimited, v)
		}
		return ErrRateLimited
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return nil
}
