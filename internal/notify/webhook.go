// Package notify delivers breaking-news alerts to a downstream webhook.
// Delivery is fire-and-forget: the engine never waits on or fails from an
// attempt; the receiving collaborator handles duplicate deliveries.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/lueurxax/storypulse/internal/core/errors"
)

const defaultBurst = 1

type payload struct {
	ClusterKey string `json:"cluster_key"`
	Title      string `json:"title"`
	Score      int    `json:"score"`
}

// Webhook posts one JSON payload per breaking cluster.
type Webhook struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
	logger  *zerolog.Logger
}

// NewWebhook builds the dispatcher. Returns ErrNotifierDisabled when no
// destination is configured so the caller can run without notifications.
func NewWebhook(url string, timeout time.Duration, rps float64, logger *zerolog.Logger) (*Webhook, error) {
	if url == "" {
		return nil, errors.ErrNotifierDisabled
	}

	if rps <= 0 {
		rps = 1
	}

	return &Webhook{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), defaultBurst),
		logger:  logger,
	}, nil
}

// NotifyBreaking delivers {cluster key, title, DIS} for one cluster.
func (w *Webhook) NotifyBreaking(ctx context.Context, clusterKey, title string, score int) error {
	if err := w.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("notification rate limit: %w", err)
	}

	body, err := json.Marshal(payload{ClusterKey: clusterKey, Title: title, Score: score})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post notification: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("notification rejected: %s", resp.Status)
	}

	return nil
}
