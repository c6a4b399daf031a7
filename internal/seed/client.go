package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// maxRetryElapsed bounds how long one request keeps retrying.
const maxRetryElapsed = 30 * time.Second

// Client talks to the service API.
type Client struct {
	baseURL string
	http    *http.Client
	retry   func() backoff.BackOff
}

// NewClient creates a client with the given per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		retry: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.InitialInterval = 50 * time.Millisecond
			bo.MaxElapsedTime = maxRetryElapsed
			return bo
		},
	}
}

// retryable reports whether a status is worth another attempt.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// do runs one request with retries on 429 and 5xx. Other statuses are
// returned to the caller with the body read.
func (c *Client) do(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	var (
		status int
		out    []byte
	)
	operation := func() error {
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}
		defer resp.Body.Close()

		out, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		status = resp.StatusCode
		if retryable(status) {
			return fmt.Errorf("%s %s: status %d", method, path, status)
		}
		return nil
	}
	if err := backoff.Retry(operation, backoff.WithContext(c.retry(), ctx)); err != nil {
		return status, out, err
	}
	return status, out, nil
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	status, _, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, status)
	}
	return nil
}

// Post submits one observation and reports whether it was a duplicate.
func (c *Client) Post(ctx context.Context, o *Observation) (bool, error) {
	body, err := json.Marshal(o)
	if err != nil {
		return false, fmt.Errorf("marshal observation: %w", err)
	}
	status, resp, err := c.do(ctx, http.MethodPost, "/observations", body)
	if err != nil {
		return false, err
	}
	switch status {
	case http.StatusAccepted, http.StatusOK:
		var ack ackResponse
		if err := json.Unmarshal(resp, &ack); err != nil {
			return false, fmt.Errorf("decode ack: %w", err)
		}
		return ack.Duplicate, nil
	default:
		return false, fmt.Errorf("%w: status %d: %s", ErrRejected, status, bytes.TrimSpace(resp))
	}
}

// Leaderboard fetches GET /leaderboard for one metric.
func (c *Client) Leaderboard(ctx context.Context, metric string, limit int) (Leaderboard, error) {
	q := url.Values{"metric": {metric}, "limit": {strconv.Itoa(limit)}}
	status, body, err := c.do(ctx, http.MethodGet, "/leaderboard?"+q.Encode(), nil)
	if err != nil {
		return Leaderboard{}, err
	}
	if status != http.StatusOK {
		return Leaderboard{}, fmt.Errorf("leaderboard %s: status %d: %s", metric, status, bytes.TrimSpace(body))
	}
	var lb Leaderboard
	if err := json.Unmarshal(body, &lb); err != nil {
		return Leaderboard{}, fmt.Errorf("decode leaderboard: %w", err)
	}
	return lb, nil
}

// StoredObservations reads the observation count from GET /stats.
func (c *Client) StoredObservations(ctx context.Context) (int, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/stats", nil)
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK {
		return 0, fmt.Errorf("stats: status %d", status)
	}
	var stats struct {
		Observations int `json:"observations"`
	}
	if err := json.Unmarshal(body, &stats); err != nil {
		return 0, fmt.Errorf("decode stats: %w", err)
	}
	return stats.Observations, nil
}
