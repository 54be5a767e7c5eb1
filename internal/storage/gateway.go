package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/allisson/streamvault/internal/errors"
)

// GatewayClient talks to the storage network through an HTTP gateway. Writes
// go to the gateway's add endpoint, reads go to whatever URL the locator
// normalizer produced. Transient failures (network errors and 5xx responses)
// are retried with a fixed backoff and ultimately wrapped in
// errors.ErrUnavailable so callers can distinguish them from permanent ones.
type GatewayClient struct {
	gatewayURL string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger
}

type gatewayClientOptions struct {
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
}

// GatewayClientOption customizes a GatewayClient.
type GatewayClientOption func(*gatewayClientOptions)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) GatewayClientOption {
	return func(o *gatewayClientOptions) {
		o.httpClient = c
	}
}

// WithMaxRetries sets how many times a failed request is retried.
func WithMaxRetries(n int) GatewayClientOption {
	return func(o *gatewayClientOptions) {
		o.maxRetries = n
	}
}

// WithRetryBackoff sets the pause between retries.
func WithRetryBackoff(d time.Duration) GatewayClientOption {
	return func(o *gatewayClientOptions) {
		o.backoff = d
	}
}

// NewGatewayClient returns a GatewayClient pointed at gatewayURL.
func NewGatewayClient(gatewayURL string, logger *slog.Logger, opts ...GatewayClientOption) *GatewayClient {
	options := gatewayClientOptions{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxRetries: 3,
		backoff:    500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &GatewayClient{
		gatewayURL: strings.TrimRight(gatewayURL, "/"),
		httpClient: options.httpClient,
		maxRetries: options.maxRetries,
		backoff:    options.backoff,
		logger:     logger,
	}
}

type addResponse struct {
	CID string `json:"cid"`
}

// Upload stores data on the network and returns its content identifier.
func (g *GatewayClient) Upload(ctx context.Context, data []byte, mimeType string) (string, error) {
	var cid string

	err := g.doWithRetry(ctx, "upload", func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.gatewayURL+"/api/v0/add", bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", mimeType)
		return req, nil
	}, func(resp *http.Response) error {
		var body addResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return fmt.Errorf("decode add response: %w", err)
		}
		if body.CID == "" {
			return fmt.Errorf("add response missing cid")
		}
		cid = body.CID
		return nil
	})
	if err != nil {
		return "", err
	}

	return cid, nil
}

// Fetch retrieves a blob. Root-relative locators are resolved against the
// gateway URL; absolute ones are requested as given.
func (g *GatewayClient) Fetch(ctx context.Context, url string) ([]byte, error) {
	target := url
	if strings.HasPrefix(target, "/") {
		target = g.gatewayURL + target
	}

	var data []byte

	err := g.doWithRetry(ctx, "fetch", func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	}, func(resp *http.Response) error {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read fetch response: %w", err)
		}
		data = body
		return nil
	})
	if err != nil {
		return nil, err
	}

	return data, nil
}

// doWithRetry runs an HTTP request with bounded retries. Network errors and
// 5xx responses are retried; 404 maps to ErrNotFound and other 4xx responses
// fail immediately.
func (g *GatewayClient) doWithRetry(ctx context.Context, op string, newRequest func() (*http.Request, error), handle func(*http.Response) error) error {
	var lastErr error

	backoff := g.backoff
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			g.logger.Warn(
				"retrying storage gateway request",
				slog.String("operation", op),
				slog.Int("attempt", attempt),
				slog.String("error", lastErr.Error()),
			)
			select {
			case <-ctx.Done():
				return errors.Wrap(errors.ErrUnavailable, ctx.Err().Error())
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		req, err := newRequest()
		if err != nil {
			return fmt.Errorf("build storage gateway request: %w", err)
		}

		resp, err := g.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			_ = resp.Body.Close()
			return errors.Wrap(errors.ErrNotFound, fmt.Sprintf("storage gateway %s: blob not found", op))
		case resp.StatusCode >= 500:
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("storage gateway %s: status %d", op, resp.StatusCode)
			continue
		case resp.StatusCode >= 400:
			_ = resp.Body.Close()
			return errors.Wrap(errors.ErrInvalidInput, fmt.Sprintf("storage gateway %s: status %d", op, resp.StatusCode))
		}

		err = handle(resp)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	return errors.Wrap(errors.ErrUnavailable, fmt.Sprintf("storage gateway %s: %s", op, lastErr.Error()))
}
