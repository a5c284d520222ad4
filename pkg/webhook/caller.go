// Package webhook issues outbound HTTP calls for webhook actions.
package webhook

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/storeflow/storeflow/pkg/config"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook returned status %d", e.Status)
}

// Caller sends one HTTP request per webhook action with a fixed timeout.
// It is safe for concurrent use.
type Caller struct {
	client  *http.Client
	timeout time.Duration
}

func NewCaller(timeout time.Duration) *Caller {
	if timeout <= 0 {
		timeout = config.DefaultWebhookTimeout
	}

	return &Caller{
		client:  &http.Client{},
		timeout: timeout,
	}
}

// Call issues the request and drains the response. A request error or a
// non-2xx status fails; the response body is discarded either way.
func (c *Caller) Call(ctx context.Context, method, url string, headers map[string]string, body string) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}

	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Status: resp.StatusCode}
	}

	return nil
}
