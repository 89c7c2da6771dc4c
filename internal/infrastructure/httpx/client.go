package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/timeout"
)

const (
	defaultUserAgent = "AckeeVeille/1.0"
	maxBodyBytes     = 16 << 20
	errorBodyPreview = 512
)

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %s", e.Status)
	}
	return fmt.Sprintf("unexpected status %s: %s", e.Status, e.Body)
}

// Client performs outgoing calls, each one bounded by a failsafe-go timeout policy.
// It never retries.
type Client struct {
	http      *http.Client
	timeout   time.Duration
	userAgent string
}

// NewClient wraps an HTTP client; a nil client gets a fresh one and a non-positive timeout
// leaves calls bounded only by ctx.
func NewClient(client *http.Client, callTimeout time.Duration) *Client {
	if client == nil {
		client = &http.Client{}
	}
	return &Client{http: client, timeout: callTimeout, userAgent: defaultUserAgent}
}

// Get fetches url and returns the response body.
func (c *Client) Get(ctx context.Context, url string, header http.Header) ([]byte, error) {
	return c.do(ctx, http.MethodGet, url, header, nil)
}

// PostJSON marshals payload, posts it and decodes the response into v when v is not nil.
func (c *Client) PostJSON(ctx context.Context, url string, header http.Header, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	h := header.Clone()
	if h == nil {
		h = http.Header{}
	}
	h.Set("Content-Type", "application/json")

	raw, err := c.do(ctx, http.MethodPost, url, h, body)
	if err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// IsTimeout reports whether err comes from the per-call limit or a context deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, timeout.ErrExceeded) || errors.Is(err, context.DeadlineExceeded)
}

func (c *Client) do(ctx context.Context, method, url string, header http.Header, body []byte) ([]byte, error) {
	var policies []failsafe.Policy[[]byte]
	if c.timeout > 0 {
		policies = append(policies, timeout.NewBuilder[[]byte](c.timeout).Build())
	}

	return failsafe.With(policies...).WithContext(ctx).GetWithExecution(func(exec failsafe.Execution[[]byte]) ([]byte, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(exec.Context(), method, url, reader)
		if err != nil {
			return nil, fmt.Errorf("new request: %w", err)
		}
		for key, values := range header {
			for _, value := range values {
				req.Header.Add(key, value)
			}
		}
		if req.Header.Get("User-Agent") == "" {
			req.Header.Set("User-Agent", c.userAgent)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("do request: %w", err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			preview := raw
			if len(preview) > errorBodyPreview {
				preview = preview[:errorBodyPreview]
			}
			return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(bytes.TrimSpace(preview))}
		}

		return raw, nil
	})
}
