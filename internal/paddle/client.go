package paddle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/paddleocr/internal/config"
	"github.com/lehigh-university-libraries/paddleocr/internal/payload"
)

// maxErrorBody caps how much of a failed response body ends up in errors.
const maxErrorBody = 512

// Sleeper waits between attempts. It returns early with the context error
// when ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Response is a successful recognition response.
type Response struct {
	// Body is the JSON document exactly as returned by the service.
	Body     []byte
	Attempts int
}

// Client submits recognition requests to the layout parsing endpoint.
type Client struct {
	httpClient *http.Client
	sleep      Sleeper
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client. Per-attempt timeouts come from the
// effective config, not from the client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithSleeper replaces the backoff sleeper.
func WithSleeper(s Sleeper) Option {
	return func(c *Client) { c.sleep = s }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		sleep:      sleepContext,
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Backoff returns the wait after failed attempt k (0-based): 2^k seconds.
func Backoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

// Submit sends req to the service, retrying timeouts, transport errors and
// HTTP error statuses up to cfg.MaxRetries attempts in total. Errors reported
// in the body of a successful response fail immediately.
func (c *Client) Submit(ctx context.Context, req *payload.Request, cfg *config.Effective) (*Response, error) {
	if err := cfg.RequireToken(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(buildBody(req, cfg.RecognitionOptions))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request for %s: %w", req.Path, err)
	}

	var lastErr error
	lastTimedOut := false
	for attempt := 0; attempt < cfg.MaxRetries; attempt++ {
		c.logger.Info("Submitting file for recognition",
			"file", req.Path,
			"attempt", fmt.Sprintf("%d/%d", attempt+1, cfg.MaxRetries))

		data, err := c.post(ctx, cfg, body)
		if err == nil {
			return &Response{Body: data, Attempts: attempt + 1}, nil
		}

		var svcErr *ServiceError
		if errors.As(err, &svcErr) || errors.Is(err, ErrMalformedResponse) {
			return nil, fmt.Errorf("recognition failed for %s: %w", req.Path, err)
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("recognition cancelled for %s: %w", req.Path, ctx.Err())
		}

		lastErr = err
		lastTimedOut = isTimeout(err)

		if attempt < cfg.MaxRetries-1 {
			wait := Backoff(attempt)
			c.logger.Warn("Request failed, retrying",
				"file", req.Path,
				"attempt", attempt+1,
				"timeout", lastTimedOut,
				"backoff", wait,
				"err", err)
			if err := c.sleep(ctx, wait); err != nil {
				return nil, fmt.Errorf("recognition cancelled for %s: %w", req.Path, err)
			}
		}
	}

	if lastTimedOut {
		return nil, fmt.Errorf("%w: %s after %d attempts: %w", ErrTimeoutExhausted, req.Path, cfg.MaxRetries, lastErr)
	}
	return nil, fmt.Errorf("%w: %s after %d attempts: %w", ErrRequestFailed, req.Path, cfg.MaxRetries, lastErr)
}

// buildBody merges the file fields with every set recognition option.
func buildBody(req *payload.Request, options map[string]any) map[string]any {
	body := make(map[string]any, len(options)+2)
	for k, v := range options {
		if v == nil {
			continue
		}
		body[k] = v
	}
	body["file"] = req.Content
	body["fileType"] = int(req.Kind)
	return body
}

func (c *Client) post(ctx context.Context, cfg *config.Effective, body []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "token "+cfg.Token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(data))}
	}

	if err := checkServiceError(data); err != nil {
		return nil, err
	}
	return data, nil
}

func checkServiceError(data []byte) error {
	var envelope struct {
		ErrorCode any `json:"error_code"`
		ErrorMsg  any `json:"error_msg"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if envelope.ErrorCode == nil {
		return nil
	}

	msg := "unknown error"
	if envelope.ErrorMsg != nil {
		msg = fmt.Sprint(envelope.ErrorMsg)
	}
	return &ServiceError{Code: fmt.Sprint(envelope.ErrorCode), Message: msg}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
