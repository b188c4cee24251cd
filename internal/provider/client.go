package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

var (
	// ErrUnavailable marks transient failures (network errors, 5xx).
	// Dispatch can be retried.
	ErrUnavailable = errors.New("compute provider unavailable")

	// ErrRejected marks permanent rejections (4xx). Retrying the same
	// request will not succeed.
	ErrRejected = errors.New("compute provider rejected the request")
)

// Config holds compute provider connection configuration
type Config struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	CallbackURL string // where the provider POSTs terminal callbacks
}

// DispatchRequest is the render request forwarded to the provider. The
// provider works asynchronously and reports the outcome to CallbackURL.
type DispatchRequest struct {
	JobID           string `json:"job_id"`
	Type            string `json:"type"`
	Prompt          string `json:"prompt,omitempty"`
	SourceURL       string `json:"source_url,omitempty"`
	DurationSeconds int    `json:"duration_seconds"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	FPS             int    `json:"fps"`
	Style           string `json:"style"`
	Quality         string `json:"quality"`
	OutputFormat    string `json:"output_format"`
	CallbackURL     string `json:"callback_url"`
}

// Client talks to the external video compute provider
type Client struct {
	config *Config
	client *http.Client
	logger *slog.Logger
}

func NewClient(config *Config, logger *slog.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		config: config,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Dispatch submits a render request. A nil return means the provider
// accepted the job; completion arrives later via callback.
func (c *Client) Dispatch(ctx context.Context, req *DispatchRequest) error {
	if req.CallbackURL == "" {
		req.CallbackURL = c.config.CallbackURL
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal dispatch request: %w", err)
	}

	url := c.config.BaseURL + "/v1/renders"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build dispatch request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		c.logger.Info("Dispatched job to compute provider",
			slog.String("job_id", req.JobID),
			slog.String("type", req.Type),
			slog.Int("status", resp.StatusCode),
		)
		return nil

	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)

	default:
		detail := readErrorDetail(resp.Body)
		if detail != "" {
			return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, detail)
		}
		return fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}
}

// readErrorDetail pulls a short error description out of a rejection body
func readErrorDetail(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}

	return ""
}
