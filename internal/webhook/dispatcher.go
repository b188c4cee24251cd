package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Lifecycle event types relayed to a job's callback URL
const (
	EventCreated   = "created"
	EventStarted   = "started"
	EventProgress  = "progress"
	EventCompleted = "completed"
	EventFailed    = "failed"
)

// Event is the payload POSTed to a job's configured callback URL
type Event struct {
	JobID        string `json:"job_id"`
	Event        string `json:"event"`
	Status       string `json:"status"`
	OutputURL    string `json:"output_url,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	Timestamp    string `json:"timestamp"`
}

// Dispatcher delivers webhook events best-effort: bounded retries, bounded
// request time, and failures logged rather than surfaced. A webhook must
// never roll back or delay the job mutation that triggered it.
type Dispatcher struct {
	client     *http.Client
	logger     *slog.Logger
	maxRetries int
	retryDelay time.Duration
}

func NewDispatcher(logger *slog.Logger, timeout time.Duration, maxRetries int, retryDelay time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	if retryDelay <= 0 {
		retryDelay = 500 * time.Millisecond
	}

	return &Dispatcher{
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// Dispatch POSTs the event to the URL, retrying transient failures. The
// returned error is informational; callers treat delivery as best effort.
func (d *Dispatcher) Dispatch(ctx context.Context, url string, event *Event) error {
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook event: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(d.retryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = d.post(ctx, url, body)
		if lastErr == nil {
			d.logger.Debug("Webhook delivered",
				slog.String("job_id", event.JobID),
				slog.String("event", event.Event),
				slog.String("url", url),
			)
			return nil
		}
	}

	d.logger.Warn("Webhook delivery failed",
		slog.String("job_id", event.JobID),
		slog.String("event", event.Event),
		slog.String("url", url),
		slog.Int("attempts", d.maxRetries+1),
		slog.String("error", lastErr.Error()),
	)

	return fmt.Errorf("webhook delivery failed after %d attempts: %w", d.maxRetries+1, lastErr)
}

// DispatchAsync fires the event from a fresh goroutine with its own
// timeout, detached from the request that triggered it.
func (d *Dispatcher) DispatchAsync(url string, event *Event) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = d.Dispatch(ctx, url, event)
	}()
}

func (d *Dispatcher) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode)
	}

	return nil
}
