package provider

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dispatchRequest() *DispatchRequest {
	return &DispatchRequest{
		JobID:           "job-1",
		Type:            "generate",
		Prompt:          "a storm over the north sea",
		DurationSeconds: 5,
		Width:           1280,
		Height:          720,
		FPS:             24,
		Style:           "cinematic",
		Quality:         "standard",
		OutputFormat:    "mp4",
	}
}

func TestDispatchAccepted(t *testing.T) {
	var got DispatchRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/renders", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewClient(&Config{
		BaseURL:     srv.URL,
		APIKey:      "sk-test",
		Timeout:     time.Second,
		CallbackURL: "https://api.example.com/internal/v1/callbacks/runner",
	}, discardLogger())

	err := c.Dispatch(context.Background(), dispatchRequest())

	require.NoError(t, err)
	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, "job-1", got.JobID)
	// the configured callback URL is filled in when the request has none
	assert.Equal(t, "https://api.example.com/internal/v1/callbacks/runner", got.CallbackURL)
}

func TestDispatchServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(&Config{BaseURL: srv.URL, Timeout: time.Second}, discardLogger())

	err := c.Dispatch(context.Background(), dispatchRequest())

	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestDispatchNetworkErrorIsUnavailable(t *testing.T) {
	c := NewClient(&Config{BaseURL: "http://127.0.0.1:1", Timeout: 100 * time.Millisecond}, discardLogger())

	err := c.Dispatch(context.Background(), dispatchRequest())

	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestDispatchRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"message": "prompt violates content policy"})
	}))
	defer srv.Close()

	c := NewClient(&Config{BaseURL: srv.URL, Timeout: time.Second}, discardLogger())

	err := c.Dispatch(context.Background(), dispatchRequest())

	require.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "prompt violates content policy")
}

func TestDispatchKeepsExplicitCallbackURL(t *testing.T) {
	var got DispatchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(&Config{
		BaseURL:     srv.URL,
		Timeout:     time.Second,
		CallbackURL: "https://api.example.com/default",
	}, discardLogger())

	req := dispatchRequest()
	req.CallbackURL = "https://api.example.com/explicit"
	require.NoError(t, c.Dispatch(context.Background(), req))

	assert.Equal(t, "https://api.example.com/explicit", got.CallbackURL)
}
