package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/aurorasynth/aurora-backend/internal/provider"
	"github.com/aurorasynth/aurora-backend/internal/webhook"
	"github.com/aurorasynth/aurora-backend/internal/worker/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJobStore struct {
	mu       sync.Mutex
	jobs     map[string]*domain.Job
	failed   map[string]string
	claimErr error
	markErr  error
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{
		jobs:   make(map[string]*domain.Job),
		failed: make(map[string]string),
	}
}

func (f *fakeJobStore) ClaimJob(ctx context.Context, jobID, workerID string) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.claimErr != nil {
		return nil, f.claimErr
	}
	job, ok := f.jobs[jobID]
	if !ok || job.Status == domain.JobStatusCompleted || job.Status == domain.JobStatusFailed {
		return nil, domain.ErrJobUnavailable
	}
	job.Status = domain.JobStatusProcessing
	job.WorkerID = workerID
	copied := *job
	return &copied, nil
}

func (f *fakeJobStore) MarkJobFailed(ctx context.Context, jobID, errorMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.markErr != nil {
		return f.markErr
	}
	if job, ok := f.jobs[jobID]; ok {
		job.Status = domain.JobStatusFailed
	}
	f.failed[jobID] = errorMsg
	return nil
}

type fakeDispatcher struct {
	mu       sync.Mutex
	requests []*provider.DispatchRequest
	err      error
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, req *provider.DispatchRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.requests = append(f.requests, req)
	return nil
}

func newTestWorker(store *fakeJobStore, dispatcher *fakeDispatcher) *Worker {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &Worker{
		logger:     logger,
		storage:    store,
		provider:   dispatcher,
		webhooks:   webhook.NewDispatcher(logger, time.Second, 0, time.Millisecond),
		workerID:   "worker-test",
		jobTimeout: time.Second,
	}
}

func seedJob(store *fakeJobStore, status string) *domain.Job {
	job := &domain.Job{
		JobID:           "7f3c1a2e-0d4b-4f6a-9c8e-5b1d2a3f4e5c",
		UserID:          "user-1",
		JobType:         "generate",
		Prompt:          "a lighthouse in a thunderstorm",
		DurationSeconds: 5,
		Width:           1280,
		Height:          720,
		FPS:             24,
		Style:           "cinematic",
		Quality:         "standard",
		OutputFormat:    "mp4",
		Status:          status,
	}
	store.jobs[job.JobID] = job
	return job
}

func TestProcessJobDispatchesClaimedJob(t *testing.T) {
	store := newFakeJobStore()
	dispatcher := &fakeDispatcher{}
	w := newTestWorker(store, dispatcher)
	job := seedJob(store, domain.JobStatusPending)

	err := w.processJob(context.Background(), &domain.JobMessage{JobID: job.JobID})

	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusProcessing, store.jobs[job.JobID].Status)
	assert.Equal(t, "worker-test", store.jobs[job.JobID].WorkerID)

	require.Len(t, dispatcher.requests, 1)
	req := dispatcher.requests[0]
	assert.Equal(t, job.JobID, req.JobID)
	assert.Equal(t, "generate", req.Type)
	assert.Equal(t, "a lighthouse in a thunderstorm", req.Prompt)
	assert.Equal(t, 1280, req.Width)
	assert.Equal(t, "mp4", req.OutputFormat)
}

func TestProcessJobReclaimsProcessingJob(t *testing.T) {
	store := newFakeJobStore()
	dispatcher := &fakeDispatcher{}
	w := newTestWorker(store, dispatcher)

	// a redelivered message after a transient failure finds the row
	// already in processing
	job := seedJob(store, domain.JobStatusProcessing)

	err := w.processJob(context.Background(), &domain.JobMessage{JobID: job.JobID})

	require.NoError(t, err)
	assert.Len(t, dispatcher.requests, 1)
}

func TestProcessJobSkipsTerminalJob(t *testing.T) {
	store := newFakeJobStore()
	dispatcher := &fakeDispatcher{}
	w := newTestWorker(store, dispatcher)
	job := seedJob(store, domain.JobStatusCompleted)

	err := w.processJob(context.Background(), &domain.JobMessage{JobID: job.JobID})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrJobUnavailable)
	assert.False(t, w.shouldRequeueJob(err), "terminal job must not be requeued")
	assert.Empty(t, dispatcher.requests)
}

func TestProcessJobClaimDatabaseErrorIsRetryable(t *testing.T) {
	store := newFakeJobStore()
	store.claimErr = errors.New("connection reset")
	dispatcher := &fakeDispatcher{}
	w := newTestWorker(store, dispatcher)

	err := w.processJob(context.Background(), &domain.JobMessage{JobID: "7f3c1a2e-0d4b-4f6a-9c8e-5b1d2a3f4e5c"})

	require.Error(t, err)
	assert.True(t, w.shouldRequeueJob(err))
	assert.Empty(t, dispatcher.requests)
}

func TestProcessJobProviderUnavailableIsRetryable(t *testing.T) {
	store := newFakeJobStore()
	dispatcher := &fakeDispatcher{err: fmt.Errorf("%w: status 503", provider.ErrUnavailable)}
	w := newTestWorker(store, dispatcher)
	job := seedJob(store, domain.JobStatusPending)

	err := w.processJob(context.Background(), &domain.JobMessage{JobID: job.JobID})

	require.Error(t, err)
	assert.True(t, w.shouldRequeueJob(err))

	// the job stays claimed, not failed, so the redelivery can re-claim it
	assert.Equal(t, domain.JobStatusProcessing, store.jobs[job.JobID].Status)
	assert.Empty(t, store.failed)
}

func TestProcessJobProviderRejectionFailsJob(t *testing.T) {
	store := newFakeJobStore()
	dispatcher := &fakeDispatcher{err: fmt.Errorf("%w: status 422: unsupported resolution", provider.ErrRejected)}
	w := newTestWorker(store, dispatcher)
	job := seedJob(store, domain.JobStatusPending)

	err := w.processJob(context.Background(), &domain.JobMessage{JobID: job.JobID})

	require.Error(t, err)
	assert.False(t, w.shouldRequeueJob(err), "permanent rejection must not be requeued")

	assert.Equal(t, domain.JobStatusFailed, store.jobs[job.JobID].Status)
	assert.Contains(t, store.failed[job.JobID], "unsupported resolution")
}

func TestProcessJobRejectionRecordFailureIsRetryable(t *testing.T) {
	store := newFakeJobStore()
	store.markErr = errors.New("connection reset")
	dispatcher := &fakeDispatcher{err: fmt.Errorf("%w: status 400", provider.ErrRejected)}
	w := newTestWorker(store, dispatcher)
	job := seedJob(store, domain.JobStatusPending)

	err := w.processJob(context.Background(), &domain.JobMessage{JobID: job.JobID})

	// the rejection could not be persisted, so the message is retried
	require.Error(t, err)
	assert.True(t, w.shouldRequeueJob(err))
}

func TestShouldRequeueJob(t *testing.T) {
	w := newTestWorker(newFakeJobStore(), &fakeDispatcher{})

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "retryable error",
			err:  domain.NewRetryableError(errors.New("broker hiccup")),
			want: true,
		},
		{
			name: "wrapped retryable error",
			err:  fmt.Errorf("dispatch: %w", domain.NewRetryableError(errors.New("timeout"))),
			want: true,
		},
		{
			name: "job unavailable",
			err:  fmt.Errorf("claim skipped: %w", domain.ErrJobUnavailable),
			want: false,
		},
		{
			name: "unknown error",
			err:  errors.New("something odd"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.shouldRequeueJob(tt.err))
		})
	}
}
