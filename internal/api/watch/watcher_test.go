package watch

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/aurorasynth/aurora-backend/internal/api/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fetchSequence returns a Fetcher that walks through the given snapshots,
// repeating the last one once exhausted.
func fetchSequence(snaps ...Snapshot) Fetcher {
	var mu sync.Mutex
	i := 0
	return func(ctx context.Context) (Snapshot, error) {
		mu.Lock()
		defer mu.Unlock()
		snap := snaps[i]
		if i < len(snaps)-1 {
			i++
		}
		return snap, nil
	}
}

func TestWatcherPollsUntilTerminal(t *testing.T) {
	fetch := fetchSequence(
		Snapshot{JobID: "j1", Status: domain.JobStatusPending},
		Snapshot{JobID: "j1", Status: domain.JobStatusProcessing},
		Snapshot{JobID: "j1", Status: domain.JobStatusCompleted, OutputURL: "https://cdn.example.com/v.mp4"},
	)

	w := NewWatcher(fetch, nil, 5*time.Millisecond, discardLogger())

	var seen []Snapshot
	err := w.Run(context.Background(), func(s Snapshot) {
		seen = append(seen, s)
	})

	require.NoError(t, err)
	require.Len(t, seen, 3)
	assert.Equal(t, domain.JobStatusPending, seen[0].Status)
	assert.Equal(t, domain.JobStatusProcessing, seen[1].Status)
	assert.Equal(t, domain.JobStatusCompleted, seen[2].Status)
	assert.Equal(t, "https://cdn.example.com/v.mp4", seen[2].OutputURL)
}

func TestWatcherStopsImmediatelyOnTerminalJob(t *testing.T) {
	polls := 0
	fetch := func(ctx context.Context) (Snapshot, error) {
		polls++
		return Snapshot{JobID: "j1", Status: domain.JobStatusFailed, ErrorMessage: "render error"}, nil
	}

	w := NewWatcher(fetch, nil, time.Millisecond, discardLogger())

	var seen []Snapshot
	err := w.Run(context.Background(), func(s Snapshot) {
		seen = append(seen, s)
	})

	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, domain.JobStatusFailed, seen[0].Status)
	// terminal on the initial read means no ticker polls at all
	assert.Equal(t, 1, polls)
}

func TestWatcherPushBeatsPoll(t *testing.T) {
	fetch := fetchSequence(Snapshot{JobID: "j1", Status: domain.JobStatusPending})

	push := make(chan Snapshot, 1)
	push <- Snapshot{JobID: "j1", Status: domain.JobStatusCompleted, OutputURL: "https://cdn.example.com/v.mp4"}

	// long poll interval so only the push can finish the watch quickly
	w := NewWatcher(fetch, push, time.Hour, discardLogger())

	var seen []Snapshot
	done := make(chan error, 1)
	go func() {
		done <- w.Run(context.Background(), func(s Snapshot) {
			seen = append(seen, s)
		})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not finish on pushed terminal snapshot")
	}

	require.Len(t, seen, 2)
	assert.Equal(t, domain.JobStatusPending, seen[0].Status)
	assert.Equal(t, domain.JobStatusCompleted, seen[1].Status)
}

func TestWatcherNeverRegresses(t *testing.T) {
	// poll keeps reporting pending while a push already advanced the state
	fetch := fetchSequence(
		Snapshot{JobID: "j1", Status: domain.JobStatusProcessing},
		Snapshot{JobID: "j1", Status: domain.JobStatusPending},
		Snapshot{JobID: "j1", Status: domain.JobStatusPending},
		Snapshot{JobID: "j1", Status: domain.JobStatusCompleted},
	)

	w := NewWatcher(fetch, nil, time.Millisecond, discardLogger())

	var seen []Snapshot
	err := w.Run(context.Background(), func(s Snapshot) {
		seen = append(seen, s)
	})

	require.NoError(t, err)
	require.Len(t, seen, 2)
	assert.Equal(t, domain.JobStatusProcessing, seen[0].Status)
	assert.Equal(t, domain.JobStatusCompleted, seen[1].Status)
}

func TestWatcherContextCancel(t *testing.T) {
	fetch := fetchSequence(Snapshot{JobID: "j1", Status: domain.JobStatusPending})

	ctx, cancel := context.WithCancel(context.Background())
	w := NewWatcher(fetch, nil, time.Hour, discardLogger())

	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(s Snapshot) {})
	}()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on context cancel")
	}
}

func TestHubPublishSubscribe(t *testing.T) {
	hub := NewHub()

	ch, cancel := hub.Subscribe("j1")
	defer cancel()

	assert.Equal(t, 1, hub.SubscriberCount("j1"))

	hub.Publish(Snapshot{JobID: "j1", Status: domain.JobStatusCompleted})
	hub.Publish(Snapshot{JobID: "j2", Status: domain.JobStatusCompleted})

	select {
	case snap := <-ch:
		assert.Equal(t, "j1", snap.JobID)
	case <-time.After(time.Second):
		t.Fatal("expected a published snapshot")
	}

	// nothing for the other job id
	select {
	case snap := <-ch:
		t.Fatalf("unexpected snapshot for %s", snap.JobID)
	default:
	}
}

func TestHubCancelReleasesSubscription(t *testing.T) {
	hub := NewHub()

	_, cancel := hub.Subscribe("j1")
	cancel()
	cancel() // safe to call twice

	assert.Equal(t, 0, hub.SubscriberCount("j1"))

	// publishing to a job with no subscribers is a no-op
	hub.Publish(Snapshot{JobID: "j1", Status: domain.JobStatusFailed})
}

func TestHubDropsWhenSubscriberFull(t *testing.T) {
	hub := NewHub()

	ch, cancel := hub.Subscribe("j1")
	defer cancel()

	for i := 0; i < 10; i++ {
		hub.Publish(Snapshot{JobID: "j1", Status: domain.JobStatusProcessing})
	}

	// buffer is bounded; publisher never blocked
	assert.LessOrEqual(t, len(ch), 4)
}
