package watch

import (
	"context"
	"log/slog"
	"time"

	"github.com/aurorasynth/aurora-backend/internal/api/domain"
)

// Snapshot is one observation of a job's lifecycle state
type Snapshot struct {
	JobID        string `json:"job_id"`
	Status       string `json:"status"`
	Progress     *int   `json:"progress,omitempty"`
	OutputURL    string `json:"output_url,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	ObservedAt   string `json:"observed_at"`
}

// Fetcher reads the current snapshot of a job from the store
type Fetcher func(ctx context.Context) (Snapshot, error)

// Watcher merges two producers - a fixed-interval poll and a push channel -
// into a single ordered stream of snapshots. The sink only ever sees the
// status advance: a stale observation arriving after a newer one is
// dropped, and the first terminal snapshot ends the watch, after which no
// further polls are issued.
type Watcher struct {
	fetch    Fetcher
	push     <-chan Snapshot
	interval time.Duration
	logger   *slog.Logger
}

func NewWatcher(fetch Fetcher, push <-chan Snapshot, interval time.Duration, logger *slog.Logger) *Watcher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Watcher{
		fetch:    fetch,
		push:     push,
		interval: interval,
		logger:   logger,
	}
}

// Run drives the watch loop until a terminal snapshot is delivered or the
// context is canceled. The sink is called from this goroutine only.
func (w *Watcher) Run(ctx context.Context, sink func(Snapshot)) error {
	lastRank := -1

	emit := func(snap Snapshot) bool {
		rank := domain.StatusRank(snap.Status)
		if rank <= lastRank {
			return false
		}
		lastRank = rank
		sink(snap)
		return domain.IsTerminalStatus(snap.Status)
	}

	// Initial read so the subscriber sees current state immediately
	snap, err := w.fetch(ctx)
	if err != nil {
		return err
	}
	if emit(snap) {
		return nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case snap, ok := <-w.push:
			if !ok {
				w.push = nil
				continue
			}
			if emit(snap) {
				return nil
			}

		case <-ticker.C:
			snap, err := w.fetch(ctx)
			if err != nil {
				w.logger.Warn("Status poll failed",
					slog.String("error", err.Error()),
				)
				continue
			}
			if emit(snap) {
				return nil
			}
		}
	}
}
