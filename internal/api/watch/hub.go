package watch

import "sync"

// Hub fans job status updates out to in-process subscribers. The callback
// receiver publishes here so an SSE stream sees a terminal transition
// without waiting for its next poll tick.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan Snapshot]struct{}
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[chan Snapshot]struct{}),
	}
}

// Subscribe registers a subscriber for one job. The returned cancel func
// releases the subscription; it is safe to call more than once.
func (h *Hub) Subscribe(jobID string) (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 4)

	h.mu.Lock()
	if h.subs[jobID] == nil {
		h.subs[jobID] = make(map[chan Snapshot]struct{})
	}
	h.subs[jobID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if set, ok := h.subs[jobID]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(h.subs, jobID)
				}
			}
			h.mu.Unlock()
		})
	}

	return ch, cancel
}

// Publish delivers a snapshot to every subscriber of the job. Slow
// subscribers are skipped rather than blocked on; the poll path will catch
// them up.
func (h *Hub) Publish(snap Snapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[snap.JobID] {
		select {
		case ch <- snap:
		default:
		}
	}
}

// SubscriberCount reports how many subscribers a job currently has
func (h *Hub) SubscriberCount(jobID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[jobID])
}
