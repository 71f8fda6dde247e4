package api

import (
	"sync"

	"BluffScan/internal/domain/models"
	"BluffScan/internal/usecase"
)

// ProgressHub fans run progress events out to WebSocket subscribers. Events
// for runs with no subscribers are dropped; the run itself never blocks on a
// slow or absent client.
type ProgressHub struct {
	mu   sync.RWMutex
	subs map[string]map[chan models.ProgressEvent]struct{} // run_id -> subscribers
}

func NewProgressHub() *ProgressHub {
	return &ProgressHub{subs: make(map[string]map[chan models.ProgressEvent]struct{})}
}

var _ usecase.ProgressSink = (*ProgressHub)(nil)

// Publish delivers an event to every subscriber of its run, dropping it for
// subscribers whose buffer is full.
func (h *ProgressHub) Publish(ev models.ProgressEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[ev.RunID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe registers a subscriber for one run's events. The returned cancel
// func must be called exactly once.
func (h *ProgressHub) Subscribe(runID string) (<-chan models.ProgressEvent, func()) {
	ch := make(chan models.ProgressEvent, 64)

	h.mu.Lock()
	if h.subs[runID] == nil {
		h.subs[runID] = make(map[chan models.ProgressEvent]struct{})
	}
	h.subs[runID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.subs[runID], ch)
		if len(h.subs[runID]) == 0 {
			delete(h.subs, runID)
		}
		h.mu.Unlock()
		close(ch)
	}
	return ch, cancel
}
