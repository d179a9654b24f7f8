package telemetry

import (
	"encoding/json"
	"net/http"
	"sync"
)

const defaultHistoryLimit = 500

// Stats summarizes the receiver run for the /api/stats endpoint.
type Stats struct {
	FramesDecoded      int `json:"framesDecoded"`
	ValidFrames        int `json:"validFrames"`
	ValidationFailures int `json:"validationFailures"`
}

// Hub collects history and fan-outs frame events to subscribers.
type Hub struct {
	mu           sync.RWMutex
	history      []Event
	historyLimit int
	subscribers  map[chan Event]struct{}
	stats        Stats
}

// NewHub builds a hub keeping at most historyLimit events.
func NewHub(historyLimit int) *Hub {
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	return &Hub{
		historyLimit: historyLimit,
		subscribers:  make(map[chan Event]struct{}),
	}
}

// FrameDecoded implements Reporter and records a new event.
func (h *Hub) FrameDecoded(ev Event) {
	h.mu.Lock()
	h.history = append(h.history, ev)
	if len(h.history) > h.historyLimit {
		h.history = h.history[len(h.history)-h.historyLimit:]
	}
	h.stats.FramesDecoded++
	if ev.Valid {
		h.stats.ValidFrames++
	} else {
		h.stats.ValidationFailures++
	}
	for ch := range h.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
	h.mu.Unlock()
}

// History returns a copy of stored events.
func (h *Hub) History() []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Event, len(h.history))
	copy(out, h.history)
	return out
}

// StatsSnapshot returns the current run counters.
func (h *Hub) StatsSnapshot() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stats
}

// Subscribe registers a listener for live updates.
func (h *Hub) Subscribe() (chan Event, func()) {
	ch := make(chan Event, 16)
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()
	cancel := func() {
		h.mu.Lock()
		delete(h.subscribers, ch)
		close(ch)
		h.mu.Unlock()
	}
	return ch, cancel
}

func (h *Hub) handleHistory(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.History())
}

func (h *Hub) handleStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.StatsSnapshot())
}

func (h *Hub) handleLive(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := h.Subscribe()
	defer cancel()

	// send existing history for immediate display
	for _, ev := range h.History() {
		writeSSE(w, ev)
	}
	flusher.Flush()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			writeSSE(w, ev)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	payload, _ := json.Marshal(ev)
	w.Write([]byte("data: "))
	w.Write(payload)
	w.Write([]byte("\n\n"))
}
