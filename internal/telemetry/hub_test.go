package telemetry

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func event(offset int, valid bool) Event {
	return Event{Timestamp: time.Now(), Offset: offset, Type: 1, Bits: 168, Valid: valid}
}

func TestHubHistoryLimit(t *testing.T) {
	hub := NewHub(3)
	for i := 0; i < 5; i++ {
		hub.FrameDecoded(event(i, true))
	}

	history := hub.History()
	if len(history) != 3 {
		t.Fatalf("history holds %d events, want 3", len(history))
	}
	if history[0].Offset != 2 {
		t.Fatalf("oldest kept event at offset %d, want 2", history[0].Offset)
	}
}

func TestHubStats(t *testing.T) {
	hub := NewHub(10)
	hub.FrameDecoded(event(1, true))
	hub.FrameDecoded(event(2, false))
	hub.FrameDecoded(event(3, false))

	stats := hub.StatsSnapshot()
	if stats.FramesDecoded != 3 || stats.ValidFrames != 1 || stats.ValidationFailures != 2 {
		t.Fatalf("stats %+v", stats)
	}
}

func TestHubSubscribe(t *testing.T) {
	hub := NewHub(10)
	ch, cancel := hub.Subscribe()
	defer cancel()

	hub.FrameDecoded(event(7, true))

	select {
	case ev := <-ch:
		if ev.Offset != 7 {
			t.Fatalf("received offset %d, want 7", ev.Offset)
		}
	case <-time.After(time.Second):
		t.Fatal("no live event delivered")
	}
}

func TestHubSubscribeDropsWhenFull(t *testing.T) {
	hub := NewHub(100)
	_, cancel := hub.Subscribe()
	defer cancel()

	// A stalled subscriber must not block the pipeline.
	for i := 0; i < 64; i++ {
		hub.FrameDecoded(event(i, true))
	}
	if got := len(hub.History()); got != 64 {
		t.Fatalf("history holds %d events, want 64", got)
	}
}

func TestHandleHistory(t *testing.T) {
	hub := NewHub(10)
	hub.FrameDecoded(event(4, true))

	rr := httptest.NewRecorder()
	hub.handleHistory(rr, httptest.NewRequest(http.MethodGet, "/api/history", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp []Event
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 1 || resp[0].Offset != 4 {
		t.Fatalf("response %+v", resp)
	}
}

func TestHandleStats(t *testing.T) {
	hub := NewHub(10)
	hub.FrameDecoded(event(1, false))

	rr := httptest.NewRecorder()
	hub.handleStats(rr, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp Stats
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.FramesDecoded != 1 || resp.ValidationFailures != 1 {
		t.Fatalf("stats %+v", resp)
	}
}

func TestMultiReporterFanout(t *testing.T) {
	a := NewHub(10)
	b := NewHub(10)
	multi := MultiReporter{a, nil, b}

	multi.FrameDecoded(event(9, true))

	if len(a.History()) != 1 || len(b.History()) != 1 {
		t.Fatal("event not delivered to every reporter")
	}
}
