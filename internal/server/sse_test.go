package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/opencode-ai/companion/internal/event"
)

func TestSSEWriter_WriteData(t *testing.T) {
	w := httptest.NewRecorder()
	sse, err := newSSEWriter(w)
	if err != nil {
		t.Fatalf("newSSEWriter: %v", err)
	}
	sse.start()

	if err := sse.writeData(map[string]string{"type": "chunk"}); err != nil {
		t.Fatalf("writeData: %v", err)
	}
	if got := w.Body.String(); got != "data: {\"type\":\"chunk\"}\n\n" {
		t.Errorf("Unexpected frame %q", got)
	}
	if w.Header().Get("Cache-Control") != "no-cache" {
		t.Error("Expected no-cache header")
	}
}

func TestSSEWriter_Heartbeat(t *testing.T) {
	w := httptest.NewRecorder()
	sse, _ := newSSEWriter(w)

	if err := sse.writeHeartbeat(); err != nil {
		t.Fatalf("writeHeartbeat: %v", err)
	}
	if !strings.HasPrefix(w.Body.String(), ":") {
		t.Errorf("Heartbeat should be a comment, got %q", w.Body.String())
	}
}

func TestEventSessionID(t *testing.T) {
	tests := []struct {
		event event.Event
		want  string
	}{
		{event.Event{Type: event.TurnCommitted, Data: event.TurnCommittedData{SessionID: "a"}}, "a"},
		{event.Event{Type: event.SessionCleared, Data: event.SessionClearedData{SessionID: "b"}}, "b"},
		{event.Event{Type: event.ReminderDue, Data: event.ReminderDueData{SessionID: "c"}}, "c"},
		{event.Event{Type: event.SessionsCleared, Data: event.SessionsClearedData{Count: 3}}, ""},
	}
	for _, tt := range tests {
		if got := eventSessionID(tt.event); got != tt.want {
			t.Errorf("eventSessionID(%s) = %q, want %q", tt.event.Type, got, tt.want)
		}
	}
}

func readEvents(ctx context.Context, url string, n int) []BusEvent {
	req, _ := http.NewRequestWithContext(ctx, "GET", url, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	var out []BusEvent
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() && len(out) < n {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev BusEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			continue
		}
		out = append(out, ev)
	}
	return out
}

func TestEvents_StreamsFilteredBusEvents(t *testing.T) {
	env := setupTestServer(t)
	ts := httptest.NewServer(env.srv.Router())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan []BusEvent, 1)
	go func() {
		got <- readEvents(ctx, ts.URL+"/api/events?sessionID=mine", 2)
	}()

	// Give the handler time to subscribe.
	time.Sleep(100 * time.Millisecond)
	env.bus.PublishSync(event.Event{Type: event.SessionCleared, Data: event.SessionClearedData{SessionID: "other"}})
	env.bus.PublishSync(event.Event{Type: event.SessionCleared, Data: event.SessionClearedData{SessionID: "mine", Existed: true}})

	var events []BusEvent
	select {
	case events = <-got:
	case <-ctx.Done():
		t.Fatal("timed out waiting for events")
	}

	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if events[0].Type != "server.connected" {
		t.Errorf("Expected server.connected first, got %s", events[0].Type)
	}
	if events[1].Type != event.SessionCleared {
		t.Errorf("Expected session.cleared, got %s", events[1].Type)
	}
	props, _ := events[1].Properties.(map[string]any)
	if props["sessionID"] != "mine" {
		t.Errorf("Expected filtered event for mine, got %v", props)
	}
}
