package testutil

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// readFrames calls fn with the payload of every "data:" line until the
// reader is exhausted or fn fails. The server never splits a frame over
// several data lines.
func readFrames(r io.Reader, fn func(data []byte) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		if err := fn([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:")))); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// SSEEvent is one frame of /api/events.
type SSEEvent struct {
	Type       string          `json:"type"`
	Properties json.RawMessage `json:"properties"`
}

// TurnEventData is the payload of a turn.committed event.
type TurnEventData struct {
	SessionID   string `json:"sessionID"`
	Personality string `json:"personality"`
	Mode        string `json:"mode"`
	Method      string `json:"method"`
	Turns       int    `json:"turns"`
}

// SessionClearedEventData is the payload of a session.cleared event.
type SessionClearedEventData struct {
	SessionID string `json:"sessionID"`
	Existed   bool   `json:"existed"`
}

// Decode unmarshals the event properties into v.
func (evt *SSEEvent) Decode(v any) error {
	if len(evt.Properties) == 0 {
		return fmt.Errorf("event %s has no properties", evt.Type)
	}
	return json.Unmarshal(evt.Properties, v)
}

// ParseTurnEvent decodes turn.committed properties.
func (evt *SSEEvent) ParseTurnEvent() (*TurnEventData, error) {
	var data TurnEventData
	if err := evt.Decode(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// ParseSessionClearedEvent decodes session.cleared properties.
func (evt *SSEEvent) ParseSessionClearedEvent() (*SessionClearedEventData, error) {
	var data SessionClearedEventData
	if err := evt.Decode(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// SSEClient follows the bus event stream in the background.
type SSEClient struct {
	BaseURL string

	mu     sync.Mutex
	seen   []SSEEvent
	ch     chan SSEEvent
	done   chan struct{}
	err    error
	cancel context.CancelFunc
}

// NewSSEClient creates a client for the server at baseURL.
func NewSSEClient(baseURL string) *SSEClient {
	return &SSEClient{
		BaseURL: baseURL,
		ch:      make(chan SSEEvent, 128),
		done:    make(chan struct{}),
	}
}

// Connect opens path and starts reading frames.
func (c *SSEClient) Connect(ctx context.Context, path string) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to connect: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		resp.Body.Close()
		cancel()
		return fmt.Errorf("unexpected content type: %s", ct)
	}

	go func() {
		defer close(c.done)
		defer resp.Body.Close()
		err := readFrames(resp.Body, func(data []byte) error {
			var evt SSEEvent
			if err := json.Unmarshal(data, &evt); err != nil {
				return fmt.Errorf("bad frame %q: %w", data, err)
			}
			c.mu.Lock()
			c.seen = append(c.seen, evt)
			c.mu.Unlock()
			select {
			case c.ch <- evt:
			default:
			}
			return nil
		})
		if err != nil && ctx.Err() == nil {
			c.mu.Lock()
			c.err = err
			c.mu.Unlock()
		}
	}()
	return nil
}

// WaitForEvent returns the next event of the given type, skipping others.
func (c *SSEClient) WaitForEvent(eventType string, timeout time.Duration) (*SSEEvent, error) {
	deadline := time.After(timeout)
	for {
		select {
		case evt := <-c.ch:
			if evt.Type == eventType {
				return &evt, nil
			}
		case <-c.done:
			c.mu.Lock()
			defer c.mu.Unlock()
			if c.err != nil {
				return nil, c.err
			}
			return nil, fmt.Errorf("stream closed before %s", eventType)
		case <-deadline:
			return nil, fmt.Errorf("timeout waiting for event: %s", eventType)
		}
	}
}

// HasEventType reports whether any received event had the given type.
func (c *SSEClient) HasEventType(eventType string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, evt := range c.seen {
		if evt.Type == eventType {
			return true
		}
	}
	return false
}

// Close stops reading.
func (c *SSEClient) Close() {
	if c.cancel != nil {
		c.cancel()
	}
}
