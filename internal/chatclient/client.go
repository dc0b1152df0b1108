// Package chatclient is the interactive terminal client for the companion
// HTTP API.
package chatclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/opencode-ai/companion/pkg/types"
)

// Client talks to a companion server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// apiError is the server's error envelope.
type apiError struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	var e apiError
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error.Message == "" {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return fmt.Errorf("%s: %s", e.Error.Code, e.Error.Message)
}

// Health checks that the server is reachable.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var out map[string]any
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	return nil
}

// Personalities lists the server's personalities.
func (c *Client) Personalities(ctx context.Context) ([]types.PersonalityInfo, error) {
	var out []types.PersonalityInfo
	err := c.do(ctx, http.MethodGet, "/api/personalities", nil, &out)
	return out, err
}

// Chat sends one non-streaming turn.
func (c *Client) Chat(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error) {
	var out types.ChatResponse
	if err := c.do(ctx, http.MethodPost, "/api/chat", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClearSession deletes a session's history.
func (c *Client) ClearSession(ctx context.Context, sessionID string) (bool, error) {
	var out struct {
		Cleared bool `json:"cleared"`
	}
	err := c.do(ctx, http.MethodDelete, "/api/sessions/"+url.PathEscape(sessionID), nil, &out)
	return out.Cleared, err
}

// History returns a session's stored turns.
func (c *Client) History(ctx context.Context, sessionID string) ([]types.Turn, error) {
	var out struct {
		History []types.Turn `json:"history"`
	}
	err := c.do(ctx, http.MethodGet, "/api/sessions/"+url.PathEscape(sessionID), nil, &out)
	return out.History, err
}

// ErrStreamIncomplete is returned when a stream ends without an end or
// error event.
var ErrStreamIncomplete = errors.New("stream ended unexpectedly")

// Stream sends one streaming turn and calls onChunk for every event until a
// terminal one arrives.
func (c *Client) Stream(ctx context.Context, req *types.ChatRequest, onChunk func(types.StreamChunk)) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat/stream", bytes.NewReader(data))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		var chunk types.StreamChunk
		if err := json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &chunk); err != nil {
			continue
		}
		onChunk(chunk)
		if chunk.IsTerminal() {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return ErrStreamIncomplete
}
