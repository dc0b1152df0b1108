package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/opencode-ai/companion/pkg/types"
)

// TestClient provides HTTP client utilities for testing
type TestClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewTestClient creates a new test HTTP client
func NewTestClient(baseURL string) *TestClient {
	return &TestClient{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// RequestOption configures HTTP requests
type RequestOption func(*http.Request)

// WithHeader adds a header to the request
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

// WithQuery adds query parameters
func WithQuery(params map[string]string) RequestOption {
	return func(r *http.Request) {
		q := r.URL.Query()
		for k, v := range params {
			q.Set(k, v)
		}
		r.URL.RawQuery = q.Encode()
	}
}

// Response wraps HTTP response with helpers
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// JSON unmarshals response body into v
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// String returns response body as string
func (r *Response) String() string {
	return string(r.Body)
}

// IsSuccess returns true if status code is 2xx
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Get performs HTTP GET request
func (c *TestClient) Get(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, nil, opts...)
}

// Post performs HTTP POST request with JSON body
func (c *TestClient) Post(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, body, opts...)
}

// Delete performs HTTP DELETE request
func (c *TestClient) Delete(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodDelete, path, nil, opts...)
}

// do performs the actual HTTP request
func (c *TestClient) do(ctx context.Context, method, path string, body any, opts ...RequestOption) (*Response, error) {
	fullURL := c.BaseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
	}, nil
}

// Chat posts one non-streaming turn.
func (c *TestClient) Chat(ctx context.Context, req types.ChatRequest) (*types.ChatResponse, *Response, error) {
	resp, err := c.Post(ctx, "/api/chat", req)
	if err != nil {
		return nil, nil, err
	}
	if !resp.IsSuccess() {
		return nil, resp, nil
	}
	var out types.ChatResponse
	if err := resp.JSON(&out); err != nil {
		return nil, resp, fmt.Errorf("failed to decode chat response: %w", err)
	}
	return &out, resp, nil
}

// StreamChat posts one streaming turn and collects every data frame until
// the stream closes.
func (c *TestClient) StreamChat(ctx context.Context, req types.ChatRequest) ([]types.StreamChunk, *http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/chat/stream", bytes.NewReader(body))
	if err != nil {
		return nil, nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	// No timeout for streaming
	resp, err := (&http.Client{}).Do(httpReq)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var chunks []types.StreamChunk
	err = readFrames(resp.Body, func(data []byte) error {
		var chunk types.StreamChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			return fmt.Errorf("bad frame %q: %w", data, err)
		}
		chunks = append(chunks, chunk)
		return nil
	})
	return chunks, resp, err
}

// StreamText concatenates the content of text chunks. A revision chunk
// replaces everything before it.
func StreamText(chunks []types.StreamChunk) string {
	var sb strings.Builder
	for _, c := range chunks {
		if c.Type != types.ChunkText {
			continue
		}
		if c.Metadata != nil && c.Metadata.Revision {
			sb.Reset()
		}
		sb.WriteString(c.Content)
	}
	return sb.String()
}

// SessionHistory fetches a session's stored turns.
func (c *TestClient) SessionHistory(ctx context.Context, sessionID string) ([]types.Turn, error) {
	resp, err := c.Get(ctx, "/api/sessions/"+url.PathEscape(sessionID))
	if err != nil {
		return nil, err
	}
	var out struct {
		History []types.Turn `json:"history"`
	}
	if err := resp.JSON(&out); err != nil {
		return nil, err
	}
	return out.History, nil
}

// RandomID returns a short unique id for test sessions.
func RandomID() string {
	return strings.ToLower(ulid.Make().String())
}
