package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// MockLLMServer mimics the OpenAI chat completions API, driven by a
// MockLLMConfig.
type MockLLMServer struct {
	server *httptest.Server
	config *MockLLMConfig

	mu       sync.Mutex
	requests []MockRequest
	ids      atomic.Int64
}

// MockRequest records an incoming request for verification.
type MockRequest struct {
	Timestamp time.Time
	Path      string
	Stream    bool
	Tools     []string
	System    string
	Prompt    string
	Body      map[string]any
}

// NewMockLLMServer starts a mock with DefaultMockLLMConfig.
func NewMockLLMServer() *MockLLMServer {
	return NewMockLLMServerWithConfig(DefaultMockLLMConfig())
}

// NewMockLLMServerWithConfig starts a mock with config.
func NewMockLLMServerWithConfig(config *MockLLMConfig) *MockLLMServer {
	m := &MockLLMServer{config: config}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", m.handleChatCompletions)
	mux.HandleFunc("/chat/completions", m.handleChatCompletions)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	m.server = httptest.NewServer(mux)
	return m
}

// URL returns the mock server's base URL, including /v1.
func (m *MockLLMServer) URL() string {
	return m.server.URL + "/v1"
}

// Close shuts down the mock server.
func (m *MockLLMServer) Close() {
	m.server.Close()
}

// GetRequests returns a copy of the recorded requests.
func (m *MockLLMServer) GetRequests() []MockRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// Reset forgets recorded requests.
func (m *MockLLMServer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
}

// mockResponse is one completion: text and/or a tool call.
type mockResponse struct {
	content  string
	toolCall *toolCall
}

type toolCall struct {
	id        string
	name      string
	arguments string
}

func (m *MockLLMServer) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var req map[string]any
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	messages, _ := req["messages"].([]any)
	if msg := emptyUserMessage(messages); msg != "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": msg, "type": "invalid_request_error"},
		})
		return
	}
	stream, _ := req["stream"].(bool)
	record := MockRequest{
		Timestamp: time.Now(),
		Path:      r.URL.Path,
		Stream:    stream,
		Tools:     extractTools(req),
		System:    messageContent(messages, "system", false),
		Prompt:    messageContent(messages, "user", true),
		Body:      req,
	}
	m.mu.Lock()
	m.requests = append(m.requests, record)
	m.mu.Unlock()

	if lag := m.config.Settings.LagMS; lag > 0 {
		time.Sleep(time.Duration(lag) * time.Millisecond)
	}

	response, fail := m.generateResponse(messages, record)
	if fail {
		http.Error(w, `{"error":{"message":"mock outage","type":"server_error"}}`, http.StatusInternalServerError)
		return
	}

	if stream {
		m.writeStreamingResponse(w, response)
	} else {
		m.writeResponse(w, response)
	}
}

// messageContent returns the content of the first (or last) message with role.
func messageContent(messages []any, role string, last bool) string {
	found := ""
	for _, raw := range messages {
		msg, ok := raw.(map[string]any)
		if !ok || msg["role"] != role {
			continue
		}
		content, _ := msg["content"].(string)
		if !last {
			return content
		}
		found = content
	}
	return found
}

// emptyUserMessage reports user messages without content, which real
// providers reject.
func emptyUserMessage(messages []any) string {
	if len(messages) == 0 {
		return "messages must not be empty"
	}
	for i, raw := range messages {
		msg, ok := raw.(map[string]any)
		if !ok || msg["role"] != "user" {
			continue
		}
		if content, _ := msg["content"].(string); content == "" {
			return fmt.Sprintf("messages[%d]: user content must not be empty", i)
		}
	}
	return ""
}

func extractTools(req map[string]any) []string {
	var names []string
	tools, _ := req["tools"].([]any)
	for _, t := range tools {
		tool, _ := t.(map[string]any)
		fn, _ := tool["function"].(map[string]any)
		if name, ok := fn["name"].(string); ok {
			names = append(names, name)
		}
	}
	return names
}

// generateResponse picks the reply. A trailing tool message is answered with
// its content; otherwise tool rules are tried before response rules.
func (m *MockLLMServer) generateResponse(messages []any, rec MockRequest) (*mockResponse, bool) {
	if n := len(messages); n > 0 {
		if msg, ok := messages[n-1].(map[string]any); ok && msg["role"] == "tool" {
			content, _ := msg["content"].(string)
			return &mockResponse{content: m.config.Defaults.AfterTool + content}, false
		}
	}

	if rule := m.config.FindMatchingToolRule(rec.Prompt, rec.System, rec.Tools); rule != nil {
		args, _ := json.Marshal(map[string]string{"input": rule.ToolInput(rec.Prompt)})
		return &mockResponse{toolCall: &toolCall{
			id:        fmt.Sprintf("call_%s_%d", rule.Tool, m.ids.Add(1)),
			name:      rule.Tool,
			arguments: string(args),
		}}, false
	}

	rule, _ := m.config.FindMatchingResponse(rec.Prompt, rec.System)
	return &mockResponse{content: rule.Response}, rule.Fail
}

func (m *MockLLMServer) completionID() string {
	return fmt.Sprintf("chatcmpl-mockllm-%d", m.ids.Add(1))
}

// writeResponse writes a non-streaming OpenAI response.
func (m *MockLLMServer) writeResponse(w http.ResponseWriter, resp *mockResponse) {
	message := map[string]any{
		"role":    "assistant",
		"content": resp.content,
	}
	finishReason := "stop"
	if tc := resp.toolCall; tc != nil {
		message["tool_calls"] = []map[string]any{{
			"id":   tc.id,
			"type": "function",
			"function": map[string]any{
				"name":      tc.name,
				"arguments": tc.arguments,
			},
		}}
		finishReason = "tool_calls"
	}

	response := map[string]any{
		"id":      m.completionID(),
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   "mock-gpt",
		"choices": []map[string]any{{
			"index":         0,
			"message":       message,
			"finish_reason": finishReason,
		}},
		"usage": map[string]any{
			"prompt_tokens":     100,
			"completion_tokens": 50,
			"total_tokens":      150,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// writeStreamingResponse writes an OpenAI SSE stream, one word per chunk.
func (m *MockLLMServer) writeStreamingResponse(w http.ResponseWriter, resp *mockResponse) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	id := m.completionID()
	send := func(delta map[string]any, finishReason any) {
		chunk := map[string]any{
			"id":      id,
			"object":  "chat.completion.chunk",
			"created": time.Now().Unix(),
			"model":   "mock-gpt",
			"choices": []map[string]any{{
				"index":         0,
				"delta":         delta,
				"finish_reason": finishReason,
			}},
		}
		data, _ := json.Marshal(chunk)
		w.Write([]byte("data: " + string(data) + "\n\n"))
		flusher.Flush()
	}

	send(map[string]any{"role": "assistant"}, nil)

	finishReason := "stop"
	if tc := resp.toolCall; tc != nil {
		send(map[string]any{
			"tool_calls": []map[string]any{{
				"index": 0,
				"id":    tc.id,
				"type":  "function",
				"function": map[string]any{
					"name":      tc.name,
					"arguments": tc.arguments,
				},
			}},
		}, nil)
		finishReason = "tool_calls"
	} else {
		words := strings.Fields(resp.content)
		for i, word := range words {
			if i < len(words)-1 {
				word += " "
			}
			send(map[string]any{"content": word}, nil)
			if d := m.config.Settings.ChunkDelayMS; d > 0 {
				time.Sleep(time.Duration(d) * time.Millisecond)
			}
		}
	}

	send(map[string]any{}, finishReason)
	w.Write([]byte("data: [DONE]\n\n"))
	flusher.Flush()
}
