// Package provider_test provides a mock LLM server for testing providers.
// The server mimics the OpenAI and Anthropic chat APIs with a fixed reply.
package provider_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// mockLLMServer answers every chat request with the same content.
type mockLLMServer struct {
	server  *httptest.Server
	content string

	mu     sync.Mutex
	bodies []map[string]any
}

func newMockLLMServer(content string) *mockLLMServer {
	m := &mockLLMServer{content: content}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", m.handleOpenAI)
	mux.HandleFunc("/chat/completions", m.handleOpenAI)
	mux.HandleFunc("/v1/messages", m.handleAnthropic)

	m.server = httptest.NewServer(mux)
	return m
}

func (m *mockLLMServer) URL() string { return m.server.URL }

func (m *mockLLMServer) Close() { m.server.Close() }

func (m *mockLLMServer) lastBody() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.bodies) == 0 {
		return nil
	}
	return m.bodies[len(m.bodies)-1]
}

func (m *mockLLMServer) record(r *http.Request) (map[string]any, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, false
	}
	var req map[string]any
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, false
	}
	m.mu.Lock()
	m.bodies = append(m.bodies, req)
	m.mu.Unlock()
	return req, true
}

func (m *mockLLMServer) handleOpenAI(w http.ResponseWriter, r *http.Request) {
	req, ok := m.record(r)
	if !ok {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if stream, _ := req["stream"].(bool); stream {
		m.writeOpenAIStream(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-mock",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   "mock",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": m.content},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})
}

func (m *mockLLMServer) writeOpenAIStream(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	flusher, _ := w.(http.Flusher)

	send := func(delta map[string]any, finish any) {
		data, _ := json.Marshal(map[string]any{
			"id":      "chatcmpl-mock",
			"object":  "chat.completion.chunk",
			"created": time.Now().Unix(),
			"model":   "mock",
			"choices": []map[string]any{{"index": 0, "delta": delta, "finish_reason": finish}},
		})
		fmt.Fprintf(w, "data: %s\n\n", data)
		if flusher != nil {
			flusher.Flush()
		}
	}

	send(map[string]any{"role": "assistant"}, nil)
	words := strings.Fields(m.content)
	for i, word := range words {
		if i < len(words)-1 {
			word += " "
		}
		send(map[string]any{"content": word}, nil)
	}
	send(map[string]any{}, "stop")
	fmt.Fprint(w, "data: [DONE]\n\n")
	if flusher != nil {
		flusher.Flush()
	}
}

func (m *mockLLMServer) handleAnthropic(w http.ResponseWriter, r *http.Request) {
	if _, ok := m.record(r); !ok {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"id":            "msg_mock",
		"type":          "message",
		"role":          "assistant",
		"model":         "claude-mock",
		"content":       []map[string]any{{"type": "text", "text": m.content}},
		"stop_reason":   "end_turn",
		"stop_sequence": nil,
		"usage":         map[string]any{"input_tokens": 10, "output_tokens": 5},
	})
}
