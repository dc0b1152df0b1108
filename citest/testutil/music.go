package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// MockMusicToken is the bearer token MockMusicServer accepts.
const MockMusicToken = "test-music-token"

// MockMusicServer mimics the slice of the Spotify Web API the music tools
// use: track search and player control.
type MockMusicServer struct {
	server *httptest.Server

	mu      sync.Mutex
	played  []string
	actions []string
}

// NewMockMusicServer starts the mock. Every search returns one track named
// after the query, except queries containing "nothing" which return none.
func NewMockMusicServer() *MockMusicServer {
	m := &MockMusicServer{}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/search", m.authorized(m.handleSearch))
	mux.HandleFunc("PUT /v1/me/player/play", m.authorized(m.handlePlay))
	mux.HandleFunc("PUT /v1/me/player/pause", m.authorized(m.action("pause")))
	mux.HandleFunc("POST /v1/me/player/next", m.authorized(m.action("next")))
	mux.HandleFunc("POST /v1/me/player/previous", m.authorized(m.action("previous")))

	m.server = httptest.NewServer(mux)
	return m
}

// URL returns the API base URL.
func (m *MockMusicServer) URL() string { return m.server.URL }

// Close shuts down the mock.
func (m *MockMusicServer) Close() { m.server.Close() }

// Played returns the URIs passed to play, in order.
func (m *MockMusicServer) Played() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.played...)
}

// Actions returns playback actions (pause, resume, next, previous) in order.
func (m *MockMusicServer) Actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.actions...)
}

func (m *MockMusicServer) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+MockMusicToken {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"status":401,"message":"Invalid access token"}}`))
			return
		}
		next(w, r)
	}
}

func (m *MockMusicServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	var items []map[string]any
	if !strings.Contains(strings.ToLower(q), "nothing") {
		name, artist := q, "Mock Artist"
		if i := strings.Index(strings.ToLower(q), " by "); i >= 0 {
			name, artist = q[:i], q[i+4:]
		}
		items = append(items, map[string]any{
			"uri":     "spotify:track:" + strings.ReplaceAll(strings.ToLower(name), " ", "-"),
			"name":    name,
			"artists": []map[string]string{{"name": artist}},
		})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"tracks": map[string]any{"items": items}})
}

func (m *MockMusicServer) handlePlay(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URIs []string `json:"uris"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	m.mu.Lock()
	if len(body.URIs) == 0 {
		m.actions = append(m.actions, "resume")
	} else {
		m.played = append(m.played, body.URIs...)
	}
	m.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (m *MockMusicServer) action(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.actions = append(m.actions, name)
		m.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}
}
