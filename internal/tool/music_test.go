package tool

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type spotifyStub struct {
	*httptest.Server
	playBody map[string]any
	calls    []string
}

func newSpotifyStub(t *testing.T, playStatus int) *spotifyStub {
	t.Helper()
	stub := &spotifyStub{}
	stub.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stub.calls = append(stub.calls, r.Method+" "+r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		switch r.URL.Path {
		case "/v1/search":
			if r.URL.Query().Get("q") == "nothing" {
				w.Write([]byte(`{"tracks":{"items":[]}}`))
				return
			}
			assert.Equal(t, "track", r.URL.Query().Get("type"))
			w.Write([]byte(`{"tracks":{"items":[{"uri":"spotify:track:1","name":"Bohemian Rhapsody","artists":[{"name":"Queen"}]}]}}`))
		default:
			if r.Body != nil && r.ContentLength > 0 {
				_ = json.NewDecoder(r.Body).Decode(&stub.playBody)
			}
			if playStatus != http.StatusNoContent {
				w.WriteHeader(playStatus)
				w.Write([]byte(`{"error":{"status":404,"message":"Player command failed","reason":"NO_ACTIVE_DEVICE"}}`))
				return
			}
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	t.Cleanup(stub.Close)
	return stub
}

func TestPlayMusicTool_Plays(t *testing.T) {
	stub := newSpotifyStub(t, http.StatusNoContent)
	tool := NewPlayMusicTool(NewMusicClient(stub.URL, "tok"))

	out, err := tool.Run(context.Background(), "bohemian rhapsody")
	require.NoError(t, err)
	assert.Equal(t, "Now playing Bohemian Rhapsody by Queen.", out)
	assert.Equal(t, []string{"GET /v1/search", "PUT /v1/me/player/play"}, stub.calls)
	assert.Equal(t, []any{"spotify:track:1"}, stub.playBody["uris"])
}

func TestPlayMusicTool_NoMatch(t *testing.T) {
	stub := newSpotifyStub(t, http.StatusNoContent)
	tool := NewPlayMusicTool(NewMusicClient(stub.URL, "tok"))

	out, err := tool.Run(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Contains(t, out, "couldn't find")
	assert.Len(t, stub.calls, 1)
}

func TestPlayMusicTool_NoDevice(t *testing.T) {
	stub := newSpotifyStub(t, http.StatusNotFound)
	tool := NewPlayMusicTool(NewMusicClient(stub.URL, "tok"))

	out, err := tool.Run(context.Background(), "queen")
	require.NoError(t, err)
	assert.Contains(t, out, "No active Spotify device")
}

func TestPlayMusicTool_NotConnected(t *testing.T) {
	tool := NewPlayMusicTool(NewMusicClient("http://127.0.0.1:1", ""))

	out, err := tool.Run(context.Background(), "queen")
	require.NoError(t, err)
	assert.Equal(t, notConnectedMessage, out)

	out, err = tool.Run(context.Background(), "  ")
	require.NoError(t, err)
	assert.Contains(t, out, "which song")
}

func TestControlMusicTool(t *testing.T) {
	tests := []struct {
		input string
		call  string
		want  string
	}{
		{"pause", "PUT /v1/me/player/pause", "Paused."},
		{"Resume", "PUT /v1/me/player/play", "Resumed."},
		{"skip", "POST /v1/me/player/next", "Skipped to the next track."},
		{"previous", "POST /v1/me/player/previous", "Went back to the previous track."},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			stub := newSpotifyStub(t, http.StatusNoContent)
			tool := NewControlMusicTool(NewMusicClient(stub.URL, "tok"))

			out, err := tool.Run(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
			assert.Equal(t, []string{tt.call}, stub.calls)
		})
	}
}

func TestControlMusicTool_Errors(t *testing.T) {
	tool := NewControlMusicTool(NewMusicClient("http://127.0.0.1:1", ""))

	out, err := tool.Run(context.Background(), "shuffle")
	require.NoError(t, err)
	assert.Contains(t, out, "Unknown playback action")

	out, err = tool.Run(context.Background(), "pause")
	require.NoError(t, err)
	assert.Equal(t, notConnectedMessage, out)
}

func TestUserMessage(t *testing.T) {
	for _, status := range []int{401, 403, 404, 429} {
		msg, ok := userMessage(&apiStatusError{status: status})
		assert.True(t, ok, "status %d", status)
		assert.NotEmpty(t, msg)
	}
	_, ok := userMessage(&apiStatusError{status: 500})
	assert.False(t, ok)
}
