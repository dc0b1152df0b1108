package tool

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
)

const (
	playMusicDescription = `Search for a song and start playing it on the user's Spotify.
Use this whenever the user asks to play, put on or listen to a song, artist or album.`

	controlMusicDescription = `Control the current Spotify playback.
Use this to pause, resume, skip to the next track or go back to the previous one.`

	notConnectedMessage = "Spotify is not connected. Ask the user to connect their Spotify account and try again."
)

// MusicClient talks to the Spotify Web API with a bearer token.
type MusicClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewMusicClient creates a client. An empty token yields a client whose
// calls all report that the service is not connected.
func NewMusicClient(baseURL, token string) *MusicClient {
	return &MusicClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Connected reports whether a token is configured.
func (c *MusicClient) Connected() bool {
	return c.token != ""
}

// Track is a search hit.
type Track struct {
	URI     string
	Name    string
	Artists []string
}

// String renders "Name by Artist".
func (t Track) String() string {
	if len(t.Artists) == 0 {
		return t.Name
	}
	return t.Name + " by " + strings.Join(t.Artists, ", ")
}

// apiStatusError carries a non-2xx Spotify response.
type apiStatusError struct {
	status int
	reason string
}

func (e *apiStatusError) Error() string {
	return fmt.Sprintf("spotify: HTTP %d %s", e.status, e.reason)
}

// userMessage maps Spotify status codes to something the model can relay.
func userMessage(err error) (string, bool) {
	se, ok := err.(*apiStatusError)
	if !ok {
		return "", false
	}
	switch {
	case se.status == http.StatusUnauthorized:
		return "The Spotify session has expired. Ask the user to reconnect Spotify.", true
	case se.status == http.StatusForbidden:
		return "Spotify refused the request. Playback control needs a Spotify Premium account.", true
	case se.status == http.StatusNotFound:
		return "No active Spotify device was found. Ask the user to open Spotify on one of their devices.", true
	case se.status == http.StatusTooManyRequests:
		return "Spotify is rate limiting requests right now. Try again in a moment.", true
	default:
		return "", false
	}
}

func (c *MusicClient) do(ctx context.Context, method, path string, body any, out any) error {
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
		return fmt.Errorf("spotify: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("spotify: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error struct {
				Reason  string `json:"reason"`
				Message string `json:"message"`
			} `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(data, &apiErr)
		reason := apiErr.Error.Reason
		if reason == "" {
			reason = apiErr.Error.Message
		}
		return &apiStatusError{status: resp.StatusCode, reason: reason}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("spotify: decode response: %w", err)
		}
	}
	return nil
}

// SearchTrack returns the best match for query, or nil when nothing matches.
func (c *MusicClient) SearchTrack(ctx context.Context, query string) (*Track, error) {
	params := url.Values{
		"q":     {query},
		"type":  {"track"},
		"limit": {"1"},
	}

	var resp struct {
		Tracks struct {
			Items []struct {
				URI     string `json:"uri"`
				Name    string `json:"name"`
				Artists []struct {
					Name string `json:"name"`
				} `json:"artists"`
			} `json:"items"`
		} `json:"tracks"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/search?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Tracks.Items) == 0 {
		return nil, nil
	}

	item := resp.Tracks.Items[0]
	track := &Track{URI: item.URI, Name: item.Name}
	for _, a := range item.Artists {
		track.Artists = append(track.Artists, a.Name)
	}
	return track, nil
}

// Play starts playback of a track URI on the active device.
func (c *MusicClient) Play(ctx context.Context, uri string) error {
	return c.do(ctx, http.MethodPut, "/v1/me/player/play", map[string]any{"uris": []string{uri}}, nil)
}

// PlayMusicTool searches for a track and plays it.
type PlayMusicTool struct {
	client *MusicClient
}

// NewPlayMusicTool creates the play_music tool.
func NewPlayMusicTool(client *MusicClient) *PlayMusicTool {
	return &PlayMusicTool{client: client}
}

func (t *PlayMusicTool) ID() string          { return "play_music" }
func (t *PlayMusicTool) Description() string { return playMusicDescription }
func (t *PlayMusicTool) InputDescription() string {
	return `What to play, e.g. "Bohemian Rhapsody by Queen"`
}

// Run searches and plays.
func (t *PlayMusicTool) Run(ctx context.Context, input string) (string, error) {
	query := strings.TrimSpace(input)
	if query == "" {
		return "Tell me which song you would like to hear.", nil
	}
	if !t.client.Connected() {
		return notConnectedMessage, nil
	}

	track, err := t.client.SearchTrack(ctx, query)
	if err != nil {
		if msg, ok := userMessage(err); ok {
			return msg, nil
		}
		return "", err
	}
	if track == nil {
		return fmt.Sprintf("I couldn't find anything matching %q on Spotify.", query), nil
	}

	if err := t.client.Play(ctx, track.URI); err != nil {
		if msg, ok := userMessage(err); ok {
			return msg, nil
		}
		return "", err
	}
	return "Now playing " + track.String() + ".", nil
}

// ControlMusicTool pauses, resumes and skips playback.
type ControlMusicTool struct {
	client *MusicClient
}

// NewControlMusicTool creates the control_music tool.
func NewControlMusicTool(client *MusicClient) *ControlMusicTool {
	return &ControlMusicTool{client: client}
}

func (t *ControlMusicTool) ID() string          { return "control_music" }
func (t *ControlMusicTool) Description() string { return controlMusicDescription }
func (t *ControlMusicTool) InputDescription() string {
	return "One of: pause, resume, next, previous"
}

var controlActions = map[string]struct {
	method string
	path   string
	done   string
}{
	"pause":    {http.MethodPut, "/v1/me/player/pause", "Paused."},
	"resume":   {http.MethodPut, "/v1/me/player/play", "Resumed."},
	"next":     {http.MethodPost, "/v1/me/player/next", "Skipped to the next track."},
	"previous": {http.MethodPost, "/v1/me/player/previous", "Went back to the previous track."},
}

var controlAliases = map[string]string{
	"stop":     "pause",
	"play":     "resume",
	"unpause":  "resume",
	"continue": "resume",
	"skip":     "next",
	"back":     "previous",
	"prev":     "previous",
}

// Run performs the playback action.
func (t *ControlMusicTool) Run(ctx context.Context, input string) (string, error) {
	action := strings.ToLower(strings.TrimSpace(input))
	if alias, ok := controlAliases[action]; ok {
		action = alias
	}
	spec, ok := controlActions[action]
	if !ok {
		return fmt.Sprintf("Unknown playback action %q. Use pause, resume, next or previous.", input), nil
	}
	if !t.client.Connected() {
		return notConnectedMessage, nil
	}

	if err := t.client.do(ctx, spec.method, spec.path, nil, nil); err != nil {
		if msg, ok := userMessage(err); ok {
			return msg, nil
		}
		return "", err
	}
	return spec.done, nil
}
