package chatclient

import (
	"context"
	"time"

	"github.com/opencode-ai/companion/internal/storage"
)

// State is what the REPL remembers between runs, per server.
type State struct {
	SessionID   string `json:"sessionID"`
	Personality string `json:"personality,omitempty"`
	Mood        int    `json:"mood"`
	UpdatedAt   int64  `json:"updatedAt"`
}

func stateKey(serverURL string) []string {
	return []string{"chat", storage.Key(serverURL)}
}

// LoadState returns the saved state for serverURL. A nil store, a missing
// document or a corrupt one all yield nil.
func LoadState(store *storage.Storage, serverURL string) *State {
	if store == nil {
		return nil
	}
	var s State
	if err := store.Get(context.Background(), stateKey(serverURL), &s); err != nil || s.SessionID == "" {
		return nil
	}
	return &s
}

// SaveState stores s for serverURL.
func SaveState(store *storage.Storage, serverURL string, s State) error {
	if store == nil {
		return nil
	}
	s.UpdatedAt = time.Now().UnixMilli()
	return store.Put(context.Background(), stateKey(serverURL), s)
}

// ForgetState drops the saved state for serverURL.
func ForgetState(store *storage.Storage, serverURL string) error {
	if store == nil {
		return nil
	}
	return store.Delete(context.Background(), stateKey(serverURL))
}
