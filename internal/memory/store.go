// Package memory holds bounded per-session conversation history in process
// memory. Nothing is persisted across restarts and sessions never expire.
package memory

import (
	"sync"

	"github.com/opencode-ai/companion/internal/logging"
	"github.com/opencode-ai/companion/pkg/types"
)

// DefaultHistoryCap is the maximum number of turns kept per session.
const DefaultHistoryCap = 20

// Store maps session ids to bounded, chronologically ordered turns.
// It is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	sessions map[string][]types.Turn
	cap      int
}

// NewStore creates a store keeping at most historyCap turns per session.
// A non-positive cap selects DefaultHistoryCap.
func NewStore(historyCap int) *Store {
	if historyCap <= 0 {
		historyCap = DefaultHistoryCap
	}
	return &Store{
		sessions: make(map[string][]types.Turn),
		cap:      historyCap,
	}
}

// Cap returns the per-session turn limit.
func (s *Store) Cap() int {
	return s.cap
}

// Get returns a copy of the history for a session, oldest first.
// Unknown or empty ids yield an empty slice.
func (s *Store) Get(sessionID string) []types.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := s.sessions[sessionID]
	out := make([]types.Turn, len(turns))
	copy(out, turns)
	return out
}

// Append records a user/assistant exchange and evicts the oldest exchanges
// past the cap. Eviction drops whole pairs, so with an odd cap a session
// holds at most cap-1 turns and always starts with a user turn. An empty
// session id is ignored.
func (s *Store) Append(sessionID, userText, assistantText string) {
	if sessionID == "" {
		log := logging.Component("memory")
		log.Warn().Msg("append without session id ignored")
		return
	}

	user := types.NewTurn(types.RoleUser, userText)
	assistant := types.NewTurn(types.RoleAssistant, assistantText)

	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.sessions[sessionID], user, assistant)
	if over := len(turns) - s.cap; over > 0 {
		over += over % 2
		trimmed := make([]types.Turn, len(turns)-over)
		copy(trimmed, turns[over:])
		turns = trimmed
	}
	s.sessions[sessionID] = turns
}

// Clear removes a session and reports whether it existed.
func (s *Store) Clear(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return false
	}
	delete(s.sessions, sessionID)
	return true
}

// Count returns the number of tracked sessions.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// ClearAll removes every session.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string][]types.Turn)
}
