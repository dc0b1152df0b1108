package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/opencode-ai/companion/pkg/types"
)

// SessionResponse is the history of one session.
type SessionResponse struct {
	SessionID string       `json:"sessionId"`
	History   []types.Turn `json:"history"`
}

// sessionCount handles GET /api/sessions.
func (s *Server) sessionCount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"count": s.orch.SessionCount()})
}

// clearSessions handles DELETE /api/sessions.
func (s *Server) clearSessions(w http.ResponseWriter, r *http.Request) {
	n := s.orch.ClearAll()
	writeJSON(w, http.StatusOK, map[string]int{"cleared": n})
}

// getSession handles GET /api/sessions/{sessionID}.
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	writeJSON(w, http.StatusOK, SessionResponse{SessionID: id, History: s.orch.History(id)})
}

// clearSession handles DELETE /api/sessions/{sessionID}.
func (s *Server) clearSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	writeJSON(w, http.StatusOK, map[string]bool{"cleared": s.orch.ClearSession(id)})
}
