package server

import (
	"net/http"

	"github.com/opencode-ai/companion/pkg/types"
)

// ToolInfo is the public view of a registered tool.
type ToolInfo struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// health handles GET /health.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.orch.SessionCount(),
		"agent":    s.orch.UsesAgent(),
	})
}

// listPersonalities handles GET /api/personalities.
func (s *Server) listPersonalities(w http.ResponseWriter, r *http.Request) {
	descriptors := s.orch.Personalities().List()
	out := make([]types.PersonalityInfo, len(descriptors))
	for i, d := range descriptors {
		out[i] = types.PersonalityInfo{ID: d.ID, Name: d.Name, Description: d.Description}
	}
	writeJSON(w, http.StatusOK, out)
}

// listTools handles GET /api/tools.
func (s *Server) listTools(w http.ResponseWriter, r *http.Request) {
	out := []ToolInfo{}
	if s.tools != nil {
		for _, t := range s.tools.List() {
			out = append(out, ToolInfo{ID: t.ID(), Description: t.Description()})
		}
	}
	writeJSON(w, http.StatusOK, out)
}
