package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/opencode-ai/companion/internal/orchestrator"
	"github.com/opencode-ai/companion/pkg/types"
)

// maxRequestBody bounds chat request bodies.
const maxRequestBody = 1 << 20

func decodeChatRequest(w http.ResponseWriter, r *http.Request) (*types.ChatRequest, bool) {
	var req types.ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body: "+err.Error())
		return nil, false
	}
	return &req, true
}

func writeValidationError(w http.ResponseWriter, err error) bool {
	var ve *orchestrator.ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	writeErrorWithDetails(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid chat request", map[string]any{
		"fields": ve.Fields,
	})
	return true
}

// chat handles POST /api/chat.
func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeChatRequest(w, r)
	if !ok {
		return
	}

	resp, err := s.orch.ProcessMessage(r.Context(), req)
	if err != nil {
		if writeValidationError(w, err) {
			return
		}
		s.writeInternalError(w, "Chat failed", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// chatStream handles POST /api/chat/stream.
func (s *Server) chatStream(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeChatRequest(w, r)
	if !ok {
		return
	}

	// Validate before committing to an SSE response.
	if err := s.orch.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		s.writeInternalError(w, "Streaming not supported", err)
		return
	}
	sse.start()

	err = s.orch.StreamMessage(r.Context(), req, func(chunk types.StreamChunk) error {
		return sse.writeData(chunk)
	})
	if err != nil && r.Context().Err() == nil {
		s.log().Warn().Err(err).Msg("chat stream ended with error")
	}
}
