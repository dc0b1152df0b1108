package server

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	r := s.router

	r.Get("/health", s.health)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.chat)
		r.Post("/chat/stream", s.chatStream)

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", s.sessionCount)
			r.Delete("/", s.clearSessions)
			r.Get("/{sessionID}", s.getSession)
			r.Delete("/{sessionID}", s.clearSession)
		})

		r.Get("/personalities", s.listPersonalities)
		r.Get("/tools", s.listTools)
		r.Get("/events", s.events)
	})
}
