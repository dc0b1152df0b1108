package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/opencode-ai/companion/internal/logging"
)

// requestLogFormatter routes chi request logs through zerolog.
type requestLogFormatter struct{}

func (f *requestLogFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	log := logging.Component("http").With().
		Str("requestID", middleware.GetReqID(r.Context())).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("remote", r.RemoteAddr).
		Logger()
	return &requestLogEntry{log: log}
}

type requestLogEntry struct {
	log zerolog.Logger
}

func (e *requestLogEntry) Write(status, bytes int, header http.Header, elapsed time.Duration, extra any) {
	ev := e.log.Debug()
	if status >= 500 {
		ev = e.log.Warn()
	}
	ev.Int("status", status).
		Int("bytes", bytes).
		Dur("elapsed", elapsed).
		Msg("request")
}

func (e *requestLogEntry) Panic(v any, stack []byte) {
	e.log.Error().
		Interface("panic", v).
		Bytes("stack", stack).
		Msg("request panicked")
}

func (s *Server) log() *zerolog.Logger {
	l := logging.Component("server")
	return &l
}
