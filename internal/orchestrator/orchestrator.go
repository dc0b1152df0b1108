// Package orchestrator runs one chat turn end to end: validation, history,
// prompt assembly, dispatch, recovery and the memory commit.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/go-playground/validator/v10"

	"github.com/opencode-ai/companion/internal/chain"
	"github.com/opencode-ai/companion/internal/dispatch"
	"github.com/opencode-ai/companion/internal/event"
	"github.com/opencode-ai/companion/internal/logging"
	"github.com/opencode-ai/companion/internal/memory"
	"github.com/opencode-ai/companion/internal/metrics"
	"github.com/opencode-ai/companion/internal/personality"
	"github.com/opencode-ai/companion/internal/recovery"
	"github.com/opencode-ai/companion/internal/tool"
	"github.com/opencode-ai/companion/pkg/types"
)

// Apology is returned in place of an answer when a turn cannot be completed.
const Apology = "I'm sorry, I'm having trouble responding right now. Please try again in a moment."

// Request modes used in metrics and events.
const (
	ModeProcess = "process"
	ModeStream  = "stream"
)

// Options wires the orchestrator's collaborators. Personalities, Store and
// Dispatcher are required.
type Options struct {
	Personalities *personality.Registry
	Store         *memory.Store
	Dispatcher    *dispatch.Dispatcher
	Recovery      recovery.Recoverer
	Bus           *event.Bus
	Metrics       *metrics.Metrics
	// Clock overrides the prompt timestamp clock.
	Clock func() time.Time
}

// Orchestrator is safe for concurrent use; the memory store is its only
// shared mutable state.
type Orchestrator struct {
	personalities *personality.Registry
	prompts       *personality.Builder
	store         *memory.Store
	dispatcher    *dispatch.Dispatcher
	recovery      recovery.Recoverer
	bus           *event.Bus
	metrics       *metrics.Metrics
	validate      *validator.Validate
	confidence    func() float64
}

// New creates an orchestrator.
func New(opts Options) *Orchestrator {
	prompts := personality.NewBuilder(opts.Personalities)
	if opts.Clock != nil {
		prompts = prompts.WithClock(opts.Clock)
	}
	return &Orchestrator{
		personalities: opts.Personalities,
		prompts:       prompts,
		store:         opts.Store,
		dispatcher:    opts.Dispatcher,
		recovery:      opts.Recovery,
		bus:           opts.Bus,
		metrics:       opts.Metrics,
		validate:      newValidator(),
		confidence:    randomConfidence,
	}
}

// Store returns the session memory.
func (o *Orchestrator) Store() *memory.Store { return o.store }

// Personalities returns the personality registry.
func (o *Orchestrator) Personalities() *personality.Registry { return o.personalities }

// UsesAgent reports whether turns take the tool-calling path.
func (o *Orchestrator) UsesAgent() bool { return o.dispatcher.UsesAgent() }

// ProcessMessage handles one non-streaming turn. The only error it returns is
// a *ValidationError; every other failure yields an apology response.
func (o *Orchestrator) ProcessMessage(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error) {
	start := time.Now()
	log := logging.Component("orchestrator")

	if err := o.Validate(req); err != nil {
		o.metrics.ObserveRequest(ModeProcess, "", metrics.OutcomeInvalid, time.Since(start))
		return nil, err
	}

	messages, err := o.prepare(req)
	if err != nil {
		return o.fail(req, ModeProcess, start, err), nil
	}

	res, err := o.dispatcher.Dispatch(tool.WithSessionID(ctx, req.SessionID), messages)
	if err != nil {
		return o.fail(req, ModeProcess, start, err), nil
	}

	text := res.Text
	if o.recovery != nil && o.recovery.Detect(text) {
		log.Info().Str("sessionID", req.SessionID).Msg("malformed tool call in reply, recovering")
		text = o.recovery.Recover(tool.WithSessionID(ctx, req.SessionID), text, req.Message)
	}

	o.commit(req, ModeProcess, string(res.Method), text)

	outcome := metrics.OutcomeOK
	if res.Method == dispatch.MethodDirectFallback || text == dispatch.FallbackText {
		outcome = metrics.OutcomeFallback
	}
	elapsed := time.Since(start)
	o.metrics.ObserveRequest(ModeProcess, string(res.Method), outcome, elapsed)

	log.Debug().
		Str("sessionID", req.SessionID).
		Str("personality", req.Personality).
		Str("method", string(res.Method)).
		Int("toolCalls", res.ToolCalls).
		Dur("elapsed", elapsed).
		Msg("turn complete")

	return &types.ChatResponse{
		Message:      text,
		Personality:  req.Personality,
		Confidence:   o.confidence(),
		ResponseTime: elapsed.Milliseconds(),
	}, nil
}

// History returns the stored history for a session.
func (o *Orchestrator) History(sessionID string) []types.Turn {
	return o.store.Get(sessionID)
}

// ClearSession drops one session and reports whether it existed.
func (o *Orchestrator) ClearSession(sessionID string) bool {
	existed := o.store.Clear(sessionID)
	o.metrics.SetSessions(o.store.Count())
	o.publish(event.SessionCleared, event.SessionClearedData{SessionID: sessionID, Existed: existed})
	return existed
}

// ClearAll drops every session and returns how many were removed.
func (o *Orchestrator) ClearAll() int {
	n := o.store.Count()
	o.store.ClearAll()
	o.metrics.SetSessions(0)
	o.publish(event.SessionsCleared, event.SessionsClearedData{Count: n})
	return n
}

// SessionCount returns the number of stored sessions.
func (o *Orchestrator) SessionCount() int {
	return o.store.Count()
}

// prepare loads history and assembles the message chain.
func (o *Orchestrator) prepare(req *types.ChatRequest) ([]*schema.Message, error) {
	prompt, err := o.prompts.Build(req.Personality, req.Mood)
	if err != nil {
		return nil, err
	}
	return chain.Assemble(prompt, o.history(req), req.Message), nil
}

// history returns the stored turns for a session, or the caller-supplied
// turns for a request without one. Caller turns are bounded by the same cap
// as stored sessions and never start with an assistant turn.
func (o *Orchestrator) history(req *types.ChatRequest) []types.Turn {
	if req.SessionID != "" {
		return o.store.Get(req.SessionID)
	}
	turns := req.History
	if over := len(turns) - o.store.Cap(); over > 0 {
		turns = turns[over:]
	}
	for len(turns) > 0 && turns[0].Role == types.RoleAssistant {
		turns = turns[1:]
	}
	return turns
}

// commit stores the exchange once per turn. Requests without a session id,
// turns that produced no answer and failed recoveries are never stored.
func (o *Orchestrator) commit(req *types.ChatRequest, mode, method, text string) {
	if req.SessionID == "" || text == "" || text == dispatch.FallbackText || text == recovery.Apology {
		return
	}
	o.store.Append(req.SessionID, req.Message, text)
	o.metrics.SetSessions(o.store.Count())
	o.publish(event.TurnCommitted, event.TurnCommittedData{
		SessionID:   req.SessionID,
		Personality: req.Personality,
		Mode:        mode,
		Method:      method,
		Turns:       len(o.store.Get(req.SessionID)),
	})
}

// fail logs err and builds the apology response.
func (o *Orchestrator) fail(req *types.ChatRequest, mode string, start time.Time, err error) *types.ChatResponse {
	log := logging.Component("orchestrator")
	if errors.Is(err, context.Canceled) {
		log.Info().Str("sessionID", req.SessionID).Msg("request cancelled")
	} else {
		log.Error().Err(err).Str("sessionID", req.SessionID).Str("mode", mode).Msg("turn failed")
	}

	elapsed := time.Since(start)
	o.metrics.ObserveRequest(mode, "", metrics.OutcomeError, elapsed)
	o.publish(eventResponseFailed(req, mode, err))

	return &types.ChatResponse{
		Message:      Apology,
		Personality:  req.Personality,
		Confidence:   LowConfidence,
		ResponseTime: elapsed.Milliseconds(),
	}
}

func eventResponseFailed(req *types.ChatRequest, mode string, err error) (event.EventType, event.ResponseFailedData) {
	return event.ResponseFailed, event.ResponseFailedData{SessionID: req.SessionID, Mode: mode, Error: err.Error()}
}

func (o *Orchestrator) publish(t event.EventType, data any) {
	if o.bus == nil {
		return
	}
	o.bus.Publish(event.Event{Type: t, Data: data})
}
