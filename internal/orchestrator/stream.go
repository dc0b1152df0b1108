package orchestrator

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/opencode-ai/companion/internal/dispatch"
	"github.com/opencode-ai/companion/internal/logging"
	"github.com/opencode-ai/companion/internal/metrics"
	"github.com/opencode-ai/companion/internal/reconcile"
	"github.com/opencode-ai/companion/internal/tool"
	"github.com/opencode-ai/companion/pkg/types"
)

// EmitFunc delivers one stream chunk to the client. A non-nil error means the
// transport failed and streaming stops.
type EmitFunc func(types.StreamChunk) error

// emitError marks a failure of the transport rather than the model.
type emitError struct{ err error }

func (e *emitError) Error() string { return "emit: " + e.err.Error() }
func (e *emitError) Unwrap() error { return e.err }

// StreamMessage handles one streaming turn. It emits start, zero or more
// chunks, then exactly one end or error chunk. It returns a *ValidationError
// before emitting anything when req is invalid, and otherwise only returns
// transport errors from emit.
func (o *Orchestrator) StreamMessage(ctx context.Context, req *types.ChatRequest, emit EmitFunc) error {
	start := time.Now()

	if err := o.Validate(req); err != nil {
		o.metrics.ObserveRequest(ModeStream, "", metrics.OutcomeInvalid, time.Since(start))
		return err
	}

	mode := reconcile.Direct
	method := dispatch.MethodDirect
	if o.dispatcher.UsesAgent() {
		mode = reconcile.Agent
		method = dispatch.MethodAgent
	}

	if err := emit(types.StreamChunk{
		Type:     types.ChunkStart,
		Metadata: &types.ChunkMetadata{Personality: req.Personality, Method: string(method)},
	}); err != nil {
		return err
	}

	messages, err := o.prepare(req)
	if err != nil {
		return o.streamFail(req, start, emit, err)
	}

	rec := reconcile.New(mode)
	ctx = tool.WithSessionID(ctx, req.SessionID)
	if mode == reconcile.Agent {
		err = o.streamAgent(ctx, messages, rec, emit)
	} else {
		err = o.streamDirect(ctx, messages, rec, emit)
	}

	var ee *emitError
	if errors.As(err, &ee) {
		log := logging.Component("orchestrator")
		log.Info().Err(ee.err).Str("sessionID", req.SessionID).Msg("stream client went away")
		return ee.err
	}
	if err != nil {
		return o.streamFail(req, start, emit, err)
	}

	text := rec.Text()
	if o.recovery != nil && o.recovery.Detect(text) {
		text = o.recovery.Recover(ctx, text, req.Message)
		if err := emit(types.StreamChunk{
			Type:     types.ChunkText,
			Content:  text,
			Metadata: &types.ChunkMetadata{Revision: true},
		}); err != nil {
			return err
		}
	}

	outcome := metrics.OutcomeOK
	if text == "" {
		text = dispatch.FallbackText
		outcome = metrics.OutcomeFallback
		if err := emit(types.StreamChunk{Type: types.ChunkText, Content: text}); err != nil {
			return err
		}
	}
	o.commit(req, ModeStream, string(method), text)

	elapsed := time.Since(start)
	o.metrics.ObserveRequest(ModeStream, string(method), outcome, elapsed)
	o.metrics.StreamRevisions(rec.Revisions())

	return emit(types.StreamChunk{
		Type: types.ChunkEnd,
		Metadata: &types.ChunkMetadata{
			Personality:  req.Personality,
			Confidence:   o.confidence(),
			ResponseTime: elapsed.Milliseconds(),
			Method:       string(method),
		},
	})
}

func (o *Orchestrator) streamDirect(ctx context.Context, messages []*schema.Message, rec *reconcile.Reconciler, emit EmitFunc) error {
	stream, err := o.dispatcher.StreamDirect(ctx, messages)
	if err != nil {
		return err
	}
	defer stream.Close()

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if chunk == nil {
			continue
		}
		if piece := rec.Delta(chunk.Content); piece != "" {
			if err := emit(types.StreamChunk{Type: types.ChunkText, Content: piece}); err != nil {
				return &emitError{err}
			}
		}
	}
}

func (o *Orchestrator) streamAgent(ctx context.Context, messages []*schema.Message, rec *reconcile.Reconciler, emit EmitFunc) error {
	push := func(snapshot []*schema.Message) error {
		before := rec.Revisions()
		piece := rec.Snapshot(snapshot)
		if piece == "" {
			return nil
		}
		chunk := types.StreamChunk{Type: types.ChunkText, Content: piece}
		if rec.Revisions() > before {
			chunk.Metadata = &types.ChunkMetadata{Revision: true}
		}
		if err := emit(chunk); err != nil {
			return &emitError{err}
		}
		return nil
	}

	run, err := o.dispatcher.RunAgent(ctx, messages, push)
	if err != nil {
		return err
	}
	// The final transcript settles any candidate a partial snapshot missed.
	return push(run.Messages)
}

// streamFail emits the single error chunk for a failed stream. Nothing is
// committed.
func (o *Orchestrator) streamFail(req *types.ChatRequest, start time.Time, emit EmitFunc, err error) error {
	log := logging.Component("orchestrator")
	if errors.Is(err, context.Canceled) {
		log.Info().Str("sessionID", req.SessionID).Msg("stream cancelled")
	} else {
		log.Error().Err(err).Str("sessionID", req.SessionID).Msg("stream failed")
	}

	o.metrics.ObserveRequest(ModeStream, "", metrics.OutcomeError, time.Since(start))
	o.publish(eventResponseFailed(req, ModeStream, err))

	return emit(types.StreamChunk{Type: types.ChunkError, Content: Apology})
}
