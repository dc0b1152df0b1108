package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloudwego/eino/components/model"
	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/opencode-ai/companion/internal/logging"
)

// Method records which path produced an answer.
type Method string

const (
	MethodDirect         Method = "direct"
	MethodAgent          Method = "agent"
	MethodDirectFallback Method = "direct_fallback"
)

const (
	// DefaultMaxIterations bounds the number of model calls in one agent run.
	DefaultMaxIterations = 5
	// DefaultMaxExecutionTime bounds the wall-clock time of one agent run.
	DefaultMaxExecutionTime = 30 * time.Second
)

// ToolSet is the view of the tool registry the dispatcher needs.
type ToolSet interface {
	Len() int
	ToolInfos() []*schema.ToolInfo
	EinoTools() []einotool.InvokableTool
}

// Config holds agent limits and per-call model options.
type Config struct {
	MaxIterations    int
	MaxExecutionTime time.Duration
	// Options are passed to every model call, e.g. max tokens and temperature.
	Options []model.Option
	// Retry creates the direct path retry policy. Nil uses exponential
	// backoff with jitter.
	Retry BackOffFactory
}

// Result is the outcome of a dispatch.
type Result struct {
	Text      string
	Method    Method
	ToolCalls int
}

// Dispatcher selects between the direct and agent paths.
type Dispatcher struct {
	model model.ToolCallingChatModel
	tools ToolSet
	cfg   Config
}

// New creates a dispatcher. tools may be nil.
func New(m model.ToolCallingChatModel, tools ToolSet, cfg Config) *Dispatcher {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.MaxExecutionTime <= 0 {
		cfg.MaxExecutionTime = DefaultMaxExecutionTime
	}
	if cfg.Retry == nil {
		cfg.Retry = newRetryBackoff
	}
	return &Dispatcher{model: m, tools: tools, cfg: cfg}
}

// UsesAgent reports whether dispatches take the agent path.
func (d *Dispatcher) UsesAgent() bool {
	return d.tools != nil && d.tools.Len() > 0
}

// Dispatch produces an answer for messages. It returns an error only when
// the direct path fails.
func (d *Dispatcher) Dispatch(ctx context.Context, messages []*schema.Message) (Result, error) {
	log := logging.Component("dispatch")

	if !d.UsesAgent() {
		text, err := d.Direct(ctx, messages)
		if err != nil {
			return Result{Method: MethodDirect}, err
		}
		return Result{Text: orFallback(text), Method: MethodDirect}, nil
	}

	run, err := d.RunAgent(ctx, messages, nil)
	if err == nil {
		return Result{Text: orFallback(LastAnswer(run.Messages)), Method: MethodAgent, ToolCalls: run.ToolCalls}, nil
	}
	if ctx.Err() != nil {
		return Result{Method: MethodAgent}, ctx.Err()
	}

	log.Warn().Err(err).Int("toolCalls", run.ToolCalls).Msg("agent run failed, falling back to direct completion")
	text, derr := d.Direct(ctx, messages)
	if derr != nil {
		return Result{Method: MethodDirectFallback, ToolCalls: run.ToolCalls}, derr
	}
	return Result{Text: orFallback(text), Method: MethodDirectFallback, ToolCalls: run.ToolCalls}, nil
}

// Direct performs one blocking completion, retrying transient failures.
func (d *Dispatcher) Direct(ctx context.Context, messages []*schema.Message) (string, error) {
	var text string
	op := func() error {
		msg, err := d.model.Generate(ctx, messages, d.cfg.Options...)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		if msg != nil {
			text = msg.Content
		}
		return nil
	}

	log := logging.Component("dispatch")
	notify := func(err error, next time.Duration) {
		log.Warn().Err(err).Dur("retryIn", next).Msg("completion failed, retrying")
	}

	if err := backoff.RetryNotify(op, d.cfg.Retry(ctx), notify); err != nil {
		return "", fmt.Errorf("direct completion: %w", err)
	}
	return text, nil
}

// StreamDirect opens a streaming completion for the direct path.
func (d *Dispatcher) StreamDirect(ctx context.Context, messages []*schema.Message) (*schema.StreamReader[*schema.Message], error) {
	stream, err := d.model.Stream(ctx, messages, d.cfg.Options...)
	if err != nil {
		return nil, fmt.Errorf("stream completion: %w", err)
	}
	return stream, nil
}

// IsLimitError reports whether err came from an agent limit.
func IsLimitError(err error) bool {
	return errors.Is(err, ErrMaxIterations) || errors.Is(err, ErrExecutionTimeout)
}
