package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/components/model"
	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/opencode-ai/companion/internal/logging"
)

var (
	// ErrMaxIterations is returned when the model keeps calling tools past
	// the iteration limit.
	ErrMaxIterations = errors.New("agent exceeded maximum iterations")
	// ErrExecutionTimeout is returned when an agent run exceeds its time limit.
	ErrExecutionTimeout = errors.New("agent exceeded maximum execution time")
)

// SnapshotFunc receives the transcript after each streamed chunk. The last
// message is the partial assistant message being generated.
type SnapshotFunc func(messages []*schema.Message) error

// AgentRun is the transcript produced by an agent run. Messages excludes the
// input chain.
type AgentRun struct {
	Messages  []*schema.Message
	ToolCalls int
}

// RunAgent drives the tool-calling loop. When onSnapshot is non-nil each step
// is streamed and onSnapshot sees every intermediate transcript; an error
// from onSnapshot aborts the run.
func (d *Dispatcher) RunAgent(ctx context.Context, messages []*schema.Message, onSnapshot SnapshotFunc) (AgentRun, error) {
	var run AgentRun

	chatModel, err := d.model.WithTools(d.tools.ToolInfos())
	if err != nil {
		return run, fmt.Errorf("bind tools: %w", err)
	}

	tools := make(map[string]einotool.InvokableTool)
	for _, t := range d.tools.EinoTools() {
		info, err := t.Info(ctx)
		if err != nil {
			return run, fmt.Errorf("tool info: %w", err)
		}
		tools[info.Name] = t
	}

	runCtx, cancel := context.WithTimeout(ctx, d.cfg.MaxExecutionTime)
	defer cancel()

	log := logging.Component("agent")
	conversation := append([]*schema.Message(nil), messages...)

	for step := 0; step < d.cfg.MaxIterations; step++ {
		var msg *schema.Message
		if onSnapshot == nil {
			msg, err = chatModel.Generate(runCtx, conversation, d.cfg.Options...)
		} else {
			msg, err = d.streamStep(runCtx, chatModel, conversation, run.Messages, onSnapshot)
		}
		if err != nil {
			return run, d.limitErr(ctx, runCtx, err)
		}

		conversation = append(conversation, msg)
		run.Messages = append(run.Messages, msg)

		if len(msg.ToolCalls) == 0 {
			log.Debug().Int("step", step).Int("toolCalls", run.ToolCalls).Msg("agent finished")
			return run, nil
		}

		for _, tc := range msg.ToolCalls {
			run.ToolCalls++
			result := invokeTool(runCtx, tools, tc)
			toolMsg := schema.ToolMessage(result, tc.ID)
			conversation = append(conversation, toolMsg)
			run.Messages = append(run.Messages, toolMsg)
		}
		if err := runCtx.Err(); err != nil {
			return run, d.limitErr(ctx, runCtx, err)
		}
	}

	return run, fmt.Errorf("%w (%d)", ErrMaxIterations, d.cfg.MaxIterations)
}

// streamStep streams one model call and reports snapshots as chunks arrive.
func (d *Dispatcher) streamStep(
	ctx context.Context,
	chatModel model.ToolCallingChatModel,
	conversation []*schema.Message,
	produced []*schema.Message,
	onSnapshot SnapshotFunc,
) (*schema.Message, error) {
	stream, err := chatModel.Stream(ctx, conversation, d.cfg.Options...)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	var (
		chunks    []*schema.Message
		content   strings.Builder
		toolCalls []schema.ToolCall
	)
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if chunk == nil {
			continue
		}
		chunks = append(chunks, chunk)
		content.WriteString(chunk.Content)
		toolCalls = append(toolCalls, chunk.ToolCalls...)

		partial := &schema.Message{Role: schema.Assistant, Content: content.String(), ToolCalls: toolCalls}
		snapshot := append(append([]*schema.Message(nil), produced...), partial)
		if err := onSnapshot(snapshot); err != nil {
			return nil, err
		}
	}

	if len(chunks) == 0 {
		return schema.AssistantMessage("", nil), nil
	}
	msg, err := schema.ConcatMessages(chunks)
	if err != nil {
		return nil, fmt.Errorf("concat stream: %w", err)
	}
	msg.Role = schema.Assistant
	return msg, nil
}

// invokeTool runs one tool call. Failures become the tool result so the model
// can recover from them.
func invokeTool(ctx context.Context, tools map[string]einotool.InvokableTool, tc schema.ToolCall) string {
	t, ok := tools[tc.Function.Name]
	if !ok {
		return fmt.Sprintf("Error: unknown tool %q", tc.Function.Name)
	}
	out, err := t.InvokableRun(ctx, tc.Function.Arguments)
	if err != nil {
		return "Error: " + err.Error()
	}
	return out
}

// limitErr maps a deadline on the run context to ErrExecutionTimeout while
// leaving caller cancellation untouched.
func (d *Dispatcher) limitErr(parent, runCtx context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w (%s)", ErrExecutionTimeout, d.cfg.MaxExecutionTime)
	}
	return err
}
