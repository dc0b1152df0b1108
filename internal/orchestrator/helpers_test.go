package orchestrator_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/opencode-ai/companion/internal/dispatch"
	"github.com/opencode-ai/companion/internal/memory"
	"github.com/opencode-ai/companion/internal/metrics"
	"github.com/opencode-ai/companion/internal/orchestrator"
	"github.com/opencode-ai/companion/internal/personality"
	"github.com/opencode-ai/companion/internal/recovery"
	"github.com/opencode-ai/companion/internal/tool"
	"github.com/opencode-ai/companion/pkg/types"
)

// reply scripts one model call. A nil stream error list means no failure.
type reply struct {
	chunks []*schema.Message
	err    error
	// streamErr is delivered after chunks when streaming.
	streamErr error
}

type scriptFunc func(ctx context.Context, call int, bound bool, input []*schema.Message) reply

type scriptedModel struct {
	mu     *sync.Mutex
	calls  *int
	inputs *[][]*schema.Message
	bound  bool
	script scriptFunc
}

func newScriptedModel(script scriptFunc) *scriptedModel {
	return &scriptedModel{mu: &sync.Mutex{}, calls: new(int), inputs: new([][]*schema.Message), script: script}
}

func (m *scriptedModel) next(ctx context.Context, input []*schema.Message) reply {
	m.mu.Lock()
	call := *m.calls
	*m.calls++
	*m.inputs = append(*m.inputs, input)
	m.mu.Unlock()
	return m.script(ctx, call, m.bound, input)
}

func (m *scriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.calls
}

func (m *scriptedModel) Input(i int) []*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (*m.inputs)[i]
}

func (m *scriptedModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	r := m.next(ctx, input)
	if r.err != nil {
		return nil, r.err
	}
	return schema.ConcatMessages(r.chunks)
}

func (m *scriptedModel) Stream(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	r := m.next(ctx, input)
	if r.err != nil {
		return nil, r.err
	}
	if r.streamErr == nil {
		return schema.StreamReaderFromArray(r.chunks), nil
	}

	sr, sw := schema.Pipe[*schema.Message](len(r.chunks) + 1)
	go func() {
		defer sw.Close()
		for _, c := range r.chunks {
			sw.Send(c, nil)
		}
		sw.Send(nil, r.streamErr)
	}()
	return sr, nil
}

func (m *scriptedModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return &scriptedModel{mu: m.mu, calls: m.calls, inputs: m.inputs, bound: true, script: m.script}, nil
}

func say(parts ...string) reply {
	chunks := make([]*schema.Message, len(parts))
	for i, p := range parts {
		chunks[i] = &schema.Message{Role: schema.Assistant, Content: p}
	}
	return reply{chunks: chunks}
}

func callTool(name, input string) reply {
	idx := 0
	return reply{chunks: []*schema.Message{{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{{
			Index:    &idx,
			ID:       "call_1",
			Type:     "function",
			Function: schema.FunctionCall{Name: name, Arguments: `{"input":"` + input + `"}`},
		}},
	}}}
}

// stubTool returns a fixed result and records inputs.
type stubTool struct {
	mu     sync.Mutex
	id     string
	result string
	inputs []string
}

func (s *stubTool) ID() string               { return s.id }
func (s *stubTool) Description() string      { return "stub " + s.id }
func (s *stubTool) InputDescription() string { return "input" }
func (s *stubTool) Run(ctx context.Context, input string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs = append(s.inputs, input)
	return s.result, nil
}

type fixture struct {
	orch    *orchestrator.Orchestrator
	store   *memory.Store
	model   *scriptedModel
	tools   *tool.Registry
	metrics *metrics.Metrics
}

func newFixture(t *testing.T, script scriptFunc, tools ...tool.Tool) *fixture {
	t.Helper()

	m := metrics.New()
	reg := tool.NewRegistry(m)
	for _, tl := range tools {
		reg.Register(tl)
	}

	chatModel := newScriptedModel(script)
	store := memory.NewStore(memory.DefaultHistoryCap)
	o := orchestrator.New(orchestrator.Options{
		Personalities: personality.NewRegistry(),
		Store:         store,
		Dispatcher:    dispatch.New(chatModel, reg, dispatch.Config{Retry: dispatch.NoRetry, MaxExecutionTime: 5 * time.Second}),
		Recovery:      recovery.New(reg),
		Metrics:       m,
		Clock:         func() time.Time { return time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC) },
	})
	return &fixture{orch: o, store: store, model: chatModel, tools: reg, metrics: m}
}

func request(message, sessionID string) *types.ChatRequest {
	return &types.ChatRequest{Message: message, Personality: "default", Mood: 50, SessionID: sessionID}
}

// collector records emitted chunks.
type collector struct {
	chunks []types.StreamChunk
}

func (c *collector) emit(chunk types.StreamChunk) error {
	c.chunks = append(c.chunks, chunk)
	return nil
}

func (c *collector) kinds() []types.StreamChunkType {
	out := make([]types.StreamChunkType, len(c.chunks))
	for i, ch := range c.chunks {
		out[i] = ch.Type
	}
	return out
}

func (c *collector) text() string {
	var s string
	for _, ch := range c.chunks {
		if ch.Type == types.ChunkText {
			s += ch.Content
		}
	}
	return s
}
