package dispatch_test

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/opencode-ai/companion/internal/tool"
)

// stepFunc scripts one model call. bound reports whether tools were bound.
type stepFunc func(ctx context.Context, call int, bound bool, input []*schema.Message) ([]*schema.Message, error)

// fakeModel is a scripted ToolCallingChatModel.
type fakeModel struct {
	mu    *sync.Mutex
	calls *int
	bound bool
	tools []*schema.ToolInfo
	step  stepFunc
}

func newFakeModel(step stepFunc) *fakeModel {
	return &fakeModel{mu: &sync.Mutex{}, calls: new(int), step: step}
}

func (f *fakeModel) next(ctx context.Context, input []*schema.Message) ([]*schema.Message, error) {
	f.mu.Lock()
	call := *f.calls
	*f.calls++
	f.mu.Unlock()
	return f.step(ctx, call, f.bound, input)
}

func (f *fakeModel) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.calls
}

func (f *fakeModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	chunks, err := f.next(ctx, input)
	if err != nil {
		return nil, err
	}
	return schema.ConcatMessages(chunks)
}

func (f *fakeModel) Stream(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	chunks, err := f.next(ctx, input)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray(chunks), nil
}

func (f *fakeModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return &fakeModel{mu: f.mu, calls: f.calls, bound: true, tools: tools, step: f.step}, nil
}

func text(parts ...string) []*schema.Message {
	out := make([]*schema.Message, len(parts))
	for i, p := range parts {
		out[i] = &schema.Message{Role: schema.Assistant, Content: p}
	}
	return out
}

func toolCall(id, name, args string) []*schema.Message {
	idx := 0
	return []*schema.Message{{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{{
			Index:    &idx,
			ID:       id,
			Type:     "function",
			Function: schema.FunctionCall{Name: name, Arguments: args},
		}},
	}}
}

// echoTool records its inputs.
type echoTool struct {
	mu     sync.Mutex
	inputs []string
}

func (e *echoTool) ID() string               { return "echo" }
func (e *echoTool) Description() string      { return "Echo the input" }
func (e *echoTool) InputDescription() string { return "text" }
func (e *echoTool) Run(ctx context.Context, input string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inputs = append(e.inputs, input)
	return "echo: " + input, nil
}

func registryWith(tools ...tool.Tool) *tool.Registry {
	r := tool.NewRegistry(nil)
	for _, t := range tools {
		r.Register(t)
	}
	return r
}
