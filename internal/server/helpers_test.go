package server

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/opencode-ai/companion/internal/dispatch"
	"github.com/opencode-ai/companion/internal/event"
	"github.com/opencode-ai/companion/internal/memory"
	"github.com/opencode-ai/companion/internal/metrics"
	"github.com/opencode-ai/companion/internal/orchestrator"
	"github.com/opencode-ai/companion/internal/personality"
	"github.com/opencode-ai/companion/internal/recovery"
	"github.com/opencode-ai/companion/internal/tool"
)

// echoModel answers "echo: <last user message>" in two chunks. A message
// containing "fail" makes every call error.
type echoModel struct{}

func (echoModel) answer(input []*schema.Message) (string, error) {
	last := input[len(input)-1].Content
	if strings.Contains(last, "fail") {
		return "", errors.New("provider down")
	}
	return "echo: " + last, nil
}

func (m echoModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	text, err := m.answer(input)
	if err != nil {
		return nil, err
	}
	return schema.AssistantMessage(text, nil), nil
}

func (m echoModel) Stream(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	text, err := m.answer(input)
	if err != nil {
		return nil, err
	}
	half := len(text) / 2
	return schema.StreamReaderFromArray([]*schema.Message{
		schema.AssistantMessage(text[:half], nil),
		schema.AssistantMessage(text[half:], nil),
	}), nil
}

func (m echoModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

type testEnv struct {
	srv     *Server
	store   *memory.Store
	bus     *event.Bus
	metrics *metrics.Metrics
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	m := metrics.New()
	bus := event.NewBus()
	t.Cleanup(func() { bus.Close() })

	reg := tool.NewRegistry(m)
	store := memory.NewStore(memory.DefaultHistoryCap)
	orch := orchestrator.New(orchestrator.Options{
		Personalities: personality.NewRegistry(),
		Store:         store,
		Dispatcher:    dispatch.New(echoModel{}, reg, dispatch.Config{Retry: dispatch.NoRetry, MaxExecutionTime: 5 * time.Second}),
		Recovery:      recovery.New(reg),
		Bus:           bus,
		Metrics:       m,
	})

	srv := New(&Config{Port: 0, EnableCORS: true}, Deps{
		Orchestrator: orch,
		Tools:        reg,
		Bus:          bus,
		Metrics:      m,
	})
	return &testEnv{srv: srv, store: store, bus: bus, metrics: m}
}
