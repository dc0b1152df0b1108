package provider

import (
	"context"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/companion/pkg/types"
)

// mockProvider is a mock implementation of Provider for testing.
type mockProvider struct {
	id string
}

func (m *mockProvider) ID() string                            { return m.id }
func (m *mockProvider) Name() string                          { return m.id }
func (m *mockProvider) Model() string                         { return m.id + "-model" }
func (m *mockProvider) Models() []types.Model                 { return nil }
func (m *mockProvider) ChatModel() model.ToolCallingChatModel { return nil }
func (m *mockProvider) CallOptions(int, float64) []model.Option {
	return nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(&mockProvider{id: "openai"})

	p, err := r.Get("openai")
	require.NoError(t, err)
	assert.Equal(t, "openai", p.ID())

	_, err = r.Get("missing")
	assert.Error(t, err)
}

func TestRegistry_ListSorted(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(&mockProvider{id: "openai"})
	r.Register(&mockProvider{id: "ark"})
	r.Register(&mockProvider{id: "anthropic"})

	list := r.List()
	require.Len(t, list, 3)
	assert.Equal(t, "anthropic", list[0].ID())
	assert.Equal(t, "ark", list[1].ID())
	assert.Equal(t, "openai", list[2].ID())
}

func TestRegistry_SelectPriority(t *testing.T) {
	tests := []struct {
		name       string
		registered []string
		expected   string
	}{
		{"anthropic wins", []string{"ark", "openai", "anthropic"}, "anthropic"},
		{"openai before ark", []string{"ark", "openai"}, "openai"},
		{"ark alone", []string{"ark"}, "ark"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(&types.Config{})
			for _, id := range tt.registered {
				r.Register(&mockProvider{id: id})
			}
			p, err := r.Select()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, p.ID())
		})
	}
}

func TestRegistry_SelectConfiguredModel(t *testing.T) {
	r := NewRegistry(&types.Config{Model: "ark/ep-1"})
	r.Register(&mockProvider{id: "anthropic"})
	r.Register(&mockProvider{id: "ark"})

	p, err := r.Select()
	require.NoError(t, err)
	assert.Equal(t, "ark", p.ID())
}

func TestRegistry_SelectConfiguredModelMissing(t *testing.T) {
	r := NewRegistry(&types.Config{Model: "openai/gpt-4o"})
	r.Register(&mockProvider{id: "anthropic"})

	_, err := r.Select()
	assert.Error(t, err)
}

func TestRegistry_SelectNone(t *testing.T) {
	_, err := NewRegistry(nil).Select()
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry(nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Register(&mockProvider{id: "openai"})
		}()
		go func() {
			defer wg.Done()
			_ = r.List()
			_, _ = r.Select()
		}()
	}
	wg.Wait()
	assert.Len(t, r.List(), 1)
}

func TestParseModelString(t *testing.T) {
	p, m := ParseModelString("anthropic/claude-3-5-haiku-20241022")
	assert.Equal(t, "anthropic", p)
	assert.Equal(t, "claude-3-5-haiku-20241022", m)

	p, m = ParseModelString("gpt-4o")
	assert.Empty(t, p)
	assert.Equal(t, "gpt-4o", m)
}

func TestModelFor(t *testing.T) {
	cfg := &types.Config{
		Model: "openai/gpt-4o",
		Provider: map[string]types.ProviderConfig{
			"ark": {Model: "ep-42"},
		},
	}

	assert.Equal(t, "gpt-4o", modelFor(cfg, "openai"))
	assert.Equal(t, "ep-42", modelFor(cfg, "ark"))
	assert.Empty(t, modelFor(cfg, "anthropic"))
}

func TestInitializeProviders_NoConfig(t *testing.T) {
	r, err := InitializeProviders(context.Background(), nil, 0)
	require.NoError(t, err)
	assert.Empty(t, r.List())
}

func TestInitializeProviders_SkipsDisabledAndIncomplete(t *testing.T) {
	cfg := &types.Config{
		Provider: map[string]types.ProviderConfig{
			"openai": {APIKey: "k", Disable: true},
			"ark":    {APIKey: "k"},
		},
	}

	r, err := InitializeProviders(context.Background(), cfg, 512)
	require.NoError(t, err)
	assert.Empty(t, r.List())
}

func TestInitializeProviders_RegistersWithKey(t *testing.T) {
	cfg := &types.Config{
		Model: "openai/gpt-4o",
		Provider: map[string]types.ProviderConfig{
			"openai": {APIKey: "k", BaseURL: "http://127.0.0.1:1/v1"},
		},
	}

	r, err := InitializeProviders(context.Background(), cfg, 512)
	require.NoError(t, err)

	p, err := r.Select()
	require.NoError(t, err)
	assert.Equal(t, "openai", p.ID())
	assert.Equal(t, "gpt-4o", p.Model())
}
