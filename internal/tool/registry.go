package tool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/opencode-ai/companion/internal/logging"
	"github.com/opencode-ai/companion/internal/metrics"
)

// ErrToolNotFound is returned when invoking an unregistered tool.
var ErrToolNotFound = errors.New("tool not found")

// Registry manages tool registration, lookup and invocation.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	metrics *metrics.Metrics
}

// NewRegistry creates a new tool registry. m may be nil.
func NewRegistry(m *metrics.Metrics) *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		metrics: m,
	}
}

// Register adds a tool to the registry.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	logging.Debug().Str("tool", tool.ID()).Msg("registering tool")
	r.tools[tool.ID()] = tool
}

// Get retrieves a tool by ID.
func (r *Registry) Get(id string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[id]
	return tool, ok
}

// List returns all registered tools sorted by ID.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].ID() < tools[j].ID() })
	return tools
}

// IDs returns all tool IDs, sorted.
func (r *Registry) IDs() []string {
	tools := r.List()
	ids := make([]string, len(tools))
	for i, t := range tools {
		ids[i] = t.ID()
	}
	return ids
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Invoke runs a tool by ID and records the outcome.
func (r *Registry) Invoke(ctx context.Context, id, input string) (string, error) {
	t, ok := r.Get(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, id)
	}

	log := logging.Component("tool")
	log.Debug().Str("tool", id).Str("input", input).Msg("invoking tool")

	out, err := t.Run(ctx, input)
	if err != nil {
		r.metrics.ToolCall(id, metrics.OutcomeError)
		log.Warn().Err(err).Str("tool", id).Msg("tool failed")
		return "", err
	}
	r.metrics.ToolCall(id, metrics.OutcomeOK)
	return out, nil
}

// EinoTools returns Eino-compatible tools.
func (r *Registry) EinoTools() []einotool.InvokableTool {
	tools := r.List()
	out := make([]einotool.InvokableTool, len(tools))
	for i, t := range tools {
		out[i] = &einoToolWrapper{tool: t, registry: r}
	}
	return out
}

// ToolInfos returns Eino tool infos for all tools.
func (r *Registry) ToolInfos() []*schema.ToolInfo {
	tools := r.List()
	infos := make([]*schema.ToolInfo, len(tools))
	for i, t := range tools {
		infos[i] = toolInfo(t)
	}
	return infos
}
