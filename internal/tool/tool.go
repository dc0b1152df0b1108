// Package tool provides the tools the companion can call during a turn.
//
// Every tool takes a single string argument and returns a string. Expected
// failures (service not connected, nothing found, rate limited) are reported
// in the returned string so the model can relay them. A non-nil error means
// something unexpected happened; callers treat it as a tool failure, never as
// a request failure.
package tool

import (
	"context"
	"encoding/json"
	"strings"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

// InputParam is the name of the single argument every tool accepts.
const InputParam = "input"

// Tool defines the interface for all tools.
type Tool interface {
	// ID returns the tool identifier.
	ID() string

	// Description tells the model when and how to use the tool.
	Description() string

	// InputDescription documents the single string argument.
	InputDescription() string

	// Run executes the tool.
	Run(ctx context.Context, input string) (string, error)
}

type sessionKey struct{}

// WithSessionID attaches the calling session to ctx.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey{}, sessionID)
}

// SessionIDFromContext returns the session attached by WithSessionID.
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// toolInfo builds the Eino schema for a tool's single string argument.
func toolInfo(t Tool) *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: t.ID(),
		Desc: t.Description(),
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			InputParam: {
				Type:     schema.String,
				Desc:     t.InputDescription(),
				Required: true,
			},
		}),
	}
}

// einoToolWrapper adapts a registered tool to Eino's InvokableTool.
type einoToolWrapper struct {
	tool     Tool
	registry *Registry
}

// Info returns the tool information.
func (w *einoToolWrapper) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return toolInfo(w.tool), nil
}

// InvokableRun executes the tool through the registry.
func (w *einoToolWrapper) InvokableRun(ctx context.Context, argsJSON string, opts ...einotool.Option) (string, error) {
	return w.registry.Invoke(ctx, w.tool.ID(), ExtractInput(argsJSON))
}

// ExtractInput recovers the string argument from model-produced arguments.
// It accepts {"input": "..."}, any object with exactly one string field, a
// bare JSON string, or raw text.
func ExtractInput(argsJSON string) string {
	trimmed := strings.TrimSpace(argsJSON)
	if trimmed == "" {
		return ""
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(trimmed), &obj); err == nil {
		if v, ok := obj[InputParam].(string); ok {
			return v
		}
		var only string
		count := 0
		for _, v := range obj {
			if s, ok := v.(string); ok {
				only = s
				count++
			}
		}
		if count == 1 {
			return only
		}
		return trimmed
	}

	var s string
	if err := json.Unmarshal([]byte(trimmed), &s); err == nil {
		return s
	}
	return trimmed
}
