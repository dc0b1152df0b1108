package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/opencode-ai/companion/internal/tool"
)

// RemoteTool adapts a remote MCP tool to the companion's single-argument
// tool interface.
type RemoteTool struct {
	def    Tool
	schema inputSchema
	client *Client
}

// NewRemoteTool wraps def, which must carry the prefixed name from
// Client.Tools.
func NewRemoteTool(def Tool, client *Client) *RemoteTool {
	return &RemoteTool{def: def, schema: parseSchema(def.InputSchema), client: client}
}

func (t *RemoteTool) ID() string          { return t.def.Name }
func (t *RemoteTool) Description() string { return t.def.Description }

// InputDescription names the parameter a plain argument fills, or asks for
// a JSON object when the tool needs several.
func (t *RemoteTool) InputDescription() string {
	if name, ok := t.schema.primaryParam(); ok {
		desc := t.schema.Properties[name].Description
		if desc == "" {
			desc = name
		}
		return desc
	}
	if len(t.schema.Properties) == 0 {
		return "Unused; pass an empty string"
	}
	names := make([]string, 0, len(t.schema.Properties))
	for name := range t.schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return "A JSON object with the fields: " + strings.Join(names, ", ")
}

// Run maps input onto the remote schema and calls the tool.
func (t *RemoteTool) Run(ctx context.Context, input string) (string, error) {
	args, err := t.arguments(input)
	if err != nil {
		return err.Error(), nil
	}
	return t.client.CallTool(ctx, t.def.Name, args)
}

func (t *RemoteTool) arguments(input string) (map[string]any, error) {
	trimmed := strings.TrimSpace(input)
	if strings.HasPrefix(trimmed, "{") {
		var obj map[string]any
		if err := json.Unmarshal([]byte(trimmed), &obj); err == nil {
			return obj, nil
		}
	}
	if name, ok := t.schema.primaryParam(); ok {
		return map[string]any{name: input}, nil
	}
	if len(t.schema.Properties) == 0 {
		return map[string]any{}, nil
	}
	return nil, fmt.Errorf("%s needs a JSON object argument: %s", t.def.Name, t.InputDescription())
}

// Register adds every connected server's tools to reg and returns how many
// were added.
func Register(client *Client, reg *tool.Registry) int {
	if client == nil || reg == nil {
		return 0
	}
	tools := client.Tools()
	for _, def := range tools {
		reg.Register(NewRemoteTool(def, client))
	}
	return len(tools)
}
