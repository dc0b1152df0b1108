// Package companion exposes the chat core as an MCP server.
package companion

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/opencode-ai/companion/internal/orchestrator"
	"github.com/opencode-ai/companion/internal/personality"
	"github.com/opencode-ai/companion/pkg/types"
)

// Version is reported to MCP clients.
const Version = "1.0.0"

// Backend is the part of the orchestrator the MCP tools use.
type Backend interface {
	ProcessMessage(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error)
	ClearSession(sessionID string) bool
	Personalities() *personality.Registry
}

// NewServer creates an MCP server with chat, list_personalities and
// clear_session tools.
func NewServer(b Backend) *server.MCPServer {
	s := server.NewMCPServer(
		"companion",
		Version,
		server.WithToolCapabilities(true),
	)

	chatTool := mcp.NewTool("chat",
		mcp.WithDescription("Send a message to the companion and get its reply in the chosen personality"),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("The user's message"),
		),
		mcp.WithString("personality",
			mcp.Description("Personality id (see list_personalities). Defaults to \"default\""),
		),
		mcp.WithNumber("mood",
			mcp.Description("Mood level from 0 (calm) to 100 (energetic). Defaults to 50"),
			mcp.Min(0),
			mcp.Max(100),
		),
		mcp.WithString("sessionId",
			mcp.Description("Session id for conversation memory. Omit for a one-off message"),
		),
	)
	s.AddTool(chatTool, chatHandler(b))

	listTool := mcp.NewTool("list_personalities",
		mcp.WithDescription("List the available companion personalities"),
	)
	s.AddTool(listTool, listHandler(b))

	clearTool := mcp.NewTool("clear_session",
		mcp.WithDescription("Forget the conversation history of a session"),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("Session id to clear"),
		),
	)
	s.AddTool(clearTool, clearHandler(b))

	return s
}

func stringArg(args map[string]any, key, def string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return def
}

func chatHandler(b Backend) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		message, ok := args["message"].(string)
		if !ok {
			return mcp.NewToolResultError("message argument is required"), nil
		}

		mood := 50
		if v, ok := args["mood"]; ok {
			f, ok := v.(float64)
			if !ok {
				return mcp.NewToolResultError(fmt.Sprintf("mood must be a number, got %T", v)), nil
			}
			mood = int(math.Round(f))
		}

		resp, err := b.ProcessMessage(ctx, &types.ChatRequest{
			Message:     message,
			Personality: stringArg(args, "personality", "default"),
			Mood:        mood,
			SessionID:   stringArg(args, "sessionId", ""),
		})
		if err != nil {
			if orchestrator.IsValidationError(err) {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return nil, err
		}
		return mcp.NewToolResultText(resp.Message), nil
	}
}

func listHandler(b Backend) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		descriptors := b.Personalities().List()
		out := make([]types.PersonalityInfo, len(descriptors))
		for i, d := range descriptors {
			out[i] = types.PersonalityInfo{ID: d.ID, Name: d.Name, Description: d.Description}
		}
		data, err := json.Marshal(out)
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func clearHandler(b Backend) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := stringArg(request.GetArguments(), "sessionId", "")
		if id == "" {
			return mcp.NewToolResultError("sessionId argument is required"), nil
		}
		if b.ClearSession(id) {
			return mcp.NewToolResultText("cleared " + id), nil
		}
		return mcp.NewToolResultText("no history for " + id), nil
	}
}
