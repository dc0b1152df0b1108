package commands

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/opencode-ai/companion/internal/app"
	"github.com/opencode-ai/companion/internal/config"
	"github.com/opencode-ai/companion/pkg/mcpserver/companion"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the companion over MCP stdio",
	Long: `Run the companion as an MCP server on stdin/stdout, exposing the
chat, list_personalities and clear_session tools.

Logs go to stderr so they do not corrupt the protocol stream.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		a, err := app.New(context.Background(), cfg, app.Options{
			PersonalityDir: config.GetPaths().PersonalitiesDir(),
		})
		if err != nil {
			return err
		}
		defer a.Close()

		return server.ServeStdio(companion.NewServer(a.Orchestrator))
	},
}
