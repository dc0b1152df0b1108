package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/companion/internal/chatclient"
	"github.com/opencode-ai/companion/internal/config"
)

var chatOpts = chatclient.Options{Mood: -1}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with a running companion server",
	Long: `Open an interactive chat against a companion server.

The last session, personality and mood are remembered between runs.
Type /help inside the chat for commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := chatOpts
		opts.StateDir = config.GetPaths().ChatStateDir()
		repl := chatclient.New(opts, os.Stdout, os.Stderr)
		return repl.Run(cmd.Context(), os.Stdin)
	},
}

func init() {
	chatclient.BindFlags(chatCmd.Flags(), &chatOpts)
}
