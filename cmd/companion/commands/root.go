// Package commands provides the CLI commands for the companion.
package commands

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/opencode-ai/companion/internal/config"
	"github.com/opencode-ai/companion/internal/logging"
	"github.com/opencode-ai/companion/pkg/types"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	logLevel   string
	prettyLogs bool
	envFile    string
	workDir    string
)

var rootCmd = &cobra.Command{
	Use:   "companion",
	Short: "Companion - a personality-driven chat backend",
	Long: `Companion serves a conversational assistant with switchable
personalities, mood levels, per-session memory and a small set of tools.

Run 'companion serve' to start the HTTP API, or 'companion chat' to talk
to a running server.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadEnv(envFile); err != nil {
			return err
		}
		logging.Setup(logLevel, prettyLogs)
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "Log level (DEBUG|INFO|WARN|ERROR)")
	rootCmd.PersistentFlags().BoolVar(&prettyLogs, "pretty-logs", false, "Human-readable log output")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment from this file (default: .env if present)")
	rootCmd.PersistentFlags().StringVar(&workDir, "directory", "", "Directory to load project config from")

	rootCmd.SetVersionTemplate(fmt.Sprintf("companion %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(personalitiesCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(modelsCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadEnv loads path, or .env when path is empty and the file exists.
// Variables already set in the environment win.
func loadEnv(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
		return nil
	}
	if _, err := os.Stat(".env"); err == nil {
		return godotenv.Load()
	}
	return nil
}

// GetWorkDir returns the working directory from flag or current directory.
func GetWorkDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return os.Getwd()
}

// loadConfig loads layered config and re-applies logging settings from it
// unless the log flags were given explicitly.
func loadConfig(cmd *cobra.Command) (*types.Config, error) {
	dir, err := GetWorkDir(workDir)
	if err != nil {
		return nil, err
	}
	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return nil, err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}

	settings := config.Resolve(cfg)
	level, pretty := logLevel, prettyLogs
	if !cmd.Flags().Changed("log-level") {
		level = settings.LogLevel
	}
	if !cmd.Flags().Changed("pretty-logs") {
		pretty = settings.LogPretty
	}
	logging.Setup(level, pretty)
	return cfg, nil
}
