// Package main provides the flag-only entry point for the companion server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opencode-ai/companion/internal/app"
	"github.com/opencode-ai/companion/internal/config"
	"github.com/opencode-ai/companion/internal/logging"
)

var (
	port      = flag.Int("port", 0, "Server port (default from config, 8080)")
	directory = flag.String("directory", "", "Directory to load project config from")
	logLevel  = flag.String("log-level", "", "Log level (DEBUG|INFO|WARN|ERROR)")
	version   = flag.Bool("version", false, "Print version and exit")
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("companion-server %s (%s)\n", Version, BuildTime)
		os.Exit(0)
	}

	workDir := *directory
	if workDir == "" {
		var err error
		workDir, err = os.Getwd()
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to get working directory")
		}
	}

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		logging.Fatal().Err(err).Msg("failed to create data directories")
	}

	cfg, err := config.Load(workDir)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	settings := config.Resolve(cfg)
	level := settings.LogLevel
	if *logLevel != "" {
		level = *logLevel
	}
	logging.Setup(level, settings.LogPretty)

	a, err := app.New(context.Background(), cfg, app.Options{
		Port:           *port,
		PersonalityDir: paths.PersonalitiesDir(),
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to start companion")
	}
	defer a.Close()

	go func() {
		logging.Info().Int("port", a.Settings.Port).Str("version", Version).Msg("server listening")
		if err := a.Server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		logging.Warn().Err(err).Msg("server shutdown error")
	}

	logging.Info().Msg("server stopped")
}
