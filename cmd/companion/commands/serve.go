package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/companion/internal/app"
	"github.com/opencode-ai/companion/internal/config"
	"github.com/opencode-ai/companion/internal/logging"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the companion HTTP server",
	Long: `Start the companion HTTP API.

The backend is chosen from configured credentials: the "model" setting
first, then anthropic, openai and ark in that order.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (default from config, 8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg, app.Options{
		Port:           servePort,
		PersonalityDir: config.GetPaths().PersonalitiesDir(),
	})
	if err != nil {
		return err
	}
	defer a.Close()

	return serveUntilSignal(a)
}

// serveUntilSignal runs the HTTP server until SIGINT or SIGTERM.
func serveUntilSignal(a *app.App) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info().Int("port", a.Settings.Port).Str("version", Version).Msg("server listening")
		if err := a.Server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logging.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		logging.Warn().Err(err).Msg("server shutdown error")
	}
	logging.Info().Msg("server stopped")
	return nil
}
