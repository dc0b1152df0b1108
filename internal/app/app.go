// Package app wires the companion's components into a runnable service.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/cloudwego/eino/components/model"

	"github.com/opencode-ai/companion/internal/config"
	"github.com/opencode-ai/companion/internal/dispatch"
	"github.com/opencode-ai/companion/internal/event"
	"github.com/opencode-ai/companion/internal/logging"
	"github.com/opencode-ai/companion/internal/mcp"
	"github.com/opencode-ai/companion/internal/memory"
	"github.com/opencode-ai/companion/internal/metrics"
	"github.com/opencode-ai/companion/internal/orchestrator"
	"github.com/opencode-ai/companion/internal/personality"
	"github.com/opencode-ai/companion/internal/provider"
	"github.com/opencode-ai/companion/internal/recovery"
	"github.com/opencode-ai/companion/internal/server"
	"github.com/opencode-ai/companion/internal/tool"
	"github.com/opencode-ai/companion/pkg/mcpserver/companion"
	"github.com/opencode-ai/companion/pkg/types"
)

// reminderMood is the mood used when a reminder re-prompts a session.
const reminderMood = 50

// Options tunes New.
type Options struct {
	// ChatModel replaces provider selection. Used by tests.
	ChatModel model.ToolCallingChatModel
	// Port overrides the configured port when positive.
	Port int
	// PersonalityDir is scanned for *.yaml descriptors in addition to the
	// configured patterns. Empty skips it.
	PersonalityDir string
}

// App is a fully wired companion.
type App struct {
	Config   *types.Config
	Settings config.Settings

	Provider      provider.Provider
	Metrics       *metrics.Metrics
	Bus           *event.Bus
	Personalities *personality.Registry
	Store         *memory.Store
	Tools         *tool.Builtin
	MCP           *mcp.Client
	Orchestrator  *orchestrator.Orchestrator
	Server        *server.Server

	lastPersonality sync.Map // sessionID -> personality id
	unsubscribe     func()
}

// New builds the application from cfg.
func New(ctx context.Context, cfg *types.Config, opts Options) (*App, error) {
	if cfg == nil {
		cfg = &types.Config{}
	}
	settings := config.Resolve(cfg)
	if opts.Port > 0 {
		settings.Port = opts.Port
	}

	a := &App{Config: cfg, Settings: settings}
	log := logging.Component("app")

	chatModel := opts.ChatModel
	var callOpts []model.Option
	if chatModel == nil {
		providers, err := provider.InitializeProviders(ctx, cfg, settings.MaxTokens)
		if err != nil {
			return nil, fmt.Errorf("initialize providers: %w", err)
		}
		p, err := providers.Select()
		if err != nil {
			return nil, err
		}
		a.Provider = p
		chatModel = p.ChatModel()
		callOpts = p.CallOptions(settings.MaxTokens, settings.Temperature)
		log.Info().Str("provider", p.ID()).Str("model", p.Model()).Msg("backend selected")
	}

	a.Personalities = personality.NewRegistry()
	patterns := append([]string{}, cfg.Personalities...)
	if opts.PersonalityDir != "" {
		patterns = append(patterns, filepath.Join(opts.PersonalityDir, "*.yaml"))
	}
	n, err := a.Personalities.LoadFiles(patterns)
	if err != nil {
		return nil, fmt.Errorf("load personalities: %w", err)
	}
	if n > 0 {
		log.Info().Int("count", n).Msg("personality descriptors loaded")
	}

	a.Metrics = metrics.New()
	a.Bus = event.NewBus()
	a.Store = memory.NewStore(settings.HistoryCap)
	a.Tools = tool.DefaultRegistry(settings, cfg, a.Bus, a.Metrics)
	if len(cfg.MCP) > 0 {
		a.MCP = mcp.NewClient(companion.Version)
		a.MCP.ConnectAll(ctx, cfg.MCP)
		if n := mcp.Register(a.MCP, a.Tools.Registry); n > 0 {
			log.Info().Int("count", n).Msg("MCP tools registered")
		}
	}

	dispatcher := dispatch.New(chatModel, a.Tools.Registry, dispatch.Config{
		MaxIterations:    settings.MaxIterations,
		MaxExecutionTime: settings.MaxExecutionTime,
		Options:          callOpts,
	})

	a.Orchestrator = orchestrator.New(orchestrator.Options{
		Personalities: a.Personalities,
		Store:         a.Store,
		Dispatcher:    dispatcher,
		Recovery:      recovery.New(a.Tools.Registry),
		Bus:           a.Bus,
		Metrics:       a.Metrics,
	})

	a.unsubscribe = a.Bus.SubscribeAll(a.trackPersonality)
	if a.Tools.Scheduler != nil {
		a.Tools.Scheduler.SetReprompter(a.reprompt)
	}

	serverCfg := server.DefaultConfig()
	serverCfg.Port = settings.Port
	serverCfg.EnableCORS = settings.CORS
	serverCfg.Debug = settings.Debug
	a.Server = server.New(serverCfg, server.Deps{
		Orchestrator: a.Orchestrator,
		Tools:        a.Tools.Registry,
		Bus:          a.Bus,
		Metrics:      a.Metrics,
	})

	log.Info().
		Int("tools", a.Tools.Registry.Len()).
		Int("personalities", a.Personalities.Count()).
		Bool("agent", a.Orchestrator.UsesAgent()).
		Int("historyCap", settings.HistoryCap).
		Msg("companion ready")

	return a, nil
}

// trackPersonality remembers the personality of each live session and
// forgets it when the session is cleared.
func (a *App) trackPersonality(e event.Event) {
	switch data := e.Data.(type) {
	case event.TurnCommittedData:
		if data.SessionID != "" {
			a.lastPersonality.Store(data.SessionID, data.Personality)
		}
	case event.SessionClearedData:
		a.lastPersonality.Delete(data.SessionID)
	case event.SessionsClearedData:
		a.lastPersonality.Clear()
	}
}

// reprompt answers a due reminder in the personality the session last used.
func (a *App) reprompt(ctx context.Context, sessionID, message string) (string, error) {
	personalityID := "default"
	if v, ok := a.lastPersonality.Load(sessionID); ok {
		personalityID = v.(string)
	}
	resp, err := a.Orchestrator.ProcessMessage(ctx, &types.ChatRequest{
		Message:     message,
		Personality: personalityID,
		Mood:        reminderMood,
		SessionID:   sessionID,
	})
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Close stops timers and the event bus.
func (a *App) Close() error {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	a.Tools.Close()
	if a.MCP != nil {
		a.MCP.Close()
	}
	return a.Bus.Close()
}
