package tool

import (
	"github.com/opencode-ai/companion/internal/config"
	"github.com/opencode-ai/companion/internal/event"
	"github.com/opencode-ai/companion/internal/metrics"
	"github.com/opencode-ai/companion/pkg/types"
)

// Builtin holds the registry of enabled tools plus the reminder scheduler,
// which needs a reprompter wired in once the orchestrator exists.
type Builtin struct {
	Registry  *Registry
	Scheduler *Scheduler
}

// DefaultRegistry builds the companion's tool set. Tools switched off in
// cfg.Tools are skipped. Scheduler is nil when schedule_reprompt is disabled.
func DefaultRegistry(settings config.Settings, cfg *types.Config, bus *event.Bus, m *metrics.Metrics) *Builtin {
	reg := NewRegistry(m)
	b := &Builtin{Registry: reg}

	music := NewMusicClient(settings.MusicAPIURL, settings.MusicAccessToken)
	candidates := []Tool{
		NewPlayMusicTool(music),
		NewControlMusicTool(music),
		NewWebSearchTool(settings.SearchURL, settings.SearchCount),
		NewOpenURLTool(DefaultPageChars),
	}
	for _, t := range candidates {
		if cfg.ToolEnabled(t.ID()) {
			reg.Register(t)
		}
	}

	scheduler := NewScheduler(bus)
	if cfg.ToolEnabled(scheduler.ID()) {
		reg.Register(scheduler)
		b.Scheduler = scheduler
	}
	return b
}

// Close releases the scheduler's timers.
func (b *Builtin) Close() {
	if b != nil && b.Scheduler != nil {
		b.Scheduler.Close()
	}
}
