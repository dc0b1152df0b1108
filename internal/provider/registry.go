package provider

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/opencode-ai/companion/internal/logging"
	"github.com/opencode-ai/companion/pkg/types"
)

// priority is the selection order when no model is configured.
var priority = []string{"anthropic", "openai", "ark"}

// Registry manages all available providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	config    *types.Config
}

// NewRegistry creates a new provider registry.
func NewRegistry(config *types.Config) *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		config:    config,
	}
}

// Register adds a provider to the registry.
func (r *Registry) Register(provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[provider.ID()] = provider
}

// Get retrieves a provider by ID.
func (r *Registry) Get(providerID string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, ok := r.providers[providerID]
	if !ok {
		return nil, fmt.Errorf("provider not found: %s", providerID)
	}
	return provider, nil
}

// List returns all available providers sorted by ID.
func (r *Registry) List() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		providers = append(providers, p)
	}
	sort.Slice(providers, func(i, j int) bool { return providers[i].ID() < providers[j].ID() })
	return providers
}

// Select picks the backend used for the lifetime of the process. The
// configured "provider/model" wins; otherwise the first registered provider
// in priority order is used.
func (r *Registry) Select() (Provider, error) {
	if r.config != nil && r.config.Model != "" {
		providerID, _ := ParseModelString(r.config.Model)
		if providerID != "" {
			p, err := r.Get(providerID)
			if err != nil {
				return nil, fmt.Errorf("configured model %q: %w", r.config.Model, err)
			}
			return p, nil
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range priority {
		if p, ok := r.providers[id]; ok {
			return p, nil
		}
	}
	return nil, ErrNoProvider
}

// ParseModelString parses "provider/model" format.
func ParseModelString(s string) (providerID, modelID string) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return "", s
}

// modelFor returns the model a provider should bind: the provider's own
// model setting, else the model half of config.Model when it names this
// provider.
func modelFor(config *types.Config, providerID string) string {
	if m := config.Provider[providerID].Model; m != "" {
		return m
	}
	if p, m := ParseModelString(config.Model); p == providerID {
		return m
	}
	return ""
}

// InitializeProviders creates and registers every provider that has
// credentials in config. Providers that fail to build are logged and skipped.
func InitializeProviders(ctx context.Context, config *types.Config, maxTokens int) (*Registry, error) {
	if config == nil {
		config = &types.Config{}
	}
	registry := NewRegistry(config)

	register := func(id string, build func(cfg types.ProviderConfig) (Provider, error)) {
		cfg, ok := config.Provider[id]
		if !ok || cfg.APIKey == "" || cfg.Disable {
			return
		}
		p, err := build(cfg)
		if err != nil {
			logging.Warn().Err(err).Str("provider", id).Msg("provider unavailable")
			return
		}
		registry.Register(p)
		logging.Debug().Str("provider", id).Str("model", p.Model()).Msg("provider registered")
	}

	register("anthropic", func(cfg types.ProviderConfig) (Provider, error) {
		return NewAnthropicProvider(ctx, &AnthropicConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     modelFor(config, "anthropic"),
			MaxTokens: maxTokens,
		})
	})

	register("openai", func(cfg types.ProviderConfig) (Provider, error) {
		return NewOpenAIProvider(ctx, &OpenAIConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     modelFor(config, "openai"),
			MaxTokens: maxTokens,
		})
	})

	register("ark", func(cfg types.ProviderConfig) (Provider, error) {
		return NewArkProvider(ctx, &ArkConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     modelFor(config, "ark"),
			MaxTokens: maxTokens,
		})
	})

	return registry, nil
}
