package provider

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"

	"github.com/opencode-ai/companion/pkg/types"
)

// ArkProvider implements Provider for Volcengine ARK models.
type ArkProvider struct {
	chatModel model.ToolCallingChatModel
	modelID   string
}

// ArkConfig holds configuration for ARK provider.
type ArkConfig struct {
	APIKey    string
	BaseURL   string
	Model     string // Endpoint ID on ARK platform
	MaxTokens int
}

// NewArkProvider creates a new ARK provider.
func NewArkProvider(ctx context.Context, config *ArkConfig) (*ArkProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("ark: API key not set")
	}
	if config.Model == "" {
		return nil, fmt.Errorf("ark: model endpoint ID not set")
	}

	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	cfg := &ark.ChatModelConfig{
		APIKey:    config.APIKey,
		Model:     config.Model,
		MaxTokens: &maxTokens,
	}
	if config.BaseURL != "" {
		cfg.BaseURL = config.BaseURL
	}

	chatModel, err := ark.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create ARK model: %w", err)
	}

	return &ArkProvider{chatModel: chatModel, modelID: config.Model}, nil
}

// ID returns the provider identifier.
func (p *ArkProvider) ID() string { return "ark" }

// Name returns the human-readable provider name.
func (p *ArkProvider) Name() string { return "ARK" }

// Model returns the bound endpoint ID.
func (p *ArkProvider) Model() string { return p.modelID }

// Models returns the configured endpoint as the only model.
func (p *ArkProvider) Models() []types.Model {
	return []types.Model{
		{ID: p.modelID, Name: "ARK Model", ProviderID: "ark", ContextLength: 128000, MaxOutputTokens: 4096, SupportsTools: true},
	}
}

// ChatModel returns the Eino ChatModel.
func (p *ArkProvider) ChatModel() model.ToolCallingChatModel {
	return p.chatModel
}

// CallOptions returns per-call generation options.
func (p *ArkProvider) CallOptions(maxTokens int, temperature float64) []model.Option {
	return commonCallOptions(maxTokens, temperature)
}
