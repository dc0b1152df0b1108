package provider

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/opencode-ai/companion/pkg/types"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIProvider implements Provider for OpenAI and OpenAI-compatible servers.
type OpenAIProvider struct {
	chatModel model.ToolCallingChatModel
	modelID   string
}

// OpenAIConfig holds configuration for OpenAI provider.
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(ctx context.Context, config *OpenAIConfig) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("openai: API key not set")
	}

	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	modelID := config.Model
	if modelID == "" {
		modelID = DefaultOpenAIModel
	}

	cfg := &openai.ChatModelConfig{
		APIKey:              config.APIKey,
		Model:               modelID,
		MaxCompletionTokens: &maxTokens,
	}
	if config.BaseURL != "" {
		cfg.BaseURL = config.BaseURL
	}

	chatModel, err := openai.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI model: %w", err)
	}

	return &OpenAIProvider{chatModel: chatModel, modelID: modelID}, nil
}

// ID returns the provider identifier.
func (p *OpenAIProvider) ID() string { return "openai" }

// Name returns the human-readable provider name.
func (p *OpenAIProvider) Name() string { return "OpenAI" }

// Model returns the bound model ID.
func (p *OpenAIProvider) Model() string { return p.modelID }

// Models returns the list of known models.
func (p *OpenAIProvider) Models() []types.Model {
	return []types.Model{
		{ID: "gpt-4o-mini", Name: "GPT-4o Mini", ProviderID: "openai", ContextLength: 128000, MaxOutputTokens: 16384, SupportsTools: true},
		{ID: "gpt-4o", Name: "GPT-4o", ProviderID: "openai", ContextLength: 128000, MaxOutputTokens: 16384, SupportsTools: true},
		{ID: "gpt-5-mini", Name: "GPT-5 Mini", ProviderID: "openai", ContextLength: 272000, MaxOutputTokens: 128000, SupportsTools: true},
	}
}

// ChatModel returns the Eino ChatModel.
func (p *OpenAIProvider) ChatModel() model.ToolCallingChatModel {
	return p.chatModel
}

// CallOptions returns per-call generation options. Newer OpenAI models reject
// max_tokens and require max_completion_tokens.
func (p *OpenAIProvider) CallOptions(maxTokens int, temperature float64) []model.Option {
	var opts []model.Option
	if maxTokens > 0 {
		opts = append(opts, openai.WithMaxCompletionTokens(maxTokens))
	}
	if temperature > 0 {
		opts = append(opts, model.WithTemperature(float32(temperature)))
	}
	return opts
}
