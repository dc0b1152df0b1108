// Package provider provides LLM provider abstraction using Eino framework.
package provider

import (
	"errors"

	"github.com/cloudwego/eino/components/model"

	"github.com/opencode-ai/companion/pkg/types"
)

// ErrNoProvider is returned when no backend has credentials configured.
var ErrNoProvider = errors.New("no LLM provider configured")

// Provider represents an LLM provider with Eino ChatModel.
type Provider interface {
	// ID returns the provider identifier.
	ID() string

	// Name returns the human-readable provider name.
	Name() string

	// Model returns the model the chat model is bound to.
	Model() string

	// Models returns the list of known models.
	Models() []types.Model

	// ChatModel returns the Eino ChatModel for this provider.
	ChatModel() model.ToolCallingChatModel

	// CallOptions translates generation settings into per-call options.
	CallOptions(maxTokens int, temperature float64) []model.Option
}

// commonCallOptions is used by backends that accept the standard
// max_tokens parameter.
func commonCallOptions(maxTokens int, temperature float64) []model.Option {
	var opts []model.Option
	if maxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(maxTokens))
	}
	if temperature > 0 {
		opts = append(opts, model.WithTemperature(float32(temperature)))
	}
	return opts
}
