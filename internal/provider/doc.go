// Package provider provides the LLM backend abstraction for the companion.
//
// Each backend wraps an Eino ToolCallingChatModel. The rest of the program
// only talks to that capability interface, so switching backends never
// touches the chat core.
//
// # Supported Providers
//
//   - anthropic: Claude models through eino-ext/components/model/claude
//   - openai: OpenAI and any OpenAI-compatible server (set baseURL) through
//     eino-ext/components/model/openai
//   - ark: Volcengine ARK endpoints through eino-ext/components/model/ark
//
// # Selection
//
// InitializeProviders registers every provider with an API key in the
// configuration. Registry.Select then picks exactly one at startup:
//
//  1. the provider named by the "model" setting ("openai/gpt-4o-mini"), or
//  2. the first registered provider in the order anthropic, openai, ark.
//
// Select returns ErrNoProvider when nothing is configured.
//
// # Per-call options
//
// Providers translate generation settings through CallOptions. The OpenAI
// provider sends max_completion_tokens, which newer models require; the
// others send max_tokens.
//
//	registry, _ := provider.InitializeProviders(ctx, cfg, settings.MaxTokens)
//	p, err := registry.Select()
//	if err != nil {
//	    return err
//	}
//	msg, err := p.ChatModel().Generate(ctx, messages, p.CallOptions(1024, 0.8)...)
package provider
