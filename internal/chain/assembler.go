// Package chain assembles the ordered message list sent to a model backend.
package chain

import (
	"github.com/cloudwego/eino/schema"

	"github.com/opencode-ai/companion/internal/logging"
	"github.com/opencode-ai/companion/pkg/types"
)

// Assemble builds [system] + history + [user] in chronological order.
func Assemble(systemPrompt string, history []types.Turn, userMessage string) []*schema.Message {
	messages := make([]*schema.Message, 0, len(history)+2)

	messages = append(messages, &schema.Message{
		Role:    schema.System,
		Content: systemPrompt,
	})

	for _, turn := range history {
		messages = append(messages, convertTurn(turn))
	}

	messages = append(messages, &schema.Message{
		Role:    schema.User,
		Content: userMessage,
	})

	return messages
}

// convertTurn maps a stored turn to a model message. Roles other than
// assistant and user are sent as user.
func convertTurn(turn types.Turn) *schema.Message {
	role := schema.User
	switch turn.Role {
	case types.RoleUser:
	case types.RoleAssistant:
		role = schema.Assistant
	default:
		log := logging.Component("chain")
		log.Warn().Str("role", string(turn.Role)).Msg("unknown history role, sending as user")
	}

	return &schema.Message{
		Role:    role,
		Content: turn.Content,
	}
}
