package dispatch

import (
	"strings"

	"github.com/cloudwego/eino/schema"
)

// FallbackText is the answer used when a run produced nothing usable.
const FallbackText = "I'm having trouble processing that right now. Could you try rephrasing?"

// LastAnswer returns the content of the last assistant message that carries
// text and no tool calls, or "" when there is none.
func LastAnswer(messages []*schema.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if msg == nil || msg.Role != schema.Assistant {
			continue
		}
		if len(msg.ToolCalls) > 0 || strings.TrimSpace(msg.Content) == "" {
			continue
		}
		return msg.Content
	}
	return ""
}

func orFallback(text string) string {
	if strings.TrimSpace(text) == "" {
		return FallbackText
	}
	return text
}
