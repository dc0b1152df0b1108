package types

import (
	"encoding/json"
	"time"
)

// Role identifies the speaker of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Turn is one immutable entry of a session history.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewTurn creates a turn stamped with the current time.
func NewTurn(role Role, content string) Turn {
	return Turn{Role: role, Content: content, CreatedAt: time.Now()}
}

// MarshalJSON encodes CreatedAt as Unix milliseconds to match the rest of the API.
func (t Turn) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Role      Role   `json:"role"`
		Content   string `json:"content"`
		CreatedAt int64  `json:"createdAt"`
	}{
		Role:      t.Role,
		Content:   t.Content,
		CreatedAt: t.CreatedAt.UnixMilli(),
	})
}

// UnmarshalJSON accepts CreatedAt as Unix milliseconds. Callers supplying
// ephemeral history may omit it.
func (t *Turn) UnmarshalJSON(data []byte) error {
	var aux struct {
		Role      Role   `json:"role"`
		Content   string `json:"content"`
		CreatedAt int64  `json:"createdAt"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t.Role = aux.Role
	t.Content = aux.Content
	if aux.CreatedAt > 0 {
		t.CreatedAt = time.UnixMilli(aux.CreatedAt)
	} else {
		t.CreatedAt = time.Time{}
	}
	return nil
}

// Model describes a model exposed by a provider.
type Model struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	ProviderID      string `json:"providerID"`
	ContextLength   int    `json:"contextLength"`
	MaxOutputTokens int    `json:"maxOutputTokens"`
	SupportsTools   bool   `json:"supportsTools"`
}
