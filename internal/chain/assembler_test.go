package chain

import (
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/companion/pkg/types"
)

func TestAssemble_Empty(t *testing.T) {
	msgs := Assemble("system prompt", nil, "hello")

	require.Len(t, msgs, 2)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Equal(t, "system prompt", msgs[0].Content)
	assert.Equal(t, schema.User, msgs[1].Role)
	assert.Equal(t, "hello", msgs[1].Content)
}

func TestAssemble_HistoryOrder(t *testing.T) {
	history := []types.Turn{
		types.NewTurn(types.RoleUser, "first"),
		types.NewTurn(types.RoleAssistant, "reply one"),
		types.NewTurn(types.RoleUser, "second"),
		types.NewTurn(types.RoleAssistant, "reply two"),
	}

	msgs := Assemble("sys", history, "third")

	require.Len(t, msgs, 6)
	wantRoles := []schema.RoleType{schema.System, schema.User, schema.Assistant, schema.User, schema.Assistant, schema.User}
	wantContent := []string{"sys", "first", "reply one", "second", "reply two", "third"}
	for i, m := range msgs {
		assert.Equal(t, wantRoles[i], m.Role, "index %d", i)
		assert.Equal(t, wantContent[i], m.Content, "index %d", i)
	}
}

func TestAssemble_UnknownRoleCoercedToUser(t *testing.T) {
	history := []types.Turn{{Role: types.Role("narrator"), Content: "once upon a time"}}

	msgs := Assemble("sys", history, "go on")

	require.Len(t, msgs, 3)
	assert.Equal(t, schema.User, msgs[1].Role)
	assert.Equal(t, "once upon a time", msgs[1].Content)
}

func TestAssemble_SystemTurnInHistoryIsUser(t *testing.T) {
	msgs := Assemble("sys", []types.Turn{{Role: types.RoleSystem, Content: "x"}}, "y")
	assert.Equal(t, schema.User, msgs[1].Role)
}
