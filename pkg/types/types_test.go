package types

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTurn_JSON(t *testing.T) {
	created := time.UnixMilli(1700000000000)
	turn := Turn{Role: RoleUser, Content: "hello", CreatedAt: created}

	data, err := json.Marshal(turn)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal raw failed: %v", err)
	}
	if raw["createdAt"] != float64(1700000000000) {
		t.Errorf("createdAt should be unix millis, got %v", raw["createdAt"])
	}

	var decoded Turn
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.Role != RoleUser || decoded.Content != "hello" {
		t.Errorf("unexpected turn: %+v", decoded)
	}
	if !decoded.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt mismatch: got %v, want %v", decoded.CreatedAt, created)
	}
}

func TestTurn_UnmarshalWithoutTimestamp(t *testing.T) {
	var turn Turn
	if err := json.Unmarshal([]byte(`{"role":"assistant","content":"hi"}`), &turn); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if turn.Role != RoleAssistant {
		t.Errorf("Role mismatch: got %s", turn.Role)
	}
	if !turn.CreatedAt.IsZero() {
		t.Errorf("CreatedAt should be zero, got %v", turn.CreatedAt)
	}
}

func TestStreamChunk_IsTerminal(t *testing.T) {
	tests := []struct {
		chunk StreamChunk
		want  bool
	}{
		{StreamChunk{Type: ChunkStart}, false},
		{StreamChunk{Type: ChunkText, Content: "x"}, false},
		{StreamChunk{Type: ChunkEnd}, true},
		{StreamChunk{Type: ChunkError}, true},
	}
	for _, tt := range tests {
		if got := tt.chunk.IsTerminal(); got != tt.want {
			t.Errorf("IsTerminal(%s) = %v, want %v", tt.chunk.Type, got, tt.want)
		}
	}
}

func TestConfig_ToolEnabled(t *testing.T) {
	var nilCfg *Config
	if !nilCfg.ToolEnabled("web_search") {
		t.Error("nil config should enable every tool")
	}

	cfg := &Config{Tools: map[string]bool{"open_url": false, "web_search": true}}
	if cfg.ToolEnabled("open_url") {
		t.Error("open_url should be disabled")
	}
	if !cfg.ToolEnabled("web_search") {
		t.Error("web_search should be enabled")
	}
	if !cfg.ToolEnabled("play_music") {
		t.Error("unlisted tools should be enabled")
	}
}
