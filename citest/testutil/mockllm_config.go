package testutil

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// MockLLMConfig defines the YAML configuration schema for MockLLM scenarios.
type MockLLMConfig struct {
	Settings  MockSettings   `yaml:"settings"`
	Defaults  MockDefaults   `yaml:"defaults"`
	Responses []ResponseRule `yaml:"responses"`
	ToolRules []ToolRule     `yaml:"tool_rules"`
}

// MockSettings configures MockLLM server behavior.
type MockSettings struct {
	LagMS        int `yaml:"lag_ms"`         // Artificial delay before answering
	ChunkDelayMS int `yaml:"chunk_delay_ms"` // Delay between streaming chunks
}

// MockDefaults defines fallback behavior.
type MockDefaults struct {
	// Fallback is returned when no rule matches.
	Fallback string `yaml:"fallback"`
	// AfterTool prefixes the tool output in the reply that follows a tool call.
	AfterTool string `yaml:"after_tool"`
}

// ResponseRule maps a prompt to a text reply.
type ResponseRule struct {
	Name     string      `yaml:"name"`
	Match    MatchConfig `yaml:"match"`
	Response string      `yaml:"response"`
	Priority int         `yaml:"priority"` // Higher priority rules win
	// Fail makes the mock answer with HTTP 500.
	Fail bool `yaml:"fail"`
}

// MatchConfig defines how to match a prompt.
type MatchConfig struct {
	Contains    string   `yaml:"contains"`     // case-insensitive
	ContainsAll []string `yaml:"contains_all"` // case-insensitive
	ContainsAny []string `yaml:"contains_any"` // case-insensitive
	Exact       string   `yaml:"exact"`        // case-insensitive
	Regex       string   `yaml:"regex"`
	// System matches against the system prompt instead of the user message.
	System string `yaml:"system"`
}

// ToolRule emits a tool call when the prompt matches and the tool was
// offered in the request.
type ToolRule struct {
	Name     string      `yaml:"name"`
	Match    MatchConfig `yaml:"match"`
	Tool     string      `yaml:"tool"`
	Input    string      `yaml:"input"` // Single string argument
	Priority int         `yaml:"priority"`
}

// DefaultMockLLMConfig returns the scenarios the CI suite relies on.
func DefaultMockLLMConfig() *MockLLMConfig {
	return &MockLLMConfig{
		Settings: MockSettings{ChunkDelayMS: 2},
		Defaults: MockDefaults{
			Fallback:  "I hear you. Tell me more.",
			AfterTool: "Done! ",
		},
		Responses: []ResponseRule{
			{
				Name:     "pirate-greeting",
				Match:    MatchConfig{Contains: "hello", System: "pirate"},
				Response: "Ahoy there, matey!",
				Priority: 20,
			},
			{
				Name:     "greeting",
				Match:    MatchConfig{ContainsAny: []string{"hello", "hi there"}},
				Response: "Hello! How can I help you today?",
				Priority: 10,
			},
			{
				Name:     "remember-name",
				Match:    MatchConfig{ContainsAll: []string{"my name is", "alice"}},
				Response: "Nice to meet you, Alice!",
				Priority: 10,
			},
			{
				Name:     "recall-name",
				Match:    MatchConfig{Regex: `(?i)what('s| is) my name`},
				Response: "Your name is Alice.",
				Priority: 10,
			},
			{
				Name:     "malformed-tool-call",
				Match:    MatchConfig{Contains: "malformed"},
				Response: `<function=play_music>{"input": "Yesterday by The Beatles"}</function>`,
				Priority: 10,
			},
			{
				Name:     "provider-outage",
				Match:    MatchConfig{Contains: "outage"},
				Fail:     true,
				Priority: 30,
			},
		},
		ToolRules: []ToolRule{
			{
				Name:     "play-song",
				Match:    MatchConfig{Regex: `(?i)^play (.+)`},
				Tool:     "play_music",
				Priority: 10,
			},
			{
				Name:     "pause",
				Match:    MatchConfig{ContainsAny: []string{"pause the music", "stop the music"}},
				Tool:     "control_music",
				Input:    "pause",
				Priority: 10,
			},
		},
	}
}

// LoadMockLLMConfig loads configuration from a YAML file.
func LoadMockLLMConfig(path string) (*MockLLMConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config MockLLMConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadMockLLMConfigFromDir looks for mockllm.yaml in the given directory.
func LoadMockLLMConfigFromDir(dir string) (*MockLLMConfig, error) {
	path := filepath.Join(dir, "mockllm.yaml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		path = filepath.Join(dir, "mockllm.yml")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, err
		}
	}
	return LoadMockLLMConfig(path)
}

// SaveMockLLMConfig saves configuration to a YAML file.
func SaveMockLLMConfig(config *MockLLMConfig, path string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Matches checks if the prompt (and system prompt) match this rule.
func (m *MatchConfig) Matches(prompt, system string) bool {
	if m.System != "" && !strings.Contains(strings.ToLower(system), strings.ToLower(m.System)) {
		return false
	}

	promptLower := strings.ToLower(prompt)

	switch {
	case m.Exact != "":
		return strings.EqualFold(strings.TrimSpace(prompt), m.Exact)
	case m.Contains != "":
		return strings.Contains(promptLower, strings.ToLower(m.Contains))
	case len(m.ContainsAll) > 0:
		for _, s := range m.ContainsAll {
			if !strings.Contains(promptLower, strings.ToLower(s)) {
				return false
			}
		}
		return true
	case len(m.ContainsAny) > 0:
		for _, s := range m.ContainsAny {
			if strings.Contains(promptLower, strings.ToLower(s)) {
				return true
			}
		}
		return false
	case m.Regex != "":
		re, err := regexp.Compile(m.Regex)
		return err == nil && re.MatchString(prompt)
	}
	return false
}

// submatch returns the first capture group of a regex rule, or "".
func (m *MatchConfig) submatch(prompt string) string {
	if m.Regex == "" {
		return ""
	}
	re, err := regexp.Compile(m.Regex)
	if err != nil {
		return ""
	}
	if sm := re.FindStringSubmatch(prompt); len(sm) > 1 {
		return strings.TrimSpace(sm[1])
	}
	return ""
}

// FindMatchingResponse finds the highest-priority matching response rule.
func (c *MockLLMConfig) FindMatchingResponse(prompt, system string) (*ResponseRule, bool) {
	var best *ResponseRule
	for i := range c.Responses {
		rule := &c.Responses[i]
		if rule.Match.Matches(prompt, system) && (best == nil || rule.Priority > best.Priority) {
			best = rule
		}
	}
	if best != nil {
		return best, true
	}
	return &ResponseRule{Name: "fallback", Response: c.Defaults.Fallback}, false
}

// FindMatchingToolRule finds a matching tool rule whose tool was offered.
func (c *MockLLMConfig) FindMatchingToolRule(prompt, system string, availableTools []string) *ToolRule {
	toolSet := make(map[string]bool, len(availableTools))
	for _, t := range availableTools {
		toolSet[t] = true
	}

	var best *ToolRule
	for i := range c.ToolRules {
		rule := &c.ToolRules[i]
		if !toolSet[rule.Tool] || !rule.Match.Matches(prompt, system) {
			continue
		}
		if best == nil || rule.Priority > best.Priority {
			best = rule
		}
	}
	return best
}

// ToolInput returns the argument for a matched tool rule: the fixed input,
// else the regex capture, else the whole prompt.
func (r *ToolRule) ToolInput(prompt string) string {
	if r.Input != "" {
		return r.Input
	}
	if sm := r.Match.submatch(prompt); sm != "" {
		return sm
	}
	return prompt
}
