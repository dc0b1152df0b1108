package types

// Config represents the companion configuration.
// Loaded from layered JSONC files plus environment overrides.
type Config struct {
	// Schema reference (for editor support)
	Schema string `json:"$schema,omitempty"`

	// Model selection in "provider/model" form, e.g. "anthropic/claude-sonnet-4-20250514".
	Model string `json:"model,omitempty"`

	// Provider configs keyed by provider ID (anthropic, openai, ark).
	Provider map[string]ProviderConfig `json:"provider,omitempty"`

	// HTTP server settings
	Server *ServerConfig `json:"server,omitempty"`

	// Session memory settings
	Memory *MemoryConfig `json:"memory,omitempty"`

	// Agent loop limits and sampling
	Agent *AgentConfig `json:"agent,omitempty"`

	// Global tools enable/disable
	Tools map[string]bool `json:"tools,omitempty"`

	// Web search backend
	Search *SearchConfig `json:"search,omitempty"`

	// Music service
	Music *MusicConfig `json:"music,omitempty"`

	// External MCP servers whose tools are offered to the agent, keyed by name.
	MCP map[string]MCPConfig `json:"mcp,omitempty"`

	// Glob patterns for additional personality descriptor files (YAML).
	Personalities []string `json:"personalities,omitempty"`

	// Logging
	Log *LogConfig `json:"log,omitempty"`
}

// ProviderConfig holds configuration for a specific provider.
type ProviderConfig struct {
	APIKey  string `json:"apiKey,omitempty"`
	BaseURL string `json:"baseURL,omitempty"`

	// Model/Endpoint ID (for providers like ARK that require endpoint specification)
	Model string `json:"model,omitempty"`

	// Nested options (alternate layout)
	Options *ProviderOptions `json:"options,omitempty"`

	// Disable provider
	Disable bool `json:"disable,omitempty"`
}

// ProviderOptions holds nested provider options.
type ProviderOptions struct {
	APIKey  string `json:"apiKey,omitempty"`
	BaseURL string `json:"baseURL,omitempty"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int   `json:"port,omitempty"`
	CORS *bool `json:"cors,omitempty"`
	// Debug includes error causes in API error envelopes.
	Debug bool `json:"debug,omitempty"`
}

// MemoryConfig holds session memory settings.
type MemoryConfig struct {
	// HistoryCap is the maximum number of turns kept per session.
	HistoryCap int `json:"historyCap,omitempty"`
}

// AgentConfig holds agent loop limits.
type AgentConfig struct {
	MaxIterations int `json:"maxIterations,omitempty"`
	// MaxExecutionTime is a Go duration string, e.g. "30s".
	MaxExecutionTime string   `json:"maxExecutionTime,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	MaxTokens        int      `json:"maxTokens,omitempty"`
}

// SearchConfig configures the web search tool.
type SearchConfig struct {
	URL   string `json:"url,omitempty"`
	Count int    `json:"count,omitempty"`
}

// MusicConfig configures the music control tools.
type MusicConfig struct {
	APIURL      string `json:"apiURL,omitempty"`
	AccessToken string `json:"accessToken,omitempty"`
}

// MCPConfig describes one external MCP tool server.
type MCPConfig struct {
	Enabled *bool `json:"enabled,omitempty"`
	// Type is "stdio" (spawn Command) or "remote" (connect to URL).
	Type        string            `json:"type"`
	URL         string            `json:"url,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Command     []string          `json:"command,omitempty"`
	Environment map[string]string `json:"environment,omitempty"`
	// Timeout in milliseconds for connecting and listing tools.
	Timeout int `json:"timeout,omitempty"`
}

// IsEnabled reports whether the server should be connected. Servers are
// enabled unless switched off.
func (c MCPConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `json:"level,omitempty"`
	Pretty bool   `json:"pretty,omitempty"`
}

// ToolEnabled reports whether a tool is enabled. Tools are enabled unless
// explicitly switched off.
func (c *Config) ToolEnabled(name string) bool {
	if c == nil || c.Tools == nil {
		return true
	}
	enabled, ok := c.Tools[name]
	return !ok || enabled
}
