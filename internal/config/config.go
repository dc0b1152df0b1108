package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/opencode-ai/companion/pkg/types"
)

var (
	envPattern  = regexp.MustCompile(`\{env:([^}]+)\}`)
	filePattern = regexp.MustCompile(`\{file:([^}]+)\}`)
)

// Load loads configuration from multiple sources (priority order):
// 1. Global config (~/.config/companion/)
// 2. Project config (<dir>/companion.json[c])
// 3. Project config (<dir>/.companion/)
// 4. COMPANION_CONFIG file
// 5. COMPANION_CONFIG_CONTENT inline JSON
// 6. Environment variables
func Load(directory string) (*types.Config, error) {
	config := &types.Config{
		Provider: make(map[string]types.ProviderConfig),
	}

	// Track loaded files to avoid duplicates
	loaded := make(map[string]bool)

	loadOnce := func(path string, baseDir string) error {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil
		}
		if loaded[absPath] {
			return nil
		}
		err = loadConfigFile(path, config, baseDir)
		if err == nil {
			loaded[absPath] = true
			return nil
		}
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var candidates [][2]string

	// 1. XDG-compatible global config
	globalPath := GetPaths().Config
	candidates = append(candidates,
		[2]string{filepath.Join(globalPath, "companion.json"), globalPath},
		[2]string{filepath.Join(globalPath, "companion.jsonc"), globalPath},
	)

	// 2-3. Project config
	if directory != "" {
		projectConfigDir := filepath.Join(directory, ".companion")
		candidates = append(candidates,
			[2]string{filepath.Join(directory, "companion.json"), directory},
			[2]string{filepath.Join(directory, "companion.jsonc"), directory},
			[2]string{filepath.Join(projectConfigDir, "companion.json"), projectConfigDir},
			[2]string{filepath.Join(projectConfigDir, "companion.jsonc"), projectConfigDir},
		)
	}

	// 4. COMPANION_CONFIG file override
	if configPath := os.Getenv("COMPANION_CONFIG"); configPath != "" {
		candidates = append(candidates, [2]string{configPath, filepath.Dir(configPath)})
	}

	for _, c := range candidates {
		if err := loadOnce(c[0], c[1]); err != nil {
			return nil, &LoadError{Path: c[0], Err: err}
		}
	}

	// 5. COMPANION_CONFIG_CONTENT inline JSON
	if configContent := os.Getenv("COMPANION_CONFIG_CONTENT"); configContent != "" {
		var inlineConfig types.Config
		data := interpolate(jsonc.ToJSON([]byte(configContent)), directory)
		if err := json.Unmarshal(data, &inlineConfig); err != nil {
			return nil, &LoadError{Path: "COMPANION_CONFIG_CONTENT", Err: err}
		}
		mergeConfig(config, &inlineConfig)
	}

	// 6. Environment variables (highest priority)
	applyEnvOverrides(config)

	// Normalize provider config (merge Options into direct fields)
	normalizeProviderConfig(config)

	return config, nil
}

// LoadError reports a config source that exists but cannot be parsed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return "config: failed to load " + e.Path + ": " + e.Err.Error()
}

func (e *LoadError) Unwrap() error { return e.Err }

// loadConfigFile loads a single config file with interpolation support.
func loadConfigFile(path string, config *types.Config, baseDir string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Strip JSONC comments using tidwall/jsonc
	data = jsonc.ToJSON(data)

	// Apply interpolation
	data = interpolate(data, baseDir)

	var fileConfig types.Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return err
	}

	// Personality globs are relative to the file that declares them.
	for i, pattern := range fileConfig.Personalities {
		fileConfig.Personalities[i] = resolvePath(pattern, baseDir)
	}

	mergeConfig(config, &fileConfig)
	return nil
}

// interpolate processes {env:VAR} and {file:path} placeholders.
func interpolate(data []byte, baseDir string) []byte {
	str := string(data)

	str = envPattern.ReplaceAllStringFunc(str, func(match string) string {
		varName := envPattern.FindStringSubmatch(match)[1]
		return escapeJSONString(os.Getenv(varName))
	})

	str = filePattern.ReplaceAllStringFunc(str, func(match string) string {
		filePath := resolvePath(filePattern.FindStringSubmatch(match)[1], baseDir)

		content, err := os.ReadFile(filePath)
		if err != nil {
			return match // Keep original if file not found
		}
		return escapeJSONString(strings.TrimRight(string(content), "\r\n"))
	})

	return []byte(str)
}

// resolvePath expands ~/ and makes relative paths absolute against baseDir.
func resolvePath(path, baseDir string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(os.Getenv("HOME"), path[2:])
	}
	if !filepath.IsAbs(path) && baseDir != "" {
		return filepath.Join(baseDir, path)
	}
	return path
}

func escapeJSONString(s string) string {
	escaped := strings.ReplaceAll(s, "\\", "\\\\")
	escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
	escaped = strings.ReplaceAll(escaped, "\n", "\\n")
	escaped = strings.ReplaceAll(escaped, "\r", "\\r")
	escaped = strings.ReplaceAll(escaped, "\t", "\\t")
	return escaped
}

// normalizeProviderConfig merges Options fields into direct fields.
func normalizeProviderConfig(config *types.Config) {
	for name, provider := range config.Provider {
		if provider.Options != nil {
			// Options take precedence over direct fields
			if provider.Options.APIKey != "" {
				provider.APIKey = provider.Options.APIKey
			}
			if provider.Options.BaseURL != "" {
				provider.BaseURL = provider.Options.BaseURL
			}
		}
		config.Provider[name] = provider
	}
}

// mergeConfig merges source config into target.
func mergeConfig(target, source *types.Config) {
	if source.Schema != "" {
		target.Schema = source.Schema
	}
	if source.Model != "" {
		target.Model = source.Model
	}

	if source.Provider != nil {
		if target.Provider == nil {
			target.Provider = make(map[string]types.ProviderConfig)
		}
		for k, v := range source.Provider {
			target.Provider[k] = v
		}
	}

	if source.Tools != nil {
		if target.Tools == nil {
			target.Tools = make(map[string]bool)
		}
		for k, v := range source.Tools {
			target.Tools[k] = v
		}
	}

	if source.MCP != nil {
		if target.MCP == nil {
			target.MCP = make(map[string]types.MCPConfig)
		}
		for k, v := range source.MCP {
			target.MCP[k] = v
		}
	}

	if len(source.Personalities) > 0 {
		target.Personalities = append(target.Personalities, source.Personalities...)
	}

	if source.Server != nil {
		if target.Server == nil {
			target.Server = &types.ServerConfig{}
		}
		if source.Server.Port != 0 {
			target.Server.Port = source.Server.Port
		}
		if source.Server.CORS != nil {
			target.Server.CORS = source.Server.CORS
		}
		if source.Server.Debug {
			target.Server.Debug = true
		}
	}

	if source.Memory != nil {
		target.Memory = source.Memory
	}

	if source.Agent != nil {
		if target.Agent == nil {
			target.Agent = &types.AgentConfig{}
		}
		if source.Agent.MaxIterations != 0 {
			target.Agent.MaxIterations = source.Agent.MaxIterations
		}
		if source.Agent.MaxExecutionTime != "" {
			target.Agent.MaxExecutionTime = source.Agent.MaxExecutionTime
		}
		if source.Agent.Temperature != nil {
			target.Agent.Temperature = source.Agent.Temperature
		}
		if source.Agent.MaxTokens != 0 {
			target.Agent.MaxTokens = source.Agent.MaxTokens
		}
	}

	if source.Search != nil {
		target.Search = source.Search
	}

	if source.Music != nil {
		target.Music = source.Music
	}

	if source.Log != nil {
		target.Log = source.Log
	}
}

// applyEnvOverrides applies environment variable overrides.
func applyEnvOverrides(config *types.Config) {
	// Provider API keys
	providerEnvMap := map[string]string{
		"anthropic": "ANTHROPIC_API_KEY",
		"openai":    "OPENAI_API_KEY",
		"ark":       "ARK_API_KEY",
	}

	for provider, envVar := range providerEnvMap {
		if apiKey := os.Getenv(envVar); apiKey != "" {
			if config.Provider == nil {
				config.Provider = make(map[string]types.ProviderConfig)
			}
			p := config.Provider[provider]
			if p.APIKey == "" {
				p.APIKey = apiKey
				config.Provider[provider] = p
			}
		}
	}

	if modelID := os.Getenv("ARK_MODEL_ID"); modelID != "" {
		p := config.Provider["ark"]
		if p.Model == "" {
			p.Model = modelID
			config.Provider["ark"] = p
		}
	}

	// Model override
	if model := os.Getenv("COMPANION_MODEL"); model != "" {
		config.Model = model
	}

	if port := os.Getenv("COMPANION_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil && n > 0 {
			if config.Server == nil {
				config.Server = &types.ServerConfig{}
			}
			config.Server.Port = n
		}
	}

	if url := os.Getenv("SEARXNG_URL"); url != "" {
		if config.Search == nil {
			config.Search = &types.SearchConfig{}
		}
		config.Search.URL = url
	}

	if token := os.Getenv("SPOTIFY_ACCESS_TOKEN"); token != "" {
		if config.Music == nil {
			config.Music = &types.MusicConfig{}
		}
		config.Music.AccessToken = token
	}

	if level := os.Getenv("COMPANION_LOG_LEVEL"); level != "" {
		if config.Log == nil {
			config.Log = &types.LogConfig{}
		}
		config.Log.Level = level
	}
}

// Save writes config as indented JSON, creating parent directories.
func Save(config *types.Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
