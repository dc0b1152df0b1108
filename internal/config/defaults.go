package config

import (
	"time"

	"github.com/opencode-ai/companion/pkg/types"
)

// Default values applied by Resolve.
const (
	DefaultPort             = 8080
	DefaultHistoryCap       = 20
	DefaultMaxIterations    = 5
	DefaultMaxExecutionTime = 30 * time.Second
	DefaultTemperature      = 0.8
	DefaultMaxTokens        = 1024
	DefaultSearchCount      = 5
	DefaultMusicAPIURL      = "https://api.spotify.com"
)

// Settings is the flattened, defaulted view of a Config.
type Settings struct {
	Port  int
	CORS  bool
	Debug bool

	HistoryCap int

	MaxIterations    int
	MaxExecutionTime time.Duration
	Temperature      float64
	MaxTokens        int

	SearchURL   string
	SearchCount int

	MusicAPIURL      string
	MusicAccessToken string

	LogLevel  string
	LogPretty bool
}

// Resolve applies defaults to cfg. A nil cfg yields the defaults.
func Resolve(cfg *types.Config) Settings {
	s := Settings{
		Port:             DefaultPort,
		CORS:             true,
		HistoryCap:       DefaultHistoryCap,
		MaxIterations:    DefaultMaxIterations,
		MaxExecutionTime: DefaultMaxExecutionTime,
		Temperature:      DefaultTemperature,
		MaxTokens:        DefaultMaxTokens,
		SearchCount:      DefaultSearchCount,
		MusicAPIURL:      DefaultMusicAPIURL,
		LogLevel:         "INFO",
	}
	if cfg == nil {
		return s
	}

	if srv := cfg.Server; srv != nil {
		if srv.Port > 0 {
			s.Port = srv.Port
		}
		if srv.CORS != nil {
			s.CORS = *srv.CORS
		}
		s.Debug = srv.Debug
	}

	if mem := cfg.Memory; mem != nil && mem.HistoryCap > 0 {
		s.HistoryCap = mem.HistoryCap
	}

	if agent := cfg.Agent; agent != nil {
		if agent.MaxIterations > 0 {
			s.MaxIterations = agent.MaxIterations
		}
		if d, err := time.ParseDuration(agent.MaxExecutionTime); err == nil && d > 0 {
			s.MaxExecutionTime = d
		}
		if agent.Temperature != nil {
			s.Temperature = *agent.Temperature
		}
		if agent.MaxTokens > 0 {
			s.MaxTokens = agent.MaxTokens
		}
	}

	if search := cfg.Search; search != nil {
		s.SearchURL = search.URL
		if search.Count > 0 {
			s.SearchCount = search.Count
		}
	}

	if music := cfg.Music; music != nil {
		if music.APIURL != "" {
			s.MusicAPIURL = music.APIURL
		}
		s.MusicAccessToken = music.AccessToken
	}

	if log := cfg.Log; log != nil {
		if log.Level != "" {
			s.LogLevel = log.Level
		}
		s.LogPretty = log.Pretty
	}

	return s
}

// Starter returns a config with every default spelled out, used by
// "companion config init" as an editable starting point. Credentials are
// left to {env:...} references.
func Starter() *types.Config {
	temperature := DefaultTemperature
	cors := true
	return &types.Config{
		Provider: map[string]types.ProviderConfig{
			"anthropic": {APIKey: "{env:ANTHROPIC_API_KEY}"},
			"openai":    {APIKey: "{env:OPENAI_API_KEY}"},
		},
		Server: &types.ServerConfig{Port: DefaultPort, CORS: &cors},
		Memory: &types.MemoryConfig{HistoryCap: DefaultHistoryCap},
		Agent: &types.AgentConfig{
			MaxIterations:    DefaultMaxIterations,
			MaxExecutionTime: DefaultMaxExecutionTime.String(),
			Temperature:      &temperature,
			MaxTokens:        DefaultMaxTokens,
		},
		Search: &types.SearchConfig{Count: DefaultSearchCount},
		Music:  &types.MusicConfig{APIURL: DefaultMusicAPIURL},
		Log:    &types.LogConfig{Level: "INFO"},
	}
}
