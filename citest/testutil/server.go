package testutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/opencode-ai/companion/internal/app"
	"github.com/opencode-ai/companion/internal/config"
	"github.com/opencode-ai/companion/pkg/types"
)

// TestServer wraps a running companion for testing.
type TestServer struct {
	App     *app.App
	BaseURL string
	Config  *types.Config
	TempDir string

	MockLLM *MockLLMServer
	Music   *MockMusicServer

	ownsMockLLM bool
	ownsMusic   bool
	port        int
}

// TestServerOption configures TestServer.
type TestServerOption func(*testServerConfig)

type testServerConfig struct {
	envFile        string
	mockLLM        *MockLLMServer
	mockLLMConfig  *MockLLMConfig
	music          *MockMusicServer
	withMusic      bool
	personalityDir string
	historyCap     int
	configure      func(*types.Config)
}

// WithEnvFile sets the .env file to load.
func WithEnvFile(path string) TestServerOption {
	return func(c *testServerConfig) {
		c.envFile = path
	}
}

// WithMockLLM points the server at an existing mock LLM.
func WithMockLLM(m *MockLLMServer) TestServerOption {
	return func(c *testServerConfig) {
		c.mockLLM = m
	}
}

// WithMockLLMConfig starts a dedicated mock LLM driven by cfg.
func WithMockLLMConfig(cfg *MockLLMConfig) TestServerOption {
	return func(c *testServerConfig) {
		c.mockLLMConfig = cfg
	}
}

// WithMusicAPI connects the music tools to m. A nil m starts a fresh mock.
func WithMusicAPI(m *MockMusicServer) TestServerOption {
	return func(c *testServerConfig) {
		c.withMusic = true
		c.music = m
	}
}

// WithPersonalityDir loads *.yaml descriptors from dir.
func WithPersonalityDir(dir string) TestServerOption {
	return func(c *testServerConfig) {
		c.personalityDir = dir
	}
}

// WithHistoryCap bounds per-session history.
func WithHistoryCap(n int) TestServerOption {
	return func(c *testServerConfig) {
		c.historyCap = n
	}
}

// WithConfig edits the configuration before the app is built.
func WithConfig(fn func(*types.Config)) TestServerOption {
	return func(c *testServerConfig) {
		c.configure = fn
	}
}

// UseRealProvider reports whether TEST_PROVIDER asks for a live backend
// configured from the environment instead of the mock LLM.
func UseRealProvider() bool {
	return os.Getenv("TEST_PROVIDER") != "" && os.Getenv("TEST_PROVIDER") != "mock"
}

// StartTestServer builds the companion and serves it on a free port.
func StartTestServer(opts ...TestServerOption) (*TestServer, error) {
	cfg := &testServerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.envFile != "" {
		_ = godotenv.Load(cfg.envFile)
	} else {
		_ = godotenv.Load("../../.env")
		_ = godotenv.Load("../.env")
		_ = godotenv.Load(".env")
	}

	tempDir, err := os.MkdirTemp("", "companion-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}

	ts := &TestServer{TempDir: tempDir}
	cleanup := func() {
		ts.closeMocks()
		os.RemoveAll(tempDir)
	}

	appConfig, err := ts.buildConfig(cfg)
	if err != nil {
		cleanup()
		return nil, err
	}
	if cfg.configure != nil {
		cfg.configure(appConfig)
	}
	ts.Config = appConfig

	port, err := findAvailablePort()
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to find available port: %w", err)
	}
	ts.port = port

	a, err := app.New(context.Background(), appConfig, app.Options{
		Port:           port,
		PersonalityDir: cfg.personalityDir,
	})
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to build app: %w", err)
	}
	ts.App = a

	go func() {
		if err := a.Server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "test server stopped: %v\n", err)
		}
	}()

	ts.BaseURL = fmt.Sprintf("http://localhost:%d", port)
	if err := waitForServer(ts.BaseURL, 10*time.Second); err != nil {
		ts.Stop()
		return nil, fmt.Errorf("server failed to start: %w", err)
	}
	return ts, nil
}

// buildConfig points the companion at the mocks, or at the environment's
// provider when UseRealProvider is set.
func (ts *TestServer) buildConfig(cfg *testServerConfig) (*types.Config, error) {
	var appConfig *types.Config
	if UseRealProvider() {
		loaded, err := config.Load(ts.TempDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		appConfig = loaded
	} else {
		ts.MockLLM = cfg.mockLLM
		if ts.MockLLM == nil {
			mockCfg := cfg.mockLLMConfig
			if mockCfg == nil {
				mockCfg = DefaultMockLLMConfig()
			}
			ts.MockLLM = NewMockLLMServerWithConfig(mockCfg)
			ts.ownsMockLLM = true
		}
		appConfig = &types.Config{
			Model: "openai/mock-model",
			Provider: map[string]types.ProviderConfig{
				"openai": {APIKey: "test", BaseURL: ts.MockLLM.URL()},
			},
		}
	}

	if cfg.withMusic {
		ts.Music = cfg.music
		if ts.Music == nil {
			ts.Music = NewMockMusicServer()
			ts.ownsMusic = true
		}
		appConfig.Music = &types.MusicConfig{
			APIURL:      ts.Music.URL(),
			AccessToken: MockMusicToken,
		}
	}

	if cfg.historyCap > 0 {
		appConfig.Memory = &types.MemoryConfig{HistoryCap: cfg.historyCap}
	}
	return appConfig, nil
}

func (ts *TestServer) closeMocks() {
	if ts.ownsMockLLM && ts.MockLLM != nil {
		ts.MockLLM.Close()
	}
	if ts.ownsMusic && ts.Music != nil {
		ts.Music.Close()
	}
}

// Stop shuts down the test server and cleans up.
func (ts *TestServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	if ts.App != nil {
		err = ts.App.Server.Shutdown(ctx)
		if cerr := ts.App.Close(); err == nil {
			err = cerr
		}
	}
	ts.closeMocks()
	if ts.TempDir != "" {
		os.RemoveAll(ts.TempDir)
	}
	return err
}

// Client returns a new test client for this server.
func (ts *TestServer) Client() *TestClient {
	return NewTestClient(ts.BaseURL)
}

// SSEClient returns a new SSE client for this server.
func (ts *TestServer) SSEClient() *SSEClient {
	return NewSSEClient(ts.BaseURL)
}

// findAvailablePort finds an available TCP port.
func findAvailablePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port, nil
}

// waitForServer polls /health until it answers.
func waitForServer(baseURL string, timeout time.Duration) error {
	client := NewTestClient(baseURL)
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(context.Background(), "/health")
		if err == nil && resp.IsSuccess() {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("server not ready after %v", timeout)
}

// RequireEnv returns an error naming the first unset variable.
func RequireEnv(vars ...string) error {
	for _, v := range vars {
		if os.Getenv(v) == "" {
			return fmt.Errorf("environment variable %s is not set", v)
		}
	}
	return nil
}

// SkipIfMissingEnv reports whether any of vars is unset.
func SkipIfMissingEnv(vars ...string) bool {
	return RequireEnv(vars...) != nil
}
