package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/opencode-ai/companion/internal/logging"
	"github.com/opencode-ai/companion/pkg/types"
)

// DefaultTimeout bounds connecting and listing tools when the config sets
// no timeout.
const DefaultTimeout = 5 * time.Second

// Client manages MCP server connections.
type Client struct {
	mu        sync.RWMutex
	servers   map[string]*mcpServer
	sdkClient *sdkmcp.Client
}

type mcpServer struct {
	name    string
	session *sdkmcp.ClientSession
	tools   []Tool
	status  Status
	err     string
}

// NewClient creates a client with no servers.
func NewClient(version string) *Client {
	return &Client{
		servers: make(map[string]*mcpServer),
		sdkClient: sdkmcp.NewClient(&sdkmcp.Implementation{
			Name:    "companion",
			Version: version,
		}, nil),
	}
}

// ConnectAll adds every configured server. Failures are logged and recorded
// in Status.
func (c *Client) ConnectAll(ctx context.Context, servers map[string]types.MCPConfig) {
	log := logging.Component("mcp")

	names := make([]string, 0, len(servers))
	for name := range servers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := c.AddServer(ctx, name, servers[name]); err != nil {
			log.Warn().Err(err).Str("server", name).Msg("MCP server unavailable")
			continue
		}
		log.Info().Str("server", name).Int("tools", c.toolCount(name)).Msg("MCP server connected")
	}
}

// AddServer connects to one server and lists its tools.
func (c *Client) AddServer(ctx context.Context, name string, cfg types.MCPConfig) error {
	c.mu.Lock()
	if _, ok := c.servers[name]; ok {
		c.mu.Unlock()
		return fmt.Errorf("server already exists: %s", name)
	}
	c.mu.Unlock()

	if !cfg.IsEnabled() {
		c.store(&mcpServer{name: name, status: StatusDisabled})
		return nil
	}

	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var err error
	switch TransportType(cfg.Type) {
	case TransportTypeRemote:
		if cfg.URL == "" {
			err = fmt.Errorf("remote server needs a url")
			break
		}
		httpClient := httpClientWithHeaders(cfg.Headers)
		err = c.attach(ctx, name, &sdkmcp.StreamableClientTransport{Endpoint: cfg.URL, HTTPClient: httpClient}, timeout)
		if err != nil {
			err = c.attach(ctx, name, &sdkmcp.SSEClientTransport{Endpoint: cfg.URL, HTTPClient: httpClient}, timeout)
		}

	case TransportTypeStdio, "":
		if len(cfg.Command) == 0 {
			err = fmt.Errorf("stdio server needs a command")
			break
		}
		cmd := exec.Command(cfg.Command[0], cfg.Command[1:]...)
		cmd.Env = os.Environ()
		for k, v := range cfg.Environment {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
		err = c.attach(ctx, name, &sdkmcp.CommandTransport{Command: cmd}, timeout)

	default:
		err = fmt.Errorf("unknown transport type: %s", cfg.Type)
	}

	if err != nil {
		c.store(&mcpServer{name: name, status: StatusFailed, err: err.Error()})
		return err
	}
	return nil
}

// attach connects over transport and records the server's tools.
func (c *Client) attach(ctx context.Context, name string, transport sdkmcp.Transport, timeout time.Duration) error {
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	session, err := c.sdkClient.Connect(connectCtx, transport, nil)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	result, err := session.ListTools(connectCtx, nil)
	if err != nil {
		session.Close()
		return fmt.Errorf("list tools: %w", err)
	}

	srv := &mcpServer{name: name, session: session, status: StatusConnected}
	for _, t := range result.Tools {
		schema, _ := json.Marshal(t.InputSchema)
		srv.tools = append(srv.tools, Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
		})
	}
	c.store(srv)
	return nil
}

func (c *Client) store(s *mcpServer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.servers[s.name] = s
}

func (c *Client) toolCount(name string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if s, ok := c.servers[name]; ok {
		return len(s.tools)
	}
	return 0
}

func httpClientWithHeaders(headers map[string]string) *http.Client {
	client := &http.Client{}
	if len(headers) == 0 {
		return client
	}
	client.Transport = &headerRoundTripper{headers: headers, next: http.DefaultTransport}
	return client
}

type headerRoundTripper struct {
	headers map[string]string
	next    http.RoundTripper
}

func (h *headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	cloned := req.Clone(req.Context())
	for k, v := range h.headers {
		cloned.Header.Set(k, v)
	}
	return h.next.RoundTrip(cloned)
}

// Tools returns the tools of every connected server, named
// "<server>_<tool>" and sorted by name.
func (c *Client) Tools() []Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var all []Tool
	for name, srv := range c.servers {
		if srv.status != StatusConnected {
			continue
		}
		for _, t := range srv.tools {
			all = append(all, Tool{
				Name:        sanitizeToolName(name) + "_" + sanitizeToolName(t.Name),
				Description: t.Description,
				InputSchema: t.InputSchema,
			})
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all
}

// resolve maps a prefixed tool name back to its server and remote name.
func (c *Client) resolve(toolName string) (*mcpServer, string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for name, srv := range c.servers {
		if srv.status != StatusConnected {
			continue
		}
		prefix := sanitizeToolName(name) + "_"
		if !strings.HasPrefix(toolName, prefix) {
			continue
		}
		local := strings.TrimPrefix(toolName, prefix)
		for _, t := range srv.tools {
			if sanitizeToolName(t.Name) == local {
				return srv, t.Name, true
			}
		}
	}
	return nil, "", false
}

// CallTool runs a prefixed tool and returns its text content. A tool that
// reports an error yields its message as the error.
func (c *Client) CallTool(ctx context.Context, toolName string, args map[string]any) (string, error) {
	srv, remote, ok := c.resolve(toolName)
	if !ok {
		return "", fmt.Errorf("no server found for tool: %s", toolName)
	}

	result, err := srv.session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      remote,
		Arguments: args,
	})
	if err != nil {
		return "", err
	}

	var output strings.Builder
	for _, content := range result.Content {
		if text, ok := content.(*sdkmcp.TextContent); ok {
			output.WriteString(text.Text)
		}
	}
	if result.IsError {
		if output.Len() == 0 {
			return "", fmt.Errorf("tool execution failed")
		}
		return "", fmt.Errorf("tool error: %s", output.String())
	}
	return output.String(), nil
}

// Status returns the status of every configured server, sorted by name.
func (c *Client) Status() []ServerStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := make([]ServerStatus, 0, len(c.servers))
	for name, srv := range c.servers {
		status = append(status, ServerStatus{
			Name:      name,
			Status:    srv.status,
			ToolCount: len(srv.tools),
			Error:     srv.err,
		})
	}
	sort.Slice(status, func(i, j int) bool { return status[i].Name < status[j].Name })
	return status
}

// ConnectedCount returns the number of connected servers.
func (c *Client) ConnectedCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	count := 0
	for _, srv := range c.servers {
		if srv.status == StatusConnected {
			count++
		}
	}
	return count
}

// Close disconnects all servers.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, srv := range c.servers {
		if srv.session != nil {
			srv.session.Close()
		}
	}
	c.servers = make(map[string]*mcpServer)
	return nil
}

// sanitizeToolName replaces non-alphanumeric chars with underscore.
func sanitizeToolName(name string) string {
	var result strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			result.WriteRune(r)
		} else {
			result.WriteRune('_')
		}
	}
	return result.String()
}
