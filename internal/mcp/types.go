package mcp

import "encoding/json"

// TransportType represents the type of MCP transport.
type TransportType string

const (
	TransportTypeRemote TransportType = "remote"
	TransportTypeStdio  TransportType = "stdio"
)

// Status represents the connection status.
type Status string

const (
	StatusConnected Status = "connected"
	StatusDisabled  Status = "disabled"
	StatusFailed    Status = "failed"
)

// ServerStatus represents the status of an MCP server.
type ServerStatus struct {
	Name      string `json:"name"`
	Status    Status `json:"status"`
	ToolCount int    `json:"toolCount"`
	Error     string `json:"error,omitempty"`
}

// Tool is a tool advertised by a remote server.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// inputSchema is the subset of JSON Schema used to map the single string
// argument.
type inputSchema struct {
	Properties map[string]struct {
		Type        string `json:"type"`
		Description string `json:"description"`
	} `json:"properties"`
	Required []string `json:"required"`
}

func parseSchema(raw json.RawMessage) inputSchema {
	var s inputSchema
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &s)
	}
	return s
}

// primaryParam returns the string parameter a bare argument fills: the only
// required parameter when it is a string, else the only string parameter.
func (s inputSchema) primaryParam() (string, bool) {
	if len(s.Required) > 1 {
		return "", false
	}
	var required, all []string
	req := make(map[string]bool, len(s.Required))
	for _, r := range s.Required {
		req[r] = true
	}
	for name, p := range s.Properties {
		if p.Type != "string" && p.Type != "" {
			continue
		}
		all = append(all, name)
		if req[name] {
			required = append(required, name)
		}
	}
	switch {
	case len(required) == 1:
		return required[0], true
	case len(s.Required) == 0 && len(all) == 1:
		return all[0], true
	}
	return "", false
}
