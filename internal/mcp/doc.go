// Package mcp connects the companion to external Model Context Protocol
// servers and offers their tools to the agent.
//
// Servers are configured under the "mcp" config key. Each connected server's
// tools are registered in the tool registry as "<server>_<tool>" and take the
// same single string argument as the built-in tools:
//
//	"mcp": {
//		"weather": {"type": "stdio", "command": ["weather-mcp"]},
//		"notes":   {"type": "remote", "url": "http://localhost:9000/mcp"}
//	}
//
// The argument is mapped onto the remote tool's schema by RemoteTool.Run: a
// JSON object is passed through as the arguments, anything else fills the
// tool's primary string parameter.
//
// A server that fails to connect is reported by Status and skipped; it never
// prevents startup.
package mcp
