// Package mcpserver exposes TiltCheck data to AI assistants over the
// Model Context Protocol. All tools are read-only views over the REST API.
package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates a configured MCP server with all TiltCheck tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("tiltcheck", "0.1.0")
	client := NewTiltCheckClient(cfg)
	h := NewHandlers(client)

	s.AddTool(ToolGetSession, h.HandleGetSession)
	s.AddTool(ToolListSessions, h.HandleListSessions)
	s.AddTool(ToolGetAlertHistory, h.HandleGetAlertHistory)
	s.AddTool(ToolGetDailyStats, h.HandleGetDailyStats)

	return s
}
