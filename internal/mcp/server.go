// Package mcp exposes the evaluation engine as MCP tools so assistant
// integrations can consult the same pipeline the extension uses.
package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/pageguard/internal/engine"
)

// Server wraps the MCP SDK server around a pageguard engine.
type Server struct {
	mcpServer *mcpsdk.Server
	engine    *engine.Engine
}

// New creates an MCP server over an assembled engine.
func New(eng *engine.Engine) *Server {
	s := &Server{engine: eng}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "pageguard",
			Version: "0.1.0",
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// registerTools adds all pageguard tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "pageguard_check_url",
		Description: "Evaluate a URL for privacy and safety risk. Returns the risk score, level, decision, and the reasons behind them.",
	}, s.handleCheckURL)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "pageguard_check_field",
		Description: "Classify a form field value in its page context and return the resulting risk verdict. The raw value never appears in the output.",
	}, s.handleCheckField)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "pageguard_grant",
		Description: "Add or revoke a permission grant for a site and capability. Temporary grants require a ttl.",
	}, s.handleGrant)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "pageguard_audit",
		Description: "Query the decision audit log by level, decision, or free text.",
	}, s.handleAudit)
}
