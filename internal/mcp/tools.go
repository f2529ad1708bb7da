// Package mcp exposes the benchmark harness as MCP tools: discovering
// skills, running benchmarks, fetching reports, and managing served models.
package mcp

import (
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/skillbench/skillbench/internal/server"
)

// RegisterTools registers all MCP tools with the server.
func RegisterTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if err := registerBenchmarkTools(s, sc); err != nil {
		return err
	}
	if err := registerModelTools(s, sc); err != nil {
		return err
	}
	return nil
}
