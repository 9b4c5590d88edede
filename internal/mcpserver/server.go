// Package mcpserver exposes the change request workflow and chain analysis
// as MCP tools. The host orchestration layer talks to it over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papapumpkin/vchain/internal/workflow"
)

// Version is reported to MCP clients during initialization.
const Version = "0.1.0"

// Server registers the vchain tools on an MCP server.
type Server struct {
	svc    *workflow.Service
	mcp    *mcp.Server
	logger *slog.Logger
}

// NewServer creates a server backed by svc. A nil logger uses slog.Default.
func NewServer(svc *workflow.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		svc: svc,
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    "vchain",
			Version: Version,
		}, nil),
		logger: logger,
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.registerChangeRequestTool()
	s.registerChainTool()
}

// Run serves the tools over stdin/stdout until ctx is cancelled or the
// client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp server starting", "transport", "stdio", "version", Version)
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("mcpserver: %w", err)
	}
	return nil
}

// jsonResult renders v as the tool's text content and structured content.
func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encoding result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}
