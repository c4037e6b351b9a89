package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/SyntaxAsSpiral/Collectivist/internal/pipeline"
)

const (
	// ServerName is the MCP server name
	ServerName = "collectivist"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	pipeline *pipeline.Pipeline
	log      *zap.Logger
}

// NewServer creates a new MCP server instance
func NewServer(p *pipeline.Pipeline, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:      mcpServer,
		pipeline: p,
		log:      log,
	}

	s.registerTools()

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(updateCollectionTool(), s.handleUpdateCollection)
	s.mcp.AddTool(collectionStatusTool(), s.handleCollectionStatus)
}
