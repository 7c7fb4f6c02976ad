package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
	"github.com/phuslu/log"

	"github.com/dshills/semdoc/internal/app"
)

const (
	// ServerName is the MCP server name
	ServerName = "semdoc"
	// ServerVersion is the current server version
	ServerVersion = "0.1.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp    *server.MCPServer
	app    *app.App
	logger *log.Logger
}

// NewServer creates a new MCP server over an initialized application
func NewServer(a *app.App) *Server {
	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		mcp:    mcpServer,
		app:    a,
		logger: a.Logger,
	}

	s.registerTools()

	return s
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info().Str("name", ServerName).Str("version", ServerVersion).Msg("serving MCP on stdio")
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(indexDocumentTool(), s.handleIndexDocument)
	s.mcp.AddTool(getDocumentTool(), s.handleGetDocument)
	s.mcp.AddTool(searchDocumentsTool(), s.handleSearchDocuments)
	s.mcp.AddTool(findPromptsTool(), s.handleFindPrompts)
	s.mcp.AddTool(completeAttributeTool(), s.handleCompleteAttribute)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
