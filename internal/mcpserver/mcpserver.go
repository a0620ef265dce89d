// Package mcpserver exposes duplicate detection as MCP tools over stdio.
package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panbanda/locus/internal/service/analysis"
)

// Server wraps the MCP server and registers the locus tools.
type Server struct {
	server  *mcp.Server
	service *analysis.Service
}

// Option configures a Server.
type Option func(*Server)

// WithService sets the analysis service tools run against.
func WithService(svc *analysis.Service) Option {
	return func(s *Server) {
		s.service = svc
	}
}

// NewServer creates a new MCP server with all tools and prompts registered.
func NewServer(version string, opts ...Option) *Server {
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "locus",
			Version: version,
		},
		nil,
	)

	s := &Server{server: server}
	for _, opt := range opts {
		opt(s)
	}
	if s.service == nil {
		s.service = analysis.New()
	}
	s.registerTools()
	s.registerPrompts()
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "find_duplicates",
		Description: describeFindDuplicates(),
	}, s.handleFindDuplicates)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_files",
		Description: describeListFiles(),
	}, s.handleListFiles)
}
