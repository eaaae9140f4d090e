// Package mcp exposes review state and operations to AI agents over the
// Model Context Protocol: tools for requesting reviews and arming overrides,
// plus a read-only sessions resource.
package mcp

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/ReviewForge/internal/config"
	"github.com/Strob0t/ReviewForge/internal/service"
)

// Server wraps the review services and exposes them as MCP tools.
type Server struct {
	cfg      config.MCP
	engine   *service.Engine
	sessions *service.SessionService

	httpSrv *http.Server
}

// NewServer creates the MCP server wrapper.
func NewServer(cfg config.MCP, engine *service.Engine, sessions *service.SessionService) *Server {
	return &Server{
		cfg:      cfg,
		engine:   engine,
		sessions: sessions,
	}
}

// MCPServer returns a configured mcp-go server with all tools and resources
// registered.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	srv := mcpserver.NewMCPServer("reviewforge", "0.1.0",
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, true),
	)

	srv.AddTool(s.getSessionStateTool())
	srv.AddTool(s.requestReviewTool())
	srv.AddTool(s.listReviewersTool())
	srv.AddTool(s.setOverrideTool())

	s.registerResources(srv)
	return srv
}

// Start serves the streamable HTTP transport on the configured address.
// It returns immediately; errors after startup are logged.
func (s *Server) Start() error {
	handler := mcpserver.NewStreamableHTTPServer(s.MCPServer())

	s.httpSrv = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           AuthMiddleware(s.cfg.APIKey, handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("mcp server listening", "addr", s.cfg.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mcp server failed", "error", err)
		}
	}()
	return nil
}

// Stop gracefully shuts the HTTP transport down.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
