package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// registerResources registers all MCP resources on the server.
func (s *Server) registerResources(srv *mcpserver.MCPServer) {
	srv.AddResource(
		mcplib.NewResource(
			"reviewforge://sessions",
			"Review Sessions",
			mcplib.WithResourceDescription("All known review sessions with their state machine snapshots"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleSessionsResource,
	)
}

func (s *Server) handleSessionsResource(ctx context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	states, err := s.sessions.List(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(states)
	if err != nil {
		return nil, err
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
