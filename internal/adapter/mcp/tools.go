package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/ReviewForge/internal/domain/lifecycle"
)

// get_session_state
func (s *Server) getSessionStateTool() (mcplib.Tool, mcpserver.ToolHandlerFunc) {
	tool := mcplib.NewTool("get_session_state",
		mcplib.WithDescription("Get the review state machine snapshot for a session: per-stage status, retry counts, override window"),
		mcplib.WithString("session_id",
			mcplib.Required(),
			mcplib.Description("The session ID to look up"),
		),
	)
	return tool, s.handleGetSessionState
}

func (s *Server) handleGetSessionState(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	sessionID, ok := req.GetArguments()["session_id"].(string)
	if !ok || sessionID == "" {
		return mcplib.NewToolResultError("session_id is required"), nil
	}

	st, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(
			fmt.Sprintf("failed to get session %s", sessionID), err,
		), nil
	}
	data, err := json.Marshal(st)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal session", err), nil
	}
	return mcplib.NewToolResultText(string(data)), nil
}

// request_review
func (s *Server) requestReviewTool() (mcplib.Tool, mcpserver.ToolHandlerFunc) {
	tool := mcplib.NewTool("request_review",
		mcplib.WithDescription("Run a full review round over an artifact and return the proceed/rework decision. Debounce does not apply"),
		mcplib.WithString("session_id",
			mcplib.Required(),
			mcplib.Description("The session the artifact belongs to"),
		),
		mcplib.WithString("stage",
			mcplib.Description("Review stage: plan, code or test (default: code)"),
		),
		mcplib.WithString("artifact",
			mcplib.Required(),
			mcplib.Description("The artifact text to review (diff, plan, test output)"),
		),
	)
	return tool, s.handleRequestReview
}

func (s *Server) handleRequestReview(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	args := req.GetArguments()
	sessionID, _ := args["session_id"].(string)
	artifact, _ := args["artifact"].(string)
	stage, _ := args["stage"].(string)
	if sessionID == "" {
		return mcplib.NewToolResultError("session_id is required"), nil
	}
	if artifact == "" {
		return mcplib.NewToolResultError("artifact is required"), nil
	}

	ev := &lifecycle.Event{SessionID: sessionID, Stage: stage, Artifact: artifact}
	ev.Normalize(time.Now().UTC())
	if err := ev.Validate(); err != nil {
		return mcplib.NewToolResultErrorFromErr("invalid review request", err), nil
	}

	dec, err := s.engine.Process(ctx, ev)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("review failed", err), nil
	}
	data, err := json.Marshal(dec)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal decision", err), nil
	}
	return mcplib.NewToolResultText(string(data)), nil
}

// list_reviewers
func (s *Server) listReviewersTool() (mcplib.Tool, mcpserver.ToolHandlerFunc) {
	tool := mcplib.NewTool("list_reviewers",
		mcplib.WithDescription("List the configured reviewers with availability, breaker and quota state"),
	)
	return tool, s.handleListReviewers
}

func (s *Server) handleListReviewers(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	data, err := json.Marshal(s.engine.Reviewers().Status())
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal reviewers", err), nil
	}
	return mcplib.NewToolResultText(string(data)), nil
}

// set_override
func (s *Server) setOverrideTool() (mcplib.Tool, mcpserver.ToolHandlerFunc) {
	tool := mcplib.NewTool("set_override",
		mcplib.WithDescription("Arm a session's review override window so subsequent events skip review. The reason is recorded in the audit trail"),
		mcplib.WithString("session_id",
			mcplib.Required(),
			mcplib.Description("The session to arm the override for"),
		),
		mcplib.WithString("reason",
			mcplib.Required(),
			mcplib.Description("Why the override is needed"),
		),
		mcplib.WithNumber("ttl_seconds",
			mcplib.Description("How long the override lasts in seconds (default: 300)"),
		),
	)
	return tool, s.handleSetOverride
}

func (s *Server) handleSetOverride(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	args := req.GetArguments()
	sessionID, _ := args["session_id"].(string)
	reason, _ := args["reason"].(string)
	if sessionID == "" {
		return mcplib.NewToolResultError("session_id is required"), nil
	}
	if reason == "" {
		return mcplib.NewToolResultError("reason is required"), nil
	}

	ttl := 300 * time.Second
	if v, ok := args["ttl_seconds"].(float64); ok && v > 0 {
		ttl = time.Duration(v) * time.Second
	}

	until := time.Now().UTC().Add(ttl)
	if err := s.sessions.SetOverride(ctx, sessionID, until, reason); err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to set override", err), nil
	}
	return mcplib.NewToolResultText(fmt.Sprintf(`{"session_id":%q,"override_until":%q}`,
		sessionID, until.Format(time.RFC3339))), nil
}
