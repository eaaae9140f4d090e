package a2a

import (
	"context"
	"time"

	"github.com/Strob0t/ReviewForge/internal/domain/lifecycle"
)

func strInput(in map[string]any, key string) string {
	s, _ := in[key].(string)
	return s
}

// runReview executes one synchronous review round for the calling agent.
// Debounce does not apply: an agent asking explicitly wants an answer now.
func (h *Handler) runReview(ctx context.Context, req *TaskRequest) *TaskResponse {
	ev := &lifecycle.Event{
		SessionID: strInput(req.Input, "session_id"),
		Stage:     strInput(req.Input, "stage"),
		Artifact:  strInput(req.Input, "artifact"),
		Prompt:    strInput(req.Input, "prompt"),
	}
	ev.Normalize(time.Now().UTC())
	if err := ev.Validate(); err != nil {
		return &TaskResponse{ID: req.ID, Status: "failed", Error: err.Error()}
	}

	dec, err := h.engine.Process(ctx, ev)
	if err != nil {
		return &TaskResponse{ID: req.ID, Status: "failed", Error: err.Error()}
	}

	return &TaskResponse{
		ID:     req.ID,
		Status: "completed",
		Output: map[string]any{
			"continue":    dec.Continue,
			"severity":    dec.Severity,
			"action":      dec.Action,
			"message":     dec.SystemMessage,
			"retry_stage": dec.RetryStage,
			"retry_count": dec.RetryCount,
		},
	}
}

func (h *Handler) runSessionState(ctx context.Context, req *TaskRequest) *TaskResponse {
	sessionID := strInput(req.Input, "session_id")
	if sessionID == "" {
		return &TaskResponse{ID: req.ID, Status: "failed", Error: "session_id is required"}
	}

	st, err := h.sessions.Get(ctx, sessionID)
	if err != nil {
		return &TaskResponse{ID: req.ID, Status: "failed", Error: err.Error()}
	}

	stages := make(map[string]any, len(st.Stages))
	for stage, ss := range st.Stages {
		stages[string(stage)] = map[string]any{
			"status":      string(ss.Status),
			"retry_count": ss.RetryCount,
		}
	}

	return &TaskResponse{
		ID:     req.ID,
		Status: "completed",
		Output: map[string]any{
			"session_id":       st.SessionID,
			"stages":           stages,
			"completion_count": st.CompletionCount,
			"override_until":   st.OverrideUntil,
		},
	}
}
