package a2a

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/ReviewForge/internal/service"
)

// Handler serves the A2A protocol endpoints. Tasks run synchronously; the
// finished response is kept in memory for later GET polling.
type Handler struct {
	baseURL  string
	engine   *service.Engine
	sessions *service.SessionService
	mu       sync.RWMutex
	tasks    map[string]*TaskResponse
}

// NewHandler creates an A2A handler.
func NewHandler(baseURL string, engine *service.Engine, sessions *service.SessionService) *Handler {
	return &Handler{
		baseURL:  baseURL,
		engine:   engine,
		sessions: sessions,
		tasks:    make(map[string]*TaskResponse),
	}
}

// MountRoutes registers A2A routes on the given chi router.
// These are mounted at the root level, not under /api/v1.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/.well-known/agent.json", h.handleAgentCard)
	r.Post("/a2a/tasks", h.handleCreateTask)
	r.Get("/a2a/tasks/{id}", h.handleGetTask)
}

func (h *Handler) handleAgentCard(w http.ResponseWriter, _ *http.Request) {
	card := BuildAgentCard(h.baseURL)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(card)
}

func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		http.Error(w, `{"error":"id is required"}`, http.StatusBadRequest)
		return
	}

	resp := h.runTask(r.Context(), &req)

	h.mu.Lock()
	h.tasks[req.ID] = resp
	h.mu.Unlock()

	slog.Info("a2a task finished", "id", req.ID, "skill", req.Skill, "status", resp.Status)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	h.mu.RLock()
	resp, ok := h.tasks[id]
	h.mu.RUnlock()

	if !ok {
		http.Error(w, `{"error":"task not found"}`, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *Handler) runTask(ctx context.Context, req *TaskRequest) *TaskResponse {
	switch req.Skill {
	case SkillReviewArtifact:
		return h.runReview(ctx, req)
	case SkillSessionState:
		return h.runSessionState(ctx, req)
	default:
		return &TaskResponse{ID: req.ID, Status: "failed", Error: "unknown skill: " + req.Skill}
	}
}
