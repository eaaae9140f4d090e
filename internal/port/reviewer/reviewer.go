// Package reviewer defines the reviewer backend port (interface) and registry.
package reviewer

import (
	"context"

	"github.com/Strob0t/ReviewForge/internal/domain/review"
)

// Reviewer is the port interface for one reviewer backend.
//
// Implementations are mutually substitutable: the orchestrator holds an
// ordered set of configured reviewers and never depends on which concrete
// backends are behind them.
type Reviewer interface {
	// ID returns the unique identifier for this reviewer (e.g. "gemini").
	ID() string

	// IsAvailable reports whether the backend can serve a review right now
	// (credentials present, binary on PATH, not in cooldown).
	IsAvailable() bool

	// Review sends one request and returns exactly one verdict. The call
	// must honor ctx's deadline and must not panic or return an error past
	// this boundary: timeouts, auth failures, and malformed responses all
	// come back as verdicts with Succeeded=false and a populated Err.
	Review(ctx context.Context, req review.Request) review.Verdict
}
