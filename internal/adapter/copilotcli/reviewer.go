// Package copilotcli implements a reviewer backend on the GitHub Copilot CLI.
package copilotcli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/Strob0t/ReviewForge/internal/domain"
	"github.com/Strob0t/ReviewForge/internal/domain/prompt"
	"github.com/Strob0t/ReviewForge/internal/domain/review"
	"github.com/Strob0t/ReviewForge/internal/port/reviewer"
)

const defaultBinary = "copilot"

func init() {
	reviewer.Register("copilot", func(id string, params map[string]string) (reviewer.Reviewer, error) {
		return New(id, params), nil
	})
}

// Reviewer shells out to the Copilot CLI with the review prompt and parses
// its stdout into a verdict.
type Reviewer struct {
	id       string
	binary   string
	triggers review.Triggers

	// lookPath is swapped in tests.
	lookPath func(string) (string, error)
}

// New builds a Copilot CLI reviewer. Recognized params: binary (defaults to
// "copilot" on PATH).
func New(id string, params map[string]string) *Reviewer {
	r := &Reviewer{
		id:       id,
		binary:   defaultBinary,
		triggers: review.DefaultTriggers(),
		lookPath: exec.LookPath,
	}
	if b := params["binary"]; b != "" {
		r.binary = b
	}
	return r
}

// ID implements reviewer.Reviewer.
func (r *Reviewer) ID() string { return r.id }

// IsAvailable reports whether the CLI binary is on PATH.
func (r *Reviewer) IsAvailable() bool {
	_, err := r.lookPath(r.binary)
	return err == nil
}

// SetTriggers replaces the keyword sets used to classify free-text replies.
func (r *Reviewer) SetTriggers(t review.Triggers) { r.triggers = t }

// Review implements reviewer.Reviewer. The subprocess inherits ctx's
// deadline; a kill on timeout comes back as a failed verdict.
func (r *Reviewer) Review(ctx context.Context, req review.Request) review.Verdict {
	start := time.Now()

	path, err := r.lookPath(r.binary)
	if err != nil {
		return review.FailedVerdict(r.id, time.Since(start), fmt.Errorf("copilot binary not found: %w", err))
	}

	cmd := exec.CommandContext(ctx, path, "-p", prompt.Build(req))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return review.FailedVerdict(r.id, time.Since(start),
				fmt.Errorf("copilot CLI: %w", domain.ErrAdapterTimeout))
		}
		return review.FailedVerdict(r.id, time.Since(start),
			fmt.Errorf("copilot CLI: %w: %s", err, truncate(stderr.String(), 300)))
	}

	sev, explanation, issues := review.ParseVerdictText(stdout.String(), r.triggers)
	return review.Verdict{
		ReviewerID:  r.id,
		Severity:    sev,
		Explanation: explanation,
		Issues:      issues,
		Latency:     time.Since(start),
		Succeeded:   true,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
