// Package anthropic implements a reviewer backend on the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/Strob0t/ReviewForge/internal/domain"
	"github.com/Strob0t/ReviewForge/internal/domain/prompt"
	"github.com/Strob0t/ReviewForge/internal/domain/review"
	"github.com/Strob0t/ReviewForge/internal/port/reviewer"
)

const (
	defaultModel  = "claude-haiku-4-5"
	defaultKeyEnv = "ANTHROPIC_API_KEY"
)

func init() {
	reviewer.Register("anthropic", func(id string, params map[string]string) (reviewer.Reviewer, error) {
		return New(id, params), nil
	})
}

// Reviewer calls the Anthropic Messages API through the official SDK.
type Reviewer struct {
	id        string
	api       *anthropic.Client
	model     anthropic.Model
	available bool
	triggers  review.Triggers
}

// New builds an Anthropic reviewer. Recognized params: api_key, api_key_env
// (default ANTHROPIC_API_KEY), model, base_url.
func New(id string, params map[string]string) *Reviewer {
	key := params["api_key"]
	if key == "" {
		env := params["api_key_env"]
		if env == "" {
			env = defaultKeyEnv
		}
		key = os.Getenv(env)
	}

	opts := []option.RequestOption{}
	if key != "" {
		opts = append(opts, option.WithAPIKey(key))
	}
	if u := params["base_url"]; u != "" {
		opts = append(opts, option.WithBaseURL(u))
	}
	client := anthropic.NewClient(opts...)

	model := defaultModel
	if m := params["model"]; m != "" {
		model = m
	}
	return &Reviewer{
		id:        id,
		api:       &client,
		model:     anthropic.Model(model),
		available: key != "",
		triggers:  review.DefaultTriggers(),
	}
}

// ID implements reviewer.Reviewer.
func (r *Reviewer) ID() string { return r.id }

// IsAvailable reports whether an API key is configured.
func (r *Reviewer) IsAvailable() bool { return r.available }

// SetTriggers replaces the keyword sets used to classify free-text replies.
func (r *Reviewer) SetTriggers(t review.Triggers) { r.triggers = t }

// Review implements reviewer.Reviewer.
func (r *Reviewer) Review(ctx context.Context, req review.Request) review.Verdict {
	start := time.Now()

	msg, err := r.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     r.model,
		MaxTokens: 2048,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt.Build(req))),
		},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			err = fmt.Errorf("anthropic call: %w", domain.ErrAdapterTimeout)
		} else {
			err = fmt.Errorf("anthropic call: %w", err)
		}
		return review.FailedVerdict(r.id, time.Since(start), err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return review.FailedVerdict(r.id, time.Since(start),
			fmt.Errorf("no text content: %w", domain.ErrAdapterMalformed))
	}

	sev, explanation, issues := review.ParseVerdictText(text, r.triggers)
	return review.Verdict{
		ReviewerID:  r.id,
		Severity:    sev,
		Explanation: explanation,
		Issues:      issues,
		Latency:     time.Since(start),
		Succeeded:   true,
	}
}
