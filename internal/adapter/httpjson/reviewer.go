// Package httpjson implements a reviewer backend on any OpenAI-compatible
// chat completions endpoint (LiteLLM proxies, local inference servers).
package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/Strob0t/ReviewForge/internal/domain"
	"github.com/Strob0t/ReviewForge/internal/domain/prompt"
	"github.com/Strob0t/ReviewForge/internal/domain/review"
	"github.com/Strob0t/ReviewForge/internal/port/reviewer"
)

func init() {
	reviewer.Register("httpjson", func(id string, params map[string]string) (reviewer.Reviewer, error) {
		return New(id, params)
	})
}

// Reviewer posts the review prompt to a chat completions endpoint and
// classifies the first choice's text into a verdict.
type Reviewer struct {
	id         string
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	triggers   review.Triggers
}

// New builds an httpjson reviewer. Required param: base_url. Optional:
// model (default "default"), api_key, api_key_env.
func New(id string, params map[string]string) (*Reviewer, error) {
	baseURL := params["base_url"]
	if baseURL == "" {
		return nil, fmt.Errorf("httpjson reviewer %q: base_url param is required", id)
	}

	key := params["api_key"]
	if key == "" && params["api_key_env"] != "" {
		key = os.Getenv(params["api_key_env"])
	}

	model := params["model"]
	if model == "" {
		model = "default"
	}

	return &Reviewer{
		id:         id,
		baseURL:    baseURL,
		apiKey:     key,
		model:      model,
		httpClient: &http.Client{},
		triggers:   review.DefaultTriggers(),
	}, nil
}

// ID implements reviewer.Reviewer.
func (r *Reviewer) ID() string { return r.id }

// IsAvailable reports whether an endpoint is configured. The key is optional:
// local proxies often run without auth.
func (r *Reviewer) IsAvailable() bool { return r.baseURL != "" }

// SetTriggers replaces the keyword sets used to classify free-text replies.
func (r *Reviewer) SetTriggers(t review.Triggers) { r.triggers = t }

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Review implements reviewer.Reviewer.
func (r *Reviewer) Review(ctx context.Context, req review.Request) review.Verdict {
	start := time.Now()

	payload, err := json.Marshal(chatRequest{
		Model:    r.model,
		Messages: []chatMessage{{Role: "user", Content: prompt.Build(req)}},
	})
	if err != nil {
		return review.FailedVerdict(r.id, time.Since(start), fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		r.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return review.FailedVerdict(r.id, time.Since(start), fmt.Errorf("build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			err = fmt.Errorf("chat completion: %w", domain.ErrAdapterTimeout)
		}
		return review.FailedVerdict(r.id, time.Since(start), err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return review.FailedVerdict(r.id, time.Since(start), fmt.Errorf("read response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return review.FailedVerdict(r.id, time.Since(start),
			fmt.Errorf("HTTP %d: %w", resp.StatusCode, domain.ErrAdapterAuth))
	case resp.StatusCode >= 400:
		return review.FailedVerdict(r.id, time.Since(start),
			fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(data[:min(300, len(data))])))
	}

	var chat chatResponse
	if err := json.Unmarshal(data, &chat); err != nil || len(chat.Choices) == 0 {
		return review.FailedVerdict(r.id, time.Since(start),
			fmt.Errorf("chat completion: %w", domain.ErrAdapterMalformed))
	}

	sev, explanation, issues := review.ParseVerdictText(chat.Choices[0].Message.Content, r.triggers)
	return review.Verdict{
		ReviewerID:  r.id,
		Severity:    sev,
		Explanation: explanation,
		Issues:      issues,
		Latency:     time.Since(start),
		Succeeded:   true,
	}
}
