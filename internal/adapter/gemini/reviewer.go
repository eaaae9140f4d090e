// Package gemini implements a reviewer backend on the Google Gemini REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/Strob0t/ReviewForge/internal/domain"
	"github.com/Strob0t/ReviewForge/internal/domain/prompt"
	"github.com/Strob0t/ReviewForge/internal/domain/review"
	"github.com/Strob0t/ReviewForge/internal/port/reviewer"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"
	defaultModel   = "gemini-2.5-flash-lite"
	defaultKeyEnv  = "GEMINI_API_KEY"
)

func init() {
	reviewer.Register("gemini", func(id string, params map[string]string) (reviewer.Reviewer, error) {
		return New(id, params), nil
	})
}

// Reviewer calls the Gemini generateContent endpoint and classifies the
// response text into a verdict.
type Reviewer struct {
	id         string
	apiKey     string
	model      string
	baseURL    string
	maxTokens  int
	httpClient *http.Client
	triggers   review.Triggers
}

// New builds a Gemini reviewer from backend params. Recognized params:
// api_key, api_key_env (default GEMINI_API_KEY), model, base_url, max_tokens.
func New(id string, params map[string]string) *Reviewer {
	key := params["api_key"]
	if key == "" {
		env := params["api_key_env"]
		if env == "" {
			env = defaultKeyEnv
		}
		key = os.Getenv(env)
		if key == "" {
			key = os.Getenv("GOOGLE_API_KEY")
		}
	}

	r := &Reviewer{
		id:         id,
		apiKey:     key,
		model:      defaultModel,
		baseURL:    defaultBaseURL,
		maxTokens:  2000,
		httpClient: &http.Client{},
		triggers:   review.DefaultTriggers(),
	}
	if m := params["model"]; m != "" {
		r.model = m
	}
	if u := params["base_url"]; u != "" {
		r.baseURL = u
	}
	if mt := params["max_tokens"]; mt != "" {
		if n, err := strconv.Atoi(mt); err == nil && n > 0 {
			r.maxTokens = n
		}
	}
	return r
}

// ID implements reviewer.Reviewer.
func (r *Reviewer) ID() string { return r.id }

// IsAvailable reports whether an API key is configured.
func (r *Reviewer) IsAvailable() bool { return r.apiKey != "" }

// SetTriggers replaces the keyword sets used to classify free-text replies.
func (r *Reviewer) SetTriggers(t review.Triggers) { r.triggers = t }

type generateRequest struct {
	Contents         []content `json:"contents"`
	GenerationConfig genConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type genConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Review implements reviewer.Reviewer. All failure modes come back as a
// failed verdict; nothing escapes this boundary.
func (r *Reviewer) Review(ctx context.Context, req review.Request) review.Verdict {
	start := time.Now()

	raw, err := r.generate(ctx, prompt.Build(req))
	if err != nil {
		return review.FailedVerdict(r.id, time.Since(start), err)
	}

	sev, explanation, issues := review.ParseVerdictText(raw, r.triggers)
	return review.Verdict{
		ReviewerID:  r.id,
		Severity:    sev,
		Explanation: explanation,
		Issues:      issues,
		Latency:     time.Since(start),
		Succeeded:   true,
	}
}

func (r *Reviewer) generate(ctx context.Context, fullPrompt string) (string, error) {
	body := generateRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: fullPrompt}}},
		},
		GenerationConfig: genConfig{Temperature: 0.1, MaxOutputTokens: r.maxTokens},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", r.baseURL, r.model, r.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return "", fmt.Errorf("gemini call: %w", domain.ErrAdapterTimeout)
		}
		return "", fmt.Errorf("gemini call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", fmt.Errorf("gemini HTTP %d: %w", resp.StatusCode, domain.ErrAdapterAuth)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("gemini HTTP %d: %s", resp.StatusCode, truncate(data, 500))
	}

	var result generateResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("parse response: %w", domain.ErrAdapterMalformed)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty candidates: %w", domain.ErrAdapterMalformed)
	}

	var text string
	for _, p := range result.Candidates[0].Content.Parts {
		text += p.Text
	}
	return text, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
