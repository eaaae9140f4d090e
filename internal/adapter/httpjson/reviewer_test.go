package httpjson_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Strob0t/ReviewForge/internal/adapter/httpjson"
	"github.com/Strob0t/ReviewForge/internal/domain/review"
)

func chatBody(text string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": text}},
		},
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := httpjson.New("proxy", nil); err == nil {
		t.Fatal("expected error without base_url")
	}
}

func TestReviewParsesChoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer proxy-key" {
			t.Fatalf("unexpected auth: %q", auth)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatBody(`{"severity": "critical", "summary": "sql injection in query builder"}`))
	}))
	defer srv.Close()

	r, err := httpjson.New("proxy", map[string]string{"base_url": srv.URL, "api_key": "proxy-key"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	v := r.Review(context.Background(), review.Request{
		SessionID: "sess-1",
		Stage:     review.StageCode,
		Artifact:  "SELECT * FROM users WHERE id = " + "input",
		Timestamp: time.Now(),
	})
	if !v.Succeeded {
		t.Fatalf("expected success, got error %q", v.Err)
	}
	if v.Severity != review.SeverityCritical {
		t.Fatalf("expected critical, got %s", v.Severity)
	}
}

func TestReviewServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r, err := httpjson.New("proxy", map[string]string{"base_url": srv.URL})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	v := r.Review(context.Background(), review.Request{SessionID: "s", Stage: review.StageCode})
	if v.Succeeded {
		t.Fatal("expected failed verdict on 503")
	}
	if v.Err == "" {
		t.Fatal("failed verdict must carry an error")
	}
}

func TestReviewMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json at all"))
	}))
	defer srv.Close()

	r, err := httpjson.New("proxy", map[string]string{"base_url": srv.URL})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	v := r.Review(context.Background(), review.Request{SessionID: "s", Stage: review.StageCode})
	if v.Succeeded {
		t.Fatal("expected failed verdict on malformed body")
	}
}
