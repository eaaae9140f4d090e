package reviewer_test

import (
	"context"
	"testing"

	"github.com/Strob0t/ReviewForge/internal/domain/review"
	"github.com/Strob0t/ReviewForge/internal/port/reviewer"
)

type testReviewer struct {
	id string
}

func (r *testReviewer) ID() string        { return r.id }
func (r *testReviewer) IsAvailable() bool { return true }
func (r *testReviewer) Review(_ context.Context, _ review.Request) review.Verdict {
	return review.Verdict{ReviewerID: r.id, Severity: review.SeverityOK, Succeeded: true}
}

func TestRegisterAndNew(t *testing.T) {
	reviewer.Register("test-kind", func(id string, _ map[string]string) (reviewer.Reviewer, error) {
		return &testReviewer{id: id}, nil
	})

	r, err := reviewer.New("test-kind", "primary", nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.ID() != "primary" {
		t.Fatalf("expected primary, got %s", r.ID())
	}
}

func TestNewUnknownKind(t *testing.T) {
	_, err := reviewer.New("nonexistent", "x", nil)
	if err == nil {
		t.Fatal("expected error for unknown backend kind")
	}
}

func TestKinds(t *testing.T) {
	found := false
	for _, k := range reviewer.Kinds() {
		if k == "test-kind" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected test-kind in registered kinds")
	}
}
