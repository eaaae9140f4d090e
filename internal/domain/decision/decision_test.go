package decision_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/Strob0t/ReviewForge/internal/domain"
	"github.com/Strob0t/ReviewForge/internal/domain/decision"
	"github.com/Strob0t/ReviewForge/internal/domain/review"
)

func verdict(id string, sev review.Severity) review.Verdict {
	return review.Verdict{ReviewerID: id, Severity: sev, Succeeded: true}
}

func failed(id string) review.Verdict {
	return review.Verdict{ReviewerID: id, Severity: review.SeverityOK, Succeeded: false, Err: "timeout"}
}

func TestResolveConservative_TakesMax(t *testing.T) {
	verdicts := []review.Verdict{
		verdict("gemini", review.SeverityLow),
		verdict("copilot", review.SeverityHigh),
		verdict("self", review.SeverityOK),
	}
	res, err := decision.Resolve(review.StageCode, verdicts, decision.Policy{Name: decision.PolicyConservative})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FinalSeverity != review.SeverityHigh {
		t.Errorf("expected high, got %q", res.FinalSeverity)
	}
	if !res.ShouldRework {
		t.Error("high severity must demand rework")
	}
}

func TestResolveConservative_Monotonic(t *testing.T) {
	sets := [][]review.Verdict{
		{verdict("a", review.SeverityOK)},
		{verdict("a", review.SeverityLow), verdict("b", review.SeverityMedium)},
		{verdict("a", review.SeverityCritical), verdict("b", review.SeverityOK), failed("c")},
		{verdict("a", review.SeverityMedium), verdict("b", review.SeverityMedium), verdict("c", review.SeverityHigh)},
	}
	for _, verdicts := range sets {
		res, err := decision.Resolve(review.StageCode, verdicts, decision.Policy{Name: decision.PolicyConservative})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, v := range verdicts {
			if v.Succeeded && !res.FinalSeverity.AtLeast(v.Severity) {
				t.Errorf("final %q below contributing %q", res.FinalSeverity, v.Severity)
			}
		}
	}
}

func TestResolve_Idempotent(t *testing.T) {
	verdicts := []review.Verdict{
		verdict("gemini", review.SeverityMedium),
		failed("copilot"),
		verdict("self", review.SeverityHigh),
	}
	p := decision.Policy{Name: decision.PolicyWeightedVote, Weights: map[string]float64{"gemini": 2.0}}
	first, err1 := decision.Resolve(review.StageTest, verdicts, p)
	second, err2 := decision.Resolve(review.StageTest, verdicts, p)
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v %v", err1, err2)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("resolution not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestResolveMajority_MostFrequentWins(t *testing.T) {
	verdicts := []review.Verdict{
		verdict("a", review.SeverityLow),
		verdict("b", review.SeverityLow),
		verdict("c", review.SeverityCritical),
	}
	res, err := decision.Resolve(review.StageCode, verdicts, decision.Policy{Name: decision.PolicyMajorityVote})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FinalSeverity != review.SeverityLow {
		t.Errorf("expected low, got %q", res.FinalSeverity)
	}
	if res.ShouldRework {
		t.Error("low severity must not demand rework")
	}
}

func TestResolveMajority_TieBreaksHigher(t *testing.T) {
	verdicts := []review.Verdict{
		verdict("a", review.SeverityMedium),
		verdict("b", review.SeverityHigh),
	}
	res, err := decision.Resolve(review.StageCode, verdicts, decision.Policy{Name: decision.PolicyMajorityVote})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FinalSeverity != review.SeverityHigh {
		t.Errorf("tie should break to high, got %q", res.FinalSeverity)
	}
}

func TestResolveMajority_SingleVerdict(t *testing.T) {
	res, err := decision.Resolve(review.StagePlan,
		[]review.Verdict{verdict("only", review.SeverityMedium), failed("down")},
		decision.Policy{Name: decision.PolicyMajorityVote})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FinalSeverity != review.SeverityMedium {
		t.Errorf("majority of one should be that verdict, got %q", res.FinalSeverity)
	}
}

func TestResolveWeighted_EndToEnd(t *testing.T) {
	verdicts := []review.Verdict{
		verdict("gemini", review.SeverityMedium),
		verdict("copilot", review.SeverityCritical),
	}

	res, err := decision.Resolve(review.StageCode, verdicts, decision.Policy{Name: decision.PolicyConservative})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FinalSeverity != review.SeverityCritical || !res.ShouldRework {
		t.Errorf("conservative: expected critical+rework, got %q rework=%t", res.FinalSeverity, res.ShouldRework)
	}

	res, err = decision.Resolve(review.StageCode, verdicts, decision.Policy{
		Name:    decision.PolicyWeightedVote,
		Weights: map[string]float64{"gemini": 1.0, "copilot": 1.2},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FinalSeverity != review.SeverityCritical {
		t.Errorf("weighted 1.0/1.2: expected critical, got %q", res.FinalSeverity)
	}

	res, err = decision.Resolve(review.StageCode, verdicts, decision.Policy{
		Name:    decision.PolicyWeightedVote,
		Weights: map[string]float64{"gemini": 2.0, "copilot": 1.0},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FinalSeverity != review.SeverityMedium {
		t.Errorf("weighted 2.0/1.0: expected medium, got %q", res.FinalSeverity)
	}
	if res.ShouldRework {
		t.Error("medium severity must not demand rework")
	}
}

func TestResolveWeighted_DefaultWeightIsOne(t *testing.T) {
	verdicts := []review.Verdict{
		verdict("a", review.SeverityLow),
		verdict("b", review.SeverityLow),
		verdict("unweighted", review.SeverityHigh),
	}
	res, err := decision.Resolve(review.StageCode, verdicts, decision.Policy{
		Name:    decision.PolicyWeightedVote,
		Weights: map[string]float64{"a": 0.5, "b": 0.5},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FinalSeverity != review.SeverityHigh {
		t.Errorf("expected high (score 1.0 beats tied 1.0 low by rank), got %q", res.FinalSeverity)
	}
}

func TestResolve_AllFailedDegradesToFallback(t *testing.T) {
	verdicts := []review.Verdict{failed("gemini"), failed("copilot")}
	res, err := decision.Resolve(review.StageCode, verdicts, decision.Policy{Name: decision.PolicyConservative})
	if !errors.Is(err, domain.ErrAllAdaptersFailed) {
		t.Fatalf("expected ErrAllAdaptersFailed, got: %v", err)
	}
	if res.FinalSeverity != decision.DefaultFallback {
		t.Errorf("expected fallback %q, got %q", decision.DefaultFallback, res.FinalSeverity)
	}
	if res.ShouldRework {
		t.Error("all-failed must not demand rework")
	}
	if len(res.Verdicts) != 2 {
		t.Errorf("failed verdicts must stay in the decision for audit, got %d", len(res.Verdicts))
	}
}

func TestResolve_AllFailedCustomFallback(t *testing.T) {
	res, err := decision.Resolve(review.StageCode,
		[]review.Verdict{failed("a")},
		decision.Policy{Name: decision.PolicyConservative, Fallback: review.SeverityHigh})
	if !errors.Is(err, domain.ErrAllAdaptersFailed) {
		t.Fatalf("expected ErrAllAdaptersFailed, got: %v", err)
	}
	if res.FinalSeverity != review.SeverityHigh {
		t.Errorf("expected configured fallback high, got %q", res.FinalSeverity)
	}
	if res.ShouldRework {
		t.Error("all-failed never demands rework, even at high fallback")
	}
}

func TestResolve_FallbackNeverOK(t *testing.T) {
	res, err := decision.Resolve(review.StageCode,
		[]review.Verdict{failed("a")},
		decision.Policy{Name: decision.PolicyConservative, Fallback: review.SeverityOK})
	if !errors.Is(err, domain.ErrAllAdaptersFailed) {
		t.Fatalf("expected ErrAllAdaptersFailed, got: %v", err)
	}
	if res.FinalSeverity != decision.DefaultFallback {
		t.Errorf("ok fallback must be rejected in favor of %q, got %q", decision.DefaultFallback, res.FinalSeverity)
	}
}

func TestResolve_UnknownPolicyFallsBackToConservative(t *testing.T) {
	verdicts := []review.Verdict{
		verdict("a", review.SeverityLow),
		verdict("b", review.SeverityCritical),
	}
	res, err := decision.Resolve(review.StageCode, verdicts, decision.Policy{Name: "optimistic"})
	if !errors.Is(err, domain.ErrPolicyMisconfigured) {
		t.Fatalf("expected ErrPolicyMisconfigured, got: %v", err)
	}
	if res.PolicyUsed != decision.PolicyConservative {
		t.Errorf("expected conservative fallback, got %q", res.PolicyUsed)
	}
	if res.FinalSeverity != review.SeverityCritical {
		t.Errorf("expected conservative max critical, got %q", res.FinalSeverity)
	}
}

func TestResolve_FailedVerdictsExcludedFromAggregation(t *testing.T) {
	verdicts := []review.Verdict{
		verdict("a", review.SeverityLow),
		{ReviewerID: "b", Severity: review.SeverityCritical, Succeeded: false, Err: "auth"},
	}
	res, err := decision.Resolve(review.StageCode, verdicts, decision.Policy{Name: decision.PolicyConservative})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FinalSeverity != review.SeverityLow {
		t.Errorf("failed verdict severity must not aggregate, got %q", res.FinalSeverity)
	}
}

func TestResolve_VerdictOrderPreserved(t *testing.T) {
	verdicts := []review.Verdict{
		verdict("first", review.SeverityOK),
		failed("second"),
		verdict("third", review.SeverityLow),
	}
	res, err := decision.Resolve(review.StageCode, verdicts, decision.Policy{Name: decision.PolicyConservative})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, want := range []string{"first", "second", "third"} {
		if res.Verdicts[i].ReviewerID != want {
			t.Errorf("verdict %d: expected %q, got %q", i, want, res.Verdicts[i].ReviewerID)
		}
	}
}
