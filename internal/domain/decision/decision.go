// Package decision implements conflict resolution across reviewer verdicts.
package decision

import (
	"errors"
	"fmt"
	"time"

	"github.com/Strob0t/ReviewForge/internal/domain"
	"github.com/Strob0t/ReviewForge/internal/domain/review"
)

// PolicyName identifies a conflict resolution policy.
type PolicyName string

const (
	PolicyConservative PolicyName = "conservative"
	PolicyMajorityVote PolicyName = "majority_vote"
	PolicyWeightedVote PolicyName = "weighted_vote"
)

// Valid reports whether p is a recognized policy name.
func (p PolicyName) Valid() bool {
	switch p {
	case PolicyConservative, PolicyMajorityVote, PolicyWeightedVote:
		return true
	}
	return false
}

// DefaultFallback is the severity used when every reviewer failed and no
// fallback is configured. It is deliberately not OK: a reviewer outage must
// not look like a clean pass.
const DefaultFallback = review.SeverityMedium

// Policy configures how verdicts combine into one severity.
type Policy struct {
	Name     PolicyName         `json:"name" yaml:"name"`
	Weights  map[string]float64 `json:"weights,omitempty" yaml:"weights,omitempty"`
	Fallback review.Severity    `json:"fallback" yaml:"fallback"`
}

// weightFor returns the configured weight for a reviewer, defaulting to 1.0.
func (p Policy) weightFor(reviewerID string) float64 {
	if w, ok := p.Weights[reviewerID]; ok {
		return w
	}
	return 1.0
}

// fallbackSeverity returns the configured fallback, guarding against an
// unset or invalid value.
func (p Policy) fallbackSeverity() review.Severity {
	if p.Fallback.Valid() && p.Fallback != review.SeverityOK {
		return p.Fallback
	}
	return DefaultFallback
}

// Resolved is the single decision derived from a set of verdicts. It holds
// every contributing verdict in dispatch order, including failed ones, so
// the decision is reproducible from its inputs.
type Resolved struct {
	Stage         review.Stage     `json:"stage"`
	FinalSeverity review.Severity  `json:"final_severity"`
	Verdicts      []review.Verdict `json:"verdicts"`
	PolicyUsed    PolicyName       `json:"policy_used"`
	ShouldRework  bool             `json:"should_rework"`
	Duration      time.Duration    `json:"duration_ns,omitempty"`
}

// Succeeded returns the verdicts that produced a usable review, in order.
func (r *Resolved) Succeeded() []review.Verdict {
	out := make([]review.Verdict, 0, len(r.Verdicts))
	for _, v := range r.Verdicts {
		if v.Succeeded {
			out = append(out, v)
		}
	}
	return out
}

// Resolve combines verdicts into one decision under the given policy.
//
// The returned error never invalidates the decision: ErrPolicyMisconfigured
// reports that an unknown policy name was corrected to conservative, and
// ErrAllAdaptersFailed reports that the severity degraded to the fallback.
// Callers log and audit these, then use the decision as-is.
func Resolve(stage review.Stage, verdicts []review.Verdict, p Policy) (Resolved, error) {
	res := Resolved{
		Stage:      stage,
		Verdicts:   verdicts,
		PolicyUsed: p.Name,
	}

	var errs []error
	if !p.Name.Valid() {
		errs = append(errs, fmt.Errorf("%w: %q", domain.ErrPolicyMisconfigured, p.Name))
		res.PolicyUsed = PolicyConservative
	}

	succeeded := res.Succeeded()
	if len(succeeded) == 0 {
		res.FinalSeverity = p.fallbackSeverity()
		res.ShouldRework = false
		errs = append(errs, domain.ErrAllAdaptersFailed)
		return res, errors.Join(errs...)
	}

	switch res.PolicyUsed {
	case PolicyMajorityVote:
		res.FinalSeverity = majorityVote(succeeded)
	case PolicyWeightedVote:
		res.FinalSeverity = weightedVote(succeeded, p)
	default:
		res.FinalSeverity = conservative(succeeded)
	}

	res.ShouldRework = res.FinalSeverity.AtLeast(review.SeverityHigh)
	return res, errors.Join(errs...)
}

// conservative takes the maximum severity across succeeded verdicts.
func conservative(verdicts []review.Verdict) review.Severity {
	final := review.SeverityOK
	for _, v := range verdicts {
		final = review.MaxSeverity(final, v.Severity)
	}
	return final
}

// majorityVote picks the most frequent severity; ties break to the higher
// severity among the tied set. A single verdict is a majority of one.
func majorityVote(verdicts []review.Verdict) review.Severity {
	counts := make(map[review.Severity]int, len(review.Severities))
	for _, v := range verdicts {
		counts[v.Severity]++
	}
	winner := review.SeverityOK
	best := 0
	for _, sev := range review.Severities {
		if c := counts[sev]; c > 0 && c >= best {
			winner = sev
			best = c
		}
	}
	return winner
}

// weightedVote sums each reviewer's weight into its severity's bucket and
// picks the bucket with the highest aggregate score; ties break to the
// higher severity like majorityVote.
func weightedVote(verdicts []review.Verdict, p Policy) review.Severity {
	scores := make(map[review.Severity]float64, len(review.Severities))
	for _, v := range verdicts {
		scores[v.Severity] += p.weightFor(v.ReviewerID)
	}
	winner := review.SeverityOK
	best := 0.0
	for _, sev := range review.Severities {
		if s := scores[sev]; s > 0 && s >= best {
			winner = sev
			best = s
		}
	}
	return winner
}
