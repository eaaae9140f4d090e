package service

import (
	"context"
	"log/slog"

	"github.com/Strob0t/ReviewForge/internal/domain/prompt"
	"github.com/Strob0t/ReviewForge/internal/domain/review"
	"github.com/Strob0t/ReviewForge/internal/port/reviewer"
)

// needsDebate reports whether first-round verdicts disagree enough to be
// worth an extra round: any HIGH+ verdict, or a spread of two or more
// severity levels between succeeded reviewers.
func needsDebate(verdicts []review.Verdict) bool {
	minRank, maxRank := -1, -1
	for i := range verdicts {
		v := &verdicts[i]
		if !v.Succeeded || v.SelfReview {
			continue
		}
		r := v.Severity.Rank()
		if minRank == -1 || r < minRank {
			minRank = r
		}
		if r > maxRank {
			maxRank = r
		}
	}
	if maxRank == -1 {
		return false
	}
	return maxRank >= review.SeverityHigh.Rank() || maxRank-minRank >= 2
}

// debateRound runs one revision round: every reviewer that succeeded in the
// first round sees its peers' verdicts and may revise. A reviewer that fails
// the second call keeps its first-round verdict — a debate can refine an
// opinion, never erase one.
func debateRound(ctx context.Context, reviewers []reviewer.Reviewer, req review.Request, first []review.Verdict) []review.Verdict {
	byID := make(map[string]reviewer.Reviewer, len(reviewers))
	for _, r := range reviewers {
		byID[r.ID()] = r
	}

	revised := make([]review.Verdict, len(first))
	copy(revised, first)

	debateReq := req
	debateReq.Artifact = req.Artifact + "\n\n" + prompt.Debate(first)

	for i := range first {
		v := &first[i]
		if !v.Succeeded || v.SelfReview {
			continue
		}
		r, ok := byID[v.ReviewerID]
		if !ok || !r.IsAvailable() {
			continue
		}

		second := r.Review(ctx, debateReq)
		if second.Succeeded {
			revised[i] = second
			continue
		}
		slog.Debug("debate revision failed, keeping first-round verdict",
			"reviewer", v.ReviewerID, "error", second.Err)
	}
	return revised
}

// debateConsensus checks whether revised verdicts agree within one level; if
// so the higher severity wins outright and the policy is bypassed.
func debateConsensus(verdicts []review.Verdict) (review.Severity, bool) {
	minRank, maxRank := -1, -1
	var top review.Severity
	for i := range verdicts {
		v := &verdicts[i]
		if !v.Succeeded || v.SelfReview {
			continue
		}
		r := v.Severity.Rank()
		if minRank == -1 || r < minRank {
			minRank = r
		}
		if r > maxRank {
			maxRank = r
			top = v.Severity
		}
	}
	if maxRank == -1 {
		return "", false
	}
	if maxRank-minRank <= 1 {
		return top, true
	}
	return "", false
}
