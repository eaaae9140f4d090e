package service

import (
	"fmt"
	"strings"

	"github.com/Strob0t/ReviewForge/internal/domain/decision"
	"github.com/Strob0t/ReviewForge/internal/domain/event"
	"github.com/Strob0t/ReviewForge/internal/domain/review"
)

// buildExplanation renders the human-readable system message for one
// decision: a header with the final severity, each reviewer's feedback, and
// the retry or exhaustion note.
func buildExplanation(res *decision.Resolved, out Outcome) string {
	tag := fmt.Sprintf("[review-%s]", res.Stage)

	if res.FinalSeverity == review.SeverityOK {
		var sb strings.Builder
		sb.WriteString(tag)
		sb.WriteString(" review passed")
		appendSelfReviews(&sb, res.Verdicts)
		return sb.String()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s severity issues found:", tag, res.FinalSeverity)

	for i := range res.Verdicts {
		v := &res.Verdicts[i]
		if !v.Succeeded || v.SelfReview {
			continue
		}
		fmt.Fprintf(&sb, "\n\n### %s (%s)", v.ReviewerID, v.Severity)
		if len(v.Issues) > 0 {
			for _, issue := range v.Issues {
				fmt.Fprintf(&sb, "\n- [%s] %s", issue.Severity, issue.Description)
				if issue.Location != "" {
					fmt.Fprintf(&sb, " (%s)", issue.Location)
				}
				if issue.Suggestion != "" {
					fmt.Fprintf(&sb, "\n  suggestion: %s", issue.Suggestion)
				}
			}
		} else if v.Explanation != "" {
			sb.WriteString("\n")
			sb.WriteString(strings.TrimSpace(v.Explanation))
		}
	}

	appendSelfReviews(&sb, res.Verdicts)

	switch out.Action {
	case event.ActionRetrying:
		fmt.Fprintf(&sb, "\n\nPlease address the issues above. (retry %d/%d, wait at least %s)",
			out.RetryCount, out.MaxRetries, out.Backoff)
		if out.RetryTarget != res.Stage {
			fmt.Fprintf(&sb, " Rework the %s stage.", out.RetryTarget)
		}
	case event.ActionExhaustedWarn:
		fmt.Fprintf(&sb, "\n\nRetry budget of %d exceeded; proceeding under warning. The issues above remain unresolved.",
			out.MaxRetries)
	}

	return sb.String()
}

// appendSelfReviews adds self-review checklists after the external feedback.
func appendSelfReviews(sb *strings.Builder, verdicts []review.Verdict) {
	for i := range verdicts {
		v := &verdicts[i]
		if v.Succeeded && v.SelfReview && v.Explanation != "" {
			sb.WriteString("\n\n")
			sb.WriteString(strings.TrimSpace(v.Explanation))
		}
	}
}

// buildFailureNote explains an all-reviewers-failed degradation.
func buildFailureNote(res *decision.Resolved) string {
	var failed []string
	for i := range res.Verdicts {
		if !res.Verdicts[i].Succeeded {
			failed = append(failed, res.Verdicts[i].ReviewerID)
		}
	}
	return fmt.Sprintf("[review-%s] all reviewers failed (%s); severity degraded to %s, proceeding",
		res.Stage, strings.Join(failed, ", "), res.FinalSeverity)
}
