// Package prompt provides the per-stage review prompt templates. Rendering
// is a simple id lookup plus concatenation; anything fancier belongs to the
// reviewer backends themselves.
package prompt

import (
	"strings"

	"github.com/Strob0t/ReviewForge/internal/domain/review"
)

// defaults maps prompt ids to their built-in instruction text. The id for a
// stage defaults to the stage name; hosts may pass a custom prompt_id that
// was registered via Register.
var defaults = map[string]string{
	"plan":  "You are a senior developer. Review the work plan below for unnecessary work (YAGNI), missing steps, and potential problems.",
	"code":  "You are a senior code reviewer. Review the code change below for bugs, security vulnerabilities, and quality problems.",
	"test":  "You are a QA specialist. Analyze the test output below for failures, missing cases, and flaky patterns.",
	"final": "You are a senior architect. Review the completed work below as a whole and judge its final quality.",
}

const responseContract = `Respond with a JSON object: {"severity": "ok|low|medium|high|critical", "summary": "...", "issues": [{"description": "...", "severity": "...", "location": "...", "suggestion": "..."}]}.`

// Lookup returns the instruction text for a prompt id, falling back to the
// code-stage prompt for unknown ids.
func Lookup(id string) string {
	if p, ok := defaults[id]; ok {
		return p
	}
	return defaults[string(review.StageCode)]
}

// Register installs or replaces the instruction text for a prompt id.
// Call during startup only; Lookup does not lock.
func Register(id, text string) {
	defaults[id] = text
}

// Build renders the full prompt for one review request: stage instructions,
// the response contract, the user's intent when known, and the artifact.
func Build(req review.Request) string {
	id := req.PromptID
	if id == "" {
		id = string(req.Stage)
	}

	var sb strings.Builder
	sb.WriteString(Lookup(id))
	sb.WriteString("\n\n")
	sb.WriteString(responseContract)
	if req.Intent != "" {
		sb.WriteString("\n\nUser intent:\n")
		sb.WriteString(req.Intent)
	}
	sb.WriteString("\n\nArtifact under review:\n")
	sb.WriteString(req.Artifact)
	return sb.String()
}

// Debate renders the extra-round addendum appended to the artifact: every
// peer's first-round position plus a request to reconsider. The stage
// instructions are not repeated; Build adds them when the revised request is
// dispatched.
func Debate(peers []review.Verdict) string {
	var sb strings.Builder
	sb.WriteString("Other reviewers judged the same artifact:\n")
	for _, v := range peers {
		if !v.Succeeded {
			continue
		}
		sb.WriteString("- ")
		sb.WriteString(v.ReviewerID)
		sb.WriteString(" rated it ")
		sb.WriteString(string(v.Severity))
		if v.Explanation != "" {
			sb.WriteString(": ")
			sb.WriteString(firstLine(v.Explanation))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\nReconsider your verdict in light of these opinions. Keep your rating only if you still believe it is right.")
	return sb.String()
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
