package a2a

// Skill identifiers served by the task endpoint.
const (
	SkillReviewArtifact = "review-artifact"
	SkillSessionState   = "session-state"
)

// BuildAgentCard returns the static AgentCard for the review service.
func BuildAgentCard(baseURL string) AgentCard {
	return AgentCard{
		Name:        "ReviewForge",
		Description: "Multi-reviewer rework control for coding agent sessions",
		URL:         baseURL,
		Version:     "0.1.0",
		Skills: []Skill{
			{
				ID:          SkillReviewArtifact,
				Name:        "Review Artifact",
				Description: "Run a full review round over an artifact and return the proceed/rework decision",
				InputModes:  []string{"text"},
				OutputModes: []string{"text"},
			},
			{
				ID:          SkillSessionState,
				Name:        "Session State",
				Description: "Return the review state machine snapshot for a session",
				InputModes:  []string{"text"},
				OutputModes: []string{"text"},
			},
		},
		Capabilities: struct {
			Streaming bool `json:"streaming"`
		}{Streaming: false},
	}
}
