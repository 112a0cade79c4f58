package decomposition

import (
	"context"
	"fmt"
	"strings"

	"github.com/forgelane/conductor/internal/domain"
	"github.com/forgelane/conductor/internal/llmclient"
)

const plannerSchemaInstruction = `Respond with strict JSON matching this shape, and nothing else:
{
  "tasks": [{"id": "T1", "description": "...", "role": "...", "parallelGroup": 1, "dependsOn": [], "acceptanceCriteria": "..."}],
  "endState": "production_docs" | "working_prototype" | "hybrid",
  "escalationNeeded": false,
  "escalationReason": "",
  "hiringNeeded": [{"role": "...", "reason": "..."}]
}`

// callPlanner performs the medium-tier planning call with directive,
// roster, manifest, approach hints, and the strict JSON schema instruction
// (§4.2 step 3).
func (e *Engine) callPlanner(ctx context.Context, in Input, rosterBlock string, hints []domain.ApproachMemoryEntry, feedback string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "DIRECTIVE:\n%s\n\n", in.Directive)
	fmt.Fprintf(&b, "ROSTER:\n%s\n", rosterBlock)
	fmt.Fprintf(&b, "%s\n\n", e.Capability.BuildManifest())
	if len(hints) > 0 {
		b.WriteString("SIMILAR PAST APPROACHES (most successful first):\n")
		for _, h := range hints {
			fmt.Fprintf(&b, "- (score %.1f) %s\n", h.CritiqueScore, h.PlanSummary)
		}
		b.WriteString("\n")
	}
	if feedback != "" {
		b.WriteString(feedback)
		b.WriteString("\n")
	}
	b.WriteString(plannerSchemaInstruction)

	res, err := e.LLM.Call(ctx, llmclient.TierMedium, llmclient.CallInput{
		SystemPrompt: "You are the planning agent for a multi-agent engineering organization. Decompose the directive into a dependency-annotated task DAG.",
		UserMessage:  b.String(),
		AgentID:      in.PlannerAgentID,
	})
	if err != nil {
		return "", err
	}
	if res.Err != nil {
		return "", res.Err
	}
	return res.Content, nil
}
