package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/forgelane/conductor/internal/domain"
	"github.com/forgelane/conductor/internal/llmclient"
)

const antiHallucinationInstruction = "Use ONLY these sources; never fabricate; if data is unavailable, say so."

// runSynthesize is Phase S (§4.4): produces the candidate artifact from the
// step's effective model tier, grounded in the structured source list and
// the remaining research budget.
func (p *Pipeline) runSynthesize(ctx context.Context, step StepView, research researchOutput, order int) (string, domain.PipelinePhaseRecord) {
	tier := llmclient.Tier(step.ModelTier)
	if tier == "" {
		tier = llmclient.TierMedium
	}

	var b strings.Builder
	fmt.Fprintf(&b, "TASK\n%s\n\n", step.Description)
	if step.AcceptanceCriteria != "" {
		fmt.Fprintf(&b, "ACCEPTANCE CRITERIA\n%s\n\n", step.AcceptanceCriteria)
	}
	b.WriteString("AVAILABLE SOURCES\n")
	if len(research.Sources) == 0 {
		b.WriteString("(none gathered)\n")
	}
	for _, s := range research.Sources {
		fmt.Fprintf(&b, "- %s (%s, %d chars)\n", s.URL, s.Title, s.CharCount)
	}
	fmt.Fprintf(&b, "\n%s\n\n", antiHallucinationInstruction)
	fmt.Fprintf(&b, "REMAINING BUDGET\nqueries remaining: %d, fetches remaining: %d\n",
		research.Snapshot.QueriesRemaining, research.Snapshot.FetchesRemaining)

	var content string
	var durationMS int64
	durationMS = timed(func() {
		res, err := p.LLM.Call(ctx, tier, llmclient.CallInput{
			SystemPrompt: step.PersonaAddendum,
			UserMessage:  b.String(),
			AgentID:      step.AssignedAgent,
			StepID:       step.ID,
		})
		if err != nil || res.Err != nil {
			content = ""
			return
		}
		content = res.Content
	})

	return content, domain.PipelinePhaseRecord{
		StepID:     step.ID,
		PhaseName:  domain.PhaseSynthesize,
		PhaseOrder: order,
		ModelTier:  llmTierToDomain(tier),
		DurationMS: durationMS,
		Metadata: map[string]any{
			"sourceCount": len(research.Sources),
			"budget":      research.Snapshot,
		},
	}
}
