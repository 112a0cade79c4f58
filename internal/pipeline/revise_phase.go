package pipeline

import (
	"context"
	"fmt"

	"github.com/forgelane/conductor/internal/domain"
	"github.com/forgelane/conductor/internal/llmclient"
)

// runRevise attempts one revision pass against the critique's lesson and
// low dimensions. If the call fails, the prior artifact is kept and ok is
// false (§4.4 "If revise itself fails, keep the prior artifact").
func (p *Pipeline) runRevise(ctx context.Context, step StepView, artifact string, critique critiqueResult, order int) (string, domain.PipelinePhaseRecord, bool) {
	tier := llmclient.Tier(step.ModelTier)
	if tier == "" {
		tier = llmclient.TierMedium
	}

	user := fmt.Sprintf(
		"TASK\n%s\n\nPRIOR ARTIFACT\n%s\n\nCRITIQUE FEEDBACK\n%s\n\nScores: completeness=%.1f accuracy=%.1f actionability=%.1f depth=%.1f\n\nRevise the artifact to address the feedback and raise the lowest-scoring dimensions.",
		step.Description, artifact, critique.Lesson,
		critique.Completeness, critique.Accuracy, critique.Actionability, critique.Depth,
	)

	var revised string
	var ok bool
	var durationMS int64
	durationMS = timed(func() {
		res, err := p.LLM.Call(ctx, tier, llmclient.CallInput{
			SystemPrompt: step.PersonaAddendum,
			UserMessage:  user,
			AgentID:      step.AssignedAgent,
			StepID:       step.ID,
		})
		if err != nil || res.Err != nil || res.Content == "" {
			revised = artifact
			ok = false
			return
		}
		revised = res.Content
		ok = true
	})

	return revised, domain.PipelinePhaseRecord{
		StepID:     step.ID,
		PhaseName:  domain.PhaseRevise,
		PhaseOrder: order,
		ModelTier:  llmTierToDomain(tier),
		DurationMS: durationMS,
		Metadata:   map[string]any{"applied": ok},
	}, ok
}
