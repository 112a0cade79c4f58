package pipeline

import (
	"context"

	"github.com/forgelane/conductor/internal/domain"
	"github.com/forgelane/conductor/internal/llmclient"
)

type decomposeOutput struct {
	SubQuestions    []string `json:"subQuestions"`
	SearchQueries   []string `json:"searchQueries"`
	KeyRequirements []string `json:"keyRequirements"`
}

// runDecompose is Phase D (§4.4): a cheap-tier call producing sub-questions,
// search queries, and key requirements. On parse failure it proceeds with
// an empty structure rather than failing the step.
func (p *Pipeline) runDecompose(ctx context.Context, step StepView, order int) (decomposeOutput, domain.PipelinePhaseRecord) {
	var out decomposeOutput
	var durationMS int64
	durationMS = timed(func() {
		res, err := p.LLM.Call(ctx, llmclient.TierCheap, llmclient.CallInput{
			SystemPrompt: "Decompose this task into sub-questions, up to 6 search queries, and key requirements. Respond with strict JSON: {\"subQuestions\": [...], \"searchQueries\": [...], \"keyRequirements\": [...]}.",
			UserMessage:  step.Description,
			AgentID:      step.AssignedAgent,
		})
		if err != nil || res.Err != nil {
			return
		}
		_ = llmclient.ParseJSON(res.Content, &out)
	})

	return out, domain.PipelinePhaseRecord{
		StepID:     step.ID,
		PhaseName:  domain.PhaseDecompose,
		PhaseOrder: order,
		ModelTier:  llmTierToDomain(llmclient.TierCheap),
		DurationMS: durationMS,
		Metadata: map[string]any{
			"subQuestions":  out.SubQuestions,
			"searchQueries": out.SearchQueries,
		},
	}
}
