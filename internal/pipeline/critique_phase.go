package pipeline

import (
	"context"
	"fmt"

	"github.com/forgelane/conductor/internal/domain"
	"github.com/forgelane/conductor/internal/llmclient"
)

// defaultCritiqueScore is the moderate score applied when the critique
// response is malformed (§4.4, §7): no revision is triggered by a default.
const defaultCritiqueScore = 3.0

// revisionAverageThreshold and revisionDimensionThreshold gate the
// "Revision trigger" rule (§4.4): revise if ANY dimension is below 3.0,
// or the average falls between 3.0 (exclusive) and 3.5. A uniform 3.0
// across every dimension is a good score and triggers no revision.
const (
	revisionDimensionThreshold = 3.0
	revisionAverageThreshold   = 3.5
)

type critiqueResult struct {
	Completeness  float64 `json:"completeness"`
	Accuracy      float64 `json:"accuracy"`
	Actionability float64 `json:"actionability"`
	Depth         float64 `json:"depth"`
	Lesson        string  `json:"lesson"`
	malformed     bool
}

// average is the overall critique score (§4.4 "Outputs").
func (c critiqueResult) average() float64 {
	return (c.Completeness + c.Accuracy + c.Actionability + c.Depth) / 4
}

func needsRevision(c critiqueResult) bool {
	if c.malformed {
		return false
	}
	dims := []float64{c.Completeness, c.Accuracy, c.Actionability, c.Depth}
	for _, d := range dims {
		if d < revisionDimensionThreshold {
			return true
		}
	}
	// With every dimension at or above 3.0, an average of exactly 3.0
	// means a uniform "good" score; only averages strictly between 3.0
	// and 3.5 indicate an uneven artifact worth revising.
	avg := c.average()
	return avg > revisionDimensionThreshold && avg < revisionAverageThreshold
}

// rawCritiqueResponse accepts the legacy dataBacked field as an alias for
// accuracy (§4.4).
type rawCritiqueResponse struct {
	Completeness  float64  `json:"completeness"`
	Accuracy      *float64 `json:"accuracy"`
	DataBacked    *float64 `json:"dataBacked"`
	Actionability float64  `json:"actionability"`
	Depth         float64  `json:"depth"`
	Lesson        string   `json:"lesson"`
}

const critiqueSystemPrompt = `Score this artifact on four dimensions, each 1-5:
- completeness: does it fully address the task and acceptance criteria?
- accuracy: is it factually sound and properly sourced?
- actionability: can the reader act on this directly?
- depth: 1 = generic, could be from any AI. 5 = groundbreaking insight, publishable quality.

3.0 is GOOD. 4.0 is EXCELLENT. 5.0 is rare. Average output should score 2.5-3.0. Be BRUTALLY HONEST.

Respond with strict JSON: {"completeness": n, "accuracy": n, "actionability": n, "depth": n, "lesson": "one sentence"}.`

// runCritique is Phase C (§4.4): a cheap-tier rubric call across four
// dimensions. citationScore, if > 0, is injected as upstream context for
// the accuracy dimension. On malformed JSON, defaults to a moderate 3.0
// overall with no revision triggered.
func (p *Pipeline) runCritique(ctx context.Context, step StepView, artifact string, citationScore float64, order int) (critiqueResult, domain.PipelinePhaseRecord) {
	user := fmt.Sprintf("TASK\n%s\n\nARTIFACT\n%s\n", step.Description, artifact)
	if citationScore > 0 {
		user += fmt.Sprintf("\nUPSTREAM CITATION SCORE (for accuracy context): %.2f\n", citationScore)
	}

	result := critiqueResult{
		Completeness: defaultCritiqueScore, Accuracy: defaultCritiqueScore,
		Actionability: defaultCritiqueScore, Depth: defaultCritiqueScore,
	}

	var durationMS int64
	durationMS = timed(func() {
		res, err := p.LLM.Call(ctx, llmclient.TierCheap, llmclient.CallInput{
			SystemPrompt: critiqueSystemPrompt,
			UserMessage:  user,
			AgentID:      step.AssignedAgent,
			StepID:       step.ID,
		})
		if err != nil || res.Err != nil {
			result.malformed = true
			return
		}
		var raw rawCritiqueResponse
		if err := llmclient.ParseJSON(res.Content, &raw); err != nil {
			result.malformed = true
			return
		}
		accuracy := raw.DataBacked
		if raw.Accuracy != nil {
			accuracy = raw.Accuracy
		}
		if accuracy == nil {
			result.malformed = true
			return
		}
		result = critiqueResult{
			Completeness:  raw.Completeness,
			Accuracy:      *accuracy,
			Actionability: raw.Actionability,
			Depth:         raw.Depth,
			Lesson:        raw.Lesson,
		}
	})

	return result, domain.PipelinePhaseRecord{
		StepID:     step.ID,
		PhaseName:  domain.PhaseCritique,
		PhaseOrder: order,
		Score:      result.average(),
		DurationMS: durationMS,
		Metadata: map[string]any{
			"completeness":  result.Completeness,
			"accuracy":      result.Accuracy,
			"actionability": result.Actionability,
			"depth":         result.Depth,
			"citationScore": citationScore,
			"malformed":     result.malformed,
		},
	}
}
