package pipeline

import (
	"context"
	"fmt"

	"github.com/forgelane/conductor/internal/capability"
	"github.com/forgelane/conductor/internal/domain"
	"github.com/forgelane/conductor/internal/llmclient"
)

// substantiveThreshold is the minimum content length for a fetched page to
// count as a substantive source (GLOSSARY).
const substantiveThreshold = 500

// Source is one structured research result: {url, title, charCount}.
type Source struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	CharCount int    `json:"charCount"`
}

type researchOutput struct {
	Sources  []Source
	Snapshot snapshot
}

type gapAnalysis struct {
	Gaps              []string `json:"gaps"`
	AdditionalQueries []string `json:"additionalQueries"`
	Sufficient        bool     `json:"sufficient"`
}

type refinement struct {
	RefinedQueries []string `json:"refinedQueries"`
}

// runResearch is Phase R (§4.4): URLs named in the task description are
// pre-fetched first (cap 3); round 1 then executes the decompose-supplied
// queries (capped at 6), fetching up to 3 URLs per query (capped at 16
// total), truncated at ~8000 chars; at most one refinement round if fewer
// than 3 substantive sources were found; then up to MaxResearchIterations
// gap-analysis rounds. The caller's budget tracker spans the whole
// execution, so post-hoc tag resolution draws from the same pool (I4).
func (p *Pipeline) runResearch(ctx context.Context, step StepView, decomposed decomposeOutput, bt *budgetTracker, startOrder int) (researchOutput, []domain.PipelinePhaseRecord) {
	budgets := p.Capability.Budgets()

	var sources []Source
	order := startOrder
	var records []domain.PipelinePhaseRecord

	queries := decomposed.SearchQueries
	if len(queries) > budgets.MaxQueriesPerStep {
		queries = queries[:budgets.MaxQueriesPerStep]
	}

	var durationMS int64
	durationMS = timed(func() {
		sources = append(sources, p.prefetchDescriptionURLs(ctx, step.Description, bt, budgets)...)
		sources = append(sources, p.researchRound(ctx, queries, bt, budgets)...)
	})
	records = append(records, domain.PipelinePhaseRecord{
		StepID: step.ID, PhaseName: domain.PhaseResearch, PhaseOrder: order, DurationMS: durationMS,
		Metadata: map[string]any{"round": "initial", "sources": sources, "budget": bt.snapshot()},
	})
	order++

	if countSubstantive(sources) < 3 {
		var refined []string
		durationMS = timed(func() {
			res, err := p.LLM.Call(ctx, llmclient.TierCheap, llmclient.CallInput{
				SystemPrompt: "Too few substantive sources were found. Propose refined search queries. Respond with strict JSON: {\"refinedQueries\": [...]}.",
				UserMessage:  step.Description,
				AgentID:      step.AssignedAgent,
			})
			if err != nil || res.Err != nil {
				return
			}
			var r refinement
			if llmclient.ParseJSON(res.Content, &r) == nil {
				refined = r.RefinedQueries
			}
		})
		newSources := p.researchRound(ctx, refined, bt, budgets)
		sources = append(sources, newSources...)
		records = append(records, domain.PipelinePhaseRecord{
			StepID: step.ID, PhaseName: domain.PhaseResearch, PhaseOrder: order, DurationMS: durationMS,
			ModelTier: llmTierToDomain(llmclient.TierCheap),
			Metadata:  map[string]any{"round": "refinement", "sources": newSources, "budget": bt.snapshot()},
		})
		order++
	}

	for i := 0; i < budgets.MaxResearchIterations; i++ {
		var analysis gapAnalysis
		durationMS = timed(func() {
			res, err := p.LLM.Call(ctx, llmclient.TierCheap, llmclient.CallInput{
				SystemPrompt: "Assess whether the research gathered so far is sufficient to complete the task. Respond with strict JSON: {\"gaps\": [...], \"additionalQueries\": [...], \"sufficient\": bool}.",
				UserMessage:  fmt.Sprintf("Task: %s\nSources gathered: %d\n", step.Description, len(sources)),
				AgentID:      step.AssignedAgent,
			})
			if err != nil || res.Err != nil {
				analysis.Sufficient = true
				return
			}
			if llmclient.ParseJSON(res.Content, &analysis) != nil {
				analysis.Sufficient = true
			}
		})
		records = append(records, domain.PipelinePhaseRecord{
			StepID: step.ID, PhaseName: domain.PhaseResearch, PhaseOrder: order, DurationMS: durationMS,
			ModelTier: llmTierToDomain(llmclient.TierCheap),
			Metadata:  map[string]any{"round": fmt.Sprintf("gap-analysis-%d", i+1), "gaps": analysis.Gaps, "budget": bt.snapshot()},
		})
		order++

		if analysis.Sufficient || bt.queriesRemaining() == 0 {
			break
		}
		sources = append(sources, p.researchRound(ctx, analysis.AdditionalQueries, bt, budgets)...)
	}

	return researchOutput{Sources: sources, Snapshot: bt.snapshot()}, records
}

// researchRound executes each query against the web collaborator (while
// budget allows), fetching up to MaxURLsPerQuery URLs per query and
// truncating each page at MaxCharsPerPage. No LLM call is involved in the
// fetching itself (§4.4).
func (p *Pipeline) researchRound(ctx context.Context, queries []string, bt *budgetTracker, budgets capability.Budgets) []Source {
	if p.Web == nil {
		return nil
	}
	var out []Source
	for _, q := range queries {
		if !bt.useQuery() {
			break
		}
		results, err := p.Web.SearchWeb(ctx, q, budgets.MaxURLsPerQuery)
		if err != nil {
			continue
		}
		for _, r := range results {
			if !bt.useFetch() {
				break
			}
			page, err := p.Web.FetchPage(ctx, r.URL, budgets.MaxCharsPerPage)
			if err != nil {
				continue
			}
			out = append(out, Source{URL: page.URL, Title: page.Title, CharCount: len(page.Content)})
		}
	}
	return out
}

func countSubstantive(sources []Source) int {
	n := 0
	for _, s := range sources {
		if s.CharCount >= substantiveThreshold {
			n++
		}
	}
	return n
}
