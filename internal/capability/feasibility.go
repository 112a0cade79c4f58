package capability

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/forgelane/conductor/internal/llmclient"
)

// FeasibilityIssue names one task whose acceptance criteria look
// unachievable within the manifest's budgets.
type FeasibilityIssue struct {
	TaskID string `json:"taskId"`
	Reason string `json:"reason"`
}

// FeasibilityResult is the outcome of validateFeasibility (§4.1).
type FeasibilityResult struct {
	Feasible bool               `json:"feasible"`
	Issues   []FeasibilityIssue `json:"issues"`
}

// PlanTaskView is the minimal shape ValidateFeasibility needs from a plan
// task, decoupling this package from internal/domain.
type PlanTaskView struct {
	ID                 string
	Description        string
	Role               string
	AcceptanceCriteria string
}

type feasibilityResponse struct {
	Feasible bool               `json:"feasible"`
	Issues   []FeasibilityIssue `json:"issues"`
}

// ValidateFeasibility asks a cheap-tier LLM to score each task's
// achievability against the manifest. It is fail-open: any call or parse
// error yields {feasible: true, issues: []} rather than blocking the
// decomposition (§4.1).
func (r *Registry) ValidateFeasibility(ctx context.Context, llm llmclient.Client, plannerAgentID string, tasks []PlanTaskView) FeasibilityResult {
	open := FeasibilityResult{Feasible: true}

	var b []byte
	b = append(b, []byte(r.BuildManifest())...)
	b = append(b, '\n')
	for _, t := range tasks {
		b = append(b, []byte(fmt.Sprintf("Task %s (%s): %s\nAcceptance: %s\n\n", t.ID, t.Role, t.Description, t.AcceptanceCriteria))...)
	}

	res, err := llm.Call(ctx, llmclient.TierCheap, llmclient.CallInput{
		SystemPrompt: "You validate whether each task is achievable within the stated budgets. Respond with strict JSON: {\"feasible\": bool, \"issues\": [{\"taskId\": string, \"reason\": string}]}.",
		UserMessage:  string(b),
		AgentID:      plannerAgentID,
	})
	if err != nil {
		slog.Warn("feasibility call failed, failing open", "error", err)
		return open
	}
	if res.Err != nil {
		slog.Warn("feasibility call returned model error, failing open", "error", res.Err)
		return open
	}

	var parsed feasibilityResponse
	if err := llmclient.ParseJSON(res.Content, &parsed); err != nil {
		slog.Warn("feasibility response unparseable, failing open", "error", err)
		return open
	}
	return FeasibilityResult{Feasible: parsed.Feasible, Issues: parsed.Issues}
}
