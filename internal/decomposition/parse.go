package decomposition

import (
	"github.com/forgelane/conductor/internal/domain"
	"github.com/forgelane/conductor/internal/llmclient"
)

type plannerTask struct {
	ID                 string   `json:"id"`
	Description        string   `json:"description"`
	Role               string   `json:"role"`
	ParallelGroup      int      `json:"parallelGroup"`
	DependsOn          []string `json:"dependsOn"`
	AcceptanceCriteria string   `json:"acceptanceCriteria"`
}

type plannerHiring struct {
	Role   string `json:"role"`
	Reason string `json:"reason"`
}

type plannerResponse struct {
	Tasks            []plannerTask   `json:"tasks"`
	EndState         string          `json:"endState"`
	EscalationNeeded bool            `json:"escalationNeeded"`
	EscalationReason string          `json:"escalationReason"`
	HiringNeeded     []plannerHiring `json:"hiringNeeded"`
}

// parsePlanOrFallback parses a planner response into a DecompositionPlan.
// On parse failure it falls back to a single-task plan whose description is
// the directive verbatim, and never returns an error (§4.2 step 4, §9).
func parsePlanOrFallback(missionID, directive, raw string) (domain.DecompositionPlan, bool) {
	var parsed plannerResponse
	if err := llmclient.ParseJSON(raw, &parsed); err != nil || len(parsed.Tasks) == 0 && !parsed.EscalationNeeded {
		return fallbackPlan(missionID, directive), true
	}

	plan := domain.DecompositionPlan{
		MissionID:        missionID,
		EndState:         domain.EndStateTag(parsed.EndState),
		EscalationNeeded: parsed.EscalationNeeded,
		EscalationReason: parsed.EscalationReason,
		Status:           domain.PlanActive,
	}
	for _, t := range parsed.Tasks {
		plan.Tasks = append(plan.Tasks, domain.PlanTask{
			ID:                 t.ID,
			Description:        t.Description,
			Role:               t.Role,
			ParallelGroup:      t.ParallelGroup,
			DependsOn:          t.DependsOn,
			AcceptanceCriteria: t.AcceptanceCriteria,
		})
	}
	for _, h := range parsed.HiringNeeded {
		plan.HiringNeeded = append(plan.HiringNeeded, domain.HiringRequest{Role: h.Role, Reason: h.Reason})
	}
	if plan.EndState == "" {
		plan.EndState = domain.EndStateHybrid
	}
	return plan, false
}

func fallbackPlan(missionID, directive string) domain.DecompositionPlan {
	return domain.DecompositionPlan{
		MissionID: missionID,
		Tasks: []domain.PlanTask{{
			ID:            "T1",
			Description:   directive,
			Role:          "engineer",
			ParallelGroup: 1,
		}},
		EndState: domain.EndStateHybrid,
		Status:   domain.PlanActive,
	}
}
