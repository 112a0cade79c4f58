// Package decomposition turns a free-text directive into a validated,
// materialized DAG of steps (§4.2): plan -> feasibility -> optional
// re-plan -> persist -> hire -> step materialization.
package decomposition

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/forgelane/conductor/internal/capability"
	"github.com/forgelane/conductor/internal/domain"
	"github.com/forgelane/conductor/internal/graph"
	"github.com/forgelane/conductor/internal/llmclient"
	"github.com/forgelane/conductor/internal/store"
)

// HiringCollaborator invokes external agent hiring for a role; it is out
// of scope for this core (§1) and reached through this narrow interface.
type HiringCollaborator interface {
	Hire(ctx context.Context, role, reason string) (agentID string, err error)
}

// MirrorNotifier is the subset of the mirror collaborator the engine
// fires-and-forgets into after a successful decomposition (§4.2 step 12).
type MirrorNotifier interface {
	SyncMission(ctx context.Context, missionID string)
}

// Input is the request to decompose a directive into steps.
type Input struct {
	ProjectID      string
	MissionID      string
	Directive      string
	PlannerAgentID string
}

// Engine orchestrates the full decomposition flow.
type Engine struct {
	Store      store.Store
	LLM        llmclient.Client
	Capability *capability.Registry
	Hiring     HiringCollaborator
	Mirror     MirrorNotifier
}

// maxValidationRounds bounds feasibility re-planning (§4.2 step 6): two
// total rounds, never looping forever.
const maxValidationRounds = 2

// Run executes the full decomposition flow for one directive.
func (e *Engine) Run(ctx context.Context, in Input) error {
	roster, err := e.Store.ListRoster(ctx)
	if err != nil {
		return fmt.Errorf("decomposition: list roster: %w", err)
	}
	rosterBlock := formatRoster(roster)

	tags := topicTags(in.Directive)
	hints, err := e.Store.TopApproachMemories(ctx, tags, 3)
	if err != nil {
		slog.Warn("approach memory lookup failed, proceeding without hints", "error", err)
	}

	plan, err := e.planWithRetries(ctx, in, rosterBlock, hints)
	if err != nil {
		return err
	}

	// The plan row is the audit record and is persisted unconditionally;
	// an escalation only skips step materialization (§4.2 steps 7-9).
	if err := e.Store.SupersedeActivePlans(ctx, in.MissionID); err != nil {
		return fmt.Errorf("decomposition: supersede prior plans: %w", err)
	}
	plan.ID = uuid.NewString()
	persisted, err := e.Store.CreatePlan(ctx, plan)
	if err != nil {
		return fmt.Errorf("decomposition: persist plan: %w", err)
	}

	if persisted.EscalationNeeded {
		typ := classifyEscalation(persisted.EscalationReason)
		if err := e.Store.CreateEscalation(ctx, domain.Escalation{
			ID:        uuid.NewString(),
			MissionID: in.MissionID,
			Type:      typ,
			Reason:    persisted.EscalationReason,
		}); err != nil {
			return fmt.Errorf("decomposition: create escalation: %w", err)
		}
		return nil
	}

	hired := false
	for _, h := range persisted.HiringNeeded {
		if e.Hiring == nil {
			slog.Warn("hiring requested but no hiring collaborator configured", "role", h.Role)
			continue
		}
		if _, err := e.Hiring.Hire(ctx, h.Role, h.Reason); err != nil {
			slog.Warn("hiring collaborator failed", "role", h.Role, "error", err)
		} else {
			hired = true
		}
	}
	if hired {
		// Hires happen before materialization so assignees exist (§4.2
		// step 8); the stale roster would miss them.
		if refreshed, err := e.Store.ListRoster(ctx); err == nil {
			roster = refreshed
		}
	}

	roleAgent, err := bestAgentPerRole(roster)
	if err != nil {
		return fmt.Errorf("decomposition: map roles to agents: %w", err)
	}

	if err := e.materializeSteps(ctx, in.MissionID, persisted, roleAgent); err != nil {
		return fmt.Errorf("decomposition: materialize steps: %w", err)
	}

	if e.Mirror != nil {
		go e.Mirror.SyncMission(context.WithoutCancel(ctx), in.MissionID)
	}
	if err := e.saveApproachMemory(ctx, tags, persisted); err != nil {
		slog.Warn("approach memory save failed", "error", err)
	}
	return nil
}

// planWithRetries runs the plan -> validate -> feasibility loop, re-planning
// once on infeasibility, and accepting the best plan after two rounds
// (§4.2 steps 3-6).
func (e *Engine) planWithRetries(ctx context.Context, in Input, rosterBlock string, hints []domain.ApproachMemoryEntry) (domain.DecompositionPlan, error) {
	var lastPlan domain.DecompositionPlan
	var feedback string

	for round := 1; round <= maxValidationRounds; round++ {
		raw, err := e.callPlanner(ctx, in, rosterBlock, hints, feedback)
		if err != nil {
			return domain.DecompositionPlan{}, fmt.Errorf("decomposition: planner call: %w", err)
		}

		plan, usedFallback := parsePlanOrFallback(in.MissionID, in.Directive, raw)
		lastPlan = plan

		if plan.EscalationNeeded {
			return plan, nil
		}

		if usedFallback {
			// Fallback plans skip feasibility and re-planning (§4.2 step 4).
			return plan, nil
		}

		if err := validateDAG(plan); err != nil {
			return domain.DecompositionPlan{}, fmt.Errorf("decomposition: %w", err)
		}

		views := toFeasibilityViews(plan.Tasks)
		result := e.Capability.ValidateFeasibility(ctx, e.LLM, in.PlannerAgentID, views)
		if result.Feasible {
			return plan, nil
		}
		feedback = formatIssues(result.Issues)
	}
	return lastPlan, nil
}

func formatRoster(roster []domain.Agent) string {
	var b strings.Builder
	for _, a := range roster {
		tag := ""
		if a.Role == "team_lead" {
			tag = "Lead"
		} else if a.Role == "qa" {
			tag = "QA"
		}
		fmt.Fprintf(&b, "%s (%s) [%s]\n", a.ID, a.Role, tag)
	}
	return b.String()
}

func formatIssues(issues []capability.FeasibilityIssue) string {
	var b strings.Builder
	b.WriteString("FEEDBACK FROM FEASIBILITY VALIDATION:\n")
	for _, i := range issues {
		fmt.Fprintf(&b, "- %s: %s\n", i.TaskID, i.Reason)
	}
	return b.String()
}

func toFeasibilityViews(tasks []domain.PlanTask) []capability.PlanTaskView {
	out := make([]capability.PlanTaskView, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, capability.PlanTaskView{
			ID: t.ID, Description: t.Description, Role: t.Role, AcceptanceCriteria: t.AcceptanceCriteria,
		})
	}
	return out
}

// bestAgentPerRole builds a role -> agent id map by querying the roster
// (§4.2 step 10); the first active agent for a role wins.
func bestAgentPerRole(roster []domain.Agent) (map[string]string, error) {
	out := make(map[string]string)
	for _, a := range roster {
		if _, ok := out[a.Role]; !ok {
			out[a.Role] = a.ID
		}
	}
	return out, nil
}

// skipResearchRoles names the roles whose steps run without the research
// phase: their work product is built, not sourced (§4.4 off-switches).
var skipResearchRoles = map[string]bool{
	"engineer": true,
	"creative": true,
	"designer": true,
}

// materializeSteps performs the two-pass step creation of §4.2 step 11:
// first every step with no edges, capturing taskId->stepId; then every
// step_dependency row translated through that map.
func (e *Engine) materializeSteps(ctx context.Context, missionID string, plan domain.DecompositionPlan, roleAgent map[string]string) error {
	taskToStep := make(map[string]string, len(plan.Tasks))
	steps := make([]domain.Step, 0, len(plan.Tasks))
	for _, t := range plan.Tasks {
		stepID := uuid.NewString()
		taskToStep[t.ID] = stepID
		steps = append(steps, domain.Step{
			ID:             stepID,
			MissionID:      missionID,
			AssignedAgent:  roleAgent[t.Role],
			ModelTier:      domain.TierMedium,
			StepOrder:      t.ParallelGroup,
			Status:         domain.StepPending,
			SkipResearch:   skipResearchRoles[t.Role],
			Description:    t.Description,
			Role:           t.Role,
			AcceptanceCrit: t.AcceptanceCriteria,
		})
	}
	if err := e.Store.CreateSteps(ctx, steps); err != nil {
		return err
	}

	var deps []domain.StepDependency
	for _, t := range plan.Tasks {
		for _, dep := range t.DependsOn {
			depStepID, ok := taskToStep[dep]
			if !ok {
				continue
			}
			deps = append(deps, domain.StepDependency{
				StepID:        taskToStep[t.ID],
				DependsOnStep: depStepID,
				Type:          domain.DependencyBlocks,
			})
		}
	}
	return e.Store.CreateStepDependencies(ctx, deps)
}

func (e *Engine) saveApproachMemory(ctx context.Context, tags []string, plan domain.DecompositionPlan) error {
	return e.Store.SaveApproachMemory(ctx, domain.ApproachMemoryEntry{
		ID:          uuid.NewString(),
		Tags:        tags,
		PlanSummary: summarizePlan(plan),
		CreatedAt:   time.Now(),
	})
}

func summarizePlan(plan domain.DecompositionPlan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d tasks, end state %s\n", len(plan.Tasks), plan.EndState)
	for _, t := range plan.Tasks {
		fmt.Fprintf(&b, "- %s (%s): %s\n", t.ID, t.Role, t.Description)
	}
	return b.String()
}

// topicTags derives coarse topic tags from a directive for approach-memory
// lookup: the lowercased significant words, capped at a handful.
func topicTags(directive string) []string {
	words := strings.Fields(strings.ToLower(directive))
	var tags []string
	for _, w := range words {
		w = strings.Trim(w, ".,!?;:\"'()")
		if len(w) < 4 {
			continue
		}
		tags = append(tags, w)
		if len(tags) >= 8 {
			break
		}
	}
	return tags
}

func validateDAG(plan domain.DecompositionPlan) error {
	nodes := make([]graph.Node, 0, len(plan.Tasks))
	for _, t := range plan.Tasks {
		nodes = append(nodes, graph.Node{ID: t.ID, DependsOn: t.DependsOn})
	}
	_, err := graph.New(nodes)
	return err
}
