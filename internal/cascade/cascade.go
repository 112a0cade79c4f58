// Package cascade implements the completion/failure cascade (§4.3 cascade,
// §7): mission completion checks, the failure cascade to blocked steps, and
// project phase advancement when a mission is linked to a project.
package cascade

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/forgelane/conductor/internal/domain"
	"github.com/forgelane/conductor/internal/events"
	"github.com/forgelane/conductor/internal/store"
)

// Cascade bundles the store and event bus the completion/failure logic
// needs. It has no LLM or network dependency.
type Cascade struct {
	Store store.Store
	Bus   *events.Bus
}

func (c *Cascade) emit(ctx context.Context, kind domain.EventKind, missionID, projectID, stepID string, payload map[string]any) {
	e := domain.Event{
		ID: uuid.NewString(), Kind: kind, MissionID: missionID, ProjectID: projectID, StepID: stepID, Payload: payload,
	}
	if err := c.Store.RecordEvent(ctx, e); err != nil {
		slog.Warn("cascade: record event failed", "kind", kind, "error", err)
	}
	if c.Bus != nil {
		c.Bus.Publish(e)
	}
}

// StepFailed records and announces the task_failed event for a step that
// could not produce a reviewable artifact (§7).
func (c *Cascade) StepFailed(ctx context.Context, missionID, stepID string) {
	c.emit(ctx, domain.EventTaskFailed, missionID, "", stepID, nil)
}

// FailBlockedSteps implements the failure cascade (§4.3): when step
// failedOrder fails, every pending step in the mission with a strictly
// greater step_order is failed too, preventing zombie rows from clogging
// the scheduler. Parallel steps at the same order are left untouched.
func (c *Cascade) FailBlockedSteps(ctx context.Context, missionID string, failedOrder int) error {
	n, err := c.Store.FailBlockedSteps(ctx, missionID, failedOrder)
	if err != nil {
		return fmt.Errorf("cascade: fail blocked steps for mission %s: %w", missionID, err)
	}
	if n > 0 {
		slog.Info("cascade: failed blocked steps", "mission_id", missionID, "count", n, "failed_order", failedOrder)
	}
	return nil
}

// CheckMissionCompletion runs after each step finalize (§4.3): if every
// step in the mission is terminal and at least one completed, the mission
// is marked completed; if every step is failed/canceled, the mission is
// marked failed. Both are idempotent — a second call on an already-terminal
// mission is a no-op (§8 "Idempotence: completeMission").
func (c *Cascade) CheckMissionCompletion(ctx context.Context, missionID string) error {
	mission, err := c.Store.GetMission(ctx, missionID)
	if err != nil {
		return fmt.Errorf("cascade: get mission %s: %w", missionID, err)
	}
	if mission.Status != domain.MissionInProgress {
		return nil // already terminal; idempotent no-op
	}

	steps, err := c.Store.ListMissionSteps(ctx, missionID)
	if err != nil {
		return fmt.Errorf("cascade: list steps for mission %s: %w", missionID, err)
	}
	if len(steps) == 0 {
		return nil
	}

	anyCompleted := false
	allTerminal := true
	allFailedOrCanceled := true
	for _, s := range steps {
		if !s.Status.IsTerminal() {
			allTerminal = false
		}
		if s.Status == domain.StepCompleted {
			anyCompleted = true
		}
		if s.Status != domain.StepFailed && s.Status != domain.StepCanceled {
			allFailedOrCanceled = false
		}
	}
	if !allTerminal {
		return nil
	}

	if anyCompleted {
		if err := c.Store.UpdateMissionStatus(ctx, missionID, domain.MissionCompleted); err != nil {
			return fmt.Errorf("cascade: complete mission %s: %w", missionID, err)
		}
		c.emit(ctx, domain.EventMissionCompleted, missionID, mission.ProjectID, "", nil)
		return c.advanceProjectIfLinked(ctx, mission.ProjectID)
	}
	if allFailedOrCanceled {
		if err := c.Store.UpdateMissionStatus(ctx, missionID, domain.MissionFailed); err != nil {
			return fmt.Errorf("cascade: fail mission %s: %w", missionID, err)
		}
		c.emit(ctx, domain.EventMissionFailed, missionID, mission.ProjectID, "", nil)
	}
	return nil
}

// CancelMission transitions a mission to canceled and cancels every
// non-terminal step (§5 "Cancellation"). In-flight pipeline executions
// observe the canceled mission at their next phase boundary and abandon
// the step themselves. A second call on an already-terminal mission is a
// no-op.
func (c *Cascade) CancelMission(ctx context.Context, missionID string) error {
	mission, err := c.Store.GetMission(ctx, missionID)
	if err != nil {
		return fmt.Errorf("cascade: get mission %s: %w", missionID, err)
	}
	if mission.Status != domain.MissionInProgress {
		return nil
	}
	if err := c.Store.UpdateMissionStatus(ctx, missionID, domain.MissionCanceled); err != nil {
		return fmt.Errorf("cascade: cancel mission %s: %w", missionID, err)
	}

	steps, err := c.Store.ListMissionSteps(ctx, missionID)
	if err != nil {
		return fmt.Errorf("cascade: list steps for mission %s: %w", missionID, err)
	}
	for _, s := range steps {
		if s.Status.IsTerminal() {
			continue
		}
		if err := c.Store.UpdateStepStatus(ctx, s.ID, domain.StepCanceled); err != nil {
			slog.Warn("cascade: cancel step failed", "step_id", s.ID, "error", err)
		}
	}
	return nil
}

// nextPhase is the single forward step a mission completion advances a
// linked project by, matching the monotonic lifecycle of §3.
var nextPhase = map[domain.ProjectPhase]domain.ProjectPhase{
	domain.PhaseDiscovery:    domain.PhaseRequirements,
	domain.PhaseRequirements: domain.PhaseDesign,
	domain.PhaseDesign:       domain.PhaseBuild,
	domain.PhaseBuild:        domain.PhaseTest,
	domain.PhaseTest:         domain.PhaseDeploy,
	domain.PhaseDeploy:       domain.PhaseCompleted,
}

// advanceProjectIfLinked advances a linked project's phase by one step
// when a mission completes. No-op if the mission has no project, or the
// project's phase has no further successor (already completed).
func (c *Cascade) advanceProjectIfLinked(ctx context.Context, projectID string) error {
	if projectID == "" {
		return nil
	}
	project, err := c.Store.GetProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("cascade: get project %s: %w", projectID, err)
	}
	next, ok := nextPhase[project.Phase]
	if !ok {
		return nil
	}
	advanced, kind, err := domain.AdvancePhase(project, next)
	if err != nil {
		return fmt.Errorf("cascade: advance project %s: %w", projectID, err)
	}
	if err := c.Store.UpdateProject(ctx, advanced); err != nil {
		return fmt.Errorf("cascade: persist project %s: %w", projectID, err)
	}
	c.emit(ctx, kind, "", projectID, "", map[string]any{"phase": string(advanced.Phase)})
	return nil
}
