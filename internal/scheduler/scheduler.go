// Package scheduler implements the DAG scheduler and worker (§4.3, P3): a
// fixed-tick polling loop that claims dependency-satisfied steps atomically
// and executes them sequentially within one tick (§5 "bounded per-tick
// resource use").
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/forgelane/conductor/internal/cascade"
	"github.com/forgelane/conductor/internal/domain"
	"github.com/forgelane/conductor/internal/pipeline"
	"github.com/forgelane/conductor/internal/store"
)

// Config tunes the scheduler's polling behavior.
type Config struct {
	TickInterval   time.Duration
	CandidateLimit int
}

// Scheduler is process P3: it polls, claims, and executes steps.
type Scheduler struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
	Cascade  *cascade.Cascade
	Config   Config
}

// Run drives the scheduler loop until ctx is canceled, ticking at the
// configured interval (default 10s, §4.3). Each tick is independent; the
// loop never blocks waiting for a prior tick's work beyond its own scope.
func (s *Scheduler) Run(ctx context.Context) {
	interval := s.Config.TickInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick is one polling cycle (§4.3 steps 1-5): list candidates, filter to
// eligible ones, claim atomically, execute claimed steps sequentially.
func (s *Scheduler) tick(ctx context.Context) {
	limit := s.Config.CandidateLimit
	if limit <= 0 {
		limit = 50
	}

	candidates, err := s.Store.ListPendingCandidates(ctx, limit)
	if err != nil {
		slog.Error("scheduler: list pending candidates failed", "error", err)
		return
	}

	for _, step := range candidates {
		if ctx.Err() != nil {
			return
		}

		ok, err := eligible(ctx, s.Store, step)
		if err != nil {
			slog.Error("scheduler: eligibility check failed", "step_id", step.ID, "error", err)
			continue
		}
		if !ok {
			continue
		}

		claimed, err := s.Store.ClaimStep(ctx, step.ID)
		if err != nil {
			slog.Error("scheduler: claim failed", "step_id", step.ID, "error", err)
			continue
		}
		if !claimed {
			continue // another worker won the race (I8)
		}

		s.executeOne(ctx, step)
	}
}

// executeOne runs the pipeline for one claimed step and finalizes its
// status (§4.3 step 5). Steps execute sequentially within a tick; the
// scheduler never fans this out in parallel (§5).
func (s *Scheduler) executeOne(ctx context.Context, step domain.Step) {
	view := s.buildStepView(ctx, step)

	result, err := s.Pipeline.Execute(ctx, view)
	if err != nil {
		if errors.Is(err, pipeline.ErrCanceled) {
			s.abandonCanceled(ctx, step)
			return
		}
		slog.Error("scheduler: pipeline execution failed", "step_id", step.ID, "error", err)
		s.finalizeFailed(ctx, step)
		return
	}
	if view.CancelRequested != nil && view.CancelRequested(ctx) {
		// Mission canceled after the last phase boundary; still abandon.
		s.abandonCanceled(ctx, step)
		return
	}

	if err := s.Store.UpdateStepArtifact(ctx, step.ID, result.Artifact, step.RevisionCount); err != nil {
		slog.Error("scheduler: update artifact failed", "step_id", step.ID, "error", err)
	}
	if err := s.Store.UpdateStepStatus(ctx, step.ID, domain.StepInReview); err != nil {
		slog.Error("scheduler: update status to in_review failed", "step_id", step.ID, "error", err)
		return
	}
	for _, rec := range result.Phases {
		if err := s.Store.CreatePhaseRecord(ctx, rec); err != nil {
			slog.Warn("scheduler: persist phase record failed", "step_id", step.ID, "error", err)
		}
	}

	s.enqueueQA(ctx, step)
}

// abandonCanceled finalizes a step whose mission was canceled mid-flight:
// no artifact, no approval (§5 "Cancellation").
func (s *Scheduler) abandonCanceled(ctx context.Context, step domain.Step) {
	slog.Info("scheduler: step abandoned, mission canceled", "step_id", step.ID, "mission_id", step.MissionID)
	if err := s.Store.UpdateStepStatus(ctx, step.ID, domain.StepCanceled); err != nil {
		slog.Error("scheduler: mark step canceled failed", "step_id", step.ID, "error", err)
	}
}

func (s *Scheduler) finalizeFailed(ctx context.Context, step domain.Step) {
	if err := s.Store.UpdateStepStatus(ctx, step.ID, domain.StepFailed); err != nil {
		slog.Error("scheduler: mark step failed failed", "step_id", step.ID, "error", err)
		return
	}
	s.Cascade.StepFailed(ctx, step.MissionID, step.ID)
	if err := s.Cascade.FailBlockedSteps(ctx, step.MissionID, step.StepOrder); err != nil {
		slog.Error("scheduler: failure cascade failed", "mission_id", step.MissionID, "error", err)
	}
	if err := s.Cascade.CheckMissionCompletion(ctx, step.MissionID); err != nil {
		slog.Error("scheduler: mission completion check failed", "mission_id", step.MissionID, "error", err)
	}
}

// enqueueQA creates the QA approval row that follows a successful step
// execution (§4.3 step 5, §4.5). The reviewer is picked now, respecting
// eligibility (team_id set, not the assignee) since the schema requires a
// reviewer at row-creation time.
func (s *Scheduler) enqueueQA(ctx context.Context, step domain.Step) {
	reviewer, err := s.Store.FindReviewer(ctx, domain.ReviewQA, step.AssignedAgent)
	if err != nil {
		slog.Error("scheduler: no eligible QA reviewer found", "step_id", step.ID, "error", err)
		return
	}
	_, err = s.Store.CreateApproval(ctx, domain.Approval{
		ID:            uuid.NewString(),
		StepID:        step.ID,
		ReviewerAgent: reviewer.ID,
		ReviewType:    domain.ReviewQA,
		Status:        domain.ApprovalPending,
	})
	if err != nil {
		slog.Error("scheduler: create QA approval failed", "step_id", step.ID, "error", err)
	}
}

// buildStepView loads persona/tier context for a claimed step into the
// pipeline-facing view.
func (s *Scheduler) buildStepView(ctx context.Context, step domain.Step) pipeline.StepView {
	view := pipeline.StepView{
		ID:                 step.ID,
		AssignedAgent:      step.AssignedAgent,
		ModelTier:          step.ModelTier,
		Description:        step.Description,
		AcceptanceCriteria: step.AcceptanceCrit,
		SkipPipeline:       step.SkipPipeline,
		SkipResearch:       step.SkipResearch,
		CancelRequested: func(ctx context.Context) bool {
			mission, err := s.Store.GetMission(ctx, step.MissionID)
			return err == nil && mission.Status == domain.MissionCanceled
		},
	}
	if step.AssignedAgent != "" {
		if persona, err := s.Store.CurrentPersona(ctx, step.AssignedAgent); err == nil {
			view.PersonaAddendum = persona.SystemPromptAddendum
		}
	}
	return view
}
