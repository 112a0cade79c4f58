// Package review implements the Review & Revision State Machine (§4.5):
// the QA -> team-lead approval chain, auto-reject override, the 3-strike
// rejection cap, and the persona-upgrade latent hook.
package review

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/forgelane/conductor/internal/cascade"
	"github.com/forgelane/conductor/internal/domain"
	"github.com/forgelane/conductor/internal/llmclient"
	"github.com/forgelane/conductor/internal/store"
)

// revisionCap is the hard limit of rejections per step before it fails
// (I5, GLOSSARY "Revision cap").
const revisionCap = 3

// upskillThreshold is the persona-upgrade trigger: kept for safety though
// naturally unreachable under the 3-strike cap (§4.5 step 7, §9 Open
// Questions).
const upskillThreshold = 5

// MirrorNotifier is the subset of the mirror collaborator the review
// processor fires-and-forgets into: posting rejection feedback as a
// comment, and syncing the issue to Canceled on cap reached.
type MirrorNotifier interface {
	PostComment(ctx context.Context, missionID, stepID, comment string)
	SetCanceled(ctx context.Context, missionID string)
}

// Config tunes the review processor's polling behavior.
type Config struct {
	TickInterval time.Duration
}

// Processor is process P2's lower-priority loop: one pending approval per
// tick.
type Processor struct {
	Store   store.Store
	LLM     llmclient.Client
	Cascade *cascade.Cascade
	Mirror  MirrorNotifier
	Config  Config
}

// Run drives the review processor loop until ctx is canceled.
func (p *Processor) Run(ctx context.Context) {
	interval := p.Config.TickInterval
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
			p.tick(ctx)
		}
	}
}

// tick picks one pending approval and processes it (§4.5: "A separate
// review processor ... picks one pending approval per tick").
func (p *Processor) tick(ctx context.Context) {
	pending, err := p.Store.ListPendingApprovals(ctx, 1)
	if err != nil {
		slog.Error("review: list pending approvals failed", "error", err)
		return
	}
	if len(pending) == 0 {
		return
	}
	if err := p.process(ctx, pending[0]); err != nil {
		slog.Error("review: process approval failed", "approval_id", pending[0].ID, "error", err)
	}
}

func (p *Processor) process(ctx context.Context, approval domain.Approval) error {
	step, err := p.Store.GetStep(ctx, approval.StepID)
	if err != nil {
		return fmt.Errorf("review: get step %s: %w", approval.StepID, err)
	}
	mission, err := p.Store.GetMission(ctx, step.MissionID)
	if err != nil {
		return fmt.Errorf("review: get mission %s: %w", step.MissionID, err)
	}

	tier := llmclient.TierCheap
	if approval.ReviewType == domain.ReviewTeamLead {
		tier = llmclient.TierMedium
	}

	prompt := buildReviewPrompt(mission, step, approval.ReviewType)
	persona := p.personaAddendum(ctx, approval.ReviewerAgent)

	res, err := p.LLM.Call(ctx, tier, llmclient.CallInput{
		SystemPrompt: persona,
		UserMessage:  prompt,
		AgentID:      approval.ReviewerAgent,
		StepID:       step.ID,
	})
	if err != nil {
		return fmt.Errorf("review: LLM call failed: %w", err)
	}

	verdict := parseVerdict(res.Content)
	if res.Err != nil {
		slog.Warn("review: model returned error, defaulting to approve (fail-open)", "error", res.Err)
		verdict.Approved = true
	}

	approval.Feedback = verdict.Feedback
	approval.AutoRejected = verdict.AutoRejected

	if verdict.Approved {
		return p.onApprove(ctx, approval, step, mission)
	}
	return p.onReject(ctx, approval, step, mission, verdict)
}

func (p *Processor) personaAddendum(ctx context.Context, agentID string) string {
	if agentID == "" {
		return ""
	}
	persona, err := p.Store.CurrentPersona(ctx, agentID)
	if err != nil {
		return ""
	}
	return persona.SystemPromptAddendum
}

// emitLesson records the rejection feedback as a lesson memory tagged to
// the assignee (§4.5 step 7), so later plans touching the same agent can
// retrieve it as an approach hint. Best-effort.
func (p *Processor) emitLesson(ctx context.Context, step domain.Step, feedback string) {
	if feedback == "" {
		return
	}
	tags := []string{"review-lesson"}
	if step.AssignedAgent != "" {
		tags = append(tags, step.AssignedAgent)
	}
	if err := p.Store.SaveApproachMemory(ctx, domain.ApproachMemoryEntry{
		ID:          uuid.NewString(),
		Tags:        tags,
		PlanSummary: fmt.Sprintf("rejected %q: %s", step.Description, feedback),
	}); err != nil {
		slog.Warn("review: save lesson memory failed", "step_id", step.ID, "error", err)
	}
}

// onApprove implements §4.5 step 8: a QA approval enqueues a team-lead
// approval; a team-lead approval completes the step and runs the
// completion cascade.
func (p *Processor) onApprove(ctx context.Context, approval domain.Approval, step domain.Step, mission domain.Mission) error {
	approval.Status = domain.ApprovalApproved
	if err := p.Store.UpdateApproval(ctx, approval); err != nil {
		return fmt.Errorf("review: update approval %s: %w", approval.ID, err)
	}

	if approval.ReviewType == domain.ReviewQA {
		lead, err := p.Store.FindReviewer(ctx, domain.ReviewTeamLead, step.AssignedAgent)
		if err != nil {
			return fmt.Errorf("review: no eligible team-lead reviewer: %w", err)
		}
		_, err = p.Store.CreateApproval(ctx, domain.Approval{
			ID: uuid.NewString(), StepID: step.ID, ReviewerAgent: lead.ID,
			ReviewType: domain.ReviewTeamLead, Status: domain.ApprovalPending,
		})
		if err != nil {
			return fmt.Errorf("review: enqueue team-lead approval: %w", err)
		}
		return nil
	}

	if err := p.Store.UpdateStepStatus(ctx, step.ID, domain.StepCompleted); err != nil {
		return fmt.Errorf("review: complete step %s: %w", step.ID, err)
	}
	if err := p.Store.RecordEvent(ctx, domain.Event{
		ID: uuid.NewString(), Kind: domain.EventTaskCompleted, MissionID: mission.ID, StepID: step.ID,
	}); err != nil {
		slog.Warn("review: record task_completed event failed", "error", err)
	}
	if p.Cascade != nil {
		if err := p.Cascade.CheckMissionCompletion(ctx, mission.ID); err != nil {
			return fmt.Errorf("review: mission completion check: %w", err)
		}
	}
	return nil
}

// onReject implements §4.5 step 7: counts total rejections (including this
// one), and either puts the step back to pending with an emitted lesson
// memory, or fails it at the 3-strike cap. The 5-rejection persona-upgrade
// hook is checked unconditionally even though unreachable once the cap
// fails the step at 3 (§9).
func (p *Processor) onReject(ctx context.Context, approval domain.Approval, step domain.Step, mission domain.Mission, v parsedVerdict) error {
	approval.Status = domain.ApprovalRejected
	if err := p.Store.UpdateApproval(ctx, approval); err != nil {
		return fmt.Errorf("review: update approval %s: %w", approval.ID, err)
	}

	priorRejections, err := p.Store.CountRejections(ctx, step.ID)
	if err != nil {
		return fmt.Errorf("review: count rejections for %s: %w", step.ID, err)
	}
	total := priorRejections // CountRejections already includes this row, since UpdateApproval persisted status=rejected above

	if total >= upskillThreshold {
		p.upskillAgent(ctx, step.AssignedAgent, step.ID)
	}

	if total < revisionCap {
		if err := p.Store.UpdateStepStatus(ctx, step.ID, domain.StepPending); err != nil {
			return fmt.Errorf("review: return step %s to pending: %w", step.ID, err)
		}
		if err := p.Store.UpdateStepArtifact(ctx, step.ID, step.ResultArtifact, step.RevisionCount+1); err != nil {
			slog.Warn("review: bump revision count failed", "error", err)
		}
		p.emitLesson(ctx, step, v.Feedback)
		if p.Mirror != nil {
			go p.Mirror.PostComment(context.WithoutCancel(ctx), mission.ID, step.ID, v.Feedback)
		}
		return nil
	}

	if err := p.Store.UpdateStepStatus(ctx, step.ID, domain.StepFailed); err != nil {
		return fmt.Errorf("review: fail step %s: %w", step.ID, err)
	}
	if err := p.Store.RecordEvent(ctx, domain.Event{
		ID: uuid.NewString(), Kind: domain.EventRevisionCapReached, MissionID: mission.ID, StepID: step.ID,
		Payload: map[string]any{"reason": "revision cap reached"},
	}); err != nil {
		slog.Warn("review: record revision_cap_reached event failed", "error", err)
	}
	if p.Mirror != nil {
		go p.Mirror.SetCanceled(context.WithoutCancel(ctx), mission.ID)
	}
	if p.Cascade != nil {
		if err := p.Cascade.FailBlockedSteps(ctx, mission.ID, step.StepOrder); err != nil {
			slog.Error("review: failure cascade failed", "error", err)
		}
		if err := p.Cascade.CheckMissionCompletion(ctx, mission.ID); err != nil {
			slog.Error("review: mission completion check failed", "error", err)
		}
	}
	return nil
}
