// Package pipeline implements the per-step execution state machine
// (§4.4): decompose -> research -> synthesize -> critique -> revise, with
// citation validation and bounded research/revision budgets.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/forgelane/conductor/internal/capability"
	"github.com/forgelane/conductor/internal/domain"
	"github.com/forgelane/conductor/internal/llmclient"
	"github.com/forgelane/conductor/internal/webclient"
)

// maxReviseAttempts caps revision attempts per step (§4.4 "Revision
// trigger").
const maxReviseAttempts = 2

// ErrCanceled reports that the step's mission was canceled mid-execution.
// The step is abandoned: no artifact, no approval (§5 "Cancellation").
var ErrCanceled = errors.New("pipeline: execution canceled")

// Result is the pipeline's output for one step execution.
type Result struct {
	Artifact      string
	CritiqueScore float64
	Revised       bool
	Lesson        string
	Phases        []domain.PipelinePhaseRecord
}

// Pipeline executes the five-phase state machine for one step.
type Pipeline struct {
	LLM        llmclient.Client
	Web        webclient.Client
	Capability *capability.Registry
}

// StepView is the minimal shape Execute needs from a step, decoupling this
// package from the store/domain persistence concerns.
type StepView struct {
	ID                 string
	AssignedAgent      string
	ModelTier          domain.ModelTier
	Description        string
	AcceptanceCriteria string
	PersonaAddendum    string
	SkipPipeline       bool
	SkipResearch       bool

	// CancelRequested, when set, is probed at every phase boundary; a true
	// result abandons the execution with ErrCanceled (§5). The scheduler
	// wires this to the owning mission's status.
	CancelRequested func(ctx context.Context) bool
}

// canceled reports whether the execution should stop at this boundary,
// from either context cancellation or a canceled mission.
func canceled(ctx context.Context, step StepView) bool {
	if ctx.Err() != nil {
		return true
	}
	return step.CancelRequested != nil && step.CancelRequested(ctx)
}

// Execute runs the full phase sequence for a step, honoring skipPipeline
// (single LLM call) and skipResearch (no research phase) off-switches
// (§4.4). Every suspension point (LLM call, fetch) goes through ctx.
func (p *Pipeline) Execute(ctx context.Context, step StepView) (Result, error) {
	if canceled(ctx, step) {
		return Result{}, ErrCanceled
	}
	if step.SkipPipeline {
		return p.executeTrivial(ctx, step)
	}

	order := 0
	var phases []domain.PipelinePhaseRecord
	bt := newBudgetTracker(p.Capability.Budgets())

	decomposed, rec := p.runDecompose(ctx, step, order)
	phases = append(phases, rec)
	order++
	if canceled(ctx, step) {
		return Result{}, ErrCanceled
	}

	var research researchOutput
	if !step.SkipResearch {
		var recs []domain.PipelinePhaseRecord
		research, recs = p.runResearch(ctx, step, decomposed, bt, order)
		phases = append(phases, recs...)
		order += len(recs)
		if canceled(ctx, step) {
			return Result{}, ErrCanceled
		}
	}

	artifact, rec := p.runSynthesize(ctx, step, research, order)
	phases = append(phases, rec)
	order++
	if canceled(ctx, step) {
		return Result{}, ErrCanceled
	}
	artifact = p.resolveArtifactTags(ctx, artifact, bt)

	citationScore := validateCitations(artifact, research.Sources)

	critique, rec := p.runCritique(ctx, step, artifact, citationScore, order)
	phases = append(phases, rec)
	order++

	revised := false
	if needsRevision(critique) {
		for attempt := 0; attempt < maxReviseAttempts; attempt++ {
			if canceled(ctx, step) {
				return Result{}, ErrCanceled
			}
			revisedArtifact, rrec, ok := p.runRevise(ctx, step, artifact, critique, order)
			phases = append(phases, rrec)
			order++
			if !ok {
				break
			}
			artifact = p.resolveArtifactTags(ctx, revisedArtifact, bt)
			revised = true

			citationScore = validateCitations(artifact, research.Sources)
			newCritique, crec := p.runCritique(ctx, step, artifact, citationScore, order)
			phases = append(phases, crec)
			order++
			critique = newCritique
			if !needsRevision(critique) {
				break
			}
		}
	}

	return Result{
		Artifact:      artifact,
		CritiqueScore: critique.average(),
		Revised:       revised,
		Lesson:        critique.Lesson,
		Phases:        phases,
	}, nil
}

func (p *Pipeline) executeTrivial(ctx context.Context, step StepView) (Result, error) {
	res, err := p.LLM.Call(ctx, llmclient.TierCheap, llmclient.CallInput{
		SystemPrompt: step.PersonaAddendum,
		UserMessage:  step.Description,
		AgentID:      step.AssignedAgent,
	})
	if err != nil {
		return Result{}, fmt.Errorf("pipeline: trivial step call: %w", err)
	}
	return Result{
		Artifact:      res.Content,
		CritiqueScore: 3.0,
		Phases: []domain.PipelinePhaseRecord{{
			StepID:     step.ID,
			PhaseName:  domain.PhaseSynthesize,
			PhaseOrder: 0,
			ModelTier:  llmTierToDomain(llmclient.TierCheap),
		}},
	}, nil
}

func llmTierToDomain(t llmclient.Tier) domain.ModelTier {
	return domain.ModelTier(t)
}

func timed(f func()) int64 {
	start := time.Now()
	f()
	return time.Since(start).Milliseconds()
}
