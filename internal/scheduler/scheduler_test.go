package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgelane/conductor/internal/capability"
	"github.com/forgelane/conductor/internal/cascade"
	"github.com/forgelane/conductor/internal/domain"
	"github.com/forgelane/conductor/internal/events"
	"github.com/forgelane/conductor/internal/llmclient"
	"github.com/forgelane/conductor/internal/pipeline"
	"github.com/forgelane/conductor/internal/store/memstore"
)

type stubLLM struct{}

func (stubLLM) Call(ctx context.Context, tier llmclient.Tier, in llmclient.CallInput) (llmclient.CallResult, error) {
	return llmclient.CallResult{Content: "done", Tier: tier}, nil
}

func newTestScheduler(ms *memstore.Store) *Scheduler {
	reg := capability.NewRegistry([]capability.RoleProfile{{Role: "engineer"}}, capability.DefaultBudgets())
	return &Scheduler{
		Store:    ms,
		Pipeline: &pipeline.Pipeline{LLM: stubLLM{}, Capability: reg},
		Cascade:  &cascade.Cascade{Store: ms, Bus: events.NewBus()},
		Config:   Config{CandidateLimit: 10},
	}
}

func seedQAReviewer(ms *memstore.Store) {
	ms.SeedAgent(domain.Agent{ID: "agent-qa-1", Role: "qa", TeamID: "team-1", Status: domain.AgentActive})
}

func TestTickExecutesEligibleStepAndLeavesBlockedOnesPending(t *testing.T) {
	ms := memstore.New()
	seedQAReviewer(ms)
	ctx := context.Background()
	mission, err := ms.CreateMission(ctx, domain.Mission{Status: domain.MissionInProgress})
	require.NoError(t, err)
	require.NoError(t, ms.CreateSteps(ctx, []domain.Step{
		{ID: "t1", MissionID: mission.ID, StepOrder: 1, Status: domain.StepPending, SkipPipeline: true},
		{ID: "t2", MissionID: mission.ID, StepOrder: 2, Status: domain.StepPending, SkipPipeline: true},
		{ID: "t3", MissionID: mission.ID, StepOrder: 2, Status: domain.StepPending, SkipPipeline: true},
	}))
	require.NoError(t, ms.CreateStepDependencies(ctx, []domain.StepDependency{
		{StepID: "t2", DependsOnStep: "t1", Type: domain.DependencyBlocks},
		{StepID: "t3", DependsOnStep: "t1", Type: domain.DependencyBlocks},
	}))

	s := newTestScheduler(ms)
	s.tick(ctx)

	t1, _ := ms.GetStep(ctx, "t1")
	require.Equal(t, domain.StepInReview, t1.Status, "the unblocked step executes and awaits review")
	t2, _ := ms.GetStep(ctx, "t2")
	require.Equal(t, domain.StepPending, t2.Status, "a step never leaves pending while its predecessor is non-completed")
	t3, _ := ms.GetStep(ctx, "t3")
	require.Equal(t, domain.StepPending, t3.Status)

	pending, err := ms.ListPendingApprovals(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, domain.ReviewQA, pending[0].ReviewType)
}

func TestTickUnblocksBothSuccessorsOncePredecessorCompletes(t *testing.T) {
	ms := memstore.New()
	seedQAReviewer(ms)
	ctx := context.Background()
	mission, err := ms.CreateMission(ctx, domain.Mission{Status: domain.MissionInProgress})
	require.NoError(t, err)
	require.NoError(t, ms.CreateSteps(ctx, []domain.Step{
		{ID: "t1", MissionID: mission.ID, StepOrder: 1, Status: domain.StepCompleted},
		{ID: "t2", MissionID: mission.ID, StepOrder: 2, Status: domain.StepPending, SkipPipeline: true},
		{ID: "t3", MissionID: mission.ID, StepOrder: 2, Status: domain.StepPending, SkipPipeline: true},
	}))
	require.NoError(t, ms.CreateStepDependencies(ctx, []domain.StepDependency{
		{StepID: "t2", DependsOnStep: "t1", Type: domain.DependencyBlocks},
		{StepID: "t3", DependsOnStep: "t1", Type: domain.DependencyBlocks},
	}))

	s := newTestScheduler(ms)
	s.tick(ctx)

	t2, _ := ms.GetStep(ctx, "t2")
	require.Equal(t, domain.StepInReview, t2.Status)
	t3, _ := ms.GetStep(ctx, "t3")
	require.Equal(t, domain.StepInReview, t3.Status, "siblings unblocked by the same predecessor both run in the next tick")
}

func TestTickDiamondJoinWaitsForBothPredecessors(t *testing.T) {
	ms := memstore.New()
	seedQAReviewer(ms)
	ctx := context.Background()
	mission, err := ms.CreateMission(ctx, domain.Mission{Status: domain.MissionInProgress})
	require.NoError(t, err)
	require.NoError(t, ms.CreateSteps(ctx, []domain.Step{
		{ID: "t1", MissionID: mission.ID, StepOrder: 1, Status: domain.StepCompleted},
		{ID: "t2", MissionID: mission.ID, StepOrder: 1, Status: domain.StepInReview},
		{ID: "t3", MissionID: mission.ID, StepOrder: 2, Status: domain.StepPending, SkipPipeline: true},
	}))
	require.NoError(t, ms.CreateStepDependencies(ctx, []domain.StepDependency{
		{StepID: "t3", DependsOnStep: "t1", Type: domain.DependencyBlocks},
		{StepID: "t3", DependsOnStep: "t2", Type: domain.DependencyBlocks},
	}))

	s := newTestScheduler(ms)
	s.tick(ctx)

	t3, _ := ms.GetStep(ctx, "t3")
	require.Equal(t, domain.StepPending, t3.Status, "a join step stays blocked until every predecessor completes")

	require.NoError(t, ms.UpdateStepStatus(ctx, "t2", domain.StepCompleted))
	s.tick(ctx)

	t3, _ = ms.GetStep(ctx, "t3")
	require.Equal(t, domain.StepInReview, t3.Status)
}

func TestTickAbandonsClaimedStepWhenMissionCanceled(t *testing.T) {
	ms := memstore.New()
	seedQAReviewer(ms)
	ctx := context.Background()
	mission, err := ms.CreateMission(ctx, domain.Mission{Status: domain.MissionCanceled})
	require.NoError(t, err)
	require.NoError(t, ms.CreateSteps(ctx, []domain.Step{
		{ID: "s1", MissionID: mission.ID, StepOrder: 1, Status: domain.StepPending, SkipPipeline: true},
	}))

	s := newTestScheduler(ms)
	s.tick(ctx)

	got, _ := ms.GetStep(ctx, "s1")
	require.Equal(t, domain.StepCanceled, got.Status, "a canceled mission's step is abandoned, not reviewed")

	pending, err := ms.ListPendingApprovals(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, pending, "an abandoned step enqueues no approval")
}

func TestTickPreservesRevisionCountAcrossReexecution(t *testing.T) {
	ms := memstore.New()
	seedQAReviewer(ms)
	ctx := context.Background()
	mission, err := ms.CreateMission(ctx, domain.Mission{Status: domain.MissionInProgress})
	require.NoError(t, err)
	require.NoError(t, ms.CreateSteps(ctx, []domain.Step{
		{ID: "s1", MissionID: mission.ID, StepOrder: 1, Status: domain.StepPending, SkipPipeline: true},
	}))
	require.NoError(t, ms.UpdateStepArtifact(ctx, "s1", "prior draft", 2))

	s := newTestScheduler(ms)
	s.tick(ctx)

	got, _ := ms.GetStep(ctx, "s1")
	require.Equal(t, domain.StepInReview, got.Status)
	require.Equal(t, 2, got.RevisionCount, "re-executing a revision must not reset the rejection bookkeeping")
}
