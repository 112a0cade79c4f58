package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgelane/conductor/internal/domain"
	"github.com/forgelane/conductor/internal/store/memstore"
)

func TestEligibleWithNoDependencies(t *testing.T) {
	ms := memstore.New()
	ctx := context.Background()
	require.NoError(t, ms.CreateSteps(ctx, []domain.Step{{ID: "s1", Status: domain.StepPending}}))
	step, err := ms.GetStep(ctx, "s1")
	require.NoError(t, err)

	ok, err := eligible(ctx, ms, step)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEligibleBlockedByIncompletePredecessor(t *testing.T) {
	ms := memstore.New()
	ctx := context.Background()
	require.NoError(t, ms.CreateSteps(ctx, []domain.Step{
		{ID: "pred", Status: domain.StepInProgress},
		{ID: "s1", Status: domain.StepPending},
	}))
	require.NoError(t, ms.CreateStepDependencies(ctx, []domain.StepDependency{
		{StepID: "s1", DependsOnStep: "pred", Type: domain.DependencyBlocks},
	}))

	step, err := ms.GetStep(ctx, "s1")
	require.NoError(t, err)
	ok, err := eligible(ctx, ms, step)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEligibleOnceBlockingPredecessorCompletes(t *testing.T) {
	ms := memstore.New()
	ctx := context.Background()
	require.NoError(t, ms.CreateSteps(ctx, []domain.Step{
		{ID: "pred", Status: domain.StepCompleted},
		{ID: "s1", Status: domain.StepPending},
	}))
	require.NoError(t, ms.CreateStepDependencies(ctx, []domain.StepDependency{
		{StepID: "s1", DependsOnStep: "pred", Type: domain.DependencyBlocks},
	}))

	step, err := ms.GetStep(ctx, "s1")
	require.NoError(t, err)
	ok, err := eligible(ctx, ms, step)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEligibleIgnoresInformsOnlyDependency(t *testing.T) {
	ms := memstore.New()
	ctx := context.Background()
	require.NoError(t, ms.CreateSteps(ctx, []domain.Step{
		{ID: "pred", Status: domain.StepInProgress},
		{ID: "s1", Status: domain.StepPending},
	}))
	require.NoError(t, ms.CreateStepDependencies(ctx, []domain.StepDependency{
		{StepID: "s1", DependsOnStep: "pred", Type: domain.DependencyInforms},
	}))

	step, err := ms.GetStep(ctx, "s1")
	require.NoError(t, err)
	ok, err := eligible(ctx, ms, step)
	require.NoError(t, err)
	require.True(t, ok, "an informs-only dependency is context, not a scheduling gate")
}

func TestEligibleLegacyParentChain(t *testing.T) {
	ms := memstore.New()
	ctx := context.Background()
	require.NoError(t, ms.CreateSteps(ctx, []domain.Step{
		{ID: "parent", Status: domain.StepInProgress},
		{ID: "s1", Status: domain.StepPending, ParentStepID: "parent"},
	}))

	step, err := ms.GetStep(ctx, "s1")
	require.NoError(t, err)
	ok, err := eligible(ctx, ms, step)
	require.NoError(t, err)
	require.False(t, ok, "the legacy parent chain gates eligibility when no blocks row exists")
}
