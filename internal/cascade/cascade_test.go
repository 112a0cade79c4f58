package cascade

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgelane/conductor/internal/domain"
	"github.com/forgelane/conductor/internal/events"
	"github.com/forgelane/conductor/internal/store/memstore"
)

func TestFailBlockedStepsFailsOnlyLaterOrder(t *testing.T) {
	ms := memstore.New()
	ctx := context.Background()
	mission, err := ms.CreateMission(ctx, domain.Mission{Status: domain.MissionInProgress})
	require.NoError(t, err)
	require.NoError(t, ms.CreateSteps(ctx, []domain.Step{
		{ID: "s1", MissionID: mission.ID, StepOrder: 1, Status: domain.StepFailed},
		{ID: "s2", MissionID: mission.ID, StepOrder: 2, Status: domain.StepPending},
		{ID: "s3", MissionID: mission.ID, StepOrder: 1, Status: domain.StepPending},
	}))

	c := &Cascade{Store: ms, Bus: events.NewBus()}
	require.NoError(t, c.FailBlockedSteps(ctx, mission.ID, 1))

	s2, err := ms.GetStep(ctx, "s2")
	require.NoError(t, err)
	require.Equal(t, domain.StepFailed, s2.Status, "strictly greater step order is blocked and failed")

	s3, err := ms.GetStep(ctx, "s3")
	require.NoError(t, err)
	require.Equal(t, domain.StepPending, s3.Status, "same step order (parallel branch) is left untouched")
}

func TestCheckMissionCompletionMarksCompletedWhenAnyStepSucceeds(t *testing.T) {
	ms := memstore.New()
	ctx := context.Background()
	mission, err := ms.CreateMission(ctx, domain.Mission{Status: domain.MissionInProgress})
	require.NoError(t, err)
	require.NoError(t, ms.CreateSteps(ctx, []domain.Step{
		{ID: "s1", MissionID: mission.ID, StepOrder: 1, Status: domain.StepCompleted},
		{ID: "s2", MissionID: mission.ID, StepOrder: 2, Status: domain.StepFailed},
	}))

	c := &Cascade{Store: ms, Bus: events.NewBus()}
	require.NoError(t, c.CheckMissionCompletion(ctx, mission.ID))

	got, err := ms.GetMission(ctx, mission.ID)
	require.NoError(t, err)
	require.Equal(t, domain.MissionCompleted, got.Status)
}

func TestCheckMissionCompletionMarksFailedWhenAllStepsFail(t *testing.T) {
	ms := memstore.New()
	ctx := context.Background()
	mission, err := ms.CreateMission(ctx, domain.Mission{Status: domain.MissionInProgress})
	require.NoError(t, err)
	require.NoError(t, ms.CreateSteps(ctx, []domain.Step{
		{ID: "s1", MissionID: mission.ID, StepOrder: 1, Status: domain.StepFailed},
		{ID: "s2", MissionID: mission.ID, StepOrder: 2, Status: domain.StepCanceled},
	}))

	c := &Cascade{Store: ms, Bus: events.NewBus()}
	require.NoError(t, c.CheckMissionCompletion(ctx, mission.ID))

	got, err := ms.GetMission(ctx, mission.ID)
	require.NoError(t, err)
	require.Equal(t, domain.MissionFailed, got.Status)
}

func TestCheckMissionCompletionIsIdempotent(t *testing.T) {
	ms := memstore.New()
	ctx := context.Background()
	mission, err := ms.CreateMission(ctx, domain.Mission{Status: domain.MissionInProgress})
	require.NoError(t, err)
	require.NoError(t, ms.CreateSteps(ctx, []domain.Step{
		{ID: "s1", MissionID: mission.ID, StepOrder: 1, Status: domain.StepCompleted},
	}))

	c := &Cascade{Store: ms, Bus: events.NewBus()}
	require.NoError(t, c.CheckMissionCompletion(ctx, mission.ID))
	require.NoError(t, c.CheckMissionCompletion(ctx, mission.ID), "a second call on an already-terminal mission must be a no-op, not an error")
}

func TestCheckMissionCompletionLeavesInProgressWhenStepsOpen(t *testing.T) {
	ms := memstore.New()
	ctx := context.Background()
	mission, err := ms.CreateMission(ctx, domain.Mission{Status: domain.MissionInProgress})
	require.NoError(t, err)
	require.NoError(t, ms.CreateSteps(ctx, []domain.Step{
		{ID: "s1", MissionID: mission.ID, StepOrder: 1, Status: domain.StepCompleted},
		{ID: "s2", MissionID: mission.ID, StepOrder: 2, Status: domain.StepInProgress},
	}))

	c := &Cascade{Store: ms, Bus: events.NewBus()}
	require.NoError(t, c.CheckMissionCompletion(ctx, mission.ID))

	got, err := ms.GetMission(ctx, mission.ID)
	require.NoError(t, err)
	require.Equal(t, domain.MissionInProgress, got.Status, "must not finalize while any step remains non-terminal")
}

func TestCancelMissionCancelsNonTerminalSteps(t *testing.T) {
	ms := memstore.New()
	ctx := context.Background()
	mission, err := ms.CreateMission(ctx, domain.Mission{Status: domain.MissionInProgress})
	require.NoError(t, err)
	require.NoError(t, ms.CreateSteps(ctx, []domain.Step{
		{ID: "s1", MissionID: mission.ID, StepOrder: 1, Status: domain.StepCompleted},
		{ID: "s2", MissionID: mission.ID, StepOrder: 2, Status: domain.StepPending},
		{ID: "s3", MissionID: mission.ID, StepOrder: 2, Status: domain.StepInReview},
	}))

	c := &Cascade{Store: ms, Bus: events.NewBus()}
	require.NoError(t, c.CancelMission(ctx, mission.ID))

	got, err := ms.GetMission(ctx, mission.ID)
	require.NoError(t, err)
	require.Equal(t, domain.MissionCanceled, got.Status)

	s1, _ := ms.GetStep(ctx, "s1")
	require.Equal(t, domain.StepCompleted, s1.Status, "terminal steps are left untouched")
	s2, _ := ms.GetStep(ctx, "s2")
	require.Equal(t, domain.StepCanceled, s2.Status)
	s3, _ := ms.GetStep(ctx, "s3")
	require.Equal(t, domain.StepCanceled, s3.Status)
}

func TestCancelMissionIsIdempotent(t *testing.T) {
	ms := memstore.New()
	ctx := context.Background()
	mission, err := ms.CreateMission(ctx, domain.Mission{Status: domain.MissionCanceled})
	require.NoError(t, err)

	c := &Cascade{Store: ms, Bus: events.NewBus()}
	require.NoError(t, c.CancelMission(ctx, mission.ID), "canceling an already-terminal mission is a no-op")
}

func TestCheckMissionCompletionAdvancesLinkedProjectPhase(t *testing.T) {
	ms := memstore.New()
	ctx := context.Background()
	project, err := ms.CreateProject(ctx, domain.Project{Phase: domain.PhaseBuild, Status: domain.ProjectActive})
	require.NoError(t, err)
	mission, err := ms.CreateMission(ctx, domain.Mission{ProjectID: project.ID, Status: domain.MissionInProgress})
	require.NoError(t, err)
	require.NoError(t, ms.CreateSteps(ctx, []domain.Step{
		{ID: "s1", MissionID: mission.ID, StepOrder: 1, Status: domain.StepCompleted},
	}))

	c := &Cascade{Store: ms, Bus: events.NewBus()}
	require.NoError(t, c.CheckMissionCompletion(ctx, mission.ID))

	got, err := ms.GetProject(ctx, project.ID)
	require.NoError(t, err)
	require.Equal(t, domain.PhaseTest, got.Phase, "a completed mission advances its linked project exactly one phase")
}
