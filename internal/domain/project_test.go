package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAdvancePhaseAccepts(t *testing.T) {
	p := Project{ID: "proj-1", Phase: PhaseDiscovery, Status: ProjectActive}

	next, kind, err := AdvancePhase(p, PhaseRequirements)
	require.NoError(t, err)
	require.Equal(t, PhaseRequirements, next.Phase)
	require.Equal(t, EventProjectPhaseAdvanced, kind)
	require.Equal(t, PhaseDiscovery, p.Phase, "AdvancePhase must not mutate its argument")
}

func TestAdvancePhaseToCompletedSetsStatus(t *testing.T) {
	p := Project{ID: "proj-1", Phase: PhaseDeploy, Status: ProjectActive}

	next, kind, err := AdvancePhase(p, PhaseCompleted)
	require.NoError(t, err)
	require.Equal(t, ProjectCompleted, next.Status)
	require.Equal(t, EventProjectCompleted, kind)
}

func TestAdvancePhaseRejectsRegression(t *testing.T) {
	p := Project{ID: "proj-1", Phase: PhaseBuild, Status: ProjectActive}

	_, _, err := AdvancePhase(p, PhaseDesign)
	require.ErrorIs(t, err, ErrPhaseRegression)

	_, _, err = AdvancePhase(p, PhaseBuild)
	require.ErrorIs(t, err, ErrPhaseRegression)
}

func TestValidStepTransition(t *testing.T) {
	require.True(t, ValidStepTransition(StepPending, StepInProgress))
	require.True(t, ValidStepTransition(StepInReview, StepPending))
	require.False(t, ValidStepTransition(StepPending, StepCompleted))
	require.False(t, ValidStepTransition(StepCompleted, StepInProgress), "terminal statuses accept no further transition")
}

func TestSanitizeAgentID(t *testing.T) {
	require.Equal(t, "agent-42", SanitizeAgentID("agent-42"))
	require.Equal(t, "", SanitizeAgentID("system"))
	require.Equal(t, "", SanitizeAgentID(""))
}
