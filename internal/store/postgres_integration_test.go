package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/forgelane/conductor/internal/domain"
)

// newTestStore mirrors the teacher's NewTestClient: in CI it points at an
// external PostgreSQL service (CI_DATABASE_URL), otherwise it spins up a
// disposable testcontainer and tears it down on test completion.
func newTestStore(t *testing.T) *PostgresStore {
	t.Helper()
	ctx := context.Background()

	dsn := os.Getenv("CI_DATABASE_URL")
	if dsn == "" {
		pgContainer, err := postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("conductor_test"),
			postgres.WithUsername("conductor"),
			postgres.WithPassword("conductor"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		require.NoError(t, err)
		t.Cleanup(func() {
			if err := testcontainers.TerminateContainer(pgContainer); err != nil {
				t.Logf("failed to terminate container: %v", err)
			}
		})

		dsn, err = pgContainer.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err)
	}

	s, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestPostgresClaimStepIsAtomic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mission, err := s.CreateMission(ctx, domain.Mission{ID: uuid.NewString(), Status: domain.MissionInProgress})
	require.NoError(t, err)
	require.NoError(t, s.CreateSteps(ctx, []domain.Step{
		{ID: uuid.NewString(), MissionID: mission.ID, StepOrder: 1, Status: domain.StepPending},
	}))

	pending, err := s.ListPendingCandidates(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	step := pending[0]

	claimed, err := s.ClaimStep(ctx, step.ID)
	require.NoError(t, err)
	require.True(t, claimed, "the first claim on a pending step must succeed")

	claimedAgain, err := s.ClaimStep(ctx, step.ID)
	require.NoError(t, err)
	require.False(t, claimedAgain, "a step already claimed must not be claimable a second time")

	got, err := s.GetStep(ctx, step.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StepInProgress, got.Status)
}

func TestPostgresCreateAndGetMissionRoundTrips(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mission, err := s.CreateMission(ctx, domain.Mission{ID: uuid.NewString(), Directive: "investigate the outage", Status: domain.MissionInProgress})
	require.NoError(t, err)

	got, err := s.GetMission(ctx, mission.ID)
	require.NoError(t, err)
	require.Equal(t, "investigate the outage", got.Directive)
	require.Equal(t, domain.MissionInProgress, got.Status)
}

func TestPostgresFailBlockedStepsCascadesWithinTransaction(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mission, err := s.CreateMission(ctx, domain.Mission{ID: uuid.NewString(), Status: domain.MissionInProgress})
	require.NoError(t, err)
	require.NoError(t, s.CreateSteps(ctx, []domain.Step{
		{ID: "s1", MissionID: mission.ID, StepOrder: 1, Status: domain.StepFailed},
		{ID: "s2", MissionID: mission.ID, StepOrder: 2, Status: domain.StepPending},
	}))

	n, err := s.FailBlockedSteps(ctx, mission.ID, 1)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	s2, err := s.GetStep(ctx, "s2")
	require.NoError(t, err)
	require.Equal(t, domain.StepFailed, s2.Status)
}
