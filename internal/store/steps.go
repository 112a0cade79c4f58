package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/forgelane/conductor/internal/domain"
)

const stepColumns = `id, mission_id, assigned_agent, model_tier, step_order, status, result_artifact, parent_step_id, revision_count, skip_pipeline, skip_research, description, role, acceptance_crit, created_at, updated_at`

func scanStep(row pgx.Row) (domain.Step, error) {
	var out domain.Step
	var assignedAgent, resultArtifact, parentStepID, acceptanceCrit *string
	err := row.Scan(&out.ID, &out.MissionID, &assignedAgent, &out.ModelTier, &out.StepOrder, &out.Status,
		&resultArtifact, &parentStepID, &out.RevisionCount, &out.SkipPipeline, &out.SkipResearch,
		&out.Description, &out.Role, &acceptanceCrit, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return domain.Step{}, err
	}
	if assignedAgent != nil {
		out.AssignedAgent = *assignedAgent
	}
	if resultArtifact != nil {
		out.ResultArtifact = *resultArtifact
	}
	if parentStepID != nil {
		out.ParentStepID = *parentStepID
	}
	if acceptanceCrit != nil {
		out.AcceptanceCrit = *acceptanceCrit
	}
	return out, nil
}

func (s *PostgresStore) listSteps(ctx context.Context, whereAndOrder string, args ...any) ([]domain.Step, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM steps %s`, stepColumns, whereAndOrder), args...)
	if err != nil {
		return nil, fmt.Errorf("store: list steps: %w", err)
	}
	defer rows.Close()
	var out []domain.Step
	for rows.Next() {
		st, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan step: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// CreateSteps inserts a full step batch within one transaction — the first
// pass of the two-pass step creation described in §4.2 step 11.
func (s *PostgresStore) CreateSteps(ctx context.Context, steps []domain.Step) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin create steps: %w", err)
	}
	defer tx.Rollback(ctx)

	const q = `INSERT INTO steps (id, mission_id, assigned_agent, model_tier, step_order, status, parent_step_id, skip_pipeline, skip_research, description, role, acceptance_crit)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	for _, st := range steps {
		status := st.Status
		if status == "" {
			status = domain.StepPending
		}
		_, err := tx.Exec(ctx, q, st.ID, st.MissionID, nullableString(st.AssignedAgent), st.ModelTier, st.StepOrder,
			status, nullableString(st.ParentStepID), st.SkipPipeline, st.SkipResearch, st.Description, st.Role, nullableString(st.AcceptanceCrit))
		if err != nil {
			return fmt.Errorf("store: insert step %s: %w", st.ID, err)
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) GetStep(ctx context.Context, id string) (domain.Step, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM steps WHERE id = $1`, stepColumns), id)
	st, err := scanStep(row)
	if err != nil {
		return domain.Step{}, fmt.Errorf("store: get step %s: %w", id, err)
	}
	return st, nil
}

// ListPendingCandidates returns up to limit pending steps ordered by
// created_at ascending, with no artificial multiplier on limit (§4.3 step 1
// — a prior bug capping this caused head-of-line blocking from zombie
// rows; do not reintroduce it).
func (s *PostgresStore) ListPendingCandidates(ctx context.Context, limit int) ([]domain.Step, error) {
	return s.listSteps(ctx, `WHERE status = 'pending' ORDER BY created_at ASC LIMIT $1`, limit)
}

// ClaimStep is the I8 atomic claim: a conditional UPDATE gated on the
// current status, reporting whether this caller's update affected a row.
func (s *PostgresStore) ClaimStep(ctx context.Context, stepID string) (bool, error) {
	const q = `UPDATE steps SET status = 'in_progress', updated_at = now() WHERE id = $1 AND status = 'pending'`
	tag, err := s.pool.Exec(ctx, q, stepID)
	if err != nil {
		return false, fmt.Errorf("store: claim step %s: %w", stepID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) UpdateStepStatus(ctx context.Context, stepID string, status domain.StepStatus) error {
	const q = `UPDATE steps SET status = $2, updated_at = now() WHERE id = $1`
	_, err := s.pool.Exec(ctx, q, stepID, status)
	if err != nil {
		return fmt.Errorf("store: update step status %s: %w", stepID, err)
	}
	return nil
}

func (s *PostgresStore) UpdateStepArtifact(ctx context.Context, stepID string, artifact string, revisionCount int) error {
	const q = `UPDATE steps SET result_artifact = $2, revision_count = $3, updated_at = now() WHERE id = $1`
	_, err := s.pool.Exec(ctx, q, stepID, artifact, revisionCount)
	if err != nil {
		return fmt.Errorf("store: update step artifact %s: %w", stepID, err)
	}
	return nil
}

// FailBlockedSteps implements the failure cascade (§4.3): every pending
// step in the mission whose step_order is strictly greater than the failed
// step's order is marked failed. Parallel steps at the same order are left
// alone.
func (s *PostgresStore) FailBlockedSteps(ctx context.Context, missionID string, failedOrder int) (int, error) {
	const q = `UPDATE steps SET status = 'failed', updated_at = now()
WHERE mission_id = $1 AND status = 'pending' AND step_order > $2`
	tag, err := s.pool.Exec(ctx, q, missionID, failedOrder)
	if err != nil {
		return 0, fmt.Errorf("store: cascade fail mission %s: %w", missionID, err)
	}
	return int(tag.RowsAffected()), nil
}
