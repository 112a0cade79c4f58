package store

import (
	"context"
	"fmt"

	"github.com/forgelane/conductor/internal/domain"
)

// CreateStepDependencies is the second pass of two-pass step creation
// (§4.2 step 11): one row per depends_on entry, translated through the
// taskId->stepId map by the caller.
func (s *PostgresStore) CreateStepDependencies(ctx context.Context, deps []domain.StepDependency) error {
	if len(deps) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin create deps: %w", err)
	}
	defer tx.Rollback(ctx)

	const q = `INSERT INTO step_dependencies (step_id, depends_on_step, type) VALUES ($1,$2,$3)
ON CONFLICT (step_id, depends_on_step) DO NOTHING`
	for _, d := range deps {
		if _, err := tx.Exec(ctx, q, d.StepID, d.DependsOnStep, d.Type); err != nil {
			return fmt.Errorf("store: insert dependency %s->%s: %w", d.StepID, d.DependsOnStep, err)
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) ListStepDependencies(ctx context.Context, stepID string) ([]domain.StepDependency, error) {
	rows, err := s.pool.Query(ctx, `SELECT step_id, depends_on_step, type FROM step_dependencies WHERE step_id = $1`, stepID)
	if err != nil {
		return nil, fmt.Errorf("store: list dependencies for %s: %w", stepID, err)
	}
	defer rows.Close()
	var out []domain.StepDependency
	for rows.Next() {
		var d domain.StepDependency
		if err := rows.Scan(&d.StepID, &d.DependsOnStep, &d.Type); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// UnsatisfiedBlockingDeps reports whether any "blocks" predecessor of
// stepID is not yet completed (I3, §4.3 step 2).
func (s *PostgresStore) UnsatisfiedBlockingDeps(ctx context.Context, stepID string) (bool, error) {
	const q = `SELECT EXISTS (
  SELECT 1 FROM step_dependencies d
  JOIN steps p ON p.id = d.depends_on_step
  WHERE d.step_id = $1 AND d.type = 'blocks' AND p.status <> 'completed'
)`
	var exists bool
	if err := s.pool.QueryRow(ctx, q, stepID).Scan(&exists); err != nil {
		return false, fmt.Errorf("store: check blocking deps for %s: %w", stepID, err)
	}
	return exists, nil
}
