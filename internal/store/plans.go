package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/forgelane/conductor/internal/domain"
)

func (s *PostgresStore) CreatePlan(ctx context.Context, plan domain.DecompositionPlan) (domain.DecompositionPlan, error) {
	tasksJSON, err := json.Marshal(plan.Tasks)
	if err != nil {
		return domain.DecompositionPlan{}, fmt.Errorf("store: marshal plan tasks: %w", err)
	}
	hiringJSON, err := json.Marshal(plan.HiringNeeded)
	if err != nil {
		return domain.DecompositionPlan{}, fmt.Errorf("store: marshal hiring: %w", err)
	}
	const q = `INSERT INTO decomposition_plans (id, mission_id, tasks, end_state, escalation_needed, escalation_reason, hiring_needed, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING created_at`
	row := s.pool.QueryRow(ctx, q, plan.ID, plan.MissionID, tasksJSON, plan.EndState, plan.EscalationNeeded,
		nullableString(plan.EscalationReason), hiringJSON, plan.Status)
	if err := row.Scan(&plan.CreatedAt); err != nil {
		return domain.DecompositionPlan{}, fmt.Errorf("store: create plan: %w", err)
	}
	return plan, nil
}

// SupersedeActivePlans marks every currently-active plan for a mission as
// superseded before a re-plan round is persisted (§4.2 step 6).
func (s *PostgresStore) SupersedeActivePlans(ctx context.Context, missionID string) error {
	const q = `UPDATE decomposition_plans SET status = 'superseded' WHERE mission_id = $1 AND status = 'active'`
	_, err := s.pool.Exec(ctx, q, missionID)
	if err != nil {
		return fmt.Errorf("store: supersede plans for %s: %w", missionID, err)
	}
	return nil
}

func (s *PostgresStore) CreateEscalation(ctx context.Context, e domain.Escalation) error {
	const q = `INSERT INTO escalations (id, mission_id, type, reason) VALUES ($1,$2,$3,$4)`
	_, err := s.pool.Exec(ctx, q, e.ID, e.MissionID, e.Type, e.Reason)
	if err != nil {
		return fmt.Errorf("store: create escalation: %w", err)
	}
	return nil
}
