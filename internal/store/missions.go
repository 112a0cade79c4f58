package store

import (
	"context"
	"fmt"

	"github.com/forgelane/conductor/internal/domain"
)

func (s *PostgresStore) CreateMission(ctx context.Context, m domain.Mission) (domain.Mission, error) {
	const q = `INSERT INTO missions (id, project_id, phase_at_link, directive, status)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, project_id, phase_at_link, directive, status, created_at, updated_at`
	row := s.pool.QueryRow(ctx, q, m.ID, nullableString(m.ProjectID), m.PhaseAtLink, m.Directive, m.Status)
	var out domain.Mission
	var projectID *string
	if err := row.Scan(&out.ID, &projectID, &out.PhaseAtLink, &out.Directive, &out.Status, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return domain.Mission{}, fmt.Errorf("store: create mission: %w", err)
	}
	if projectID != nil {
		out.ProjectID = *projectID
	}
	return out, nil
}

func (s *PostgresStore) GetMission(ctx context.Context, id string) (domain.Mission, error) {
	const q = `SELECT id, project_id, phase_at_link, directive, status, created_at, updated_at FROM missions WHERE id = $1`
	row := s.pool.QueryRow(ctx, q, id)
	var out domain.Mission
	var projectID *string
	if err := row.Scan(&out.ID, &projectID, &out.PhaseAtLink, &out.Directive, &out.Status, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return domain.Mission{}, fmt.Errorf("store: get mission %s: %w", id, err)
	}
	if projectID != nil {
		out.ProjectID = *projectID
	}
	return out, nil
}

// UpdateMissionStatus is idempotent: setting the same status twice is a
// no-op success (§8 "Idempotence: completeMission").
func (s *PostgresStore) UpdateMissionStatus(ctx context.Context, id string, status domain.MissionStatus) error {
	const q = `UPDATE missions SET status = $2, updated_at = now() WHERE id = $1`
	_, err := s.pool.Exec(ctx, q, id, status)
	if err != nil {
		return fmt.Errorf("store: update mission status %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) ListMissionSteps(ctx context.Context, missionID string) ([]domain.Step, error) {
	return s.listSteps(ctx, `WHERE mission_id = $1 ORDER BY step_order ASC, created_at ASC`, missionID)
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}
