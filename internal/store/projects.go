package store

import (
	"context"
	"fmt"

	"github.com/forgelane/conductor/internal/domain"
)

func (s *PostgresStore) CreateProject(ctx context.Context, p domain.Project) (domain.Project, error) {
	const q = `INSERT INTO projects (id, original_request, phase, status)
VALUES ($1, $2, $3, $4)
RETURNING id, original_request, phase, status, created_at, updated_at`
	row := s.pool.QueryRow(ctx, q, p.ID, p.OriginalRequest, p.Phase, p.Status)
	var out domain.Project
	if err := row.Scan(&out.ID, &out.OriginalRequest, &out.Phase, &out.Status, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return domain.Project{}, fmt.Errorf("store: create project: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) GetProject(ctx context.Context, id string) (domain.Project, error) {
	const q = `SELECT id, original_request, phase, status, created_at, updated_at FROM projects WHERE id = $1`
	row := s.pool.QueryRow(ctx, q, id)
	var out domain.Project
	if err := row.Scan(&out.ID, &out.OriginalRequest, &out.Phase, &out.Status, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return domain.Project{}, fmt.Errorf("store: get project %s: %w", id, err)
	}
	return out, nil
}

// UpdateProject persists phase/status only; original_request is immutable.
func (s *PostgresStore) UpdateProject(ctx context.Context, p domain.Project) error {
	const q = `UPDATE projects SET phase = $2, status = $3, updated_at = now() WHERE id = $1`
	tag, err := s.pool.Exec(ctx, q, p.ID, p.Phase, p.Status)
	if err != nil {
		return fmt.Errorf("store: update project %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("store: update project %s: not found", p.ID)
	}
	return nil
}
