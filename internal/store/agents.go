package store

import (
	"context"
	"fmt"

	"github.com/forgelane/conductor/internal/domain"
)

func scanAgent(row rowScanner) (domain.Agent, error) {
	var a domain.Agent
	var teamID *string
	if err := row.Scan(&a.ID, &a.Role, &teamID, &a.Status, &a.PersonaVersion, &a.CreatedAt); err != nil {
		return domain.Agent{}, err
	}
	if teamID != nil {
		a.TeamID = *teamID
	}
	return a, nil
}

func (s *PostgresStore) GetAgent(ctx context.Context, id string) (domain.Agent, error) {
	const q = `SELECT id, role, team_id, status, persona_version, created_at FROM agents WHERE id = $1`
	a, err := scanAgent(s.pool.QueryRow(ctx, q, id))
	if err != nil {
		return domain.Agent{}, fmt.Errorf("store: get agent %s: %w", id, err)
	}
	return a, nil
}

func (s *PostgresStore) ListRoster(ctx context.Context) ([]domain.Agent, error) {
	const q = `SELECT id, role, team_id, status, persona_version, created_at FROM agents WHERE status = 'active' ORDER BY role ASC`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("store: list roster: %w", err)
	}
	defer rows.Close()
	var out []domain.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// FindReviewer returns an eligible reviewer: team_id must be set (excludes
// system/test agents) and the agent must not be excludeAgentID (§4.5 step 4).
func (s *PostgresStore) FindReviewer(ctx context.Context, reviewType domain.ReviewType, excludeAgentID string) (domain.Agent, error) {
	role := "qa"
	if reviewType == domain.ReviewTeamLead {
		role = "team_lead"
	}
	const q = `SELECT id, role, team_id, status, persona_version, created_at FROM agents
WHERE status = 'active' AND team_id IS NOT NULL AND role = $1 AND id <> $2
ORDER BY random() LIMIT 1`
	a, err := scanAgent(s.pool.QueryRow(ctx, q, role, excludeAgentID))
	if err != nil {
		return domain.Agent{}, fmt.Errorf("store: find reviewer (%s): %w", reviewType, err)
	}
	return a, nil
}

func (s *PostgresStore) AppendPersona(ctx context.Context, p domain.Persona) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin append persona: %w", err)
	}
	defer tx.Rollback(ctx)

	const insert = `INSERT INTO personas (id, agent_id, version, system_prompt_addendum) VALUES ($1,$2,$3,$4)`
	if _, err := tx.Exec(ctx, insert, p.ID, p.AgentID, p.Version, p.SystemPromptAddendum); err != nil {
		return fmt.Errorf("store: insert persona: %w", err)
	}
	const bump = `UPDATE agents SET persona_version = $2 WHERE id = $1`
	if _, err := tx.Exec(ctx, bump, p.AgentID, p.Version); err != nil {
		return fmt.Errorf("store: bump persona version: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) CurrentPersona(ctx context.Context, agentID string) (domain.Persona, error) {
	const q = `SELECT id, agent_id, version, system_prompt_addendum, created_at FROM personas
WHERE agent_id = $1 ORDER BY version DESC LIMIT 1`
	var p domain.Persona
	err := s.pool.QueryRow(ctx, q, agentID).Scan(&p.ID, &p.AgentID, &p.Version, &p.SystemPromptAddendum, &p.CreatedAt)
	if err != nil {
		return domain.Persona{}, fmt.Errorf("store: current persona for %s: %w", agentID, err)
	}
	return p, nil
}
