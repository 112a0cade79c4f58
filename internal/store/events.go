package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/forgelane/conductor/internal/domain"
)

func (s *PostgresStore) RecordEvent(ctx context.Context, e domain.Event) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("store: marshal event payload: %w", err)
	}
	const q = `INSERT INTO events (id, kind, mission_id, project_id, step_id, payload)
VALUES ($1,$2,$3,$4,$5,$6)`
	_, err = s.pool.Exec(ctx, q, e.ID, e.Kind, nullableString(e.MissionID), nullableString(e.ProjectID), nullableString(e.StepID), payload)
	if err != nil {
		return fmt.Errorf("store: record event: %w", err)
	}
	return nil
}
