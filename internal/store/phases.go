package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/forgelane/conductor/internal/domain"
)

func (s *PostgresStore) CreatePhaseRecord(ctx context.Context, rec domain.PipelinePhaseRecord) error {
	meta, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("store: marshal phase metadata: %w", err)
	}
	const q = `INSERT INTO pipeline_phase_records (id, step_id, phase_name, phase_order, model_tier, score, metadata, duration_ms)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	var tier any
	if rec.ModelTier != "" {
		tier = rec.ModelTier
	}
	var score any
	if rec.PhaseName == domain.PhaseCritique {
		score = rec.Score
	}
	_, err = s.pool.Exec(ctx, q, rec.ID, rec.StepID, rec.PhaseName, rec.PhaseOrder, tier, score, meta, rec.DurationMS)
	if err != nil {
		return fmt.Errorf("store: create phase record: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListPhaseRecords(ctx context.Context, stepID string) ([]domain.PipelinePhaseRecord, error) {
	const q = `SELECT id, step_id, phase_name, phase_order, model_tier, score, metadata, duration_ms, created_at
FROM pipeline_phase_records WHERE step_id = $1 ORDER BY phase_order ASC`
	rows, err := s.pool.Query(ctx, q, stepID)
	if err != nil {
		return nil, fmt.Errorf("store: list phase records for %s: %w", stepID, err)
	}
	defer rows.Close()
	var out []domain.PipelinePhaseRecord
	for rows.Next() {
		var rec domain.PipelinePhaseRecord
		var tier *string
		var score *float64
		var meta []byte
		if err := rows.Scan(&rec.ID, &rec.StepID, &rec.PhaseName, &rec.PhaseOrder, &tier, &score, &meta, &rec.DurationMS, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if tier != nil {
			rec.ModelTier = domain.ModelTier(*tier)
		}
		if score != nil {
			rec.Score = *score
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &rec.Metadata)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
