package store

import (
	"context"
	"fmt"

	"github.com/forgelane/conductor/internal/domain"
)

func (s *PostgresStore) SaveApproachMemory(ctx context.Context, e domain.ApproachMemoryEntry) error {
	const q = `INSERT INTO approach_memory (id, tags, plan_summary, critique_score) VALUES ($1,$2,$3,$4)`
	_, err := s.pool.Exec(ctx, q, e.ID, e.Tags, e.PlanSummary, e.CritiqueScore)
	if err != nil {
		return fmt.Errorf("store: save approach memory: %w", err)
	}
	return nil
}

// TopApproachMemories returns up to k memories sharing at least one tag
// with tags, ordered by historical critique score descending (§4.2 step 2);
// the number of shared tags does not affect the order.
func (s *PostgresStore) TopApproachMemories(ctx context.Context, tags []string, k int) ([]domain.ApproachMemoryEntry, error) {
	const q = `SELECT id, tags, plan_summary, critique_score, created_at FROM approach_memory
WHERE tags && $1
ORDER BY critique_score DESC
LIMIT $2`
	rows, err := s.pool.Query(ctx, q, tags, k)
	if err != nil {
		return nil, fmt.Errorf("store: top approach memories: %w", err)
	}
	defer rows.Close()
	var out []domain.ApproachMemoryEntry
	for rows.Next() {
		var e domain.ApproachMemoryEntry
		if err := rows.Scan(&e.ID, &e.Tags, &e.PlanSummary, &e.CritiqueScore, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
