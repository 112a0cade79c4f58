package store

import (
	"context"
	"fmt"

	"github.com/forgelane/conductor/internal/domain"
)

func (s *PostgresStore) RecordUsage(ctx context.Context, u domain.UsageRecord) error {
	const q = `INSERT INTO usage_records (id, step_id, agent_id, tier, prompt_tokens, completion_tokens)
VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := s.pool.Exec(ctx, q, u.ID, nullableString(u.StepID), nullableString(u.AgentID), u.Tier, u.PromptTokens, u.CompletionTokens)
	if err != nil {
		return fmt.Errorf("store: record usage: %w", err)
	}
	return nil
}
