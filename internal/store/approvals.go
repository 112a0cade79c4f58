package store

import (
	"context"
	"fmt"

	"github.com/forgelane/conductor/internal/domain"
)

func (s *PostgresStore) CreateApproval(ctx context.Context, a domain.Approval) (domain.Approval, error) {
	const q = `INSERT INTO approvals (id, step_id, reviewer_agent, review_type, status, feedback, auto_rejected)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING created_at`
	row := s.pool.QueryRow(ctx, q, a.ID, a.StepID, a.ReviewerAgent, a.ReviewType, a.Status, nullableString(a.Feedback), a.AutoRejected)
	if err := row.Scan(&a.CreatedAt); err != nil {
		return domain.Approval{}, fmt.Errorf("store: create approval: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) ListPendingApprovals(ctx context.Context, limit int) ([]domain.Approval, error) {
	const q = `SELECT id, step_id, reviewer_agent, review_type, status, feedback, auto_rejected, reviewed_at, created_at
FROM approvals WHERE status = 'pending' ORDER BY created_at ASC LIMIT $1`
	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list pending approvals: %w", err)
	}
	defer rows.Close()
	var out []domain.Approval
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApproval(row rowScanner) (domain.Approval, error) {
	var a domain.Approval
	var feedback *string
	if err := row.Scan(&a.ID, &a.StepID, &a.ReviewerAgent, &a.ReviewType, &a.Status, &feedback, &a.AutoRejected, &a.ReviewedAt, &a.CreatedAt); err != nil {
		return domain.Approval{}, fmt.Errorf("store: scan approval: %w", err)
	}
	if feedback != nil {
		a.Feedback = *feedback
	}
	return a, nil
}

// CountRejections returns the number of prior rejected approvals for a
// step (§4.5 step 7; I5 caps this at 3).
func (s *PostgresStore) CountRejections(ctx context.Context, stepID string) (int, error) {
	const q = `SELECT count(*) FROM approvals WHERE step_id = $1 AND status = 'rejected'`
	var n int
	if err := s.pool.QueryRow(ctx, q, stepID).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count rejections for %s: %w", stepID, err)
	}
	return n, nil
}

func (s *PostgresStore) UpdateApproval(ctx context.Context, a domain.Approval) error {
	const q = `UPDATE approvals SET status = $2, feedback = $3, auto_rejected = $4, reviewed_at = now() WHERE id = $1`
	_, err := s.pool.Exec(ctx, q, a.ID, a.Status, nullableString(a.Feedback), a.AutoRejected)
	if err != nil {
		return fmt.Errorf("store: update approval %s: %w", a.ID, err)
	}
	return nil
}
