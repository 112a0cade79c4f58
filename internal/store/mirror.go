package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// GetMirrorSync checks for an existing sync record before creating a mirror
// project for a mission — the idempotent-creation check in §4.6.
func (s *PostgresStore) GetMirrorSync(ctx context.Context, missionID string) (MirrorSyncRecord, bool, error) {
	const q = `SELECT mission_id, external_id, external_key FROM mirror_syncs WHERE mission_id = $1`
	var rec MirrorSyncRecord
	var key *string
	err := s.pool.QueryRow(ctx, q, missionID).Scan(&rec.MissionID, &rec.ExternalID, &key)
	if errors.Is(err, pgx.ErrNoRows) {
		return MirrorSyncRecord{}, false, nil
	}
	if err != nil {
		return MirrorSyncRecord{}, false, fmt.Errorf("store: get mirror sync for %s: %w", missionID, err)
	}
	if key != nil {
		rec.ExternalKey = *key
	}
	return rec, true, nil
}

func (s *PostgresStore) SaveMirrorSync(ctx context.Context, rec MirrorSyncRecord) error {
	const q = `INSERT INTO mirror_syncs (mission_id, external_id, external_key) VALUES ($1,$2,$3)
ON CONFLICT (mission_id) DO NOTHING`
	_, err := s.pool.Exec(ctx, q, rec.MissionID, rec.ExternalID, nullableString(rec.ExternalKey))
	if err != nil {
		return fmt.Errorf("store: save mirror sync: %w", err)
	}
	return nil
}

// SeenInboundExternalID dedups inbound items by external id (§4.6 loop
// prevention layer).
func (s *PostgresStore) SeenInboundExternalID(ctx context.Context, externalID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM mirror_inbound_seen WHERE external_id = $1)`
	var exists bool
	if err := s.pool.QueryRow(ctx, q, externalID).Scan(&exists); err != nil {
		return false, fmt.Errorf("store: check inbound seen %s: %w", externalID, err)
	}
	return exists, nil
}

func (s *PostgresStore) MarkInboundExternalIDSeen(ctx context.Context, externalID string) error {
	const q = `INSERT INTO mirror_inbound_seen (external_id) VALUES ($1) ON CONFLICT DO NOTHING`
	_, err := s.pool.Exec(ctx, q, externalID)
	if err != nil {
		return fmt.Errorf("store: mark inbound seen %s: %w", externalID, err)
	}
	return nil
}
