package mirror

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/forgelane/conductor/internal/store"
)

// maxDescriptionLen is the field cap before truncation with a trailing
// ellipsis (§4.6).
const maxDescriptionLen = 255

// truncate caps s at maxDescriptionLen runes, appending an ellipsis if it
// was cut.
func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxDescriptionLen {
		return s
	}
	return string(r[:maxDescriptionLen-1]) + "…"
}

const createIssueMutation = `mutation($teamId: String!, $title: String!, $description: String!) {
  issueCreate(input: {teamId: $teamId, title: $title, description: $description}) {
    issue { id identifier }
  }
}`

type createIssueResponse struct {
	IssueCreate struct {
		Issue struct {
			ID         string `json:"id"`
			Identifier string `json:"identifier"`
		} `json:"issue"`
	} `json:"issueCreate"`
}

const updateIssueStateMutation = `mutation($issueId: String!, $stateId: String!) {
  issueUpdate(id: $issueId, input: {stateId: $stateId}) { success }
}`

const addCommentMutation = `mutation($issueId: String!, $body: String!) {
  commentCreate(input: {issueId: $issueId, body: $body}) { success }
}`

// Sync is the fire-and-forget mission/step/status projection (§4.6). Every
// exported method logs on error and returns nothing to the caller: errors
// here must never alter step or mission state (I7).
type Sync struct {
	Store  store.Store
	Client GraphQLClient
	TeamID string

	cache cache
}

// SyncMission idempotently projects a mission as a mirror issue (§4.6
// "Idempotent project creation", §8 "Idempotence: syncMissionToLinear").
// Fire-and-forget: call with `go s.SyncMission(...)`.
func (s *Sync) SyncMission(ctx context.Context, missionID string) {
	if err := s.syncMission(ctx, missionID); err != nil {
		slog.Warn("mirror: sync mission failed", "mission_id", missionID, "error", err)
	}
}

func (s *Sync) syncMission(ctx context.Context, missionID string) error {
	if s.Client == nil {
		return nil // collaborator disabled (§6 "missing keys disable the collaborator")
	}
	if err := s.cache.ensureInitialized(ctx, s.Client, s.TeamID); err != nil {
		return err
	}

	if _, ok, err := s.Store.GetMirrorSync(ctx, missionID); err != nil {
		return fmt.Errorf("mirror: check existing sync: %w", err)
	} else if ok {
		return nil // idempotent: already projected
	}

	mission, err := s.Store.GetMission(ctx, missionID)
	if err != nil {
		return fmt.Errorf("mirror: get mission: %w", err)
	}

	var resp createIssueResponse
	err = s.Client.Do(ctx, createIssueMutation, map[string]any{
		"teamId":      s.TeamID,
		"title":       truncate(fmt.Sprintf("Mission %s", mission.ID)),
		"description": truncate(mission.Directive),
	}, &resp)
	if err != nil {
		return fmt.Errorf("mirror: create issue: %w", err)
	}

	return s.Store.SaveMirrorSync(ctx, store.MirrorSyncRecord{
		MissionID:   missionID,
		ExternalID:  resp.IssueCreate.Issue.ID,
		ExternalKey: resp.IssueCreate.Issue.Identifier,
	})
}

// PostComment posts rejection feedback to the mirror issue backing a
// mission (§4.5 step 7 "post the feedback to the external mirror as a
// comment"). Fire-and-forget.
func (s *Sync) PostComment(ctx context.Context, missionID, stepID, comment string) {
	if err := s.postComment(ctx, missionID, comment); err != nil {
		slog.Warn("mirror: post comment failed", "mission_id", missionID, "step_id", stepID, "error", err)
	}
}

func (s *Sync) postComment(ctx context.Context, missionID, comment string) error {
	if s.Client == nil {
		return nil
	}
	rec, ok, err := s.Store.GetMirrorSync(ctx, missionID)
	if err != nil {
		return fmt.Errorf("mirror: lookup sync record: %w", err)
	}
	if !ok {
		return nil // mission was never projected; nothing to comment on
	}
	return s.Client.Do(ctx, addCommentMutation, map[string]any{
		"issueId": rec.ExternalID,
		"body":    truncate(comment),
	}, nil)
}

// SetCanceled transitions the mirror issue to the "Canceled" workflow
// state (§4.5 step 7 "revision cap reached"). Fire-and-forget.
func (s *Sync) SetCanceled(ctx context.Context, missionID string) {
	if err := s.setState(ctx, missionID, "Canceled"); err != nil {
		slog.Warn("mirror: set canceled failed", "mission_id", missionID, "error", err)
	}
}

func (s *Sync) setState(ctx context.Context, missionID, stateName string) error {
	if s.Client == nil {
		return nil
	}
	if err := s.cache.ensureInitialized(ctx, s.Client, s.TeamID); err != nil {
		return err
	}
	stateID, ok := s.cache.stateID(stateName)
	if !ok {
		return fmt.Errorf("mirror: unknown workflow state %q", stateName)
	}
	rec, ok, err := s.Store.GetMirrorSync(ctx, missionID)
	if err != nil {
		return fmt.Errorf("mirror: lookup sync record: %w", err)
	}
	if !ok {
		return nil
	}
	return s.Client.Do(ctx, updateIssueStateMutation, map[string]any{
		"issueId": rec.ExternalID,
		"stateId": stateID,
	}, nil)
}
