package mirror

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgelane/conductor/internal/domain"
	"github.com/forgelane/conductor/internal/store"
	"github.com/forgelane/conductor/internal/store/memstore"
)

type recordingGraphQLClient struct {
	routingGraphQLClient
	createCalls int
	lastVars    map[string]any
}

func (r *recordingGraphQLClient) Do(ctx context.Context, query string, vars map[string]any, out any) error {
	if query == createIssueMutation {
		r.createCalls++
		r.lastVars = vars
		resp := out.(*createIssueResponse)
		resp.IssueCreate.Issue.ID = "issue-1"
		resp.IssueCreate.Issue.Identifier = "ENG-1"
		return nil
	}
	if out == nil {
		return nil
	}
	return r.routingGraphQLClient.Do(ctx, query, vars, out)
}

func TestSyncMissionIsIdempotent(t *testing.T) {
	ms := memstore.New()
	ctx := context.Background()
	mission, err := ms.CreateMission(ctx, domain.Mission{Directive: "investigate the thing"})
	require.NoError(t, err)

	client := &recordingGraphQLClient{routingGraphQLClient: routingGraphQLClient{teamPayload: sampleTeamResponse()}}
	s := &Sync{Store: ms, Client: client, TeamID: "team-1"}

	require.NoError(t, s.syncMission(ctx, mission.ID))
	require.NoError(t, s.syncMission(ctx, mission.ID))
	require.Equal(t, 1, client.createCalls, "a mission already projected must not be re-created")

	rec, ok, err := ms.GetMirrorSync(ctx, mission.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "issue-1", rec.ExternalID)
	require.Equal(t, "ENG-1", rec.ExternalKey)
}

func TestSyncMissionNoOpWhenClientDisabled(t *testing.T) {
	ms := memstore.New()
	ctx := context.Background()
	mission, err := ms.CreateMission(ctx, domain.Mission{Directive: "investigate"})
	require.NoError(t, err)

	s := &Sync{Store: ms, Client: nil, TeamID: "team-1"}
	require.NoError(t, s.syncMission(ctx, mission.ID))

	_, ok, err := ms.GetMirrorSync(ctx, mission.ID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPostCommentNoOpWhenMissionNeverProjected(t *testing.T) {
	ms := memstore.New()
	ctx := context.Background()
	mission, err := ms.CreateMission(ctx, domain.Mission{Directive: "investigate"})
	require.NoError(t, err)

	client := &recordingGraphQLClient{routingGraphQLClient: routingGraphQLClient{teamPayload: sampleTeamResponse()}}
	s := &Sync{Store: ms, Client: client, TeamID: "team-1"}

	require.NoError(t, s.postComment(ctx, mission.ID, "feedback"))
}

func TestPostCommentSendsAgainstProjectedIssue(t *testing.T) {
	ms := memstore.New()
	ctx := context.Background()
	mission, err := ms.CreateMission(ctx, domain.Mission{Directive: "investigate"})
	require.NoError(t, err)
	require.NoError(t, ms.SaveMirrorSync(ctx, store.MirrorSyncRecord{MissionID: mission.ID, ExternalID: "issue-1", ExternalKey: "ENG-1"}))

	client := &recordingGraphQLClient{routingGraphQLClient: routingGraphQLClient{teamPayload: sampleTeamResponse()}}
	s := &Sync{Store: ms, Client: client, TeamID: "team-1"}

	require.NoError(t, s.postComment(ctx, mission.ID, "feedback"))
}

func TestSetStateRejectsUnknownWorkflowState(t *testing.T) {
	ms := memstore.New()
	ctx := context.Background()
	mission, err := ms.CreateMission(ctx, domain.Mission{Directive: "investigate"})
	require.NoError(t, err)
	require.NoError(t, ms.SaveMirrorSync(ctx, store.MirrorSyncRecord{MissionID: mission.ID, ExternalID: "issue-1", ExternalKey: "ENG-1"}))

	client := &recordingGraphQLClient{routingGraphQLClient: routingGraphQLClient{teamPayload: sampleTeamResponse()}}
	s := &Sync{Store: ms, Client: client, TeamID: "team-1"}

	err = s.setState(ctx, mission.ID, "NoSuchState")
	require.Error(t, err)
}
