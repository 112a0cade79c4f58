package mirror

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgelane/conductor/internal/store/memstore"
)

type routingGraphQLClient struct {
	teamPayload   teamResponse
	issuesPayload recentIssuesResponse
}

func (r *routingGraphQLClient) Do(ctx context.Context, query string, vars map[string]any, out any) error {
	var payload any
	switch query {
	case workflowStatesQuery:
		payload = r.teamPayload
	case recentIssuesQuery:
		payload = r.issuesPayload
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

type capturingProposals struct {
	created []InboundEvent
}

func (c *capturingProposals) CreateProposal(ctx context.Context, ev InboundEvent) error {
	c.created = append(c.created, ev)
	return nil
}

func issueNode(id, creatorID, title string, labelIDs []string) struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Creator     struct {
		ID string `json:"id"`
	} `json:"creator"`
	LabelIDs   []string `json:"labelIds"`
	URL        string   `json:"url"`
	Identifier string   `json:"identifier"`
} {
	var n struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Creator     struct {
			ID string `json:"id"`
		} `json:"creator"`
		LabelIDs   []string `json:"labelIds"`
		URL        string   `json:"url"`
		Identifier string   `json:"identifier"`
	}
	n.ID, n.Title, n.LabelIDs = id, title, labelIDs
	n.Creator.ID = creatorID
	return n
}

func TestPollSkipsIssuesCreatedBySystemUser(t *testing.T) {
	ms := memstore.New()
	client := &routingGraphQLClient{teamPayload: sampleTeamResponse()}
	client.issuesPayload.Team.Issues.Nodes = append(client.issuesPayload.Team.Issues.Nodes, issueNode("ext-1", "system-user", "Self-created", nil))

	proposals := &capturingProposals{}
	p := &Poller{Store: ms, Client: client, TeamID: "team-1", APIUserID: "system-user", Proposals: proposals}

	require.NoError(t, p.poll(context.Background()))
	require.Empty(t, proposals.created, "an issue created by the system's own API user must not become a proposal")
}

func TestPollSkipsIssuesCarryingTheSystemManagedLabel(t *testing.T) {
	ms := memstore.New()
	client := &routingGraphQLClient{teamPayload: sampleTeamResponse()}
	client.issuesPayload.Team.Issues.Nodes = append(client.issuesPayload.Team.Issues.Nodes, issueNode("ext-2", "human-user", "Mirrored back", []string{"label-1"}))

	proposals := &capturingProposals{}
	p := &Poller{Store: ms, Client: client, TeamID: "team-1", APIUserID: "system-user", Proposals: proposals}

	require.NoError(t, p.poll(context.Background()))
	require.Empty(t, proposals.created, "an issue carrying the system-managed label must not become a proposal")
}

func TestPollCreatesProposalForGenuineNewIssue(t *testing.T) {
	ms := memstore.New()
	client := &routingGraphQLClient{teamPayload: sampleTeamResponse()}
	client.issuesPayload.Team.Issues.Nodes = append(client.issuesPayload.Team.Issues.Nodes, issueNode("ext-3", "human-user", "Genuine ask", nil))

	proposals := &capturingProposals{}
	p := &Poller{Store: ms, Client: client, TeamID: "team-1", APIUserID: "system-user", Proposals: proposals}

	require.NoError(t, p.poll(context.Background()))
	require.Len(t, proposals.created, 1)
	require.Equal(t, "ext-3", proposals.created[0].Data.ID)
}

func TestPollDedupesAlreadySeenExternalID(t *testing.T) {
	ms := memstore.New()
	client := &routingGraphQLClient{teamPayload: sampleTeamResponse()}
	client.issuesPayload.Team.Issues.Nodes = append(client.issuesPayload.Team.Issues.Nodes, issueNode("ext-4", "human-user", "Repeat ask", nil))

	proposals := &capturingProposals{}
	p := &Poller{Store: ms, Client: client, TeamID: "team-1", APIUserID: "system-user", Proposals: proposals}

	require.NoError(t, p.poll(context.Background()))
	require.NoError(t, p.poll(context.Background()))
	require.Len(t, proposals.created, 1, "a previously-seen external id must not be proposed twice")
}
