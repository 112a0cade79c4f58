package mirror

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/forgelane/conductor/internal/domain"
	"github.com/forgelane/conductor/internal/store"
)

// InboundEvent is the inbound event format named in §6: only
// action=create, type=Issue is processed.
type InboundEvent struct {
	Action string       `json:"action"`
	Type   string       `json:"type"`
	Data   InboundIssue `json:"data"`
}

// InboundIssue is the data payload of one inbound item.
type InboundIssue struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	CreatorID   string   `json:"creatorId"`
	LabelIDs    []string `json:"labelIds"`
	URL         string   `json:"url"`
	Identifier  string   `json:"identifier"`
}

const recentIssuesQuery = `query($teamId: String!, $since: DateTimeOrDuration!) {
  team(id: $teamId) {
    issues(filter: {createdAt: {gte: $since}}) {
      nodes { id title description creator { id } labelIds url identifier }
    }
  }
}`

type recentIssuesResponse struct {
	Team struct {
		Issues struct {
			Nodes []struct {
				ID          string   `json:"id"`
				Title       string   `json:"title"`
				Description string   `json:"description"`
				Creator     struct {
					ID string `json:"id"`
				} `json:"creator"`
				LabelIDs   []string `json:"labelIds"`
				URL        string   `json:"url"`
				Identifier string   `json:"identifier"`
			} `json:"nodes"`
		} `json:"issues"`
	} `json:"team"`
}

// ProposalCreator is the narrow interface the inbound poller hands new
// directive proposals to; proposal intake/classification is the chat
// ingress's concern, out of this core's scope (§1).
type ProposalCreator interface {
	CreateProposal(ctx context.Context, ev InboundEvent) error
}

// firstPollLookback is how far back the very first poll looks (§4.6).
const firstPollLookback = 60 * time.Second

// Poller runs the inbound sync tick (§4.6 "Inbound polling"): pulls
// external-tracker items as new proposals with two independent
// loop-prevention layers.
type Poller struct {
	Store     store.Store
	Client    GraphQLClient
	TeamID    string
	APIUserID string // system's own API user id; loop-prevention layer (a)
	Proposals ProposalCreator
	Interval  time.Duration

	cache cache

	mu           sync.Mutex
	lastPollTime time.Time
}

// Run drives the poller loop until ctx is canceled.
func (p *Poller) Run(ctx context.Context) {
	interval := p.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if err := p.poll(ctx); err != nil {
		slog.Error("mirror: inbound poll failed", "error", err)
	}
}

// poll implements the monotonic-lastPollTime, two-layer loop-prevention
// sweep (§4.6).
func (p *Poller) poll(ctx context.Context) error {
	if p.Client == nil {
		return nil
	}
	if err := p.cache.ensureInitialized(ctx, p.Client, p.TeamID); err != nil {
		return err
	}

	since := p.pollSince()

	var resp recentIssuesResponse
	if err := p.Client.Do(ctx, recentIssuesQuery, map[string]any{"teamId": p.TeamID, "since": since.Format(time.RFC3339)}, &resp); err != nil {
		return err
	}

	systemLabel, hasSystemLabel := p.cache.systemLabelID()

	for _, n := range resp.Team.Issues.Nodes {
		ev := InboundEvent{
			Action: "create",
			Type:   "Issue",
			Data: InboundIssue{
				ID: n.ID, Title: n.Title, Description: n.Description,
				CreatorID: n.Creator.ID, LabelIDs: n.LabelIDs, URL: n.URL, Identifier: n.Identifier,
			},
		}
		p.handle(ctx, ev, systemLabel, hasSystemLabel)
	}

	p.mu.Lock()
	p.lastPollTime = time.Now()
	p.mu.Unlock()
	return nil
}

func (p *Poller) pollSince() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastPollTime.IsZero() {
		return time.Now().Add(-firstPollLookback)
	}
	return p.lastPollTime
}

func (p *Poller) handle(ctx context.Context, ev InboundEvent, systemLabel string, hasSystemLabel bool) {
	if ev.Action != "create" || ev.Type != "Issue" {
		return
	}

	// Loop-prevention layer (a): skip items the system itself created.
	if p.APIUserID != "" && ev.Data.CreatorID == p.APIUserID {
		return
	}
	// Loop-prevention layer (b): skip items carrying the system-managed label.
	if hasSystemLabel && containsString(ev.Data.LabelIDs, systemLabel) {
		return
	}

	seen, err := p.Store.SeenInboundExternalID(ctx, ev.Data.ID)
	if err != nil {
		slog.Error("mirror: check inbound seen failed", "external_id", ev.Data.ID, "error", err)
		return
	}
	if seen {
		return
	}
	if err := p.Store.MarkInboundExternalIDSeen(ctx, ev.Data.ID); err != nil {
		slog.Error("mirror: mark inbound seen failed", "external_id", ev.Data.ID, "error", err)
		return
	}

	if p.Proposals != nil {
		if err := p.Proposals.CreateProposal(ctx, ev); err != nil {
			slog.Error("mirror: create proposal from inbound issue failed", "external_id", ev.Data.ID, "error", err)
			return
		}
	}

	if err := p.Store.RecordEvent(ctx, domain.Event{
		ID: uuid.NewString(), Kind: domain.EventLinearInboundIssue,
		Payload: map[string]any{"externalId": ev.Data.ID, "identifier": ev.Data.Identifier, "url": ev.Data.URL},
	}); err != nil {
		slog.Warn("mirror: record linear_inbound_issue event failed", "error", err)
	}
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
