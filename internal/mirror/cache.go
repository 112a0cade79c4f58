package mirror

import (
	"context"
	"fmt"
	"sync"
)

const workflowStatesQuery = `query($teamId: String!) {
  team(id: $teamId) {
    states { nodes { id name } }
    labels { nodes { id name } }
  }
}`

type teamResponse struct {
	Team struct {
		States struct {
			Nodes []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"nodes"`
		} `json:"states"`
		Labels struct {
			Nodes []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"nodes"`
		} `json:"labels"`
	} `json:"team"`
}

// cache is process-local mutable state (§5 "shared resource policy"): the
// lazily-populated workflow-state and label id tables. It must not latch
// initialized on a partial population — a failed ensureInitialized leaves
// it unset so the next caller retries (§4.6, §9).
type cache struct {
	mu             sync.Mutex
	initialized    bool
	workflowStates map[string]string // name -> id
	labelIDs       map[string]string // name -> id
}

const systemManagedLabel = "mirrored"

func (c *cache) ensureInitialized(ctx context.Context, client GraphQLClient, teamID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		return nil
	}

	var resp teamResponse
	if err := client.Do(ctx, workflowStatesQuery, map[string]any{"teamId": teamID}, &resp); err != nil {
		return fmt.Errorf("mirror: fetch workflow states: %w", err)
	}

	states := make(map[string]string, len(resp.Team.States.Nodes))
	for _, n := range resp.Team.States.Nodes {
		states[n.Name] = n.ID
	}
	labels := make(map[string]string, len(resp.Team.Labels.Nodes))
	for _, n := range resp.Team.Labels.Nodes {
		labels[n.Name] = n.ID
	}

	// Only now, with the cache actually populated, flip initialized — a
	// prior partial failure must never latch this (§4.6).
	c.workflowStates = states
	c.labelIDs = labels
	c.initialized = true
	return nil
}

func (c *cache) stateID(name string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.workflowStates[name]
	return id, ok
}

func (c *cache) systemLabelID() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.labelIDs[systemManagedLabel]
	return id, ok
}
