package decomposition

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgelane/conductor/internal/capability"
	"github.com/forgelane/conductor/internal/domain"
	"github.com/forgelane/conductor/internal/llmclient"
	"github.com/forgelane/conductor/internal/store/memstore"
)

type scriptedLLM struct {
	responses []string
	calls     int
}

func (s *scriptedLLM) Call(ctx context.Context, tier llmclient.Tier, in llmclient.CallInput) (llmclient.CallResult, error) {
	idx := s.calls
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	s.calls++
	return llmclient.CallResult{Content: s.responses[idx], Tier: tier}, nil
}

func newRegistry() *capability.Registry {
	return capability.NewRegistry([]capability.RoleProfile{
		{Role: "engineer"},
	}, capability.DefaultBudgets())
}

func TestRunMaterializesLinearPlan(t *testing.T) {
	ms := memstore.New()
	ms.SeedAgent(domain.Agent{ID: "agent-eng-1", Role: "engineer", TeamID: "team-1", Status: domain.AgentActive})

	llm := &scriptedLLM{responses: []string{
		`{"tasks":[{"id":"T1","description":"build the thing","role":"engineer","parallelGroup":1,"acceptanceCriteria":"it works"}],"endState":"working_prototype","feasible":true}`,
		`{"feasible": true, "issues": []}`,
	}}

	engine := &Engine{Store: ms, LLM: llm, Capability: newRegistry()}
	ctx := context.Background()

	mission, err := ms.CreateMission(ctx, domain.Mission{ID: "mission-1", Status: domain.MissionInProgress})
	require.NoError(t, err)

	err = engine.Run(ctx, Input{MissionID: mission.ID, Directive: "build the thing", PlannerAgentID: "planner-1"})
	require.NoError(t, err)

	steps, err := ms.ListMissionSteps(ctx, mission.ID)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	require.Equal(t, "agent-eng-1", steps[0].AssignedAgent)
	require.Equal(t, domain.StepPending, steps[0].Status)
}

func TestRunFallsBackOnMalformedJSON(t *testing.T) {
	ms := memstore.New()
	llm := &scriptedLLM{responses: []string{"not json at all"}}
	engine := &Engine{Store: ms, LLM: llm, Capability: newRegistry()}
	ctx := context.Background()

	mission, err := ms.CreateMission(ctx, domain.Mission{ID: "mission-2", Status: domain.MissionInProgress})
	require.NoError(t, err)

	err = engine.Run(ctx, Input{MissionID: mission.ID, Directive: "do the thing verbatim", PlannerAgentID: "planner-1"})
	require.NoError(t, err)

	steps, err := ms.ListMissionSteps(ctx, mission.ID)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	require.Equal(t, "do the thing verbatim", steps[0].Description)
}

func TestRunPersistsEscalatedPlanWithoutCreatingSteps(t *testing.T) {
	ms := memstore.New()
	llm := &scriptedLLM{responses: []string{
		`{"tasks":[],"endState":"hybrid","escalationNeeded":true,"escalationReason":"this is over budget for the quarter"}`,
	}}
	engine := &Engine{Store: ms, LLM: llm, Capability: newRegistry()}
	ctx := context.Background()

	mission, err := ms.CreateMission(ctx, domain.Mission{ID: "mission-3", Status: domain.MissionInProgress})
	require.NoError(t, err)

	err = engine.Run(ctx, Input{MissionID: mission.ID, Directive: "boil the ocean", PlannerAgentID: "planner-1"})
	require.NoError(t, err)

	plans := ms.Plans()
	require.Len(t, plans, 1, "an escalated plan is still persisted for audit")
	require.True(t, plans[0].EscalationNeeded)

	escalations := ms.Escalations()
	require.Len(t, escalations, 1)
	require.Equal(t, domain.EscalationBudget, escalations[0].Type)

	steps, err := ms.ListMissionSteps(ctx, mission.ID)
	require.NoError(t, err)
	require.Empty(t, steps, "escalation skips step materialization only")
}

func TestClassifyEscalation(t *testing.T) {
	require.Equal(t, domain.EscalationBudget, classifyEscalation("this is over budget for the quarter"))
	require.Equal(t, domain.EscalationBrand, classifyEscalation("risk to our brand reputation"))
	require.Equal(t, domain.EscalationAmbiguity, classifyEscalation("unclear what they want"))
}
