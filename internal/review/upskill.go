package review

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/forgelane/conductor/internal/domain"
	"github.com/forgelane/conductor/internal/llmclient"
)

type upskillAnalysis struct {
	SkillGap          string `json:"skillGap"`
	ExpertiseAddition string `json:"expertiseAddition"`
}

// upskillAgent implements the persona-upgrade trigger (§4.5 step 7): at 5
// rejections on one step, ask an LLM to analyze the feedbacks and append
// the resulting expertise to the agent's persona as a new immutable
// version. Kept for safety though naturally unreachable once the 3-strike
// cap fails the step first (§9 Open Questions).
func (p *Processor) upskillAgent(ctx context.Context, agentID, stepID string) {
	if agentID == "" {
		return
	}

	res, err := p.LLM.Call(ctx, llmclient.TierCheap, llmclient.CallInput{
		SystemPrompt: "Analyze this agent's repeated review feedback and identify the underlying skill gap. Respond with strict JSON: {\"skillGap\": \"...\", \"expertiseAddition\": \"...\"}.",
		UserMessage:  fmt.Sprintf("Agent %s has accumulated repeated rejections on step %s.", agentID, stepID),
		AgentID:      agentID,
	})
	if err != nil || res.Err != nil {
		slog.Warn("review: upskill analysis call failed", "agent_id", agentID, "error", err)
		return
	}

	var analysis upskillAnalysis
	if err := llmclient.ParseJSON(res.Content, &analysis); err != nil || analysis.ExpertiseAddition == "" {
		slog.Warn("review: upskill analysis unparseable", "agent_id", agentID)
		return
	}

	current, err := p.Store.CurrentPersona(ctx, agentID)
	nextVersion := 1
	if err == nil {
		nextVersion = current.Version + 1
	}

	if err := p.Store.AppendPersona(ctx, domain.Persona{
		ID: uuid.NewString(), AgentID: agentID, Version: nextVersion,
		SystemPromptAddendum: analysis.ExpertiseAddition,
	}); err != nil {
		slog.Warn("review: append persona failed", "agent_id", agentID, "error", err)
		return
	}

	if err := p.Store.RecordEvent(ctx, domain.Event{
		ID: uuid.NewString(), Kind: domain.EventAgentUpskilled, StepID: stepID,
		Payload: map[string]any{"agentId": agentID, "skillGap": analysis.SkillGap},
	}); err != nil {
		slog.Warn("review: record agent_upskilled event failed", "error", err)
	}
}
