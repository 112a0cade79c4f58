package llmclient

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/forgelane/conductor/internal/domain"
)

// UsageRecorder is the narrow slice of the store collaborator the
// recording wrapper needs, decoupling this package from internal/store.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, u domain.UsageRecord) error
}

// RecordingClient wraps a Client and persists a UsageRecord for every call,
// with the agent id sanitized per §4.6 before it reaches a foreign-keyed
// row (supplement: usage/cost ledger).
type RecordingClient struct {
	Inner Client
	Store UsageRecorder
}

func (c *RecordingClient) Call(ctx context.Context, tier Tier, in CallInput) (CallResult, error) {
	res, err := c.Inner.Call(ctx, tier, in)
	if err != nil {
		return res, err
	}

	effectiveTier := tier
	if in.ForceTier != "" {
		effectiveTier = in.ForceTier
	}
	record := domain.UsageRecord{
		ID:               uuid.NewString(),
		StepID:           in.StepID,
		AgentID:          domain.SanitizeAgentID(in.AgentID),
		Tier:             domain.ModelTier(effectiveTier),
		PromptTokens:     res.Usage.PromptTokens,
		CompletionTokens: res.Usage.CompletionTokens,
	}
	if c.Store != nil {
		if err := c.Store.RecordUsage(ctx, record); err != nil {
			slog.Warn("llmclient: record usage failed", "error", err)
		}
	}
	return res, nil
}
