// Package llmclient is the tiered LLM collaborator (§6). It is the one
// narrow interface the core depends on for all generation; callers never
// see the transport (gRPC to a model-serving tier) underneath it.
package llmclient

import (
	"context"
	"errors"
)

// Tier selects which backing model serves a call.
type Tier string

const (
	TierCheap     Tier = "tier1"
	TierMedium    Tier = "tier2"
	TierExpensive Tier = "tier3"
)

// ErrProviderUnavailable is returned when the configured tier has no
// reachable backend. Callers must treat this as a transient failure (§7)
// and degrade, never crash.
var ErrProviderUnavailable = errors.New("llmclient: provider unavailable")

// Usage is the token accounting returned alongside every completion.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// CallInput is the single call-shape every collaborator use goes through.
type CallInput struct {
	SystemPrompt string
	UserMessage  string
	AgentID      string
	StepID       string // optional; empty if the call is not step-scoped
	ForceTier    Tier   // if empty, the caller's default tier applies
}

// CallResult is the tiered call's response envelope (§6).
type CallResult struct {
	Content string
	Model   string
	Tier    Tier
	Usage   Usage
	Err     error
}

// Client is the narrow interface the core depends on. A production
// implementation dials a model-serving tier over gRPC; tests substitute a
// canned double.
type Client interface {
	Call(ctx context.Context, tier Tier, in CallInput) (CallResult, error)
}
