package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
)

// jsonCodecName is registered with grpc's codec registry so the tiered
// service call can be invoked without a protoc-generated stub: the model
// server speaks gRPC framing with a JSON payload instead of protobuf wire
// format. This mirrors how the teacher's legacy gRPC client talks to a
// Python-hosted model server — the transport is gRPC, the payload codec is
// swappable.
const jsonCodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return jsonCodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// generateRequest/generateResponse are the wire shapes for the single
// "Generate" RPC the model-serving tier exposes.
type generateRequest struct {
	SystemPrompt string `json:"system_prompt"`
	UserMessage  string `json:"user_message"`
	AgentID      string `json:"agent_id"`
	Tier         string `json:"tier"`
}

type generateResponse struct {
	Content          string `json:"content"`
	Model            string `json:"model"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	Error            string `json:"error,omitempty"`
}

// TierEndpoints maps each tier to the address of the model-serving backend
// responsible for it. Tiers may share an address (routed by the "tier"
// field) or be split across distinct deployments.
type TierEndpoints map[Tier]string

// GRPCClient is the production Client: one gRPC connection per configured
// tier endpoint, a 10s-bounded unary call per §5 timeout policy.
type GRPCClient struct {
	conns map[Tier]*grpc.ClientConn
}

// Dial opens a connection to each configured tier endpoint. A tier with no
// configured endpoint is left unset; calling it returns
// ErrProviderUnavailable so the core can degrade gracefully (§7).
func Dial(endpoints TierEndpoints) (*GRPCClient, error) {
	c := &GRPCClient{conns: make(map[Tier]*grpc.ClientConn, len(endpoints))}
	for tier, addr := range endpoints {
		if addr == "" {
			continue
		}
		conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, fmt.Errorf("llmclient: dial %s for %s: %w", addr, tier, err)
		}
		c.conns[tier] = conn
	}
	return c, nil
}

// Close tears down every tier connection.
func (c *GRPCClient) Close() error {
	var firstErr error
	for _, conn := range c.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Call performs one tiered generation call with a 10s deadline (§5).
func (c *GRPCClient) Call(ctx context.Context, tier Tier, in CallInput) (CallResult, error) {
	effectiveTier := tier
	if in.ForceTier != "" {
		effectiveTier = in.ForceTier
	}
	conn, ok := c.conns[effectiveTier]
	if !ok {
		return CallResult{}, ErrProviderUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req := &generateRequest{
		SystemPrompt: in.SystemPrompt,
		UserMessage:  in.UserMessage,
		AgentID:      in.AgentID,
		Tier:         string(effectiveTier),
	}
	var resp generateResponse
	err := conn.Invoke(ctx, "/conductor.llm.LLMService/Generate", req, &resp, grpc.CallContentSubtype(jsonCodecName))
	if err != nil {
		return CallResult{Tier: effectiveTier}, fmt.Errorf("llmclient: generate call: %w", err)
	}
	result := CallResult{
		Content: resp.Content,
		Model:   resp.Model,
		Tier:    effectiveTier,
		Usage: Usage{
			PromptTokens:     resp.PromptTokens,
			CompletionTokens: resp.CompletionTokens,
		},
	}
	if resp.Error != "" {
		result.Err = fmt.Errorf("llmclient: model error: %s", resp.Error)
	}
	return result, nil
}
