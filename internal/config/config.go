// Package config loads and validates the process configuration: agent
// roster, role capability profiles, mirror/LLM/web collaborator settings,
// and scheduler tuning — the umbrella struct pattern the teacher uses for
// its own agent/chain/MCP registries.
package config

import (
	"time"

	"github.com/forgelane/conductor/internal/capability"
	"github.com/forgelane/conductor/internal/llmclient"
)

// SchedulerConfig tunes the DAG scheduler and worker (§4.3, §5).
type SchedulerConfig struct {
	TickInterval            time.Duration `yaml:"tick_interval"`
	CandidateLimit          int           `yaml:"candidate_limit"`
	GracefulShutdownTimeout time.Duration `yaml:"graceful_shutdown_timeout"`
	OrphanThreshold         time.Duration `yaml:"orphan_threshold"`
}

// DefaultSchedulerConfig matches §4.3's fixed 10s tick.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		TickInterval:            10 * time.Second,
		CandidateLimit:          50,
		GracefulShutdownTimeout: 15 * time.Minute,
		OrphanThreshold:         5 * time.Minute,
	}
}

// HeartbeatConfig tunes the P2 process (mirror polling, approval
// enqueuing).
type HeartbeatConfig struct {
	MirrorPollInterval   time.Duration `yaml:"mirror_poll_interval"`
	ApprovalPollInterval time.Duration `yaml:"approval_poll_interval"`
}

// DefaultHeartbeatConfig is a reasonable default absent explicit tuning.
func DefaultHeartbeatConfig() HeartbeatConfig {
	return HeartbeatConfig{
		MirrorPollInterval:   30 * time.Second,
		ApprovalPollInterval: 10 * time.Second,
	}
}

// MirrorConfig carries the external project-tracker credentials (§6). A
// zero-value MirrorConfig (no API key) disables the collaborator.
type MirrorConfig struct {
	APIKey        string
	TeamID        string
	APIUserID     string
	WebhookSecret string
	Endpoint      string
}

// Enabled reports whether enough configuration is present to talk to the
// mirror collaborator at all.
func (m MirrorConfig) Enabled() bool {
	return m.APIKey != "" && m.TeamID != ""
}

// Config is the top-level process configuration.
type Config struct {
	DatabaseDSN string
	Scheduler   SchedulerConfig
	Heartbeat   HeartbeatConfig
	Mirror      MirrorConfig
	BraveAPIKey string
	LLMTiers    llmclient.TierEndpoints
	Roles       []capability.RoleProfile
	Budgets     capability.Budgets
}
