package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/forgelane/conductor/internal/capability"
	"github.com/forgelane/conductor/internal/llmclient"
)

// roleFile is the on-disk YAML shape for role profiles.
type roleFile struct {
	Roles []struct {
		Role      string   `yaml:"role"`
		Strengths []string `yaml:"strengths"`
		Cannots   []string `yaml:"cannots"`
		Tools     []struct {
			Name        string `yaml:"name"`
			Description string `yaml:"description"`
		} `yaml:"tools"`
	} `yaml:"roles"`
}

// LoadRoles reads and env-expands a role-profile YAML file.
func LoadRoles(path string) ([]capability.RoleProfile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read roles file %s: %w", path, err)
	}
	expanded := ExpandEnv(string(raw))
	var parsed roleFile
	if err := yaml.Unmarshal([]byte(expanded), &parsed); err != nil {
		return nil, fmt.Errorf("config: parse roles file %s: %w", path, err)
	}
	out := make([]capability.RoleProfile, 0, len(parsed.Roles))
	for _, r := range parsed.Roles {
		p := capability.RoleProfile{Role: r.Role, Strengths: r.Strengths, Cannots: r.Cannots}
		for _, t := range r.Tools {
			p.Tools = append(p.Tools, capability.ToolBudget{Name: t.Name, Description: t.Description})
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("config: %s declares no roles", path)
	}
	return out, nil
}

// FromEnv builds a Config from environment variables, matching the env
// vars named in §6: LINEAR_API_KEY, LINEAR_TEAM_ID, LINEAR_API_USER_ID,
// LINEAR_WEBHOOK_SECRET, BRAVE_API_KEY. Missing keys disable the
// corresponding collaborator; the core still functions (§6). The result
// is validated before it is returned.
func FromEnv(rolesPath string) (Config, error) {
	roles, err := LoadRoles(rolesPath)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		DatabaseDSN: os.Getenv("DATABASE_URL"),
		Scheduler:   DefaultSchedulerConfig(),
		Heartbeat:   DefaultHeartbeatConfig(),
		Mirror: MirrorConfig{
			APIKey:        os.Getenv("LINEAR_API_KEY"),
			TeamID:        os.Getenv("LINEAR_TEAM_ID"),
			APIUserID:     os.Getenv("LINEAR_API_USER_ID"),
			WebhookSecret: os.Getenv("LINEAR_WEBHOOK_SECRET"),
			Endpoint:      envOr("LINEAR_ENDPOINT", "https://api.linear.app/graphql"),
		},
		BraveAPIKey: os.Getenv("BRAVE_API_KEY"),
		LLMTiers: llmclient.TierEndpoints{
			llmclient.TierCheap:     os.Getenv("LLM_TIER1_ADDR"),
			llmclient.TierMedium:    os.Getenv("LLM_TIER2_ADDR"),
			llmclient.TierExpensive: os.Getenv("LLM_TIER3_ADDR"),
		},
		Roles:   roles,
		Budgets: capability.DefaultBudgets(),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
