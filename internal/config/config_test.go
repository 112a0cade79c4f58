package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgelane/conductor/internal/capability"
)

func TestExpandEnvReplacesSetVariable(t *testing.T) {
	t.Setenv("CONDUCTOR_TEST_VAR", "hello")
	got := ExpandEnv("value: ${CONDUCTOR_TEST_VAR}")
	require.Equal(t, "value: hello", got)
}

func TestExpandEnvLeavesUnsetVariableEmpty(t *testing.T) {
	os.Unsetenv("CONDUCTOR_TEST_UNSET")
	got := ExpandEnv("value: ${CONDUCTOR_TEST_UNSET}")
	require.Equal(t, "value: ", got)
}

func writeRolesFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "roles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadRolesParsesProfiles(t *testing.T) {
	path := writeRolesFile(t, `
roles:
  - role: researcher
    strengths: ["deep reading"]
    cannots: ["cannot write code"]
    tools:
      - name: web_search
        description: search the web
`)
	roles, err := LoadRoles(path)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	require.Equal(t, "researcher", roles[0].Role)
	require.Equal(t, []string{"deep reading"}, roles[0].Strengths)
	require.Len(t, roles[0].Tools, 1)
	require.Equal(t, "web_search", roles[0].Tools[0].Name)
}

func TestLoadRolesExpandsEnvReferences(t *testing.T) {
	t.Setenv("CONDUCTOR_TEST_ROLE", "planner")
	path := writeRolesFile(t, `
roles:
  - role: ${CONDUCTOR_TEST_ROLE}
`)
	roles, err := LoadRoles(path)
	require.NoError(t, err)
	require.Equal(t, "planner", roles[0].Role)
}

func TestLoadRolesRejectsEmptyRoleList(t *testing.T) {
	path := writeRolesFile(t, "roles: []\n")
	_, err := LoadRoles(path)
	require.Error(t, err)
}

func TestLoadRolesRejectsMissingFile(t *testing.T) {
	_, err := LoadRoles(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestMirrorConfigEnabledRequiresAPIKeyAndTeamID(t *testing.T) {
	require.False(t, MirrorConfig{}.Enabled())
	require.False(t, MirrorConfig{APIKey: "k"}.Enabled())
	require.False(t, MirrorConfig{TeamID: "t"}.Enabled())
	require.True(t, MirrorConfig{APIKey: "k", TeamID: "t"}.Enabled())
}

func TestFromEnvRequiresDatabaseURL(t *testing.T) {
	path := writeRolesFile(t, "roles:\n  - role: researcher\n")
	os.Unsetenv("DATABASE_URL")
	_, err := FromEnv(path)
	require.Error(t, err)
}

func validConfig() Config {
	return Config{
		DatabaseDSN: "postgres://localhost/conductor",
		Scheduler:   DefaultSchedulerConfig(),
		Heartbeat:   DefaultHeartbeatConfig(),
		Roles:       []capability.RoleProfile{{Role: "researcher"}},
		Budgets:     capability.DefaultBudgets(),
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidateRejectsNonPositiveTickInterval(t *testing.T) {
	cfg := validConfig()
	cfg.Scheduler.TickInterval = 0
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsEmptyRoles(t *testing.T) {
	cfg := validConfig()
	cfg.Roles = nil
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsIncoherentResearchIterations(t *testing.T) {
	cfg := validConfig()
	cfg.Budgets.MaxResearchIterations = 1
	cfg.Budgets.MinResearchIterations = 2
	require.Error(t, cfg.Validate())
}

func TestFromEnvPopulatesFromEnvironment(t *testing.T) {
	path := writeRolesFile(t, "roles:\n  - role: researcher\n")
	t.Setenv("DATABASE_URL", "postgres://localhost/conductor")
	t.Setenv("LINEAR_API_KEY", "key-1")
	t.Setenv("LINEAR_TEAM_ID", "team-1")

	cfg, err := FromEnv(path)
	require.NoError(t, err)
	require.Equal(t, "postgres://localhost/conductor", cfg.DatabaseDSN)
	require.True(t, cfg.Mirror.Enabled())
	require.Equal(t, "https://api.linear.app/graphql", cfg.Mirror.Endpoint)
	require.Equal(t, DefaultSchedulerConfig(), cfg.Scheduler)
}
