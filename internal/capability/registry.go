// Package capability is the static, process-wide registry of per-role
// tools, strengths, and CANNOTs, plus the global numeric budgets that bound
// every pipeline execution. It is immutable after construction (§5 "shared
// resource policy").
package capability

import (
	"fmt"
	"strings"
)

// Budgets are the global numeric limits referenced throughout the pipeline
// and scheduler. These are the single source of truth (§4.1).
type Budgets struct {
	MaxQueriesPerStep     int
	MaxFetchesPerStep     int
	MaxURLsPerQuery       int
	MaxCharsPerPage       int
	MinResearchIterations int
	MaxResearchIterations int
}

// DefaultBudgets matches the manifest's numeric constraints section.
func DefaultBudgets() Budgets {
	return Budgets{
		MaxQueriesPerStep:     6,
		MaxFetchesPerStep:     16,
		MaxURLsPerQuery:       3,
		MaxCharsPerPage:       8000,
		MinResearchIterations: 2,
		MaxResearchIterations: 4,
	}
}

// RoleProfile describes one role's tools, strengths, and explicit CANNOTs.
type RoleProfile struct {
	Role      string
	Tools     []ToolBudget
	Strengths []string
	Cannots   []string
}

// ToolBudget names a tool and an inline quantitative limit, if any.
type ToolBudget struct {
	Name        string
	Description string
}

// Registry is the static capability table. Construct once at process start
// via NewRegistry and treat as read-only thereafter.
type Registry struct {
	roles   map[string]RoleProfile
	budgets Budgets
}

// NewRegistry builds a Registry from role profiles and budgets.
func NewRegistry(roles []RoleProfile, budgets Budgets) *Registry {
	r := &Registry{roles: make(map[string]RoleProfile, len(roles)), budgets: budgets}
	for _, p := range roles {
		r.roles[p.Role] = p
	}
	return r
}

// Budgets returns the global numeric constraints.
func (r *Registry) Budgets() Budgets {
	return r.budgets
}

// RoleProfile returns the profile for a role, or false if unknown.
func (r *Registry) RoleProfile(role string) (RoleProfile, bool) {
	p, ok := r.roles[role]
	return p, ok
}

// BuildManifest renders the textual block injected into planning and
// feasibility prompts: per-role tools/strengths/cannots, the global
// constraints section, and the MapReduce splitting rule.
func (r *Registry) BuildManifest() string {
	var b strings.Builder
	b.WriteString("CAPABILITY MANIFEST\n\n")
	for role, p := range r.roles {
		fmt.Fprintf(&b, "Role: %s\n", role)
		if len(p.Tools) > 0 {
			b.WriteString("  Tools:\n")
			for _, t := range p.Tools {
				fmt.Fprintf(&b, "    - %s: %s\n", t.Name, t.Description)
			}
		}
		if len(p.Strengths) > 0 {
			fmt.Fprintf(&b, "  Strengths: %s\n", strings.Join(p.Strengths, ", "))
		}
		if len(p.Cannots) > 0 {
			fmt.Fprintf(&b, "  CANNOT: %s\n", strings.Join(p.Cannots, "; "))
		}
	}
	fmt.Fprintf(&b, "\nGlobal constraints:\n")
	fmt.Fprintf(&b, "  %d search queries per step\n", r.budgets.MaxQueriesPerStep)
	fmt.Fprintf(&b, "  %d page fetches per step\n", r.budgets.MaxFetchesPerStep)
	fmt.Fprintf(&b, "  %d URLs per query\n", r.budgets.MaxURLsPerQuery)
	fmt.Fprintf(&b, "  ~%d chars per page\n", r.budgets.MaxCharsPerPage)
	fmt.Fprintf(&b, "  %d-%d research iterations\n", r.budgets.MinResearchIterations, r.budgets.MaxResearchIterations)
	b.WriteString("\nRules:\n")
	b.WriteString("  Acceptance criteria must be achievable inside one step's budget.\n")
	b.WriteString("  Work covering more than N items must be split into multiple parallel steps with a synthesis step merging them (MapReduce pattern).\n")
	return b.String()
}
