package decomposition

import (
	"strings"

	"github.com/forgelane/conductor/internal/domain"
)

// escalationKeywords is an ordered keyword->type table; the first match
// wins. Ordered so more specific categories (brand, capability_gap) are
// checked before the catch-all ambiguity bucket.
var escalationKeywords = []struct {
	typ      domain.EscalationType
	keywords []string
}{
	{domain.EscalationBudget, []string{"budget", "cost", "too expensive", "over budget"}},
	{domain.EscalationBrand, []string{"brand", "trademark", "reputation"}},
	{domain.EscalationCapabilityGap, []string{"no agent", "nobody can", "unsupported", "not capable", "capability"}},
	{domain.EscalationStrategic, []string{"strategic", "executive decision", "leadership", "priorit"}},
}

// classifyEscalation infers an escalation's type by keyword from the
// reason text (§4.2 step 9), defaulting to ambiguity.
func classifyEscalation(reason string) domain.EscalationType {
	lower := strings.ToLower(reason)
	for _, entry := range escalationKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.typ
			}
		}
	}
	return domain.EscalationAmbiguity
}
