package domain

import "strings"

// SanitizeAgentID normalizes an agent id for any foreign-keyed row (§4.6):
// values that are not of the form "agent-*" (e.g. "system", "frasier") are
// normalized to empty, which store implementations persist as NULL.
func SanitizeAgentID(id string) string {
	if strings.HasPrefix(id, "agent-") {
		return id
	}
	return ""
}
