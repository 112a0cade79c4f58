package llmclient

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// StripFences removes a surrounding markdown code fence, if present,
// returning the inner content unchanged otherwise. LLM responses routinely
// wrap JSON in ```json ... ``` fences (§9 "LLM JSON parsing").
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if m := fencePattern.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

// ParseJSON strips fences and unmarshals into v. Callers apply their own
// per-phase fallback on error; this never panics and never retries.
func ParseJSON(s string, v any) error {
	return json.Unmarshal([]byte(StripFences(s)), v)
}
