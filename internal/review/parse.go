package review

import (
	"regexp"
	"strconv"
	"strings"
)

// autoRejectThreshold is the overall score below which an APPROVE verdict
// is flipped to REJECT regardless of the tag the model emitted (§4.5 step
// 6 "Auto-reject override").
const autoRejectThreshold = 3.0

var scorePattern = regexp.MustCompile(`(?i)(relevance|depth|actionability|accuracy|executive_quality)\s*:\s*([0-9](?:\.[0-9])?)`)
var verdictPattern = regexp.MustCompile(`(?i)\[(APPROVE|REJECT)\]`)
var feedbackSectionPattern = regexp.MustCompile(`(?is)FEEDBACK\s*\n(.+)$`)

// parsedVerdict is the extracted shape of a reviewer's response.
type parsedVerdict struct {
	Scores       map[string]float64
	Overall      float64
	Approved     bool
	AutoRejected bool
	Feedback     string
}

// parseVerdict extracts per-criterion scores, the verdict tag, and the
// feedback block, applying the auto-reject override. Default verdict on
// ambiguity is approve, fail-open to avoid blocking (§4.5 step 6).
func parseVerdict(content string) parsedVerdict {
	scores := make(map[string]float64)
	for _, m := range scorePattern.FindAllStringSubmatch(content, -1) {
		key := strings.ToLower(m[1])
		if v, err := strconv.ParseFloat(m[2], 64); err == nil {
			scores[key] = v
		}
	}

	overall := 0.0
	if len(scores) > 0 {
		sum := 0.0
		for _, v := range scores {
			sum += v
		}
		overall = sum / float64(len(scores))
	}

	approved := true // fail-open default (§4.5 step 6)
	if m := verdictPattern.FindStringSubmatch(content); m != nil {
		approved = strings.EqualFold(m[1], "APPROVE")
	}

	autoRejected := false
	if approved && len(scores) > 0 && overall < autoRejectThreshold {
		approved = false
		autoRejected = true
	}

	feedback := ""
	if m := feedbackSectionPattern.FindStringSubmatch(content); m != nil {
		feedback = strings.TrimSpace(m[1])
	}

	return parsedVerdict{
		Scores: scores, Overall: overall, Approved: approved,
		AutoRejected: autoRejected, Feedback: feedback,
	}
}
