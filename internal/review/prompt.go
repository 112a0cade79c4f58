package review

import (
	"fmt"
	"strings"

	"github.com/forgelane/conductor/internal/domain"
)

// qaScopeLimitation is injected when a QA reviewer reviews a
// non-engineering task, restricting them to technical quality, citations,
// and acceptance criteria rather than domain expertise (§4.5 step 3).
const qaScopeLimitation = `SCOPE NOTE: as a QA reviewer on a non-engineering task, judge only technical
quality, citation soundness, and whether the acceptance criteria were met.
Do not evaluate domain expertise outside that scope.`

const reviewRubric = `Score each criterion 1-5:
- Relevance: does the deliverable address the original request?
- Depth: does it go beyond surface-level treatment?
- Actionability: can the reader act on this directly?
- Accuracy: is it factually sound and properly sourced?
- Executive Quality: would this be presentable as-is to a stakeholder?

Respond with these exact sections:
SCORES
relevance: n
depth: n
actionability: n
accuracy: n
executive_quality: n

VERDICT
[APPROVE] or [REJECT]

FEEDBACK
one or two sentences explaining the verdict.`

// engineeringRoles is the set of roles buildReviewPrompt treats as
// "engineering" for the QA scope-adjustment rule (§4.5 step 3).
var engineeringRoles = map[string]bool{"engineer": true, "qa": true}

// buildReviewPrompt assembles the structured review prompt (§4.5 step 2):
// original user request, task description, deliverable, the 5-criterion
// rubric, and the verdict tag instruction.
func buildReviewPrompt(mission domain.Mission, step domain.Step, reviewType domain.ReviewType) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ORIGINAL REQUEST\n%s\n\n", mission.Directive)
	fmt.Fprintf(&b, "TASK\n%s\n\n", step.Description)
	if step.AcceptanceCrit != "" {
		fmt.Fprintf(&b, "ACCEPTANCE CRITERIA\n%s\n\n", step.AcceptanceCrit)
	}
	fmt.Fprintf(&b, "DELIVERABLE\n%s\n\n", step.ResultArtifact)

	if reviewType == domain.ReviewQA && !engineeringRoles[step.Role] {
		b.WriteString(qaScopeLimitation)
		b.WriteString("\n\n")
	}

	b.WriteString(reviewRubric)
	return b.String()
}
