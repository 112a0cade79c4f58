package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNeedsRevisionOnLowSingleDimension(t *testing.T) {
	c := critiqueResult{Completeness: 4, Accuracy: 4, Actionability: 2.5, Depth: 4}
	require.True(t, needsRevision(c), "any dimension below 3.0 triggers revision regardless of average")
}

func TestNeedsRevisionOnLowAverage(t *testing.T) {
	c := critiqueResult{Completeness: 3.2, Accuracy: 3.2, Actionability: 3.2, Depth: 3.2}
	require.True(t, needsRevision(c), "average below 3.5 triggers revision even with no single low dimension")
}

func TestNeedsRevisionFalseWhenHealthy(t *testing.T) {
	c := critiqueResult{Completeness: 4, Accuracy: 4, Actionability: 4, Depth: 4}
	require.False(t, needsRevision(c))
}

func TestNeedsRevisionFalseWhenEveryDimensionExactlyThree(t *testing.T) {
	c := critiqueResult{Completeness: 3.0, Accuracy: 3.0, Actionability: 3.0, Depth: 3.0}
	require.False(t, needsRevision(c), "a uniform 3.0 is a good score and must not trigger revision")
}

func TestNeedsRevisionFalseWhenMalformed(t *testing.T) {
	c := critiqueResult{malformed: true}
	require.False(t, needsRevision(c), "a malformed critique defaults to no revision, per the fail-open default score")
}

func TestCritiqueAverage(t *testing.T) {
	c := critiqueResult{Completeness: 2, Accuracy: 4, Actionability: 3, Depth: 3}
	require.InDelta(t, 3.0, c.average(), 0.001)
}
