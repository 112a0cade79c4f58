package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractURLsDedupesAndTrimsTrailingPunctuation(t *testing.T) {
	text := "See https://example.com/a. Also https://example.com/a and https://example.com/b,"
	urls := extractURLs(text)
	require.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, urls)
}

func TestValidateCitationsScoresFractionOfCitedParagraphs(t *testing.T) {
	sources := []Source{{URL: "https://example.com/a"}}
	artifact := "Claim one backed by https://example.com/a.\n\nClaim two with no citation at all.\n\n# heading only"

	score := validateCitations(artifact, sources)
	require.InDelta(t, 0.5, score, 0.001)
}

func TestValidateCitationsZeroWhenNoFactualParagraphs(t *testing.T) {
	require.Equal(t, float64(0), validateCitations("# just a heading\n\n", nil))
}

func TestValidateCitationsIgnoresURLNotInSourceList(t *testing.T) {
	artifact := "Claim backed by https://unknown.example.com/x."
	score := validateCitations(artifact, []Source{{URL: "https://example.com/a"}})
	require.Equal(t, float64(0), score)
}

func TestUncitedURLsReportsOnlyURLsMissingFromSources(t *testing.T) {
	artifact := "See https://example.com/a and https://other.example.com/b."
	uncited := uncitedURLs(artifact, []Source{{URL: "https://example.com/a"}})
	require.Equal(t, []string{"https://other.example.com/b"}, uncited)
}
