package pipeline

import (
	"regexp"
	"strings"
)

var urlPattern = regexp.MustCompile(`https?://[^\s)>\]]+`)

// extractURLs returns every URL cited in text, in order of first
// appearance, deduplicated.
func extractURLs(text string) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range urlPattern.FindAllString(text, -1) {
		m = strings.TrimRight(m, ".,;:\"'")
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

// factualParagraphs splits an artifact into blank-line-separated paragraphs
// and returns those counted as factual claims: every non-empty paragraph
// except markdown headings (a leading "#"). Bullet lists are not excluded.
func factualParagraphs(text string) []string {
	var out []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if strings.HasPrefix(para, "#") {
			continue
		}
		out = append(out, para)
	}
	return out
}

// validateCitations computes the citation score (GLOSSARY): the fraction
// of factual paragraphs carrying a URL present in the research source
// list. 0 if the artifact cites nothing.
func validateCitations(artifact string, sources []Source) float64 {
	known := map[string]bool{}
	for _, s := range sources {
		known[s.URL] = true
	}

	paragraphs := factualParagraphs(artifact)
	if len(paragraphs) == 0 {
		return 0
	}

	cited := 0
	for _, para := range paragraphs {
		for _, u := range extractURLs(para) {
			if known[u] {
				cited++
				break
			}
		}
	}
	return float64(cited) / float64(len(paragraphs))
}

// uncitedURLs reports URLs cited in the artifact that are not present in
// the structured research source list.
func uncitedURLs(artifact string, sources []Source) []string {
	known := map[string]bool{}
	for _, s := range sources {
		known[s.URL] = true
	}
	var out []string
	for _, u := range extractURLs(artifact) {
		if !known[u] {
			out = append(out, u)
		}
	}
	return out
}
