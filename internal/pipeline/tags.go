package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/forgelane/conductor/internal/capability"
)

// artifactTagPattern matches the tag formats agents may leave in their
// output for post-hoc resolution: [WEB_SEARCH:query], [WEB_FETCH:url],
// [SOCIAL_POST:...] (§6 "Artifact tag formats").
var artifactTagPattern = regexp.MustCompile(`\[(WEB_SEARCH|WEB_FETCH|SOCIAL_POST):([^\]]+)\]`)

// tagExcerptLen bounds how much fetched content a resolved WEB_FETCH tag
// inlines into the artifact.
const tagExcerptLen = 600

// maxPrefetchURLs caps how many URLs named in a task description are
// auto-pre-fetched before research round 1 (§6).
const maxPrefetchURLs = 3

// resolveArtifactTags replaces WEB_SEARCH and WEB_FETCH tags in an agent's
// output with their resolved material, drawing from the execution's
// remaining query/fetch budget. A tag that cannot be resolved (no budget,
// collaborator offline, fetch error) is left in place. SOCIAL_POST tags
// belong to the posting collaborator and pass through untouched.
func (p *Pipeline) resolveArtifactTags(ctx context.Context, artifact string, bt *budgetTracker) string {
	if p.Web == nil || !artifactTagPattern.MatchString(artifact) {
		return artifact
	}
	budgets := p.Capability.Budgets()
	return artifactTagPattern.ReplaceAllStringFunc(artifact, func(m string) string {
		sub := artifactTagPattern.FindStringSubmatch(m)
		kind, arg := sub[1], strings.TrimSpace(sub[2])
		switch kind {
		case "WEB_SEARCH":
			if !bt.useQuery() {
				return m
			}
			results, err := p.Web.SearchWeb(ctx, arg, budgets.MaxURLsPerQuery)
			if err != nil || len(results) == 0 {
				return m
			}
			var b strings.Builder
			for _, r := range results {
				fmt.Fprintf(&b, "- %s (%s)\n", r.Title, r.URL)
			}
			return strings.TrimRight(b.String(), "\n")
		case "WEB_FETCH":
			if !bt.useFetch() {
				return m
			}
			page, err := p.Web.FetchPage(ctx, arg, budgets.MaxCharsPerPage)
			if err != nil {
				return m
			}
			excerpt := page.Content
			if len(excerpt) > tagExcerptLen {
				excerpt = excerpt[:tagExcerptLen]
			}
			return fmt.Sprintf("%s (%s)", excerpt, page.URL)
		}
		return m
	})
}

// prefetchDescriptionURLs fetches URLs embedded in the task description
// (cap 3) before research round 1, so pages the directive explicitly names
// always reach the source list (§6).
func (p *Pipeline) prefetchDescriptionURLs(ctx context.Context, description string, bt *budgetTracker, budgets capability.Budgets) []Source {
	if p.Web == nil {
		return nil
	}
	urls := extractURLs(description)
	if len(urls) > maxPrefetchURLs {
		urls = urls[:maxPrefetchURLs]
	}
	var out []Source
	for _, u := range urls {
		if !bt.useFetch() {
			break
		}
		page, err := p.Web.FetchPage(ctx, u, budgets.MaxCharsPerPage)
		if err != nil {
			continue
		}
		out = append(out, Source{URL: page.URL, Title: page.Title, CharCount: len(page.Content)})
	}
	return out
}
