package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgelane/conductor/internal/capability"
)

func newTagPipeline(web *countingWeb) (*Pipeline, *budgetTracker) {
	budgets := capability.DefaultBudgets()
	reg := capability.NewRegistry([]capability.RoleProfile{{Role: "engineer"}}, budgets)
	return &Pipeline{Web: web, Capability: reg}, newBudgetTracker(budgets)
}

func TestResolveArtifactTagsReplacesWebFetch(t *testing.T) {
	web := &countingWeb{pageLen: 40}
	p, bt := newTagPipeline(web)

	out := p.resolveArtifactTags(context.Background(), "Intro. [WEB_FETCH:https://example.com/doc] Outro.", bt)
	require.NotContains(t, out, "[WEB_FETCH:")
	require.Contains(t, out, "https://example.com/doc")
	require.Equal(t, 1, web.fetchCalls)
}

func TestResolveArtifactTagsReplacesWebSearch(t *testing.T) {
	web := &countingWeb{resultsPerQuery: 2}
	p, bt := newTagPipeline(web)

	out := p.resolveArtifactTags(context.Background(), "[WEB_SEARCH:latest numbers]", bt)
	require.NotContains(t, out, "[WEB_SEARCH:")
	require.Contains(t, out, "https://example.com/1/0")
	require.Equal(t, 1, web.searchCalls)
}

func TestResolveArtifactTagsLeavesSocialPostAlone(t *testing.T) {
	web := &countingWeb{}
	p, bt := newTagPipeline(web)

	in := "Announcement: [SOCIAL_POST:we shipped it]"
	require.Equal(t, in, p.resolveArtifactTags(context.Background(), in, bt))
	require.Zero(t, web.searchCalls)
	require.Zero(t, web.fetchCalls)
}

func TestResolveArtifactTagsStopsWhenBudgetExhausted(t *testing.T) {
	web := &countingWeb{pageLen: 40}
	p, bt := newTagPipeline(web)
	for bt.fetchesRemaining() > 0 {
		bt.useFetch()
	}

	in := "[WEB_FETCH:https://example.com/over-budget]"
	require.Equal(t, in, p.resolveArtifactTags(context.Background(), in, bt), "an exhausted fetch budget leaves the tag unresolved")
	require.Zero(t, web.fetchCalls)
}

func TestPrefetchDescriptionURLsCapsAtThree(t *testing.T) {
	web := &countingWeb{pageLen: 600}
	p, bt := newTagPipeline(web)

	description := "Compare https://a.example/1 https://b.example/2 https://c.example/3 https://d.example/4"
	sources := p.prefetchDescriptionURLs(context.Background(), description, bt, capability.DefaultBudgets())
	require.Len(t, sources, 3, "only the first three description URLs are pre-fetched")
	require.Equal(t, 3, web.fetchCalls)
}
