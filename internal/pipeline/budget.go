package pipeline

import "github.com/forgelane/conductor/internal/capability"

// budgetTracker is per-execution mutable state bounding LLM/fetch usage
// (I4): sum(queries) <= 6, sum(fetches) <= 16 across the whole execution.
type budgetTracker struct {
	limits capability.Budgets

	queriesUsed int
	fetchesUsed int
}

func newBudgetTracker(limits capability.Budgets) *budgetTracker {
	return &budgetTracker{limits: limits}
}

func (b *budgetTracker) queriesRemaining() int {
	n := b.limits.MaxQueriesPerStep - b.queriesUsed
	if n < 0 {
		return 0
	}
	return n
}

func (b *budgetTracker) fetchesRemaining() int {
	n := b.limits.MaxFetchesPerStep - b.fetchesUsed
	if n < 0 {
		return 0
	}
	return n
}

func (b *budgetTracker) useQuery() bool {
	if b.queriesRemaining() == 0 {
		return false
	}
	b.queriesUsed++
	return true
}

func (b *budgetTracker) useFetch() bool {
	if b.fetchesRemaining() == 0 {
		return false
	}
	b.fetchesUsed++
	return true
}

// snapshot is the budget state injected into synthesis/critique prompts.
type snapshot struct {
	QueriesUsed      int `json:"queriesUsed"`
	FetchesUsed      int `json:"fetchesUsed"`
	QueriesRemaining int `json:"queriesRemaining"`
	FetchesRemaining int `json:"fetchesRemaining"`
}

func (b *budgetTracker) snapshot() snapshot {
	return snapshot{
		QueriesUsed:      b.queriesUsed,
		FetchesUsed:      b.fetchesUsed,
		QueriesRemaining: b.queriesRemaining(),
		FetchesRemaining: b.fetchesRemaining(),
	}
}
