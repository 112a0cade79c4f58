package config

import "fmt"

// Validate checks that a Config can actually drive the three processes:
// a store DSN, at least one role profile, positive scheduler tuning, and
// coherent research budgets. Collaborator credentials are deliberately
// not required — a missing key disables that collaborator (§6).
func (c Config) Validate() error {
	if c.DatabaseDSN == "" {
		return fmt.Errorf("config: DATABASE_URL is required")
	}
	if len(c.Roles) == 0 {
		return fmt.Errorf("config: at least one role profile is required")
	}
	if c.Scheduler.TickInterval <= 0 {
		return fmt.Errorf("config: scheduler tick_interval must be positive, got %s", c.Scheduler.TickInterval)
	}
	if c.Scheduler.CandidateLimit <= 0 {
		return fmt.Errorf("config: scheduler candidate_limit must be positive, got %d", c.Scheduler.CandidateLimit)
	}
	if c.Heartbeat.ApprovalPollInterval <= 0 {
		return fmt.Errorf("config: heartbeat approval_poll_interval must be positive, got %s", c.Heartbeat.ApprovalPollInterval)
	}
	b := c.Budgets
	if b.MaxQueriesPerStep <= 0 || b.MaxFetchesPerStep <= 0 || b.MaxURLsPerQuery <= 0 || b.MaxCharsPerPage <= 0 {
		return fmt.Errorf("config: research budgets must all be positive")
	}
	if b.MaxResearchIterations < b.MinResearchIterations {
		return fmt.Errorf("config: max research iterations (%d) below min (%d)", b.MaxResearchIterations, b.MinResearchIterations)
	}
	return nil
}
