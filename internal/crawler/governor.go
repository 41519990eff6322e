package crawler

import "github.com/JakeFAU/station-crawler/internal/telemetry"

// DefaultRetryThreshold is the number of accumulated failures that forces a restart.
const DefaultRetryThreshold = 100

// RetryGovernor counts failures across the whole crawl, not per marker, so a
// long run of small failures on different markers still triggers recovery.
type RetryGovernor struct {
	count     int
	threshold int
}

// NewRetryGovernor returns a governor with the given threshold, or
// DefaultRetryThreshold when threshold is not positive.
func NewRetryGovernor(threshold int) *RetryGovernor {
	if threshold <= 0 {
		threshold = DefaultRetryThreshold
	}
	return &RetryGovernor{threshold: threshold}
}

// RecordFailure adds one failure to the budget.
func (g *RetryGovernor) RecordFailure() {
	g.count++
	telemetry.SetRetryBudgetUsed(g.count)
}

// ShouldRestart reports whether the budget is exhausted.
func (g *RetryGovernor) ShouldRestart() bool {
	return g.count >= g.threshold
}

// Reset empties the budget. Call it right after a restart.
func (g *RetryGovernor) Reset() {
	g.count = 0
	telemetry.SetRetryBudgetUsed(0)
}

// Count returns the failures recorded since the last reset.
func (g *RetryGovernor) Count() int {
	return g.count
}

// Threshold returns the restart threshold.
func (g *RetryGovernor) Threshold() int {
	return g.threshold
}
