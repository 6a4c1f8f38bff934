// Package progress contains the pure business logic for workflow completion
// percentages. This is part of the Functional Core - no I/O, only pure functions.
package progress

import "math"

// Progress is the completion state of one tracker.
type Progress struct {
	CompletedCount int
	TotalCount     int
	Percent        int
}

// Percent returns round(completed/total*100), clamped to [0, 100].
// A zero total yields 0.
func Percent(completed, total int) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	if completed >= total {
		return 100
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// Compute builds a Progress from live counts.
func Compute(completed, total int) Progress {
	return Progress{CompletedCount: completed, TotalCount: total, Percent: Percent(completed, total)}
}

// CountCompleted counts completed line item IDs that belong to the live
// template. Items completed before being deactivated no longer count.
func CountCompleted(completedIDs []string, inTemplate func(id string) bool) int {
	seen := make(map[string]bool, len(completedIDs))
	n := 0
	for _, id := range completedIDs {
		if seen[id] || !inTemplate(id) {
			continue
		}
		seen[id] = true
		n++
	}
	return n
}

// Drifted reports whether the cached total disagrees with the live total.
func Drifted(cached, live int) bool {
	return cached != live
}

// Overall averages per-trade percentages, skipping trades with no line items
// so an empty trade cannot drag the average down. Returns the rounded average
// and the number of trades counted.
func Overall(trades []Progress) (int, int) {
	sum, counted := 0, 0
	for _, p := range trades {
		if p.TotalCount <= 0 {
			continue
		}
		sum += p.Percent
		counted++
	}
	if counted == 0 {
		return 0, 0
	}
	return int(math.Round(float64(sum) / float64(counted))), counted
}
