// Package domain defines monthly time usage aggregation.
package domain

import (
	"context"
	"time"
)

// Strategy names for observability: which query path served a summary.
const (
	StrategyBillableFilter = "billable_filter"
	StrategyDateRange      = "date_range"
)

// Summary is the derived usage for one contract in one calendar month.
// It is computed, never persisted on its own.
type Summary struct {
	BillableHours float64
	LaborCost     float64

	// Strategy records which query strategy produced the summary.
	Strategy string
}

// Aggregator sums billable hours and labor cost for a calendar month.
type Aggregator interface {
	MonthlyUsage(ctx context.Context, contractID int64, year int, month time.Month) (Summary, error)
}

// MonthBounds returns the first and last calendar day of a month, UTC.
func MonthBounds(year int, month time.Month) (time.Time, time.Time) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first, last
}

// MonthKey formats the canonical (client, month) row key, e.g. "2026-08".
func MonthKey(year int, month time.Month) string {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}
