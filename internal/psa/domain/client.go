package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnavailable wraps network or API failures; callers treat the
	// affected unit of work as skipped, never fatal to a whole run.
	ErrUnavailable = errors.New("psa_unavailable")

	// ErrFilterUnsupported is returned when the PSA rejects a
	// server-side query filter.
	ErrFilterUnsupported = errors.New("psa_filter_unsupported")
)

// TimeEntryQuery bounds a time entry lookup to one contract and date range.
type TimeEntryQuery struct {
	ContractID   int64
	From         time.Time
	To           time.Time
	BillableOnly bool
}

// Client is the read-only surface this service consumes from the PSA.
// All list calls page until the upstream returns fewer than a full page.
type Client interface {
	QueryContracts(ctx context.Context, clientID int64) ([]Contract, error)
	QueryBlocks(ctx context.Context, contractID int64) ([]ContractBlock, error)
	QueryServiceItems(ctx context.Context, contractID int64) ([]ContractServiceItem, error)
	QueryServiceUnits(ctx context.Context, contractID int64, periodContains time.Time) ([]ContractServiceUnit, error)
	QueryTimeEntries(ctx context.Context, query TimeEntryQuery) ([]TimeEntry, error)

	// SupportsBillableFilter reports whether the upstream accepts the
	// server-side billable filter on time entry queries.
	SupportsBillableFilter(ctx context.Context) bool
}
