package service

import (
	"context"
	"testing"
	"time"

	psadomain "github.com/brightops/usagesync/internal/psa/domain"
	timeusagedomain "github.com/brightops/usagesync/internal/timeusage/domain"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func b(v bool) *bool       { return &v }
func str(v string) *string { return &v }

type stubPSA struct {
	supportsFilter bool
	rejectFilter   bool
	entries        []psadomain.TimeEntry
	err            error

	lastQuery psadomain.TimeEntryQuery
}

func (s *stubPSA) QueryContracts(ctx context.Context, clientID int64) ([]psadomain.Contract, error) {
	return nil, nil
}

func (s *stubPSA) QueryBlocks(ctx context.Context, contractID int64) ([]psadomain.ContractBlock, error) {
	return nil, nil
}

func (s *stubPSA) QueryServiceItems(ctx context.Context, contractID int64) ([]psadomain.ContractServiceItem, error) {
	return nil, nil
}

func (s *stubPSA) QueryServiceUnits(ctx context.Context, contractID int64, periodContains time.Time) ([]psadomain.ContractServiceUnit, error) {
	return nil, nil
}

func (s *stubPSA) QueryTimeEntries(ctx context.Context, query psadomain.TimeEntryQuery) ([]psadomain.TimeEntry, error) {
	s.lastQuery = query
	if s.err != nil {
		return nil, s.err
	}
	if query.BillableOnly {
		if s.rejectFilter {
			return nil, psadomain.ErrFilterUnsupported
		}
		var filtered []psadomain.TimeEntry
		for _, entry := range s.entries {
			if entry.Billable != nil && *entry.Billable {
				filtered = append(filtered, entry)
			}
		}
		return filtered, nil
	}
	return s.entries, nil
}

func (s *stubPSA) SupportsBillableFilter(ctx context.Context) bool { return s.supportsFilter }

func newTestService(psa psadomain.Client) *Service {
	return &Service{log: zap.NewNop(), psa: psa}
}

func TestMonthlyUsageBillableFilterStrategy(t *testing.T) {
	psa := &stubPSA{
		supportsFilter: true,
		entries: []psadomain.TimeEntry{
			{Hours: 2.5, HourlyRate: 100, Billable: b(true)},
			{Hours: 4, HourlyRate: 150, Billable: b(true)},
			{Hours: 3, HourlyRate: 200, Billable: b(false)},
		},
	}
	svc := newTestService(psa)

	summary, err := svc.MonthlyUsage(context.Background(), 10, 2026, time.August)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assert.Equal(t, timeusagedomain.StrategyBillableFilter, summary.Strategy)
	assert.Equal(t, 6.5, summary.BillableHours)
	assert.Equal(t, 850.00, summary.LaborCost)
	assert.True(t, psa.lastQuery.BillableOnly)
}

func TestMonthlyUsageFallsBackWhenFilterRejected(t *testing.T) {
	psa := &stubPSA{
		supportsFilter: true,
		rejectFilter:   true,
		entries: []psadomain.TimeEntry{
			{Hours: 2, HourlyRate: 100, Billable: b(true)},
			{Hours: 5, HourlyRate: 100, Billable: b(false)},
			{Hours: 1, HourlyRate: 100, BillingCode: str("MSP")},
			{Hours: 3, HourlyRate: 100},
		},
	}
	svc := newTestService(psa)

	summary, err := svc.MonthlyUsage(context.Background(), 10, 2026, time.August)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Heuristic: explicit false excluded, explicit true, coded, and
	// unclassified entries included.
	assert.Equal(t, timeusagedomain.StrategyDateRange, summary.Strategy)
	assert.Equal(t, 6.0, summary.BillableHours)
	assert.Equal(t, 600.00, summary.LaborCost)
	assert.False(t, psa.lastQuery.BillableOnly)
}

func TestMonthlyUsageDateRangeWhenUnsupported(t *testing.T) {
	psa := &stubPSA{
		supportsFilter: false,
		entries: []psadomain.TimeEntry{
			{Hours: 8, HourlyRate: 125},
		},
	}
	svc := newTestService(psa)

	summary, err := svc.MonthlyUsage(context.Background(), 10, 2026, time.August)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assert.Equal(t, timeusagedomain.StrategyDateRange, summary.Strategy)
	assert.Equal(t, 8.0, summary.BillableHours)
	assert.Equal(t, 1000.00, summary.LaborCost)
}

func TestMonthlyUsageQueryBounds(t *testing.T) {
	psa := &stubPSA{}
	svc := newTestService(psa)

	if _, err := svc.MonthlyUsage(context.Background(), 10, 2026, time.February); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assert.Equal(t, time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC), psa.lastQuery.From)
	assert.Equal(t, time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC), psa.lastQuery.To)
}

func TestMonthlyUsageUpstreamFailure(t *testing.T) {
	psa := &stubPSA{err: psadomain.ErrUnavailable}
	svc := newTestService(psa)

	if _, err := svc.MonthlyUsage(context.Background(), 10, 2026, time.August); err == nil {
		t.Fatal("expected an error")
	}
}
