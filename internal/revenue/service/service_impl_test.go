package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brightops/usagesync/internal/config"
	psadomain "github.com/brightops/usagesync/internal/psa/domain"
	revenuedomain "github.com/brightops/usagesync/internal/revenue/domain"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func f(v float64) *float64 { return &v }

type stubPSA struct {
	contracts    []psadomain.Contract
	contractsErr error
	items        []psadomain.ContractServiceItem
	itemsErr     error
	units        []psadomain.ContractServiceUnit
	unitsErr     error
}

func (s *stubPSA) QueryContracts(ctx context.Context, clientID int64) ([]psadomain.Contract, error) {
	return s.contracts, s.contractsErr
}

func (s *stubPSA) QueryBlocks(ctx context.Context, contractID int64) ([]psadomain.ContractBlock, error) {
	return nil, nil
}

func (s *stubPSA) QueryServiceItems(ctx context.Context, contractID int64) ([]psadomain.ContractServiceItem, error) {
	return s.items, s.itemsErr
}

func (s *stubPSA) QueryServiceUnits(ctx context.Context, contractID int64, periodContains time.Time) ([]psadomain.ContractServiceUnit, error) {
	return s.units, s.unitsErr
}

func (s *stubPSA) QueryTimeEntries(ctx context.Context, query psadomain.TimeEntryQuery) ([]psadomain.TimeEntry, error) {
	return nil, nil
}

func (s *stubPSA) SupportsBillableFilter(ctx context.Context) bool { return false }

func newTestService(psa psadomain.Client) *Service {
	return &Service{
		log:       zap.NewNop(),
		psa:       psa,
		reconcile: config.NewStaticReconcileConfigHolder(config.DefaultReconcileConfig()),
	}
}

func TestUnlimitedMonthlyRevenueLineItemSum(t *testing.T) {
	svc := newTestService(&stubPSA{
		items: []psadomain.ContractServiceItem{
			{ExtendedPrice: f(1200)},
			{UnitPrice: f(578)},
		},
	})

	got, err := svc.UnlimitedMonthlyRevenue(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.Equal(t, 1778.00, got)
}

func TestUnlimitedMonthlyRevenueUpstreamFailure(t *testing.T) {
	svc := newTestService(&stubPSA{itemsErr: psadomain.ErrUnavailable})

	_, err := svc.UnlimitedMonthlyRevenue(context.Background(), 10)
	if !errors.Is(err, psadomain.ErrUnavailable) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestBlockChargesWithCompanionDiscount(t *testing.T) {
	svc := newTestService(&stubPSA{
		contracts: []psadomain.Contract{
			{ID: 10, Name: "Managed Support", Status: psadomain.ContractStatusActive},
			{ID: 11, Name: "Monthly DISCOUNT Credit", Status: psadomain.ContractStatusActive},
		},
		units: []psadomain.ContractServiceUnit{
			{ContractID: 11, Price: f(-80), Units: f(1)},
		},
	})

	charges, err := svc.BlockCharges(context.Background(), revenuedomain.BlockChargesRequest{
		ClientID:   7,
		ContractID: 10,
		HoursUsed:  45,
		Allocation: f(40),
		HourlyRate: f(150),
		Period:     time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if charges.OverageAmount == nil {
		t.Fatal("expected an overage amount")
	}
	assert.Equal(t, 750.00, *charges.OverageAmount)
	assert.Equal(t, 80.00, charges.DiscountAmount)
	if charges.EffectiveHourlyRate == nil {
		t.Fatal("expected an effective hourly rate")
	}
	assert.Equal(t, 148.00, *charges.EffectiveHourlyRate)
}

func TestBlockChargesNoCompanion(t *testing.T) {
	svc := newTestService(&stubPSA{
		contracts: []psadomain.Contract{
			{ID: 10, Name: "Managed Support", Status: psadomain.ContractStatusActive},
		},
	})

	charges, err := svc.BlockCharges(context.Background(), revenuedomain.BlockChargesRequest{
		ClientID:   7,
		ContractID: 10,
		HoursUsed:  20,
		Allocation: f(40),
		HourlyRate: f(150),
		Period:     time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assert.Nil(t, charges.OverageAmount)
	assert.Equal(t, 0.00, charges.DiscountAmount)
	if charges.EffectiveHourlyRate == nil {
		t.Fatal("expected an effective hourly rate")
	}
	assert.Equal(t, 150.00, *charges.EffectiveHourlyRate)
}

func TestBlockChargesInactiveCompanionIgnored(t *testing.T) {
	svc := newTestService(&stubPSA{
		contracts: []psadomain.Contract{
			{ID: 10, Name: "Managed Support", Status: psadomain.ContractStatusActive},
			{ID: 11, Name: "Old DISCOUNT", Status: 0},
		},
		units: []psadomain.ContractServiceUnit{
			{ContractID: 11, Price: f(-80)},
		},
	})

	charges, err := svc.BlockCharges(context.Background(), revenuedomain.BlockChargesRequest{
		ClientID:   7,
		ContractID: 10,
		HoursUsed:  20,
		Allocation: f(40),
		HourlyRate: f(150),
		Period:     time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.Equal(t, 0.00, charges.DiscountAmount)
}

func TestBlockChargesDiscountLookupFailureIsNotFatal(t *testing.T) {
	svc := newTestService(&stubPSA{contractsErr: psadomain.ErrUnavailable})

	charges, err := svc.BlockCharges(context.Background(), revenuedomain.BlockChargesRequest{
		ClientID:   7,
		ContractID: 10,
		HoursUsed:  45,
		Allocation: f(40),
		HourlyRate: f(150),
		Period:     time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("expected charges despite discount failure, got %v", err)
	}
	assert.Equal(t, 0.00, charges.DiscountAmount)
	if charges.OverageAmount == nil {
		t.Fatal("expected an overage amount")
	}
	assert.Equal(t, 750.00, *charges.OverageAmount)
}

func TestBlockChargesNilAllocation(t *testing.T) {
	svc := newTestService(&stubPSA{})

	charges, err := svc.BlockCharges(context.Background(), revenuedomain.BlockChargesRequest{
		ClientID:   7,
		ContractID: 10,
		HoursUsed:  45,
		Period:     time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.Nil(t, charges.OverageAmount)
	assert.Nil(t, charges.EffectiveHourlyRate)
}
