// Package domain defines the revenue calculator's contract.
package domain

import (
	"context"
	"time"

	psadomain "github.com/brightops/usagesync/internal/psa/domain"
	"github.com/shopspring/decimal"
)

// BlockChargesRequest carries everything needed to price one month of a
// Block Hours contract.
type BlockChargesRequest struct {
	ClientID   int64
	ContractID int64
	HoursUsed  float64
	Allocation *float64
	HourlyRate *float64
	// Period anchors the "current period" for the companion discount
	// contract's service units.
	Period time.Time
}

// BlockCharges is the priced outcome for a Block Hours month.
type BlockCharges struct {
	// OverageAmount is set only when hours used exceed the allocation
	// and a positive hourly rate was resolved.
	OverageAmount       *float64
	DiscountAmount      float64
	EffectiveHourlyRate *float64
}

// Calculator prices contract months. The two computations are independent
// and selected by the contract's classification.
type Calculator interface {
	// UnlimitedMonthlyRevenue sums the contract's recurring service
	// line items.
	UnlimitedMonthlyRevenue(ctx context.Context, contractID int64) (float64, error)

	// BlockCharges computes overage, companion-contract discount, and
	// the discount-adjusted effective hourly rate.
	BlockCharges(ctx context.Context, req BlockChargesRequest) (BlockCharges, error)
}

// LineItemAmount resolves one service line's monthly amount through the
// documented fallback chain: extended price when positive, then adjusted
// price, then adjusted unit price x units, then unit price x units.
// Units default to 1 when absent. Lines with no usable price are zero.
func LineItemAmount(item psadomain.ContractServiceItem) decimal.Decimal {
	if item.ExtendedPrice != nil && *item.ExtendedPrice > 0 {
		return decimal.NewFromFloat(*item.ExtendedPrice)
	}
	if item.AdjustedPrice != nil {
		return decimal.NewFromFloat(*item.AdjustedPrice)
	}

	units := decimal.NewFromInt(1)
	if item.Units != nil {
		units = decimal.NewFromFloat(*item.Units)
	}
	if item.AdjustedUnitPrice != nil {
		return decimal.NewFromFloat(*item.AdjustedUnitPrice).Mul(units)
	}
	if item.UnitPrice != nil {
		return decimal.NewFromFloat(*item.UnitPrice).Mul(units)
	}
	return decimal.Zero
}

// Overage charges hours beyond the allocation at the block rate. Nil when
// there is no overage or no usable rate.
func Overage(hoursUsed float64, allocation, rate *float64) *float64 {
	if allocation == nil || rate == nil || *rate <= 0 {
		return nil
	}
	if hoursUsed <= *allocation {
		return nil
	}
	amount := decimal.NewFromFloat(hoursUsed - *allocation).
		Mul(decimal.NewFromFloat(*rate)).
		Round(2).
		InexactFloat64()
	return &amount
}
