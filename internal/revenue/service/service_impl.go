package service

import (
	"context"
	"strings"

	"github.com/brightops/usagesync/internal/config"
	psadomain "github.com/brightops/usagesync/internal/psa/domain"
	revenuedomain "github.com/brightops/usagesync/internal/revenue/domain"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Service struct {
	log       *zap.Logger
	psa       psadomain.Client
	reconcile *config.ReconcileConfigHolder
}

type ServiceParam struct {
	fx.In

	Log       *zap.Logger
	PSA       psadomain.Client
	Reconcile *config.ReconcileConfigHolder
}

func NewService(p ServiceParam) revenuedomain.Calculator {
	return &Service{
		log:       p.Log.Named("revenue.calculator"),
		psa:       p.PSA,
		reconcile: p.Reconcile,
	}
}

// UnlimitedMonthlyRevenue sums the recurring service line items on the
// contract. The line-item sum is the only formula used here; dividing
// estimated total revenue by contract length disagrees for annually or
// quarterly billed contracts and was rejected.
func (s *Service) UnlimitedMonthlyRevenue(ctx context.Context, contractID int64) (float64, error) {
	items, err := s.psa.QueryServiceItems(ctx, contractID)
	if err != nil {
		return 0, err
	}

	total := decimal.Zero
	for _, item := range items {
		total = total.Add(revenuedomain.LineItemAmount(item))
	}
	return total.Round(2).InexactFloat64(), nil
}

func (s *Service) BlockCharges(ctx context.Context, req revenuedomain.BlockChargesRequest) (revenuedomain.BlockCharges, error) {
	charges := revenuedomain.BlockCharges{
		OverageAmount: revenuedomain.Overage(req.HoursUsed, req.Allocation, req.HourlyRate),
	}

	discount, err := s.discountAmount(ctx, req)
	if err != nil {
		// A failed discount lookup skips the discount, not the month.
		s.log.Warn("discount lookup failed",
			zap.Int64("client_id", req.ClientID),
			zap.Error(err),
		)
		discount = 0
	}
	charges.DiscountAmount = discount
	charges.EffectiveHourlyRate = effectiveRate(req.Allocation, req.HourlyRate, discount)

	return charges, nil
}

// discountAmount locates an active companion contract named with the
// discount marker and sums its current-period service units. The naming
// convention is upstream data hygiene, not a guarantee: no match means
// no discount.
func (s *Service) discountAmount(ctx context.Context, req revenuedomain.BlockChargesRequest) (float64, error) {
	marker := strings.ToUpper(s.reconcile.Current().DiscountMarker)

	contracts, err := s.psa.QueryContracts(ctx, req.ClientID)
	if err != nil {
		return 0, err
	}

	companion, found := lo.Find(contracts, func(c psadomain.Contract) bool {
		return c.ID != req.ContractID &&
			c.Active() &&
			strings.Contains(strings.ToUpper(c.Name), marker)
	})
	if !found {
		return 0, nil
	}

	units, err := s.psa.QueryServiceUnits(ctx, companion.ID, req.Period)
	if err != nil {
		return 0, err
	}

	total := decimal.Zero
	for _, unit := range units {
		if unit.Price == nil {
			continue
		}
		amount := decimal.NewFromFloat(*unit.Price)
		if unit.Units != nil {
			amount = amount.Mul(decimal.NewFromFloat(*unit.Units))
		}
		total = total.Add(amount)
	}
	// Discounts are stored as negative adjustments upstream.
	return total.Abs().Round(2).InexactFloat64(), nil
}

func effectiveRate(allocation, rate *float64, discount float64) *float64 {
	if allocation == nil || *allocation <= 0 || rate == nil {
		return nil
	}
	effective := decimal.NewFromFloat(*allocation).
		Mul(decimal.NewFromFloat(*rate)).
		Sub(decimal.NewFromFloat(discount)).
		Div(decimal.NewFromFloat(*allocation)).
		Round(2).
		InexactFloat64()
	return &effective
}
