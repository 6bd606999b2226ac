package service

import (
	"context"
	"errors"
	"time"

	obsmetrics "github.com/brightops/usagesync/internal/observability/metrics"
	psadomain "github.com/brightops/usagesync/internal/psa/domain"
	timeusagedomain "github.com/brightops/usagesync/internal/timeusage/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Service struct {
	log *zap.Logger
	psa psadomain.Client
}

type ServiceParam struct {
	fx.In

	Log *zap.Logger
	PSA psadomain.Client
}

func NewService(p ServiceParam) timeusagedomain.Aggregator {
	return &Service{
		log: p.Log.Named("timeusage.aggregator"),
		psa: p.PSA,
	}
}

// MonthlyUsage tries two named query strategies in sequence: the
// server-side billable filter when the upstream advertises it, then the
// plain date-range query with client-side billability. Which strategy
// served is recorded for observability.
func (s *Service) MonthlyUsage(ctx context.Context, contractID int64, year int, month time.Month) (timeusagedomain.Summary, error) {
	from, to := timeusagedomain.MonthBounds(year, month)

	if s.psa.SupportsBillableFilter(ctx) {
		summary, err := s.billableFilterStrategy(ctx, contractID, from, to)
		if err == nil {
			return summary, nil
		}
		if !errors.Is(err, psadomain.ErrFilterUnsupported) {
			return timeusagedomain.Summary{}, err
		}
		// Capability probe lied; fall through to the date-range strategy.
		s.log.Warn("billable filter rejected despite capability",
			zap.Int64("contract_id", contractID),
		)
	}

	return s.dateRangeStrategy(ctx, contractID, from, to)
}

func (s *Service) billableFilterStrategy(ctx context.Context, contractID int64, from, to time.Time) (timeusagedomain.Summary, error) {
	entries, err := s.psa.QueryTimeEntries(ctx, psadomain.TimeEntryQuery{
		ContractID:   contractID,
		From:         from,
		To:           to,
		BillableOnly: true,
	})
	if err != nil {
		return timeusagedomain.Summary{}, err
	}

	summary := sumEntries(entries, false)
	summary.Strategy = timeusagedomain.StrategyBillableFilter
	obsmetrics.Reconciler().IncStrategyUsed(obsmetrics.TimeEntryStrategyBillableFilter)
	return summary, nil
}

func (s *Service) dateRangeStrategy(ctx context.Context, contractID int64, from, to time.Time) (timeusagedomain.Summary, error) {
	entries, err := s.psa.QueryTimeEntries(ctx, psadomain.TimeEntryQuery{
		ContractID: contractID,
		From:       from,
		To:         to,
	})
	if err != nil {
		return timeusagedomain.Summary{}, err
	}

	summary := sumEntries(entries, true)
	summary.Strategy = timeusagedomain.StrategyDateRange
	obsmetrics.Reconciler().IncStrategyUsed(obsmetrics.TimeEntryStrategyDateRange)
	return summary, nil
}

func sumEntries(entries []psadomain.TimeEntry, applyHeuristic bool) timeusagedomain.Summary {
	hours := decimal.Zero
	cost := decimal.Zero
	for _, entry := range entries {
		if applyHeuristic && !entry.CountsAsBillable() {
			continue
		}
		entryHours := decimal.NewFromFloat(entry.Hours)
		hours = hours.Add(entryHours)
		cost = cost.Add(entryHours.Mul(decimal.NewFromFloat(entry.HourlyRate)))
	}
	return timeusagedomain.Summary{
		BillableHours: hours.Round(2).InexactFloat64(),
		LaborCost:     cost.Round(2).InexactFloat64(),
	}
}
