// Package reconciler orchestrates monthly usage reconciliation across all
// managed clients.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	clientdomain "github.com/brightops/usagesync/internal/client/domain"
	"github.com/brightops/usagesync/internal/clock"
	"github.com/brightops/usagesync/internal/config"
	contractdomain "github.com/brightops/usagesync/internal/contract/domain"
	obsmetrics "github.com/brightops/usagesync/internal/observability/metrics"
	revenuedomain "github.com/brightops/usagesync/internal/revenue/domain"
	timeusagedomain "github.com/brightops/usagesync/internal/timeusage/domain"
	usagedomain "github.com/brightops/usagesync/internal/usage/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	TriggerManual   = "manual"
	TriggerSchedule = "schedule"
)

const (
	skipReasonNoContract     = "skipped: no contract"
	skipReasonUnclassifiable = "skipped: unknown classification"
)

type Service struct {
	log    *zap.Logger
	db     *gorm.DB
	clock  clock.Clock
	node   *snowflake.Node
	holder *config.ReconcileConfigHolder

	resolver   contractdomain.Resolver
	aggregator timeusagedomain.Aggregator
	calculator revenuedomain.Calculator

	clients clientdomain.Repository
	usage   usagedomain.Repository

	job *JobControl
}

type ServiceParam struct {
	fx.In

	Log    *zap.Logger
	DB     *gorm.DB
	Clock  clock.Clock
	Node   *snowflake.Node
	Holder *config.ReconcileConfigHolder

	Resolver   contractdomain.Resolver
	Aggregator timeusagedomain.Aggregator
	Calculator revenuedomain.Calculator

	Clients clientdomain.Repository
	Usage   usagedomain.Repository

	Job *JobControl
}

func NewService(p ServiceParam) *Service {
	return &Service{
		log:        p.Log.Named("reconciler"),
		db:         p.DB,
		clock:      p.Clock,
		node:       p.Node,
		holder:     p.Holder,
		resolver:   p.Resolver,
		aggregator: p.Aggregator,
		calculator: p.Calculator,
		clients:    p.Clients,
		usage:      p.Usage,
		job:        p.Job,
	}
}

// Job exposes the run state for the control surface.
func (s *Service) Job() *JobControl { return s.job }

// Run reconciles every managed client for the configured month window and
// blocks until the run completes. Only one run may be active at a time; a
// second trigger while running fails with ErrRunInProgress. Client and
// month failures are contained: they are counted and reported, never
// allowed to abort the run.
func (s *Service) Run(ctx context.Context, trigger string) (*RunSummary, error) {
	startedAt := s.clock.Now()
	if err := s.job.TryStart(startedAt); err != nil {
		return nil, err
	}
	return s.run(ctx, trigger, startedAt)
}

// StartAsync claims the running state and executes the run in the
// background, so a trigger request can be acknowledged immediately.
func (s *Service) StartAsync(trigger string) error {
	startedAt := s.clock.Now()
	if err := s.job.TryStart(startedAt); err != nil {
		return err
	}
	go func() {
		if _, err := s.run(context.Background(), trigger, startedAt); err != nil {
			s.log.Error("background reconciliation run failed", zap.Error(err))
		}
	}()
	return nil
}

func (s *Service) run(ctx context.Context, trigger string, startedAt time.Time) (*RunSummary, error) {
	cfg := s.holder.Current()
	months := pinMonths(startedAt, cfg.MonthsWindow)

	ctx, cancel := context.WithTimeout(ctx, cfg.RunTimeout)
	defer cancel()

	obsmetrics.Reconciler().IncRun(trigger)
	s.log.Info("reconciliation run started",
		zap.String("trigger", trigger),
		zap.Strings("months", monthKeys(months)),
	)

	summary := &RunSummary{
		Trigger:      trigger,
		StartedAt:    startedAt,
		Months:       monthKeys(months),
		ClientErrors: map[string]string{},
	}

	clients, err := s.clients.ListManaged(ctx, s.db)
	if err != nil {
		summary.FinishedAt = s.clock.Now()
		s.finish(ctx, summary)
		return summary, fmt.Errorf("list managed clients: %w", err)
	}

	for i, client := range clients {
		if i > 0 {
			if err := s.pace(ctx, cfg.PaceDelay); err != nil {
				summary.ClientErrors[client.Name] = "run cancelled"
				summary.ClientsFailed++
				continue
			}
		}
		s.reconcileClient(ctx, client, months, summary)
	}

	summary.FinishedAt = s.clock.Now()
	obsmetrics.Reconciler().ObserveRunDuration(trigger, summary.FinishedAt.Sub(startedAt))
	s.log.Info("reconciliation run finished",
		zap.String("trigger", trigger),
		zap.Int("succeeded", summary.ClientsSucceeded),
		zap.Int("skipped", summary.ClientsSkipped),
		zap.Int("failed", summary.ClientsFailed),
	)

	s.finish(ctx, summary)
	return summary, nil
}

// reconcileClient resolves the client's contract once, then processes each
// pinned month independently. A month failure is recorded and the next
// month still attempts.
func (s *Service) reconcileClient(ctx context.Context, client clientdomain.Client, months []time.Time, summary *RunSummary) {
	log := s.log.With(
		zap.Int64("client_id", int64(client.ID)),
		zap.Int64("psa_client_id", client.PSAClientID),
	)

	classified, err := s.resolver.Resolve(ctx, client.PSAClientID)
	if err != nil {
		log.Warn("contract resolution failed", zap.Error(err))
		summary.ClientErrors[client.Name] = err.Error()
		summary.ClientsFailed++
		obsmetrics.Reconciler().IncClientOutcome(obsmetrics.ClientOutcomeFailed)
		return
	}
	if classified == nil {
		log.Info("no active contract")
		summary.ClientErrors[client.Name] = skipReasonNoContract
		summary.ClientsSkipped++
		obsmetrics.Reconciler().IncClientOutcome(obsmetrics.ClientOutcomeSkipped)
		return
	}
	if classified.Classification.Model == contractdomain.BillingModelUnknown {
		log.Warn("contract not classifiable",
			zap.Int64("contract_id", classified.Contract.ID),
			zap.Int("type", classified.Contract.Type),
			zap.Int("category", classified.Contract.Category),
		)
		summary.ClientErrors[client.Name] = skipReasonUnclassifiable
		summary.ClientsSkipped++
		obsmetrics.Reconciler().IncClientOutcome(obsmetrics.ClientOutcomeSkipped)
		return
	}

	// Unlimited revenue does not vary by month within the window.
	var monthlyRevenue *float64
	if classified.Classification.Model == contractdomain.BillingModelUnlimited {
		revenue, err := s.calculator.UnlimitedMonthlyRevenue(ctx, classified.Contract.ID)
		if err != nil {
			log.Warn("monthly revenue lookup failed", zap.Error(err))
		} else {
			monthlyRevenue = &revenue
		}
	}

	var monthErrs []error
	for _, month := range months {
		if err := s.reconcileMonth(ctx, client, classified, monthlyRevenue, month); err != nil {
			log.Warn("month reconciliation failed",
				zap.String("month", timeusagedomain.MonthKey(month.Year(), month.Month())),
				zap.Error(err),
			)
			monthErrs = append(monthErrs, err)
			obsmetrics.Reconciler().IncMonthOutcome(obsmetrics.MonthOutcomeFailed)
			continue
		}
		obsmetrics.Reconciler().IncMonthOutcome(obsmetrics.MonthOutcomeSucceeded)
	}

	if joined := errors.Join(monthErrs...); joined != nil {
		summary.ClientErrors[client.Name] = joined.Error()
		summary.ClientsFailed++
		obsmetrics.Reconciler().IncClientOutcome(obsmetrics.ClientOutcomeFailed)
		return
	}
	summary.ClientsSucceeded++
	obsmetrics.Reconciler().IncClientOutcome(obsmetrics.ClientOutcomeSucceeded)
}

func (s *Service) reconcileMonth(ctx context.Context, client clientdomain.Client, classified *contractdomain.ClassifiedContract, monthlyRevenue *float64, month time.Time) error {
	monthKey := timeusagedomain.MonthKey(month.Year(), month.Month())

	usage, err := s.aggregator.MonthlyUsage(ctx, classified.Contract.ID, month.Year(), month.Month())
	if err != nil {
		return fmt.Errorf("%s: aggregate usage: %w", monthKey, err)
	}

	row := &usagedomain.ClientUsage{
		ID:              s.node.Generate(),
		ClientID:        client.ID,
		Month:           monthKey,
		ContractID:      classified.Contract.ID,
		Classification:  classified.Classification.Display.Display(),
		HoursUsed:       usage.BillableHours,
		LaborCost:       usage.LaborCost,
		MonthlyRevenue:  monthlyRevenue,
		BlockHourlyRate: classified.BlockHourlyRate,
		SyncedAt:        s.clock.Now(),
	}

	if classified.Classification.Model == contractdomain.BillingModelBlockHours {
		row.MonthlyAllocation = classified.MonthlyAllocation
		row.HoursRemaining, row.PercentageUsed = allocationUsage(classified.MonthlyAllocation, usage.BillableHours)

		charges, err := s.calculator.BlockCharges(ctx, revenuedomain.BlockChargesRequest{
			ClientID:   client.PSAClientID,
			ContractID: classified.Contract.ID,
			HoursUsed:  usage.BillableHours,
			Allocation: classified.MonthlyAllocation,
			HourlyRate: classified.BlockHourlyRate,
			Period:     month,
		})
		if err != nil {
			return fmt.Errorf("%s: compute block charges: %w", monthKey, err)
		}
		row.OverageAmount = charges.OverageAmount
		row.DiscountAmount = charges.DiscountAmount
		row.EffectiveHourlyRate = charges.EffectiveHourlyRate
	}

	if err := s.usage.Upsert(ctx, s.db, row); err != nil {
		return fmt.Errorf("%s: store usage record: %w", monthKey, err)
	}
	return nil
}

// finish records the run's audit row and releases the running state. The
// audit insert is best effort.
func (s *Service) finish(ctx context.Context, summary *RunSummary) {
	run := newReconcileRun(s.node.Generate(), summary)
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		s.log.Warn("reconcile run audit insert failed", zap.Error(err))
	}
	s.job.Finish(summary)
}

func (s *Service) pace(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// pinMonths fixes the month window at run start: the month containing now
// plus the preceding ones, newest first. Pinning once keeps every client
// in the run on the same "current month" key.
func pinMonths(now time.Time, window int) []time.Time {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	months := make([]time.Time, 0, window)
	for i := 0; i < window; i++ {
		months = append(months, first.AddDate(0, -i, 0))
	}
	return months
}

func monthKeys(months []time.Time) []string {
	keys := make([]string, 0, len(months))
	for _, month := range months {
		keys = append(keys, timeusagedomain.MonthKey(month.Year(), month.Month()))
	}
	return keys
}

// allocationUsage derives the remaining-hours and percentage-used columns
// for a block allocation. Remaining clamps at zero.
func allocationUsage(allocation *float64, hoursUsed float64) (*float64, *float64) {
	if allocation == nil {
		return nil, nil
	}
	remaining := *allocation - hoursUsed
	if remaining < 0 {
		remaining = 0
	}
	remaining = decimal.NewFromFloat(remaining).Round(2).InexactFloat64()

	var percentage *float64
	if *allocation > 0 {
		value := decimal.NewFromFloat(hoursUsed).
			Div(decimal.NewFromFloat(*allocation)).
			Mul(decimal.NewFromInt(100)).
			Round(2).
			InexactFloat64()
		percentage = &value
	}
	return &remaining, percentage
}
