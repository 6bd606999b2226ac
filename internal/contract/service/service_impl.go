package service

import (
	"context"

	"github.com/brightops/usagesync/internal/clock"
	contractdomain "github.com/brightops/usagesync/internal/contract/domain"
	psadomain "github.com/brightops/usagesync/internal/psa/domain"
	"github.com/samber/lo"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Service struct {
	log   *zap.Logger
	psa   psadomain.Client
	clock clock.Clock
}

type ServiceParam struct {
	fx.In

	Log   *zap.Logger
	PSA   psadomain.Client
	Clock clock.Clock
}

func NewService(p ServiceParam) contractdomain.Resolver {
	return &Service{
		log:   p.Log.Named("contract.resolver"),
		psa:   p.PSA,
		clock: p.Clock,
	}
}

// Resolve fetches the client's contracts, picks the single governing one,
// and classifies it. When the classification draws its allocation from
// block data, the current block's hours and rate are resolved as well.
func (s *Service) Resolve(ctx context.Context, clientID int64) (*contractdomain.ClassifiedContract, error) {
	if clientID <= 0 {
		return nil, contractdomain.ErrInvalidClient
	}

	contracts, err := s.psa.QueryContracts(ctx, clientID)
	if err != nil {
		return nil, err
	}

	active := lo.Filter(contracts, func(c psadomain.Contract, _ int) bool {
		return c.Active()
	})
	if len(active) == 0 {
		return nil, nil
	}

	governing := pickGoverning(active)
	if len(active) > 1 {
		s.log.Warn("multiple active contracts, one selected",
			zap.Int64("client_id", clientID),
			zap.Int64("contract_id", governing.ID),
			zap.Int("active_count", len(active)),
		)
	}

	classification := contractdomain.Classify(governing.Category, governing.Type)
	classified := &contractdomain.ClassifiedContract{
		Contract:       governing,
		Classification: classification,
	}

	if classification.Model == contractdomain.BillingModelUnknown {
		s.log.Warn("unknown contract classification",
			zap.Int64("client_id", clientID),
			zap.Int64("contract_id", governing.ID),
			zap.Int("type", governing.Type),
			zap.Int("category", governing.Category),
		)
		return classified, nil
	}

	if classification.UsesBlockData {
		if err := s.resolveBlockAllocation(ctx, classified); err != nil {
			return nil, err
		}
	}

	return classified, nil
}

// pickGoverning prefers the managed-service contract when more than one is
// active; otherwise the first returned wins. Deterministic, but dependent
// on upstream query order.
func pickGoverning(active []psadomain.Contract) psadomain.Contract {
	if len(active) == 1 {
		return active[0]
	}
	managed, found := lo.Find(active, func(c psadomain.Contract) bool {
		return c.Category == psadomain.ContractCategoryManagedService
	})
	if found {
		return managed
	}
	return active[0]
}

func (s *Service) resolveBlockAllocation(ctx context.Context, classified *contractdomain.ClassifiedContract) error {
	blocks, err := s.psa.QueryBlocks(ctx, classified.Contract.ID)
	if err != nil {
		return err
	}

	// Order most recent first so that when several blocks contain today,
	// the one ending latest governs.
	sorted := contractdomain.SortBlocks(blocks)
	current := contractdomain.SelectCurrentBlock(sorted, s.clock.Now())
	hours := contractdomain.BlockHours(current)
	if hours == nil {
		// Contracts without usable block hours fall back to their
		// estimated total hours.
		hours = classified.Contract.EstimatedHours
	}
	classified.MonthlyAllocation = hours
	classified.BlockHourlyRate = contractdomain.BlockRate(current)
	return nil
}
