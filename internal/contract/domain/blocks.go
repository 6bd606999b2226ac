package domain

import (
	"sort"
	"time"

	psadomain "github.com/brightops/usagesync/internal/psa/domain"
	"github.com/samber/lo"
)

// SortBlocks orders blocks most recent end-date first. The sort is stable
// so blocks sharing an end date keep their upstream query order.
func SortBlocks(blocks []psadomain.ContractBlock) []psadomain.ContractBlock {
	sorted := make([]psadomain.ContractBlock, len(blocks))
	copy(sorted, blocks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EndDate.After(sorted[j].EndDate)
	})
	return sorted
}

// SelectCurrentBlock picks the block governing today: the block whose
// [start, end] range contains today (date-only, end inclusive through
// end of day), else the block with the latest end date. Ties on end date
// resolve to the block returned first by the upstream query.
func SelectCurrentBlock(blocks []psadomain.ContractBlock, today time.Time) *psadomain.ContractBlock {
	if len(blocks) == 0 {
		return nil
	}

	day := truncateToDay(today)
	for i := range blocks {
		start := truncateToDay(blocks[i].StartDate)
		end := truncateToDay(blocks[i].EndDate)
		if !day.Before(start) && !day.After(end) {
			return &blocks[i]
		}
	}

	latest := lo.MaxBy(blocks, func(a, b psadomain.ContractBlock) bool {
		return a.EndDate.After(b.EndDate)
	})
	for i := range blocks {
		if blocks[i].ID == latest.ID {
			return &blocks[i]
		}
	}
	return &blocks[0]
}

// BlockHours returns the block's hour allocation, preferring the
// purchased-hours field over the generic hours field.
func BlockHours(block *psadomain.ContractBlock) *float64 {
	if block == nil {
		return nil
	}
	if block.PurchasedHours != nil {
		return block.PurchasedHours
	}
	return block.Hours
}

// BlockRate returns the block's hourly rate, preferring the explicit
// rate field over the generic unit price.
func BlockRate(block *psadomain.ContractBlock) *float64 {
	if block == nil {
		return nil
	}
	if block.HourlyRate != nil {
		return block.HourlyRate
	}
	return block.UnitPrice
}

func truncateToDay(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
