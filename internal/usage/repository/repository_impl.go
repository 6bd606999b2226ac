package repository

import (
	"context"

	usagedomain "github.com/brightops/usagesync/internal/usage/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() usagedomain.Repository {
	return &repo{}
}

// computed columns replaced on re-reconciliation of the same (client, month)
var upsertColumns = []string{
	"contract_id",
	"classification",
	"monthly_allocation",
	"hours_used",
	"hours_remaining",
	"percentage_used",
	"labor_cost",
	"monthly_revenue",
	"overage_amount",
	"discount_amount",
	"effective_hourly_rate",
	"block_hourly_rate",
	"synced_at",
	"updated_at",
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, usage *usagedomain.ClientUsage) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "client_id"}, {Name: "month"}},
		DoUpdates: clause.AssignmentColumns(upsertColumns),
	}).Create(usage).Error
}

func (r *repo) ListRecent(ctx context.Context, db *gorm.DB, clientID snowflake.ID, limit int) ([]usagedomain.ClientUsage, error) {
	var rows []usagedomain.ClientUsage
	err := db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("month DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) FindByClientMonth(ctx context.Context, db *gorm.DB, clientID snowflake.ID, month string) (*usagedomain.ClientUsage, error) {
	var row usagedomain.ClientUsage
	err := db.WithContext(ctx).
		Where("client_id = ? AND month = ?", clientID, month).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}
