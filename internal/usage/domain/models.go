// Package domain contains the persisted monthly usage snapshot.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// ClientUsage is one reconciled snapshot for a (client, month) pair.
// Month is the canonical "2006-01" key. Nullable columns stay NULL when
// the value does not apply to the client's billing model: allocation and
// remaining/percentage/overage/effective-rate are block-hours-only, while
// monthly revenue is unlimited-only.
type ClientUsage struct {
	ID       snowflake.ID `gorm:"primaryKey" json:"id"`
	ClientID snowflake.ID `gorm:"not null;uniqueIndex:ux_client_usage_client_month,priority:1" json:"clientId"`
	Month    string       `gorm:"type:varchar(7);not null;uniqueIndex:ux_client_usage_client_month,priority:2" json:"month"`

	ContractID     int64  `gorm:"not null" json:"contractId"`
	Classification string `gorm:"type:text;not null" json:"classification"`

	MonthlyAllocation *float64 `json:"monthlyAllocation"`
	HoursUsed         float64  `gorm:"not null;default:0" json:"hoursUsed"`
	HoursRemaining    *float64 `json:"hoursRemaining"`
	PercentageUsed    *float64 `json:"percentageUsed"`

	LaborCost           float64  `gorm:"not null;default:0" json:"laborCost"`
	MonthlyRevenue      *float64 `json:"monthlyRevenue"`
	OverageAmount       *float64 `json:"overageAmount"`
	DiscountAmount      float64  `gorm:"not null;default:0" json:"discountAmount"`
	EffectiveHourlyRate *float64 `json:"effectiveHourlyRate"`
	BlockHourlyRate     *float64 `json:"blockHourlyRate"`

	SyncedAt  time.Time `gorm:"not null" json:"syncedAt"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName sets the database table name.
func (ClientUsage) TableName() string { return "client_usage" }

type Repository interface {
	// Upsert inserts the snapshot or, when a row already exists for the
	// same (client, month), replaces its computed columns in place.
	Upsert(ctx context.Context, db *gorm.DB, usage *ClientUsage) error

	// ListRecent returns the newest snapshots for a client, most recent
	// month first.
	ListRecent(ctx context.Context, db *gorm.DB, clientID snowflake.ID, limit int) ([]ClientUsage, error)

	FindByClientMonth(ctx context.Context, db *gorm.DB, clientID snowflake.ID, month string) (*ClientUsage, error)
}
