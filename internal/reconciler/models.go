package reconciler

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// ReconcileRun is the persisted audit trail of one reconciliation run.
type ReconcileRun struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	Trigger    string       `gorm:"type:text;not null"`
	StartedAt  time.Time    `gorm:"not null"`
	FinishedAt time.Time    `gorm:"not null"`

	Months string `gorm:"type:text;not null"`

	ClientsSucceeded int `gorm:"not null;default:0"`
	ClientsSkipped   int `gorm:"not null;default:0"`
	ClientsFailed    int `gorm:"not null;default:0"`

	// ClientErrors holds per-client skip/failure reasons.
	ClientErrors datatypes.JSONMap

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ReconcileRun) TableName() string { return "reconcile_runs" }

func newReconcileRun(id snowflake.ID, summary *RunSummary) *ReconcileRun {
	run := &ReconcileRun{
		ID:               id,
		Trigger:          summary.Trigger,
		StartedAt:        summary.StartedAt,
		FinishedAt:       summary.FinishedAt,
		Months:           strings.Join(summary.Months, ","),
		ClientsSucceeded: summary.ClientsSucceeded,
		ClientsSkipped:   summary.ClientsSkipped,
		ClientsFailed:    summary.ClientsFailed,
	}
	if len(summary.ClientErrors) > 0 {
		run.ClientErrors = datatypes.JSONMap{}
		for name, reason := range summary.ClientErrors {
			run.ClientErrors[name] = reason
		}
	}
	return run
}
