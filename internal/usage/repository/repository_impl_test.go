package repository

import (
	"context"
	"testing"
	"time"

	usagedomain "github.com/brightops/usagesync/internal/usage/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func f(v float64) *float64 { return &v }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&usagedomain.ClientUsage{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newRow(node *snowflake.Node, clientID snowflake.ID, month string) *usagedomain.ClientUsage {
	return &usagedomain.ClientUsage{
		ID:             node.Generate(),
		ClientID:       clientID,
		Month:          month,
		ContractID:     10,
		Classification: "Block Hours",
		HoursUsed:      12.5,
		LaborCost:      1500,
		SyncedAt:       time.Now().UTC(),
	}
}

func TestUpsertReplacesInsteadOfDuplicating(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	node, _ := snowflake.NewNode(1)
	clientID := node.Generate()
	ctx := context.Background()

	first := newRow(node, clientID, "2026-08")
	first.MonthlyAllocation = f(40)
	if err := repo.Upsert(ctx, db, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	second := newRow(node, clientID, "2026-08")
	second.MonthlyAllocation = f(40)
	second.HoursUsed = 45
	second.OverageAmount = f(750)
	if err := repo.Upsert(ctx, db, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	var count int64
	db.Model(&usagedomain.ClientUsage{}).Where("client_id = ? AND month = ?", clientID, "2026-08").Count(&count)
	assert.Equal(t, int64(1), count)

	stored, err := repo.FindByClientMonth(ctx, db, clientID, "2026-08")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored == nil {
		t.Fatal("expected a stored row")
	}
	assert.Equal(t, 45.0, stored.HoursUsed)
	if stored.OverageAmount == nil {
		t.Fatal("expected overage to be replaced")
	}
	assert.Equal(t, 750.0, *stored.OverageAmount)
	// The original row id survives; only computed columns change.
	assert.Equal(t, first.ID, stored.ID)
}

func TestUpsertIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	node, _ := snowflake.NewNode(1)
	clientID := node.Generate()
	ctx := context.Background()

	row := newRow(node, clientID, "2026-07")
	if err := repo.Upsert(ctx, db, row); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	again := newRow(node, clientID, "2026-07")
	again.SyncedAt = row.SyncedAt
	if err := repo.Upsert(ctx, db, again); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	first, err := repo.FindByClientMonth(ctx, db, clientID, "2026-07")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	assert.Equal(t, 12.5, first.HoursUsed)
	assert.Equal(t, 1500.0, first.LaborCost)
	assert.Equal(t, "Block Hours", first.Classification)
}

func TestListRecentOrdersDescendingAndLimits(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	node, _ := snowflake.NewNode(1)
	clientID := node.Generate()
	ctx := context.Background()

	for _, month := range []string{"2026-05", "2026-08", "2026-06", "2026-07"} {
		if err := repo.Upsert(ctx, db, newRow(node, clientID, month)); err != nil {
			t.Fatalf("upsert %s: %v", month, err)
		}
	}
	// Another client's rows must not leak in.
	other := node.Generate()
	if err := repo.Upsert(ctx, db, newRow(node, other, "2026-08")); err != nil {
		t.Fatalf("upsert other: %v", err)
	}

	rows, err := repo.ListRecent(ctx, db, clientID, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	assert.Equal(t, "2026-08", rows[0].Month)
	assert.Equal(t, "2026-07", rows[1].Month)
	assert.Equal(t, "2026-06", rows[2].Month)
}

func TestFindByClientMonthMissing(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	node, _ := snowflake.NewNode(1)

	got, err := repo.FindByClientMonth(context.Background(), db, node.Generate(), "2026-01")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	assert.Nil(t, got)
}
