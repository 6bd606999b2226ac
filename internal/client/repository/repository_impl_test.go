package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	clientdomain "github.com/brightops/usagesync/internal/client/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&clientdomain.Client{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newClient(node *snowflake.Node, psaID int64, name string, managed bool) *clientdomain.Client {
	now := time.Now().UTC()
	return &clientdomain.Client{
		ID:          node.Generate(),
		PSAClientID: psaID,
		Name:        name,
		Managed:     managed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestInsertAndFind(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	node, _ := snowflake.NewNode(1)
	ctx := context.Background()

	c := newClient(node, 7, "Acme Co", true)
	if err := repo.Insert(ctx, db, c); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := repo.FindByID(ctx, db, c.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got == nil {
		t.Fatal("expected a client")
	}
	assert.Equal(t, "Acme Co", got.Name)
	assert.Equal(t, int64(7), got.PSAClientID)

	missing, err := repo.FindByID(ctx, db, node.Generate())
	if err != nil {
		t.Fatalf("find missing: %v", err)
	}
	assert.Nil(t, missing)
}

func TestInsertDuplicatePSAClient(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	node, _ := snowflake.NewNode(1)
	ctx := context.Background()

	if err := repo.Insert(ctx, db, newClient(node, 7, "Acme Co", true)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	err := repo.Insert(ctx, db, newClient(node, 7, "Acme Duplicate", true))
	if !errors.Is(err, clientdomain.ErrClientExists) {
		t.Fatalf("expected ErrClientExists, got %v", err)
	}
}

func TestListManagedFiltersAndSorts(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	node, _ := snowflake.NewNode(1)
	ctx := context.Background()

	for _, c := range []*clientdomain.Client{
		newClient(node, 1, "Globex", true),
		newClient(node, 2, "Acme Co", true),
		newClient(node, 3, "Former Client", false),
	} {
		if err := repo.Insert(ctx, db, c); err != nil {
			t.Fatalf("insert %s: %v", c.Name, err)
		}
	}

	clients, err := repo.ListManaged(ctx, db)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(clients) != 2 {
		t.Fatalf("expected 2 managed clients, got %d", len(clients))
	}
	assert.Equal(t, "Acme Co", clients[0].Name)
	assert.Equal(t, "Globex", clients[1].Name)
}
