package repository

import (
	"context"

	clientdomain "github.com/brightops/usagesync/internal/client/domain"
	pkgdb "github.com/brightops/usagesync/pkg/db"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() clientdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, c *clientdomain.Client) error {
	err := db.WithContext(ctx).Exec(
		`INSERT INTO clients (id, psa_client_id, name, managed, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.PSAClientID,
		c.Name,
		c.Managed,
		c.CreatedAt,
		c.UpdatedAt,
	).Error
	if pkgdb.IsDuplicateKeyErr(err) {
		return clientdomain.ErrClientExists
	}
	return err
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*clientdomain.Client, error) {
	var client clientdomain.Client
	err := db.WithContext(ctx).Raw(
		`SELECT id, psa_client_id, name, managed, created_at, updated_at
		 FROM clients WHERE id = ?`,
		id,
	).Scan(&client).Error
	if err != nil {
		return nil, err
	}
	if client.ID == 0 {
		return nil, nil
	}
	return &client, nil
}

func (r *repo) ListManaged(ctx context.Context, db *gorm.DB) ([]clientdomain.Client, error) {
	var clients []clientdomain.Client
	err := db.WithContext(ctx).Raw(
		`SELECT id, psa_client_id, name, managed, created_at, updated_at
		 FROM clients WHERE managed ORDER BY name ASC`,
	).Scan(&clients).Error
	if err != nil {
		return nil, err
	}
	return clients, nil
}
