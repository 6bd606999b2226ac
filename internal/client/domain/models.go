// Package domain contains persistence models for managed clients.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// ErrClientExists is returned when inserting a client whose PSA id is
// already tracked.
var ErrClientExists = errors.New("client_exists")

// Client is a managed-services client tracked by this system. PSAClientID
// is the client's identifier in the upstream PSA.
type Client struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	PSAClientID int64        `gorm:"column:psa_client_id;not null;uniqueIndex"`
	Name        string       `gorm:"type:text;not null"`
	Managed     bool         `gorm:"not null;default:true"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Client) TableName() string { return "clients" }

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, client *Client) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Client, error)
	ListManaged(ctx context.Context, db *gorm.DB) ([]Client, error)
}
