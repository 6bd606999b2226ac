package domain

import (
	"context"
	"errors"
)

// Resolver selects and classifies the contract governing a client.
// A nil result with nil error means the client has no active contract,
// which is a valid terminal outcome, not a failure.
type Resolver interface {
	Resolve(ctx context.Context, clientID int64) (*ClassifiedContract, error)
}

var (
	ErrInvalidClient = errors.New("invalid_client")
)
