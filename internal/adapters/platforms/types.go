// Package platforms contains the clients that push catalog updates to the
// e-commerce platforms, and the outcome generator that drives them when a
// sync job finishes.
package platforms

import (
	"context"
	"errors"
	"fmt"

	"github.com/eshaffer321/inventory-sync-manager/internal/domain/platform"
	"github.com/eshaffer321/inventory-sync-manager/internal/domain/synclog"
)

var (
	// ErrMissingCredentials is returned when a platform is used without the
	// credentials it needs.
	ErrMissingCredentials = errors.New("missing platform credentials")

	// ErrInvalidUpdate is returned for updates a platform would reject.
	ErrInvalidUpdate = errors.New("invalid update")

	// ErrUnknownPlatform is returned when no client is registered for a platform.
	ErrUnknownPlatform = errors.New("unknown platform")
)

// Update is one product change pushed to a platform.
type Update struct {
	ProductID string
	SKU       string
	Name      string
	Operation synclog.Operation
	Inventory int
	Price     float64
}

// Validate checks the values the operation will send.
func (u Update) Validate() error {
	if u.SKU == "" {
		return fmt.Errorf("%w: sku is required", ErrInvalidUpdate)
	}
	sendsInventory := u.Operation == synclog.OperationInventory || u.Operation == synclog.OperationAll
	sendsPrice := u.Operation == synclog.OperationPrice || u.Operation == synclog.OperationAll
	if sendsInventory && u.Inventory < 0 {
		return fmt.Errorf("%w: negative inventory %d", ErrInvalidUpdate, u.Inventory)
	}
	if sendsPrice && u.Price < 0 {
		return fmt.Errorf("%w: negative price %.2f", ErrInvalidUpdate, u.Price)
	}
	return nil
}

// Client pushes product updates to one platform
type Client interface {
	// Platform identifies the target platform
	Platform() platform.ID

	// Push sends one update. It blocks on the client's rate limit.
	Push(ctx context.Context, update Update) error

	// Ping verifies the configured credentials
	Ping(ctx context.Context) error
}

// Registry maps platforms to their clients.
type Registry map[platform.ID]Client

// Get returns the client of a platform.
func (r Registry) Get(id platform.ID) (Client, error) {
	c, ok := r[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlatform, id)
	}
	return c, nil
}
