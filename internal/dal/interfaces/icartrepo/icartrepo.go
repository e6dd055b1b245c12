package icartrepo

import (
	"context"

	"github.com/velouria/commerce/internal/service/models/cart"
)

// ICartRepository defines storage for cart line items.
type ICartRepository interface {
	// Get returns all line items of a cart, oldest first.
	Get(ctx context.Context, cartID string) ([]cart.LineItem, error)

	// Upsert adds a line item or replaces an existing one with the same id.
	Upsert(ctx context.Context, cartID string, item cart.LineItem) (cart.LineItem, error)

	// UpdateQuantity sets a line item's quantity; quantity <= 0 removes the
	// item so a stored quantity is always >= 1.
	UpdateQuantity(ctx context.Context, cartID, itemID string, quantity int) error

	// Remove deletes a single line item.
	Remove(ctx context.Context, cartID, itemID string) error

	// Clear deletes all line items of a cart.
	Clear(ctx context.Context, cartID string) error
}
