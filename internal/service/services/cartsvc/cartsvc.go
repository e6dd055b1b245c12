package cartsvc

import (
	"context"
	"errors"

	"github.com/velouria/commerce/internal/dal/interfaces/icartrepo"
	"github.com/velouria/commerce/internal/service/models/cart"
	"github.com/velouria/commerce/internal/service/models/pricing"
)

var (
	// ErrInvalidQuantity means a line item was added with quantity < 1.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	// ErrInvalidPrice means a line item carried a negative unit price.
	ErrInvalidPrice = errors.New("unit price must not be negative")
	// ErrMissingItemID means a line item had no id.
	ErrMissingItemID = errors.New("line item id is required")
)

// CartService manages cart line items and prices carts for display.
type CartService struct {
	cartRepo icartrepo.ICartRepository
	rules    pricing.Rules
}

// option is a function that configures the CartService.
type option func(*CartService)

// MustNewCartService creates a new CartService.
func MustNewCartService(opts ...option) *CartService {
	s := &CartService{
		rules: pricing.DefaultRules(),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// WithCartRepository sets the cart repository for the CartService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithCartRepository(repo icartrepo.ICartRepository) option {
	return func(s *CartService) {
		s.cartRepo = repo
	}
}

// WithRules sets the pricing rule table for the CartService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithRules(rules pricing.Rules) option {
	return func(s *CartService) {
		s.rules = rules
	}
}

// Get returns the cart's line items.
func (s *CartService) Get(ctx context.Context, cartID string) ([]cart.LineItem, error) {
	return s.cartRepo.Get(ctx, cartID)
}

// AddItem adds a line item to the cart, replacing any existing entry with
// the same id.
func (s *CartService) AddItem(ctx context.Context, cartID string, item cart.LineItem) (cart.LineItem, error) {
	if item.ID == "" {
		return cart.LineItem{}, ErrMissingItemID
	}
	if item.Quantity < 1 {
		return cart.LineItem{}, ErrInvalidQuantity
	}
	if item.UnitPriceCents < 0 {
		return cart.LineItem{}, ErrInvalidPrice
	}

	return s.cartRepo.Upsert(ctx, cartID, item)
}

// UpdateQuantity sets a line item's quantity. A quantity below 1 removes
// the item: carts never hold zero-quantity lines.
func (s *CartService) UpdateQuantity(ctx context.Context, cartID, itemID string, quantity int) error {
	return s.cartRepo.UpdateQuantity(ctx, cartID, itemID, quantity)
}

// RemoveItem deletes a line item from the cart.
func (s *CartService) RemoveItem(ctx context.Context, cartID, itemID string) error {
	return s.cartRepo.Remove(ctx, cartID, itemID)
}

// Clear empties the cart.
func (s *CartService) Clear(ctx context.Context, cartID string) error {
	return s.cartRepo.Clear(ctx, cartID)
}

// Totals prices the cart under the rule for countryCode; unknown codes
// fall back to the default rule.
func (s *CartService) Totals(ctx context.Context, cartID, countryCode string) (pricing.Totals, error) {
	items, err := s.cartRepo.Get(ctx, cartID)
	if err != nil {
		return pricing.Totals{}, err
	}

	return pricing.ComputeTotals(items, s.rules.Lookup(countryCode)), nil
}
