package cartsvc

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/velouria/commerce/internal/service/models/cart"
)

type stubCartRepo struct {
	items map[string][]cart.LineItem
}

func newStubCartRepo() *stubCartRepo {
	return &stubCartRepo{items: map[string][]cart.LineItem{}}
}

func (s *stubCartRepo) Get(_ context.Context, cartID string) ([]cart.LineItem, error) {
	return s.items[cartID], nil
}

func (s *stubCartRepo) Upsert(_ context.Context, cartID string, item cart.LineItem) (cart.LineItem, error) {
	for i, existing := range s.items[cartID] {
		if existing.ID == item.ID {
			s.items[cartID][i] = item

			return item, nil
		}
	}
	s.items[cartID] = append(s.items[cartID], item)

	return item, nil
}

func (s *stubCartRepo) UpdateQuantity(_ context.Context, cartID, itemID string, quantity int) error {
	if quantity <= 0 {
		return s.Remove(context.Background(), cartID, itemID)
	}
	for i, existing := range s.items[cartID] {
		if existing.ID == itemID {
			s.items[cartID][i].Quantity = quantity
		}
	}

	return nil
}

func (s *stubCartRepo) Remove(_ context.Context, cartID, itemID string) error {
	kept := s.items[cartID][:0]
	for _, existing := range s.items[cartID] {
		if existing.ID != itemID {
			kept = append(kept, existing)
		}
	}
	s.items[cartID] = kept

	return nil
}

func (s *stubCartRepo) Clear(_ context.Context, cartID string) error {
	delete(s.items, cartID)

	return nil
}

func newService(repo *stubCartRepo) *CartService {
	return MustNewCartService(WithCartRepository(repo))
}

func TestAddItemValidation(t *testing.T) {
	t.Parallel()

	svc := newService(newStubCartRepo())
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "cart-1", cart.LineItem{Name: "Noir", UnitPriceCents: 100, Quantity: 1})
	require.ErrorIs(t, err, ErrMissingItemID)

	_, err = svc.AddItem(ctx, "cart-1", cart.LineItem{ID: "p1", UnitPriceCents: 100, Quantity: 0})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.AddItem(ctx, "cart-1", cart.LineItem{ID: "p1", UnitPriceCents: -1, Quantity: 1})
	require.ErrorIs(t, err, ErrInvalidPrice)
}

func TestAddThenUpdateAndRemove(t *testing.T) {
	t.Parallel()

	repo := newStubCartRepo()
	svc := newService(repo)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "cart-1", cart.LineItem{ID: "p1", Name: "Noir", UnitPriceCents: 100000, Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, svc.UpdateQuantity(ctx, "cart-1", "p1", 3))

	items, err := svc.Get(ctx, "cart-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 3, items[0].Quantity)

	// Quantity zero removes the line entirely.
	require.NoError(t, svc.UpdateQuantity(ctx, "cart-1", "p1", 0))

	items, err = svc.Get(ctx, "cart-1")
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestTotalsUsesCountryRule(t *testing.T) {
	t.Parallel()

	repo := newStubCartRepo()
	svc := newService(repo)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "cart-1", cart.LineItem{ID: "p1", Name: "Noir", UnitPriceCents: 100000, Quantity: 2})
	require.NoError(t, err)

	totals, err := svc.Totals(ctx, "cart-1", "US")
	require.NoError(t, err)
	require.True(t, totals.Subtotal.Equal(decimal.NewFromInt(26)), "subtotal %s", totals.Subtotal)
	require.True(t, totals.GrandTotal.Equal(decimal.NewFromInt(36)), "total %s", totals.GrandTotal)

	// Unknown codes price in the home region.
	totals, err = svc.Totals(ctx, "cart-1", "ZZ")
	require.NoError(t, err)
	require.True(t, totals.Subtotal.Equal(decimal.NewFromInt(2000)), "subtotal %s", totals.Subtotal)
	require.True(t, totals.GrandTotal.Equal(decimal.NewFromInt(2080)), "total %s", totals.GrandTotal)
}
