package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/velouria/commerce/internal/dal/postgres"
	"github.com/velouria/commerce/internal/service/models/cart"
)

// CartRepository implements cart line item storage for PostgreSQL. Each
// operation is a single statement, so concurrent clients of the same cart
// resolve to last-write-wins at the row level.
type CartRepository struct {
	conn postgres.Querier
}

// NewCartRepository creates a new cart repository.
func NewCartRepository(conn postgres.Querier) *CartRepository {
	return &CartRepository{
		conn: conn,
	}
}

// Get returns all line items of a cart, oldest first.
func (r *CartRepository) Get(ctx context.Context, cartID string) ([]cart.LineItem, error) {
	query, args, err := sq.Select(
		"item_id",
		"name",
		"unit_price_cents",
		"quantity",
		"image",
		"size",
		"category",
		"description",
		"fragrance",
		"created_at",
		"updated_at",
	).
		From("cart_items").
		Where(sq.Eq{"cart_id": cartID}).
		OrderBy("created_at ASC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	items := []cart.LineItem{}
	for rows.Next() {
		var item cart.LineItem
		err := rows.Scan(
			&item.ID,
			&item.Name,
			&item.UnitPriceCents,
			&item.Quantity,
			&item.Image,
			&item.Size,
			&item.Category,
			&item.Description,
			&item.Fragrance,
			&item.CreatedAt,
			&item.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return items, nil
}

// Upsert adds a line item or replaces an existing one with the same id.
func (r *CartRepository) Upsert(ctx context.Context, cartID string, item cart.LineItem) (cart.LineItem, error) {
	now := time.Now()

	query, args, err := sq.Insert("cart_items").
		Columns(
			"cart_id",
			"item_id",
			"name",
			"unit_price_cents",
			"quantity",
			"image",
			"size",
			"category",
			"description",
			"fragrance",
			"created_at",
			"updated_at",
		).
		Values(
			cartID,
			item.ID,
			item.Name,
			item.UnitPriceCents,
			item.Quantity,
			item.Image,
			item.Size,
			item.Category,
			item.Description,
			item.Fragrance,
			now,
			now,
		).
		Suffix(`ON CONFLICT (cart_id, item_id) DO UPDATE SET
			name = EXCLUDED.name,
			unit_price_cents = EXCLUDED.unit_price_cents,
			quantity = EXCLUDED.quantity,
			image = EXCLUDED.image,
			size = EXCLUDED.size,
			category = EXCLUDED.category,
			description = EXCLUDED.description,
			fragrance = EXCLUDED.fragrance,
			updated_at = EXCLUDED.updated_at
			RETURNING created_at, updated_at`).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return cart.LineItem{}, fmt.Errorf("failed to build upsert query: %w", err)
	}

	if err := r.conn.QueryRow(ctx, query, args...).Scan(&item.CreatedAt, &item.UpdatedAt); err != nil {
		return cart.LineItem{}, fmt.Errorf("failed to upsert cart item: %w", err)
	}

	return item, nil
}

// UpdateQuantity sets a line item's quantity; quantity <= 0 removes the
// item instead, preserving the quantity >= 1 invariant.
func (r *CartRepository) UpdateQuantity(ctx context.Context, cartID, itemID string, quantity int) error {
	if quantity <= 0 {
		return r.Remove(ctx, cartID, itemID)
	}

	query, args, err := sq.Update("cart_items").
		Set("quantity", quantity).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"cart_id": cartID, "item_id": itemID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	_, err = r.conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update cart item quantity: %w", err)
	}

	return nil
}

// Remove deletes a single line item.
func (r *CartRepository) Remove(ctx context.Context, cartID, itemID string) error {
	query, args, err := sq.Delete("cart_items").
		Where(sq.Eq{"cart_id": cartID, "item_id": itemID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	_, err = r.conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}

	return nil
}

// Clear deletes all line items of a cart.
func (r *CartRepository) Clear(ctx context.Context, cartID string) error {
	query, args, err := sq.Delete("cart_items").
		Where(sq.Eq{"cart_id": cartID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	_, err = r.conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	return nil
}
