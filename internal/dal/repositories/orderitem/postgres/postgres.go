package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/velouria/commerce/internal/dal/postgres"
	"github.com/velouria/commerce/internal/service/models/orderitem"
)

// OrderItemRepository implements order item storage for PostgreSQL.
type OrderItemRepository struct {
	conn postgres.Querier
}

// NewOrderItemRepository creates a new order item repository.
func NewOrderItemRepository(conn postgres.Querier) *OrderItemRepository {
	return &OrderItemRepository{
		conn: conn,
	}
}

// BulkInsert inserts multiple order items in one round trip and returns
// them with their ids.
func (r *OrderItemRepository) BulkInsert(ctx context.Context, items []orderitem.OrderItem) ([]orderitem.OrderItem, error) {
	if len(items) == 0 {
		return []orderitem.OrderItem{}, nil
	}

	sql := `
		INSERT INTO order_items (
			order_id,
			product_id,
			quantity,
			name,
			unit_price_cents,
			image,
			description,
			category,
			size,
			fragrance,
			created_at,
			updated_at
		)
		SELECT
			order_id,
			product_id,
			quantity,
			name,
			unit_price_cents,
			image,
			description,
			category,
			size,
			fragrance,
			created_at,
			updated_at
		FROM unnest(
			$1::bigint[], $2::text[], $3::int[], $4::text[], $5::bigint[],
			$6::text[], $7::text[], $8::text[], $9::text[], $10::text[],
			$11::timestamptz[], $12::timestamptz[]
		)
		AS t(
			order_id, product_id, quantity, name, unit_price_cents,
			image, description, category, size, fragrance,
			created_at, updated_at
		)
		RETURNING id
	`

	now := time.Now()
	orderIds := make([]int64, len(items))
	productIds := make([]string, len(items))
	quantities := make([]int32, len(items))
	names := make([]string, len(items))
	unitPrices := make([]int64, len(items))
	images := make([]string, len(items))
	descriptions := make([]string, len(items))
	categories := make([]string, len(items))
	sizes := make([]string, len(items))
	fragrances := make([]string, len(items))
	createdAts := make([]time.Time, len(items))
	updatedAts := make([]time.Time, len(items))

	for i, item := range items {
		orderIds[i] = item.OrderID
		productIds[i] = item.ProductID
		quantities[i] = int32(item.Quantity)
		names[i] = item.Name
		unitPrices[i] = item.UnitPriceCents
		images[i] = item.Image
		descriptions[i] = item.Description
		categories[i] = item.Category
		sizes[i] = item.Size
		fragrances[i] = item.Fragrance
		createdAts[i] = now
		updatedAts[i] = now
	}

	rows, err := r.conn.Query(ctx, sql,
		orderIds,
		productIds,
		quantities,
		names,
		unitPrices,
		images,
		descriptions,
		categories,
		sizes,
		fragrances,
		createdAts,
		updatedAts,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to bulk insert order items: %w", err)
	}
	defer rows.Close()

	result := make([]orderitem.OrderItem, 0, len(items))
	i := 0
	for rows.Next() {
		item := items[i]
		if err := rows.Scan(&item.ID); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		item.CreatedAt = now
		item.UpdatedAt = now
		result = append(result, item)
		i++
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// Query retrieves order items based on filter criteria.
func (r *OrderItemRepository) Query(ctx context.Context, filter *orderitem.QueryOrderItemsModel) ([]orderitem.OrderItem, error) {
	builder := sq.Select(
		"id",
		"order_id",
		"product_id",
		"quantity",
		"name",
		"unit_price_cents",
		"image",
		"description",
		"category",
		"size",
		"fragrance",
		"created_at",
		"updated_at",
	).
		From("order_items").
		OrderBy("id ASC").
		PlaceholderFormat(sq.Dollar)

	if len(filter.OrderIds) > 0 {
		builder = builder.Where(sq.Eq{"order_id": filter.OrderIds})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var result []orderitem.OrderItem
	for rows.Next() {
		var item orderitem.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Quantity,
			&item.Name,
			&item.UnitPriceCents,
			&item.Image,
			&item.Description,
			&item.Category,
			&item.Size,
			&item.Fragrance,
			&item.CreatedAt,
			&item.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		result = append(result, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}
