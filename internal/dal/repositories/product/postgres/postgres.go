package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/velouria/commerce/internal/dal/postgres"
	"github.com/velouria/commerce/internal/service/models/product"
)

// ProductRepository implements the catalog repository for PostgreSQL.
type ProductRepository struct {
	conn postgres.Querier
}

// NewProductRepository creates a new product repository.
func NewProductRepository(conn postgres.Querier) *ProductRepository {
	return &ProductRepository{
		conn: conn,
	}
}

// Query retrieves products based on filter criteria.
func (r *ProductRepository) Query(ctx context.Context, filter *product.QueryProductsModel) ([]product.Product, error) {
	builder := sq.Select(
		"id",
		"name",
		"description",
		"category",
		"fragrance",
		"size",
		"unit_price_cents",
		"image",
		"created_at",
		"updated_at",
	).
		From("products").
		OrderBy("created_at DESC").
		PlaceholderFormat(sq.Dollar)

	if len(filter.Ids) > 0 {
		builder = builder.Where(sq.Eq{"id": filter.Ids})
	}
	if len(filter.Categories) > 0 {
		builder = builder.Where(sq.Eq{"category": filter.Categories})
	}
	if len(filter.Fragrances) > 0 {
		builder = builder.Where(sq.Eq{"fragrance": filter.Fragrances})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []product.Product{}
	for rows.Next() {
		var p product.Product
		err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Description,
			&p.Category,
			&p.Fragrance,
			&p.Size,
			&p.UnitPriceCents,
			&p.Image,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return products, nil
}
