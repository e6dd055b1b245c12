package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/velouria/commerce/internal/dal/interfaces/iorderrepo"
	"github.com/velouria/commerce/internal/dal/postgres"
	"github.com/velouria/commerce/internal/service/models/currency"
	"github.com/velouria/commerce/internal/service/models/order"
	"github.com/velouria/commerce/internal/service/models/orderitem"
)

var orderColumns = []string{
	"id",
	"cart_id",
	"session_id",
	"idempotency_key",
	"total_amount_minor",
	"currency",
	"status",
	"shipping_name",
	"shipping_street",
	"shipping_apartment",
	"shipping_city",
	"shipping_zip",
	"payment_info",
	"created_at",
	"updated_at",
}

// OrderRepository implements order storage for PostgreSQL. The idempotency
// key carries a unique constraint, so retried inserts resolve to the order
// already stored for that checkout attempt.
type OrderRepository struct {
	conn postgres.Querier
}

// NewOrderRepository creates a new order repository.
func NewOrderRepository(conn postgres.Querier) *OrderRepository {
	return &OrderRepository{
		conn: conn,
	}
}

// Insert stores an order, deduplicating on the idempotency key.
func (r *OrderRepository) Insert(ctx context.Context, o order.Order) (order.Order, bool, error) {
	paymentInfo, err := json.Marshal(o.PaymentInfo)
	if err != nil {
		return order.Order{}, false, fmt.Errorf("failed to marshal payment info: %w", err)
	}

	now := time.Now()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now

	query, args, err := sq.Insert("orders").
		Columns(orderColumns[1:]...).
		Values(
			o.CartID,
			o.SessionID,
			o.IdempotencyKey,
			o.TotalAmountMinor,
			o.Currency.String(),
			o.Status.String(),
			o.ShippingAddress.Name,
			o.ShippingAddress.Street,
			o.ShippingAddress.Apartment,
			o.ShippingAddress.City,
			o.ShippingAddress.ZipCode,
			paymentInfo,
			o.CreatedAt,
			o.UpdatedAt,
		).
		Suffix("ON CONFLICT (idempotency_key) DO NOTHING RETURNING id").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return order.Order{}, false, fmt.Errorf("failed to build insert query: %w", err)
	}

	err = r.conn.QueryRow(ctx, query, args...).Scan(&o.ID)
	if err == nil {
		return o, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return order.Order{}, false, fmt.Errorf("failed to insert order: %w", err)
	}

	// Conflict: another attempt already stored this checkout's order.
	existing, err := r.Query(ctx, &order.QueryOrdersModel{
		IdempotencyKeys: []string{o.IdempotencyKey},
	})
	if err != nil {
		return order.Order{}, false, err
	}
	if len(existing) == 0 {
		return order.Order{}, false, fmt.Errorf("order with idempotency key %s vanished after conflict", o.IdempotencyKey)
	}

	return existing[0], false, nil
}

// Query retrieves orders based on filter criteria.
func (r *OrderRepository) Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error) {
	builder := sq.Select(orderColumns...).
		From("orders").
		OrderBy("created_at DESC").
		PlaceholderFormat(sq.Dollar)

	if len(filter.Ids) > 0 {
		builder = builder.Where(sq.Eq{"id": filter.Ids})
	}
	if len(filter.CartIds) > 0 {
		builder = builder.Where(sq.Eq{"cart_id": filter.CartIds})
	}
	if len(filter.IdempotencyKeys) > 0 {
		builder = builder.Where(sq.Eq{"idempotency_key": filter.IdempotencyKeys})
	}
	if len(filter.Statuses) > 0 {
		builder = builder.Where(sq.Eq{"status": filter.Statuses})
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
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var result []order.Order
	for rows.Next() {
		var (
			o           order.Order
			cur         string
			status      string
			paymentInfo []byte
		)
		err := rows.Scan(
			&o.ID,
			&o.CartID,
			&o.SessionID,
			&o.IdempotencyKey,
			&o.TotalAmountMinor,
			&cur,
			&status,
			&o.ShippingAddress.Name,
			&o.ShippingAddress.Street,
			&o.ShippingAddress.Apartment,
			&o.ShippingAddress.City,
			&o.ShippingAddress.ZipCode,
			&paymentInfo,
			&o.CreatedAt,
			&o.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}

		o.Currency, err = currency.ParseCurrency(cur)
		if err != nil {
			return nil, fmt.Errorf("failed to parse order currency: %w", err)
		}
		o.Status, err = order.ParseStatus(status)
		if err != nil {
			return nil, fmt.Errorf("failed to parse order status: %w", err)
		}
		if len(paymentInfo) > 0 {
			if err := json.Unmarshal(paymentInfo, &o.PaymentInfo); err != nil {
				return nil, fmt.Errorf("failed to unmarshal payment info: %w", err)
			}
		}
		o.OrderItems = []orderitem.OrderItem{}

		result = append(result, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// UpdateStatus sets an order's status. Admin review path; never called by
// the checkout flow.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status order.Status) error {
	query, args, err := sq.Update("orders").
		Set("status", status.String()).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %d: %w", id, iorderrepo.ErrOrderNotFound)
	}

	return nil
}
