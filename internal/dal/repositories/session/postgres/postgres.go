package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/velouria/commerce/internal/dal/interfaces/isessionrepo"
	"github.com/velouria/commerce/internal/dal/postgres"
	"github.com/velouria/commerce/internal/service/models/cart"
	"github.com/velouria/commerce/internal/service/models/checkout"
	"github.com/velouria/commerce/internal/service/models/currency"
)

const uniqueViolation = "23505"

var sessionColumns = []string{
	"id",
	"cart_id",
	"state",
	"country",
	"items",
	"form",
	"subtotal_minor",
	"shipping_minor",
	"amount_minor",
	"currency",
	"symbol",
	"gateway_order_id",
	"idempotency_key",
	"payment",
	"failure_reason",
	"retry_count",
	"next_retry_at",
	"created_at",
	"updated_at",
}

// SessionRepository implements checkout session storage for PostgreSQL.
// A partial unique index on cart_id over non-terminal states serves as the
// re-entrancy guard for the checkout flow.
type SessionRepository struct {
	conn postgres.Querier
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(conn postgres.Querier) *SessionRepository {
	return &SessionRepository{
		conn: conn,
	}
}

// Insert stores a new session.
func (r *SessionRepository) Insert(ctx context.Context, s checkout.Session) error {
	items, err := json.Marshal(s.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal session items: %w", err)
	}
	form, err := json.Marshal(s.Form)
	if err != nil {
		return fmt.Errorf("failed to marshal session form: %w", err)
	}

	now := time.Now()

	query, args, err := sq.Insert("checkout_sessions").
		Columns(sessionColumns...).
		Values(
			s.ID,
			s.CartID,
			string(s.State),
			s.Country,
			items,
			form,
			s.SubtotalMinor,
			s.ShippingMinor,
			s.AmountMinor,
			s.Currency.String(),
			s.Symbol,
			s.GatewayOrderID,
			s.IdempotencyKey,
			nil,
			s.FailureReason,
			s.RetryCount,
			now,
			now,
			now,
		).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return isessionrepo.ErrActiveSessionExists
		}

		return fmt.Errorf("failed to insert checkout session: %w", err)
	}

	return nil
}

// Get returns a session by id.
func (r *SessionRepository) Get(ctx context.Context, id string) (checkout.Session, error) {
	query, args, err := sq.Select(sessionColumns...).
		From("checkout_sessions").
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return checkout.Session{}, fmt.Errorf("failed to build select query: %w", err)
	}

	s, err := r.scanSession(r.conn.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return checkout.Session{}, isessionrepo.ErrSessionNotFound
		}

		return checkout.Session{}, err
	}

	return s, nil
}

// Update persists the session's mutable fields.
func (r *SessionRepository) Update(ctx context.Context, s checkout.Session) error {
	var payment []byte
	if s.Payment != nil {
		var err error
		payment, err = json.Marshal(s.Payment)
		if err != nil {
			return fmt.Errorf("failed to marshal session payment: %w", err)
		}
	}

	query, args, err := sq.Update("checkout_sessions").
		Set("state", string(s.State)).
		Set("gateway_order_id", s.GatewayOrderID).
		Set("payment", payment).
		Set("failure_reason", s.FailureReason).
		Set("retry_count", s.RetryCount).
		Set("next_retry_at", s.NextRetryAt).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": s.ID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update checkout session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return isessionrepo.ErrSessionNotFound
	}

	return nil
}

// GetStale returns sessions in the given state last updated before the
// cutoff, ready for reconciliation.
func (r *SessionRepository) GetStale(
	ctx context.Context,
	state checkout.State,
	before time.Time,
	limit int,
) ([]checkout.Session, error) {
	query, args, err := sq.Select(sessionColumns...).
		From("checkout_sessions").
		Where(sq.Eq{"state": string(state)}).
		Where(sq.LtOrEq{"updated_at": before}).
		Where(sq.LtOrEq{"next_retry_at": time.Now()}).
		OrderBy("updated_at ASC").
		Limit(uint64(limit)).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale sessions: %w", err)
	}
	defer rows.Close()

	var sessions []checkout.Session
	for rows.Next() {
		s, err := r.scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return sessions, nil
}

// UpdateRetry updates retry count and error information.
func (r *SessionRepository) UpdateRetry(
	ctx context.Context,
	id string,
	retryCount int,
	lastError string,
	nextRetryAt time.Time,
) error {
	query, args, err := sq.Update("checkout_sessions").
		Set("retry_count", retryCount).
		Set("failure_reason", lastError).
		Set("next_retry_at", nextRetryAt).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update session retry info: %w", err)
	}

	return nil
}

func (r *SessionRepository) scanSession(row pgx.Row) (checkout.Session, error) {
	var (
		s       checkout.Session
		state   string
		cur     string
		items   []byte
		form    []byte
		payment []byte
	)

	err := row.Scan(
		&s.ID,
		&s.CartID,
		&state,
		&s.Country,
		&items,
		&form,
		&s.SubtotalMinor,
		&s.ShippingMinor,
		&s.AmountMinor,
		&cur,
		&s.Symbol,
		&s.GatewayOrderID,
		&s.IdempotencyKey,
		&payment,
		&s.FailureReason,
		&s.RetryCount,
		&s.NextRetryAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return checkout.Session{}, err
		}

		return checkout.Session{}, fmt.Errorf("failed to scan checkout session: %w", err)
	}

	s.State = checkout.State(state)

	parsed, err := currency.ParseCurrency(cur)
	if err != nil {
		return checkout.Session{}, fmt.Errorf("failed to parse session currency: %w", err)
	}
	s.Currency = parsed

	s.Items = []cart.LineItem{}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &s.Items); err != nil {
			return checkout.Session{}, fmt.Errorf("failed to unmarshal session items: %w", err)
		}
	}
	if len(form) > 0 {
		if err := json.Unmarshal(form, &s.Form); err != nil {
			return checkout.Session{}, fmt.Errorf("failed to unmarshal session form: %w", err)
		}
	}
	if len(payment) > 0 {
		s.Payment = &checkout.PaymentDetails{}
		if err := json.Unmarshal(payment, s.Payment); err != nil {
			return checkout.Session{}, fmt.Errorf("failed to unmarshal session payment: %w", err)
		}
	}

	return s, nil
}
