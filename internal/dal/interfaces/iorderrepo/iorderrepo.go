package iorderrepo

import (
	"context"
	"errors"

	"github.com/velouria/commerce/internal/service/models/order"
)

// ErrOrderNotFound means no order row matches the given id.
var ErrOrderNotFound = errors.New("order not found")

// IOrderRepository is an interface for the order postgres repository.
type IOrderRepository interface {
	// Insert stores an order. If an order with the same idempotency key
	// already exists, the stored order is returned with inserted=false and
	// nothing is written.
	Insert(ctx context.Context, o order.Order) (stored order.Order, inserted bool, err error)

	Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error)

	UpdateStatus(ctx context.Context, id int64, status order.Status) error
}
