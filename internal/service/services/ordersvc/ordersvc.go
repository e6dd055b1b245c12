package ordersvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/velouria/commerce/internal/dal/interfaces/iorderitemrepo"
	"github.com/velouria/commerce/internal/dal/interfaces/iorderrepo"
	"github.com/velouria/commerce/internal/dal/interfaces/ioutboxrepo"
	"github.com/velouria/commerce/internal/dal/postgres"
	orderrepo "github.com/velouria/commerce/internal/dal/repositories/order/postgres"
	orderitemrepo "github.com/velouria/commerce/internal/dal/repositories/orderitem/postgres"
	"github.com/velouria/commerce/internal/dal/uow"
	"github.com/velouria/commerce/internal/service/models/order"
	"github.com/velouria/commerce/internal/service/models/orderitem"
	"github.com/velouria/commerce/internal/service/models/outbox"
)

// ErrOrderNotFound means no order matches the lookup.
var ErrOrderNotFound = errors.New("order not found")

const defaultEventMaxRetries = 8

// OrderService is a service for managing orders.
type OrderService struct {
	pgClient        *postgres.Client
	eventRoutingKey string
}

func (s *OrderService) newUOW() unitOfWork {
	return uow.NewUnitOfWork(s.pgClient)
}

type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	OrderRepository() iorderrepo.IOrderRepository
	OrderItemRepository() iorderitemrepo.IOrderItemRepository
	OutboxRepository() ioutboxrepo.IOutboxRepository
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService.
func MustNewOrderService(opts ...option) *OrderService {
	s := &OrderService{}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// WithPostgresClient sets the Postgres client for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *OrderService) {
		s.pgClient = pgClient
	}
}

// WithEventRoutingKey sets the routing key order.created events are
// enqueued with.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithEventRoutingKey(key string) option {
	return func(s *OrderService) {
		s.eventRoutingKey = key
	}
}

// Create persists an order, its items, and an order.created outbox event
// in one transaction. Inserts deduplicate on the order's idempotency key:
// a retried attempt gets back the order stored by the first one.
func (s *OrderService) Create(ctx context.Context, o order.Order) (order.Order, error) {
	work := s.newUOW()

	if err := work.Begin(ctx); err != nil {
		return order.Order{}, err
	}

	stored, inserted, err := work.OrderRepository().Insert(ctx, o)
	if err != nil {
		_ = work.Rollback(ctx)

		return order.Order{}, err
	}

	if !inserted {
		_ = work.Rollback(ctx)

		return s.attachItems(ctx, stored)
	}

	items := make([]orderitem.OrderItem, len(o.OrderItems))
	copy(items, o.OrderItems)
	for i := range items {
		items[i].OrderID = stored.ID
	}

	items, err = work.OrderItemRepository().BulkInsert(ctx, items)
	if err != nil {
		_ = work.Rollback(ctx)

		return order.Order{}, err
	}
	stored.OrderItems = items

	payload, err := json.Marshal(stored)
	if err != nil {
		_ = work.Rollback(ctx)

		return order.Order{}, fmt.Errorf("failed to marshal order event: %w", err)
	}

	err = work.OutboxRepository().Insert(ctx, outbox.Message{
		RoutingKey:  s.eventRoutingKey,
		Payload:     payload,
		ContentType: "application/json",
		MaxRetries:  defaultEventMaxRetries,
	})
	if err != nil {
		_ = work.Rollback(ctx)

		return order.Order{}, err
	}

	if err := work.Commit(ctx); err != nil {
		return order.Order{}, err
	}

	return stored, nil
}

// FindByIdempotencyKey returns the order stored for a checkout attempt.
func (s *OrderService) FindByIdempotencyKey(ctx context.Context, key string) (order.Order, error) {
	repo := orderrepo.NewOrderRepository(s.pgClient.Pool())

	orders, err := repo.Query(ctx, &order.QueryOrdersModel{
		IdempotencyKeys: []string{key},
	})
	if err != nil {
		return order.Order{}, err
	}
	if len(orders) == 0 {
		return order.Order{}, ErrOrderNotFound
	}

	return s.attachItems(ctx, orders[0])
}

// GetOrders retrieves orders with their items based on filter.
func (s *OrderService) GetOrders(
	ctx context.Context,
	filter *order.QueryOrdersModel,
) ([]order.Order, error) {
	repo := orderrepo.NewOrderRepository(s.pgClient.Pool())

	orders, err := repo.Query(ctx, filter)
	if err != nil {
		return nil, err
	}

	if len(orders) == 0 {
		return []order.Order{}, nil
	}

	itemQuery := &orderitem.QueryOrderItemsModel{}
	for _, o := range orders {
		itemQuery.OrderIds = append(itemQuery.OrderIds, o.ID)
	}

	itemRepo := orderitemrepo.NewOrderItemRepository(s.pgClient.Pool())
	items, err := itemRepo.Query(ctx, itemQuery)
	if err != nil {
		return nil, err
	}

	for i := range orders {
		for _, item := range items {
			if item.OrderID == orders[i].ID {
				orders[i].OrderItems = append(orders[i].OrderItems, item)
			}
		}
	}

	return orders, nil
}

// UpdateStatus sets an order's status after admin review.
func (s *OrderService) UpdateStatus(ctx context.Context, id int64, status order.Status) error {
	repo := orderrepo.NewOrderRepository(s.pgClient.Pool())

	if err := repo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, iorderrepo.ErrOrderNotFound) {
			return ErrOrderNotFound
		}

		return err
	}

	return nil
}

func (s *OrderService) attachItems(ctx context.Context, o order.Order) (order.Order, error) {
	itemRepo := orderitemrepo.NewOrderItemRepository(s.pgClient.Pool())

	items, err := itemRepo.Query(ctx, &orderitem.QueryOrderItemsModel{
		OrderIds: []int64{o.ID},
	})
	if err != nil {
		return order.Order{}, err
	}
	o.OrderItems = items

	return o, nil
}
