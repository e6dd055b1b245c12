package uow

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/velouria/commerce/internal/dal/interfaces/iorderitemrepo"
	"github.com/velouria/commerce/internal/dal/interfaces/iorderrepo"
	"github.com/velouria/commerce/internal/dal/interfaces/ioutboxrepo"
	"github.com/velouria/commerce/internal/dal/postgres"
	orderrepo "github.com/velouria/commerce/internal/dal/repositories/order/postgres"
	orderitemrepo "github.com/velouria/commerce/internal/dal/repositories/orderitem/postgres"
	outboxrepo "github.com/velouria/commerce/internal/dal/repositories/outbox/postgres"
)

// unitOfWork scopes the order, order item and outbox repositories to one
// transaction so an order, its items, and its outbox event commit or roll
// back together.
type unitOfWork struct {
	client        *postgres.Client
	tx            pgx.Tx
	orderRepo     iorderrepo.IOrderRepository
	orderItemRepo iorderitemrepo.IOrderItemRepository
	outboxRepo    ioutboxrepo.IOutboxRepository
}

func NewUnitOfWork(client *postgres.Client) *unitOfWork {
	return &unitOfWork{
		client:        client,
		orderRepo:     orderrepo.NewOrderRepository(client.Pool()),
		orderItemRepo: orderitemrepo.NewOrderItemRepository(client.Pool()),
		outboxRepo:    outboxrepo.NewOutboxRepository(client.Pool()),
	}
}

func (u *unitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return u.orderRepo
}

func (u *unitOfWork) OrderItemRepository() iorderitemrepo.IOrderItemRepository {
	return u.orderItemRepo
}

func (u *unitOfWork) OutboxRepository() ioutboxrepo.IOutboxRepository {
	return u.outboxRepo
}

func (u *unitOfWork) Begin(ctx context.Context) error {
	tx, err := u.client.Pool().Begin(ctx)
	if err != nil {
		return err
	}

	u.tx = tx
	u.orderRepo = orderrepo.NewOrderRepository(tx)
	u.orderItemRepo = orderitemrepo.NewOrderItemRepository(tx)
	u.outboxRepo = outboxrepo.NewOutboxRepository(tx)

	return nil
}

func (u *unitOfWork) Commit(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}
	return u.tx.Commit(ctx)
}

func (u *unitOfWork) Rollback(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}
	return u.tx.Rollback(ctx)
}
