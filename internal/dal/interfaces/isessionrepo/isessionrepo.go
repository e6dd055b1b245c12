package isessionrepo

import (
	"context"
	"errors"
	"time"

	"github.com/velouria/commerce/internal/service/models/checkout"
)

// ErrActiveSessionExists means the cart already has a non-terminal checkout
// session; creating a second one would risk a duplicate gateway order.
var ErrActiveSessionExists = errors.New("active checkout session already exists for cart")

// ErrSessionNotFound means no session exists with the given id.
var ErrSessionNotFound = errors.New("checkout session not found")

// ISessionRepository defines storage for checkout sessions.
type ISessionRepository interface {
	// Insert stores a new session. Returns ErrActiveSessionExists if the
	// cart already has a session in a non-terminal state.
	Insert(ctx context.Context, s checkout.Session) error

	// Get returns a session by id, or ErrSessionNotFound.
	Get(ctx context.Context, id string) (checkout.Session, error)

	// Update persists the session's mutable fields (state, gateway ids,
	// payment record, failure reason, retry bookkeeping).
	Update(ctx context.Context, s checkout.Session) error

	// GetStale returns up to limit sessions in the given state whose last
	// update is older than before, ready for the reconcile worker.
	GetStale(ctx context.Context, state checkout.State, before time.Time, limit int) ([]checkout.Session, error)

	// UpdateRetry updates retry count and error information for a session
	// awaiting order persistence.
	UpdateRetry(ctx context.Context, id string, retryCount int, lastError string, nextRetryAt time.Time) error
}
