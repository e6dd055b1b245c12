package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/velouria/commerce/internal/service/models/checkout"
	"github.com/velouria/commerce/internal/service/models/order"
)

type stubSessionRepo struct {
	verified []checkout.Session
	awaiting []checkout.Session
	created  []checkout.Session
	retried  []string
	mu       sync.Mutex
}

func (s *stubSessionRepo) Insert(context.Context, checkout.Session) error { return nil }

func (s *stubSessionRepo) Get(context.Context, string) (checkout.Session, error) {
	return checkout.Session{}, nil
}

func (s *stubSessionRepo) Update(context.Context, checkout.Session) error { return nil }

func (s *stubSessionRepo) GetStale(_ context.Context, state checkout.State, _ time.Time, _ int) ([]checkout.Session, error) {
	switch state {
	case checkout.StateVerified:
		return s.verified, nil
	case checkout.StateAwaitingGateway:
		return s.awaiting, nil
	case checkout.StateCreated:
		return s.created, nil
	default:
		return nil, nil
	}
}

func (s *stubSessionRepo) UpdateRetry(_ context.Context, id string, _ int, _ string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retried = append(s.retried, id)

	return nil
}

type stubCheckout struct {
	completeErr error
	completed   []string
	expired     []string
	mu          sync.Mutex
}

func (s *stubCheckout) CompleteVerified(_ context.Context, sessionID string) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completeErr != nil {
		return order.Order{}, s.completeErr
	}
	s.completed = append(s.completed, sessionID)

	return order.Order{ID: int64(len(s.completed))}, nil
}

func (s *stubCheckout) Expire(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expired = append(s.expired, sessionID)

	return nil
}

func TestReplayVerifiedCompletesSessions(t *testing.T) {
	repo := &stubSessionRepo{
		verified: []checkout.Session{
			{ID: "sess-1", State: checkout.StateVerified},
			{ID: "sess-2", State: checkout.StateVerified},
		},
	}
	svc := &stubCheckout{}

	NewWorker(repo, svc).replayVerified(context.Background())

	require.ElementsMatch(t, []string{"sess-1", "sess-2"}, svc.completed)
	require.Empty(t, repo.retried)
}

func TestReplayVerifiedSchedulesRetryOnFailure(t *testing.T) {
	repo := &stubSessionRepo{
		verified: []checkout.Session{
			{ID: "sess-1", State: checkout.StateVerified, RetryCount: 2},
		},
	}
	svc := &stubCheckout{completeErr: errors.New("db down")}

	NewWorker(repo, svc).replayVerified(context.Background())

	require.Empty(t, svc.completed)
	require.Equal(t, []string{"sess-1"}, repo.retried)
}

func TestExpireAbandonedSweepsAwaitingSessions(t *testing.T) {
	repo := &stubSessionRepo{
		awaiting: []checkout.Session{
			{ID: "sess-9", State: checkout.StateAwaitingGateway},
		},
	}
	svc := &stubCheckout{}

	NewWorker(repo, svc).expireAbandoned(context.Background())

	require.Equal(t, []string{"sess-9"}, svc.expired)
}

func TestExpireAbandonedSweepsStuckCreatedSessions(t *testing.T) {
	// A session left in created by a crash or store outage between insert
	// and the gateway handoff still holds its cart's active slot; the
	// sweep must fail it so the cart can check out again.
	repo := &stubSessionRepo{
		created: []checkout.Session{
			{ID: "sess-3", State: checkout.StateCreated},
		},
	}
	svc := &stubCheckout{}

	NewWorker(repo, svc).expireAbandoned(context.Background())

	require.Equal(t, []string{"sess-3"}, svc.expired)
}
