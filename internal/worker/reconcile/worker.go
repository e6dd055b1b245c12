package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/velouria/commerce/internal/dal/interfaces/isessionrepo"
	"github.com/velouria/commerce/internal/service/models/checkout"
	"github.com/velouria/commerce/internal/service/models/order"
)

// checkoutService is the slice of checkoutsvc the reconciler drives.
type checkoutService interface {
	CompleteVerified(ctx context.Context, sessionID string) (order.Order, error)
	Expire(ctx context.Context, sessionID string) error
}

// Worker sweeps checkout sessions that stalled between payment capture and
// order persistence, and expires sessions abandoned in the hosted payment
// UI. A verified session holds a captured charge, so it is replayed until
// the order lands; the idempotency key makes the replay safe.
type Worker struct {
	sessionRepo  isessionrepo.ISessionRepository
	checkout     checkoutService
	pollInterval time.Duration
	batchSize    int
	gatewayTTL   time.Duration
	createdTTL   time.Duration
	concurrency  int
	stopCh       chan struct{}
}

// NewWorker creates a new reconcile worker.
func NewWorker(sessionRepo isessionrepo.ISessionRepository, checkout checkoutService) *Worker {
	pollIntervalSeconds := viper.GetInt("checkout.reconcile.poll_interval_seconds")
	if pollIntervalSeconds == 0 {
		pollIntervalSeconds = 15
	}

	batchSize := viper.GetInt("checkout.reconcile.batch_size")
	if batchSize == 0 {
		batchSize = 50
	}

	gatewayTTLMinutes := viper.GetInt("checkout.reconcile.gateway_ttl_minutes")
	if gatewayTTLMinutes == 0 {
		gatewayTTLMinutes = 30
	}

	createdTTLMinutes := viper.GetInt("checkout.reconcile.created_ttl_minutes")
	if createdTTLMinutes == 0 {
		createdTTLMinutes = 5
	}

	concurrency := viper.GetInt("checkout.reconcile.concurrency")
	if concurrency == 0 {
		concurrency = 3
	}

	return &Worker{
		sessionRepo:  sessionRepo,
		checkout:     checkout,
		pollInterval: time.Duration(pollIntervalSeconds) * time.Second,
		batchSize:    batchSize,
		gatewayTTL:   time.Duration(gatewayTTLMinutes) * time.Minute,
		createdTTL:   time.Duration(createdTTLMinutes) * time.Minute,
		concurrency:  concurrency,
		stopCh:       make(chan struct{}),
	}
}

// Start begins sweeping stalled sessions.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	slog.Info("Reconcile worker started",
		"poll_interval", w.pollInterval,
		"batch_size", w.batchSize,
		"gateway_ttl", w.gatewayTTL,
		"created_ttl", w.createdTTL,
	)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Reconcile worker shutting down")

			return
		case <-w.stopCh:
			slog.Info("Reconcile worker stopped")

			return
		case <-ticker.C:
			w.replayVerified(ctx)
			w.expireAbandoned(ctx)
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	close(w.stopCh)
}

// replayVerified retries order persistence for sessions whose payment is
// captured and verified but whose order is not stored yet.
func (w *Worker) replayVerified(ctx context.Context) {
	ctx, span := otel.Tracer("commerce").Start(ctx, "reconcile.replay_verified")
	defer span.End()

	sessions, err := w.sessionRepo.GetStale(ctx, checkout.StateVerified, time.Now(), w.batchSize)
	if err != nil {
		slog.Error("Failed to get verified sessions pending persistence", "error", err)

		return
	}

	if len(sessions) == 0 {
		return
	}

	slog.Info("Replaying order persistence for verified sessions", "count", len(sessions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)

	for _, session := range sessions {
		session := session
		g.Go(func() error {
			stored, err := w.checkout.CompleteVerified(gctx, session.ID)
			if err != nil {
				newRetryCount := session.RetryCount + 1
				backoffSeconds := math.Pow(2, float64(newRetryCount)) * 30
				nextRetryAt := time.Now().Add(time.Duration(backoffSeconds) * time.Second)

				slog.Warn("Order persistence replay failed, will retry",
					"session_id", session.ID,
					"retry_count", newRetryCount,
					"next_retry", nextRetryAt,
					"error", err,
				)

				if err := w.sessionRepo.UpdateRetry(gctx, session.ID, newRetryCount, err.Error(), nextRetryAt); err != nil {
					slog.Error("Failed to update session retry information", "session_id", session.ID, "error", err)
				}

				return nil
			}

			slog.Info("Recovered order for verified session", "session_id", session.ID, "order_id", stored.ID)

			return nil
		})
	}

	// Workers swallow their own errors; Wait only orders shutdown.
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Reconcile batch aborted", "error", err)
	}
}

// expireAbandoned fails sessions whose payment never happened so their
// carts can check out again: sessions stuck in the hosted payment UI past
// the gateway TTL, and sessions left in created when the flow died before
// the gateway handoff. Both hold the cart's active-session slot, so
// neither may linger.
func (w *Worker) expireAbandoned(ctx context.Context) {
	ctx, span := otel.Tracer("commerce").Start(ctx, "reconcile.expire_abandoned")
	defer span.End()

	stuck := []struct {
		state  checkout.State
		cutoff time.Time
	}{
		{checkout.StateAwaitingGateway, time.Now().Add(-w.gatewayTTL)},
		{checkout.StateCreated, time.Now().Add(-w.createdTTL)},
	}

	for _, batch := range stuck {
		sessions, err := w.sessionRepo.GetStale(ctx, batch.state, batch.cutoff, w.batchSize)
		if err != nil {
			slog.Error("Failed to get abandoned sessions", "state", batch.state, "error", err)

			continue
		}

		for _, session := range sessions {
			if err := w.checkout.Expire(ctx, session.ID); err != nil {
				slog.Error("Failed to expire abandoned session", "session_id", session.ID, "error", err)

				continue
			}

			slog.Info("Expired abandoned checkout session", "session_id", session.ID, "state", batch.state)
		}
	}
}
