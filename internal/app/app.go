package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/velouria/commerce/internal/config"
	"github.com/velouria/commerce/internal/dal/postgres"
	"github.com/velouria/commerce/internal/dal/rabbitmq"
	cartrepo "github.com/velouria/commerce/internal/dal/repositories/cart/postgres"
	"github.com/velouria/commerce/internal/dal/repositories/events"
	outboxrepo "github.com/velouria/commerce/internal/dal/repositories/outbox/postgres"
	productrepo "github.com/velouria/commerce/internal/dal/repositories/product/postgres"
	sessionrepo "github.com/velouria/commerce/internal/dal/repositories/session/postgres"
	"github.com/velouria/commerce/internal/gateway/razorpay"
	"github.com/velouria/commerce/internal/otel"
	"github.com/velouria/commerce/internal/service/services/cartsvc"
	"github.com/velouria/commerce/internal/service/services/catalogsvc"
	"github.com/velouria/commerce/internal/service/services/checkoutsvc"
	"github.com/velouria/commerce/internal/service/services/ordersvc"
	httptransport "github.com/velouria/commerce/internal/transport/http"
	outboxworker "github.com/velouria/commerce/internal/worker/outbox"
	reconcileworker "github.com/velouria/commerce/internal/worker/reconcile"
)

// App represents the application.
type App struct {
	transport       *httptransport.HTTPTransport
	outboxWorker    *outboxworker.Worker
	reconcileWorker *reconcileworker.Worker
	postgresClient  *postgres.Client
	rabbitClient    *rabbitmq.Client
	otelController  *otel.OtelController
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	otelController := otel.MustInitOtel()
	postgresClient := postgres.MustNewClient()
	rabbitClient := rabbitmq.MustNewClient()
	gateway := razorpay.MustNewClientFromEnv()

	rules := config.PricingRules()

	cartRepo := cartrepo.NewCartRepository(postgresClient.Pool())
	productRepo := productrepo.NewProductRepository(postgresClient.Pool())
	sessionRepo := sessionrepo.NewSessionRepository(postgresClient.Pool())
	outboxRepo := outboxrepo.NewOutboxRepository(postgresClient.Pool())
	eventPublisher := events.NewOrderEventPublisher(rabbitClient)

	catalogSvc := catalogsvc.MustNewCatalogService(
		catalogsvc.WithProductRepository(productRepo),
	)
	cartSvc := cartsvc.MustNewCartService(
		cartsvc.WithCartRepository(cartRepo),
		cartsvc.WithRules(rules),
	)
	orderSvc := ordersvc.MustNewOrderService(
		ordersvc.WithPostgresClient(postgresClient),
		ordersvc.WithEventRoutingKey(eventPublisher.QueueName()),
	)
	checkoutSvc := checkoutsvc.MustNewCheckoutService(
		checkoutsvc.WithCartRepository(cartRepo),
		checkoutsvc.WithSessionRepository(sessionRepo),
		checkoutsvc.WithOrderService(orderSvc),
		checkoutsvc.WithGateway(gateway),
		checkoutsvc.WithRules(rules),
	)

	transport := httptransport.NewHTTPTransport(catalogSvc, cartSvc, checkoutSvc, orderSvc)
	transport.RegisterRoutes()

	return &App{
		transport:       transport,
		outboxWorker:    outboxworker.NewWorker(outboxRepo, eventPublisher),
		reconcileWorker: reconcileworker.NewWorker(sessionRepo, checkoutSvc),
		postgresClient:  postgresClient,
		rabbitClient:    rabbitClient,
		otelController:  otelController,
	}
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())

	go a.outboxWorker.Start(workerCtx)
	go a.reconcileWorker.Start(workerCtx)

	go func() {
		slog.Info("Starting HTTP server")
		if err := a.transport.Run(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	<-stop
	slog.Info("Shutdown signal received")

	cancelWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.transport.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	a.postgresClient.Close()
	slog.Info("Database connection closed gracefully")

	if err := a.rabbitClient.Close(); err != nil {
		slog.Error("RabbitMQ connection close error", "error", err)
	} else {
		slog.Info("RabbitMQ connection closed gracefully")
	}

	if err := a.otelController.Shutdown(); err != nil {
		slog.Error("Trace provider shutdown error", "error", err)
	}

	slog.Info("Application shutdown complete")
}
