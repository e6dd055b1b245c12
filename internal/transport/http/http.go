package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"

	"github.com/velouria/commerce/internal/service/models/cart"
	"github.com/velouria/commerce/internal/service/models/checkout"
	"github.com/velouria/commerce/internal/service/models/order"
	"github.com/velouria/commerce/internal/service/models/pricing"
	"github.com/velouria/commerce/internal/service/models/product"
	"github.com/velouria/commerce/internal/service/services/checkoutsvc"
	begincheckout "github.com/velouria/commerce/internal/transport/http/begin_checkout"
	carthandler "github.com/velouria/commerce/internal/transport/http/cart"
	confirmcheckout "github.com/velouria/commerce/internal/transport/http/confirm_checkout"
	listorders "github.com/velouria/commerce/internal/transport/http/list_orders"
	listproducts "github.com/velouria/commerce/internal/transport/http/list_products"
	updateorderstatus "github.com/velouria/commerce/internal/transport/http/update_order_status"
	"github.com/velouria/commerce/pkg/http/middleware/trace"
	"github.com/velouria/commerce/pkg/logger"
)

type catalogService interface {
	GetProducts(ctx context.Context, filter *product.QueryProductsModel) ([]product.Product, error)
}

type cartService interface {
	Get(ctx context.Context, cartID string) ([]cart.LineItem, error)
	AddItem(ctx context.Context, cartID string, item cart.LineItem) (cart.LineItem, error)
	UpdateQuantity(ctx context.Context, cartID, itemID string, quantity int) error
	RemoveItem(ctx context.Context, cartID, itemID string) error
	Clear(ctx context.Context, cartID string) error
	Totals(ctx context.Context, cartID, countryCode string) (pricing.Totals, error)
}

type checkoutService interface {
	Begin(ctx context.Context, cartID, countryCode string, form checkout.Form) (checkoutsvc.BeginResult, error)
	Confirm(ctx context.Context, sessionID string, cb checkout.GatewayCallback) (order.Order, error)
}

type orderService interface {
	GetOrders(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error)
	UpdateStatus(ctx context.Context, id int64, status order.Status) error
}

type HTTPTransport struct {
	server   *http.Server
	router   *chi.Mux
	catalog  catalogService
	carts    cartService
	checkout checkoutService
	orders   orderService
}

func NewHTTPTransport(
	catalog catalogService,
	carts cartService,
	checkout checkoutService,
	orders orderService,
) *HTTPTransport {
	router := newRouter()
	server := newServer(router)
	return &HTTPTransport{
		server:   server,
		router:   router,
		catalog:  catalog,
		carts:    carts,
		checkout: checkout,
		orders:   orders,
	}
}

func (h *HTTPTransport) Run() error {
	return h.server.ListenAndServe()
}

func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", h.getProducts)

		r.Route("/carts/{cartID}", func(r chi.Router) {
			r.Get("/", h.getCart)
			r.Delete("/", h.clearCart)
			r.Get("/totals", h.getCartTotals)
			r.Post("/items", h.addCartItem)
			r.Patch("/items/{itemID}", h.updateCartItem)
			r.Delete("/items/{itemID}", h.removeCartItem)
		})

		r.Post("/checkout", h.beginCheckout)
		r.Post("/checkout/{sessionID}/confirm", h.confirmCheckout)

		r.Get("/orders", h.getOrders)
		r.Patch("/orders/{orderID}/status", h.updateOrderStatus)
	})
}

func (h *HTTPTransport) getProducts(w http.ResponseWriter, r *http.Request) {
	listproducts.ListProducts(w, r, h.catalog)
}

func (h *HTTPTransport) getCart(w http.ResponseWriter, r *http.Request) {
	carthandler.GetCart(w, r, h.carts)
}

func (h *HTTPTransport) clearCart(w http.ResponseWriter, r *http.Request) {
	carthandler.ClearCart(w, r, h.carts)
}

func (h *HTTPTransport) getCartTotals(w http.ResponseWriter, r *http.Request) {
	carthandler.GetTotals(w, r, h.carts)
}

func (h *HTTPTransport) addCartItem(w http.ResponseWriter, r *http.Request) {
	carthandler.AddItem(w, r, h.carts)
}

func (h *HTTPTransport) updateCartItem(w http.ResponseWriter, r *http.Request) {
	carthandler.UpdateItem(w, r, h.carts)
}

func (h *HTTPTransport) removeCartItem(w http.ResponseWriter, r *http.Request) {
	carthandler.RemoveItem(w, r, h.carts)
}

func (h *HTTPTransport) beginCheckout(w http.ResponseWriter, r *http.Request) {
	begincheckout.BeginCheckout(w, r, h.checkout)
}

func (h *HTTPTransport) confirmCheckout(w http.ResponseWriter, r *http.Request) {
	confirmcheckout.ConfirmCheckout(w, r, h.checkout)
}

func (h *HTTPTransport) getOrders(w http.ResponseWriter, r *http.Request) {
	listorders.ListOrders(w, r, h.orders)
}

func (h *HTTPTransport) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	updateorderstatus.UpdateOrderStatus(w, r, h.orders)
}

func newRouter() *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))
	router.Use(trace.NewTraceMiddleware)

	allowedOrigins := viper.GetStringSlice("server.http.cors.allowed_origins")
	allowedMethods := viper.GetStringSlice("server.http.cors.allowed_methods")
	allowedHeaders := viper.GetStringSlice("server.http.cors.allowed_headers")
	exposedHeaders := viper.GetStringSlice("server.http.cors.exposed_headers")
	allowCredentials := viper.GetBool("server.http.cors.allow_credentials")
	maxAge := viper.GetInt("server.http.cors.max_age")

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           maxAge,
	})

	router.Use(c.Handler)

	return router
}

func newServer(router http.Handler) *http.Server {
	return &http.Server{
		Addr:    "0.0.0.0:" + viper.GetString("server.http.port"),
		Handler: router,
	}
}
