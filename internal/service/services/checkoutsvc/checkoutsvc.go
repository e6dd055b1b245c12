package checkoutsvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/velouria/commerce/internal/dal/interfaces/icartrepo"
	"github.com/velouria/commerce/internal/dal/interfaces/isessionrepo"
	"github.com/velouria/commerce/internal/gateway/razorpay"
	"github.com/velouria/commerce/internal/service/models/checkout"
	"github.com/velouria/commerce/internal/service/models/order"
	"github.com/velouria/commerce/internal/service/models/pricing"
)

var (
	// ErrValidation means a required checkout form field is missing.
	ErrValidation = errors.New("checkout: fill in all required fields")
	// ErrEmptyCart means checkout started on a cart with no line items.
	ErrEmptyCart = errors.New("checkout: cart is empty")
	// ErrCheckoutInFlight means the cart already has an active checkout
	// session; the caller should resume or wait rather than start another.
	ErrCheckoutInFlight = errors.New("checkout: another attempt is in flight for this cart")
	// ErrGatewayOrder means the gateway order could not be created; no
	// money moved and the cart is untouched.
	ErrGatewayOrder = errors.New("checkout: failed to create gateway order")
	// ErrSessionNotFound means the checkout session does not exist.
	ErrSessionNotFound = errors.New("checkout: session not found")
	// ErrSessionState means the session is not in a state that accepts
	// the requested step.
	ErrSessionState = errors.New("checkout: session is not awaiting payment")
	// ErrSignature means the payment callback failed verification; the
	// charge state is uncertain and no order was created.
	ErrSignature = errors.New("checkout: payment verification failed")
	// ErrPersistence means the payment was captured and verified but the
	// order could not be stored yet; it will be retried from the session
	// snapshot, and the customer must not be charged again.
	ErrPersistence = errors.New("checkout: payment captured, order persistence pending")
)

// Begin's hosted-UI handoff for the storefront client.
type BeginResult struct {
	SessionID      string `json:"sessionId"`
	GatewayOrderID string `json:"gatewayOrderId"`
	GatewayKeyID   string `json:"gatewayKeyId"`
	AmountMinor    int64  `json:"amountMinor"`
	Currency       string `json:"currency"`
}

// orderService is the slice of ordersvc the checkout flow needs.
type orderService interface {
	Create(ctx context.Context, o order.Order) (order.Order, error)
	FindByIdempotencyKey(ctx context.Context, key string) (order.Order, error)
}

// paymentGateway is the slice of the gateway client the checkout flow needs.
type paymentGateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, currencyCode, receipt string) (razorpay.Order, error)
	VerifySignature(orderID, paymentID, signature string) error
	FetchPayment(ctx context.Context, paymentID string) (razorpay.Payment, error)
	KeyID() string
}

// CheckoutService drives a checkout attempt through its states: form
// validation, gateway order creation, signature verification, order
// persistence, cart clearing. Every step leaves the session row in a state
// the reconcile worker can pick the flow back up from.
type CheckoutService struct {
	cartRepo    icartrepo.ICartRepository
	sessionRepo isessionrepo.ISessionRepository
	orders      orderService
	gateway     paymentGateway
	rules       pricing.Rules
	validate    *validator.Validate
	now         func() time.Time
}

// option is a function that configures the CheckoutService.
type option func(*CheckoutService)

// MustNewCheckoutService creates a new CheckoutService.
func MustNewCheckoutService(opts ...option) *CheckoutService {
	s := &CheckoutService{
		rules:    pricing.DefaultRules(),
		validate: validator.New(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithCartRepository(repo icartrepo.ICartRepository) option {
	return func(s *CheckoutService) {
		s.cartRepo = repo
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithSessionRepository(repo isessionrepo.ISessionRepository) option {
	return func(s *CheckoutService) {
		s.sessionRepo = repo
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithOrderService(orders orderService) option {
	return func(s *CheckoutService) {
		s.orders = orders
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithGateway(gateway paymentGateway) option {
	return func(s *CheckoutService) {
		s.gateway = gateway
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithRules(rules pricing.Rules) option {
	return func(s *CheckoutService) {
		s.rules = rules
	}
}

// WithClock overrides the service clock.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(s *CheckoutService) {
		s.now = now
	}
}

// ValidateForm reports whether every required checkout field is non-empty.
// Values are not trimmed, so whitespace-only fields pass; that matches the
// storefront this replaces and is pinned by tests as a known gap.
func (s *CheckoutService) ValidateForm(form checkout.Form) error {
	if err := s.validate.Struct(form); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	return nil
}

// Begin starts a checkout attempt: validates the form, snapshots and
// prices the cart, registers a gateway order, and parks the session in
// awaiting_gateway for the hosted payment UI. The session row is inserted
// before the gateway call so a rapid double submit cannot create two
// gateway orders for one cart.
func (s *CheckoutService) Begin(
	ctx context.Context,
	cartID, countryCode string,
	form checkout.Form,
) (BeginResult, error) {
	if err := s.ValidateForm(form); err != nil {
		return BeginResult{}, err
	}

	items, err := s.cartRepo.Get(ctx, cartID)
	if err != nil {
		return BeginResult{}, fmt.Errorf("failed to load cart %s: %w", cartID, err)
	}
	if len(items) == 0 {
		return BeginResult{}, ErrEmptyCart
	}

	totals := pricing.ComputeTotals(items, s.rules.Lookup(countryCode))
	session := checkout.NewSession(cartID, countryCode, items, form, totals)

	if err := s.sessionRepo.Insert(ctx, session); err != nil {
		if errors.Is(err, isessionrepo.ErrActiveSessionExists) {
			return BeginResult{}, ErrCheckoutInFlight
		}

		return BeginResult{}, err
	}

	gwOrder, err := s.gateway.CreateOrder(ctx, totals.MinorUnits(), totals.Currency.String(), session.ID)
	if err != nil {
		s.failSession(ctx, &session, "gateway order creation failed: "+err.Error())

		return BeginResult{}, fmt.Errorf("%w: %v", ErrGatewayOrder, err)
	}

	session.GatewayOrderID = gwOrder.ID
	if err := session.TransitionTo(checkout.StateAwaitingGateway); err != nil {
		return BeginResult{}, err
	}
	if err := s.sessionRepo.Update(ctx, session); err != nil {
		// The row is still in created, which the active-session guard
		// counts against the cart. Fail it so the cart is not locked; if
		// the store is down this update fails too and the reconcile
		// worker sweeps the stale created row instead.
		s.failSession(ctx, &session, "failed to record gateway handoff: "+err.Error())

		return BeginResult{}, err
	}

	slog.Info("Checkout session awaiting gateway",
		"session_id", session.ID,
		"cart_id", cartID,
		"gateway_order_id", gwOrder.ID,
		"amount_minor", totals.MinorUnits(),
		"currency", totals.Currency.String(),
	)

	return BeginResult{
		SessionID:      session.ID,
		GatewayOrderID: gwOrder.ID,
		GatewayKeyID:   s.gateway.KeyID(),
		AmountMinor:    totals.MinorUnits(),
		Currency:       totals.Currency.String(),
	}, nil
}

// Confirm handles the gateway callback: verifies the signature, records
// the verified payment on the session, then persists the order and clears
// the cart. Confirm on an already-completed session returns the stored
// order, so client retries are harmless.
func (s *CheckoutService) Confirm(
	ctx context.Context,
	sessionID string,
	cb checkout.GatewayCallback,
) (order.Order, error) {
	session, err := s.sessionRepo.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, isessionrepo.ErrSessionNotFound) {
			return order.Order{}, ErrSessionNotFound
		}

		return order.Order{}, err
	}

	if session.State == checkout.StateCompleted {
		return s.orders.FindByIdempotencyKey(ctx, session.IdempotencyKey)
	}
	if session.State == checkout.StateVerified {
		// Payment already verified; only persistence is owed.
		return s.persistOrder(ctx, &session)
	}
	if session.State != checkout.StateAwaitingGateway {
		return order.Order{}, fmt.Errorf("%w (state %s)", ErrSessionState, session.State)
	}

	if cb.GatewayOrderID != session.GatewayOrderID {
		s.failSession(ctx, &session, "callback gateway order id mismatch")

		return order.Order{}, ErrSignature
	}

	if err := s.gateway.VerifySignature(cb.GatewayOrderID, cb.GatewayPaymentID, cb.Signature); err != nil {
		s.failSession(ctx, &session, "signature verification failed")

		return order.Order{}, fmt.Errorf("%w: %v", ErrSignature, err)
	}

	session.Payment = s.paymentDetails(ctx, &session, cb)
	if err := session.TransitionTo(checkout.StateVerified); err != nil {
		return order.Order{}, err
	}
	if err := s.sessionRepo.Update(ctx, session); err != nil {
		// The charge is real but could not be recorded; surface the
		// uncertain state rather than pretending the attempt failed clean.
		return order.Order{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return s.persistOrder(ctx, &session)
}

// CompleteVerified replays order persistence for a session whose payment
// is verified but whose order is not stored yet. Used by the reconcile
// worker; safe to call repeatedly thanks to the idempotency key.
func (s *CheckoutService) CompleteVerified(ctx context.Context, sessionID string) (order.Order, error) {
	session, err := s.sessionRepo.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, isessionrepo.ErrSessionNotFound) {
			return order.Order{}, ErrSessionNotFound
		}

		return order.Order{}, err
	}

	if session.State == checkout.StateCompleted {
		return s.orders.FindByIdempotencyKey(ctx, session.IdempotencyKey)
	}
	if session.State != checkout.StateVerified {
		return order.Order{}, fmt.Errorf("%w (state %s)", ErrSessionState, session.State)
	}

	return s.persistOrder(ctx, &session)
}

// Expire fails a session stuck before payment verification: parked in
// awaiting_gateway past the hosted UI deadline, or left in created when
// the flow died between session insert and the gateway handoff. Either
// way the charge never happened and the cart is untouched, so the
// customer can simply retry.
func (s *CheckoutService) Expire(ctx context.Context, sessionID string) error {
	session, err := s.sessionRepo.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	switch session.State {
	case checkout.StateCreated:
		s.failSession(ctx, &session, "checkout stalled before gateway handoff")
	case checkout.StateAwaitingGateway:
		s.failSession(ctx, &session, "hosted payment UI deadline exceeded")
	}

	return nil
}

// persistOrder composes the order from the session snapshot, stores it,
// completes the session, and clears the cart.
func (s *CheckoutService) persistOrder(ctx context.Context, session *checkout.Session) (order.Order, error) {
	if session.Payment == nil {
		return order.Order{}, fmt.Errorf("%w (no payment record)", ErrSessionState)
	}

	composed := order.Compose(session.Items, session.Form, session.Totals(), *session.Payment, s.now())
	composed.CartID = session.CartID
	composed.SessionID = session.ID
	composed.IdempotencyKey = session.IdempotencyKey

	stored, err := s.orders.Create(ctx, composed)
	if err != nil {
		slog.Error("Order persistence failed after captured payment",
			"session_id", session.ID,
			"gateway_payment_id", session.Payment.GatewayPaymentID,
			"error", err,
		)

		return order.Order{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if err := session.TransitionTo(checkout.StateCompleted); err != nil {
		return order.Order{}, err
	}
	if err := s.sessionRepo.Update(ctx, *session); err != nil {
		slog.Error("Failed to mark session completed", "session_id", session.ID, "error", err)
	}

	if err := s.cartRepo.Clear(ctx, session.CartID); err != nil {
		slog.Error("Failed to clear cart after checkout", "cart_id", session.CartID, "error", err)
	}

	slog.Info("Checkout completed",
		"session_id", session.ID,
		"order_id", stored.ID,
		"amount_minor", session.AmountMinor,
	)

	return stored, nil
}

// paymentDetails merges the callback with the gateway's own record of the
// payment. The fetch is best-effort: the callback already proved itself
// via the signature, so a fetch failure downgrades to callback data.
func (s *CheckoutService) paymentDetails(
	ctx context.Context,
	session *checkout.Session,
	cb checkout.GatewayCallback,
) *checkout.PaymentDetails {
	details := &checkout.PaymentDetails{
		GatewayOrderID:   cb.GatewayOrderID,
		GatewayPaymentID: cb.GatewayPaymentID,
		Status:           "captured",
		Method:           cb.Method,
		Email:            cb.Email,
		Contact:          cb.Contact,
		CardNetwork:      cb.CardNetwork,
		CardLast4:        cb.CardLast4,
		CardIssuer:       cb.CardIssuer,
		Currency:         session.Currency,
	}

	payment, err := s.gateway.FetchPayment(ctx, cb.GatewayPaymentID)
	if err != nil {
		slog.Warn("Failed to fetch payment from gateway, keeping callback data",
			"session_id", session.ID,
			"gateway_payment_id", cb.GatewayPaymentID,
			"error", err,
		)

		return details
	}

	if payment.Status != "" {
		details.Status = payment.Status
	}
	if payment.Method != "" {
		details.Method = payment.Method
	}
	if payment.Email != "" {
		details.Email = payment.Email
	}
	if payment.Contact != "" {
		details.Contact = payment.Contact
	}
	if payment.CardNetwork != "" {
		details.CardNetwork = payment.CardNetwork
	}
	if payment.CardLast4 != "" {
		details.CardLast4 = payment.CardLast4
	}
	if payment.CardIssuer != "" {
		details.CardIssuer = payment.CardIssuer
	}

	return details
}

func (s *CheckoutService) failSession(ctx context.Context, session *checkout.Session, reason string) {
	session.FailureReason = reason
	if err := session.TransitionTo(checkout.StateFailed); err != nil {
		slog.Error("Failed to transition session to failed", "session_id", session.ID, "error", err)

		return
	}
	if err := s.sessionRepo.Update(ctx, *session); err != nil {
		slog.Error("Failed to persist failed session", "session_id", session.ID, "error", err)
	}
}
