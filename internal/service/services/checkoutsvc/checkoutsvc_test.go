package checkoutsvc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/velouria/commerce/internal/dal/interfaces/isessionrepo"
	"github.com/velouria/commerce/internal/gateway/razorpay"
	"github.com/velouria/commerce/internal/service/models/cart"
	"github.com/velouria/commerce/internal/service/models/checkout"
	"github.com/velouria/commerce/internal/service/models/order"
	"github.com/velouria/commerce/internal/service/models/pricing"
)

type stubCartRepo struct {
	items   map[string][]cart.LineItem
	cleared []string
}

func newStubCartRepo() *stubCartRepo {
	return &stubCartRepo{items: map[string][]cart.LineItem{}}
}

func (s *stubCartRepo) Get(_ context.Context, cartID string) ([]cart.LineItem, error) {
	return s.items[cartID], nil
}

func (s *stubCartRepo) Upsert(_ context.Context, cartID string, item cart.LineItem) (cart.LineItem, error) {
	s.items[cartID] = append(s.items[cartID], item)

	return item, nil
}

func (s *stubCartRepo) UpdateQuantity(context.Context, string, string, int) error { return nil }

func (s *stubCartRepo) Remove(context.Context, string, string) error { return nil }

func (s *stubCartRepo) Clear(_ context.Context, cartID string) error {
	delete(s.items, cartID)
	s.cleared = append(s.cleared, cartID)

	return nil
}

type stubSessionRepo struct {
	sessions        map[string]checkout.Session
	active          map[string]string
	insertErr       error
	updateErr       error
	failNextUpdates int
}

func newStubSessionRepo() *stubSessionRepo {
	return &stubSessionRepo{
		sessions: map[string]checkout.Session{},
		active:   map[string]string{},
	}
}

func (s *stubSessionRepo) Insert(_ context.Context, sess checkout.Session) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	if _, ok := s.active[sess.CartID]; ok {
		return isessionrepo.ErrActiveSessionExists
	}
	s.sessions[sess.ID] = sess
	s.active[sess.CartID] = sess.ID

	return nil
}

func (s *stubSessionRepo) Get(_ context.Context, id string) (checkout.Session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return checkout.Session{}, isessionrepo.ErrSessionNotFound
	}

	return sess, nil
}

func (s *stubSessionRepo) Update(_ context.Context, sess checkout.Session) error {
	if s.failNextUpdates > 0 {
		s.failNextUpdates--

		return errors.New("session store unavailable")
	}
	if s.updateErr != nil {
		return s.updateErr
	}
	s.sessions[sess.ID] = sess
	if sess.Terminal() {
		delete(s.active, sess.CartID)
	}

	return nil
}

func (s *stubSessionRepo) GetStale(context.Context, checkout.State, time.Time, int) ([]checkout.Session, error) {
	return nil, nil
}

func (s *stubSessionRepo) UpdateRetry(context.Context, string, int, string, time.Time) error {
	return nil
}

type stubOrderService struct {
	stored    map[string]order.Order
	createErr error
	nextID    int64
}

func newStubOrderService() *stubOrderService {
	return &stubOrderService{stored: map[string]order.Order{}, nextID: 1}
}

func (s *stubOrderService) Create(_ context.Context, o order.Order) (order.Order, error) {
	if s.createErr != nil {
		return order.Order{}, s.createErr
	}
	if existing, ok := s.stored[o.IdempotencyKey]; ok {
		return existing, nil
	}
	o.ID = s.nextID
	s.nextID++
	s.stored[o.IdempotencyKey] = o

	return o, nil
}

func (s *stubOrderService) FindByIdempotencyKey(_ context.Context, key string) (order.Order, error) {
	if o, ok := s.stored[key]; ok {
		return o, nil
	}

	return order.Order{}, errors.New("order not found")
}

type stubGateway struct {
	createErr    error
	verifyErr    error
	fetchErr     error
	payment      razorpay.Payment
	orderCount   int
	lastReceipt  string
	lastAmount   int64
	lastCurrency string
}

func (s *stubGateway) CreateOrder(_ context.Context, amountMinor int64, currencyCode, receipt string) (razorpay.Order, error) {
	if s.createErr != nil {
		return razorpay.Order{}, s.createErr
	}
	s.orderCount++
	s.lastReceipt = receipt
	s.lastAmount = amountMinor
	s.lastCurrency = currencyCode

	return razorpay.Order{ID: "order_gw_1", Amount: amountMinor, Currency: currencyCode}, nil
}

func (s *stubGateway) VerifySignature(_, _, _ string) error {
	return s.verifyErr
}

func (s *stubGateway) FetchPayment(context.Context, string) (razorpay.Payment, error) {
	if s.fetchErr != nil {
		return razorpay.Payment{}, s.fetchErr
	}

	return s.payment, nil
}

func (s *stubGateway) KeyID() string { return "rzp_test_key" }

func validForm() checkout.Form {
	return checkout.Form{
		Email:     "customer@example.com",
		FirstName: "Ada",
		LastName:  "Laurent",
		Address:   "12 Rue des Fleurs",
		City:      "Lyon",
		ZipCode:   "69001",
		Phone:     "+33600000000",
	}
}

type fixture struct {
	svc      *CheckoutService
	carts    *stubCartRepo
	sessions *stubSessionRepo
	orders   *stubOrderService
	gateway  *stubGateway
}

func newFixture() *fixture {
	f := &fixture{
		carts:    newStubCartRepo(),
		sessions: newStubSessionRepo(),
		orders:   newStubOrderService(),
		gateway:  &stubGateway{payment: razorpay.Payment{Status: "captured", Method: "card"}},
	}
	f.carts.items["cart-1"] = []cart.LineItem{
		{ID: "noir-10", Name: "Noir", UnitPriceCents: 100000, Quantity: 2},
	}
	f.svc = MustNewCheckoutService(
		WithCartRepository(f.carts),
		WithSessionRepository(f.sessions),
		WithOrderService(f.orders),
		WithGateway(f.gateway),
		WithRules(pricing.DefaultRules()),
		WithClock(func() time.Time { return time.Date(2025, 8, 12, 10, 0, 0, 0, time.UTC) }),
	)

	return f
}

func (f *fixture) begin(t *testing.T) BeginResult {
	t.Helper()

	result, err := f.svc.Begin(context.Background(), "cart-1", "US", validForm())
	require.NoError(t, err)

	return result
}

func TestBeginCreatesGatewayOrder(t *testing.T) {
	t.Parallel()

	f := newFixture()
	result := f.begin(t)

	require.NotEmpty(t, result.SessionID)
	require.Equal(t, "order_gw_1", result.GatewayOrderID)
	require.Equal(t, "rzp_test_key", result.GatewayKeyID)
	require.Equal(t, int64(3600), result.AmountMinor)
	require.Equal(t, "USD", result.Currency)
	require.Equal(t, result.SessionID, f.gateway.lastReceipt)

	session, err := f.sessions.Get(context.Background(), result.SessionID)
	require.NoError(t, err)
	require.Equal(t, checkout.StateAwaitingGateway, session.State)
	require.Equal(t, "order_gw_1", session.GatewayOrderID)
}

func TestBeginRejectsIncompleteForm(t *testing.T) {
	t.Parallel()

	f := newFixture()
	form := validForm()
	form.City = ""

	_, err := f.svc.Begin(context.Background(), "cart-1", "US", form)
	require.ErrorIs(t, err, ErrValidation)
	require.Zero(t, f.gateway.orderCount)
}

func TestBeginAcceptsWhitespaceOnlyFields(t *testing.T) {
	t.Parallel()

	// Required fields are checked for presence, not content: a
	// whitespace-only value passes. Pinned here so a future trim is a
	// deliberate change.
	f := newFixture()
	form := validForm()
	form.City = "   "

	_, err := f.svc.Begin(context.Background(), "cart-1", "US", form)
	require.NoError(t, err)
}

func TestBeginAllowsMissingApartment(t *testing.T) {
	t.Parallel()

	f := newFixture()
	form := validForm()
	form.Apartment = ""

	_, err := f.svc.Begin(context.Background(), "cart-1", "US", form)
	require.NoError(t, err)
}

func TestBeginRejectsEmptyCart(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.carts.items["cart-1"] = nil

	_, err := f.svc.Begin(context.Background(), "cart-1", "US", validForm())
	require.ErrorIs(t, err, ErrEmptyCart)
	require.Zero(t, f.gateway.orderCount)
}

func TestBeginBlocksDoubleSubmit(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.begin(t)

	_, err := f.svc.Begin(context.Background(), "cart-1", "US", validForm())
	require.ErrorIs(t, err, ErrCheckoutInFlight)
	require.Equal(t, 1, f.gateway.orderCount, "second submit must not reach the gateway")
}

func TestBeginGatewayFailureFailsSession(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.gateway.createErr = errors.New("gateway down")

	_, err := f.svc.Begin(context.Background(), "cart-1", "US", validForm())
	require.ErrorIs(t, err, ErrGatewayOrder)

	// The failed session is terminal, so the cart can retry checkout.
	_, err = f.svc.Begin(context.Background(), "cart-1", "US", validForm())
	require.ErrorIs(t, err, ErrGatewayOrder)
}

func TestBeginSessionUpdateFailureFreesCart(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.sessions.failNextUpdates = 1

	_, err := f.svc.Begin(context.Background(), "cart-1", "US", validForm())
	require.Error(t, err)

	// The advance to awaiting_gateway was lost but the fallback failure
	// update landed, so the session is terminal and the cart can retry.
	_, err = f.svc.Begin(context.Background(), "cart-1", "US", validForm())
	require.NoError(t, err)
}

func TestExpireClearsSessionStuckInCreated(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.sessions.failNextUpdates = 2

	// A store outage swallows both the advance and the failure update,
	// leaving the row in created while it still holds the cart's
	// active-session slot.
	_, err := f.svc.Begin(context.Background(), "cart-1", "US", validForm())
	require.Error(t, err)

	_, err = f.svc.Begin(context.Background(), "cart-1", "US", validForm())
	require.ErrorIs(t, err, ErrCheckoutInFlight)

	sessionID := f.sessions.active["cart-1"]
	require.NoError(t, f.svc.Expire(context.Background(), sessionID))

	session, err := f.sessions.Get(context.Background(), sessionID)
	require.NoError(t, err)
	require.Equal(t, checkout.StateFailed, session.State)
	require.Empty(t, f.carts.cleared)

	_, err = f.svc.Begin(context.Background(), "cart-1", "US", validForm())
	require.NoError(t, err)
}

func validCallback() checkout.GatewayCallback {
	return checkout.GatewayCallback{
		GatewayOrderID:   "order_gw_1",
		GatewayPaymentID: "pay_xyz",
		Signature:        "sig",
		Method:           "card",
	}
}

func TestConfirmPersistsOrderAndClearsCart(t *testing.T) {
	t.Parallel()

	f := newFixture()
	result := f.begin(t)

	stored, err := f.svc.Confirm(context.Background(), result.SessionID, validCallback())
	require.NoError(t, err)
	require.NotZero(t, stored.ID)
	require.Equal(t, order.StatusCompleted, stored.Status)
	require.Equal(t, "cart-1", stored.CartID)
	require.Equal(t, result.SessionID, stored.SessionID)
	require.Equal(t, int64(3600), stored.TotalAmountMinor)
	require.Equal(t, "pay_xyz", stored.PaymentInfo.GatewayPaymentID)
	require.Equal(t, "captured", stored.PaymentInfo.Status)

	require.Contains(t, f.carts.cleared, "cart-1")

	session, err := f.sessions.Get(context.Background(), result.SessionID)
	require.NoError(t, err)
	require.Equal(t, checkout.StateCompleted, session.State)
}

func TestConfirmIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture()
	result := f.begin(t)

	first, err := f.svc.Confirm(context.Background(), result.SessionID, validCallback())
	require.NoError(t, err)

	second, err := f.svc.Confirm(context.Background(), result.SessionID, validCallback())
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Len(t, f.orders.stored, 1)
}

func TestConfirmRejectsBadSignature(t *testing.T) {
	t.Parallel()

	f := newFixture()
	result := f.begin(t)
	f.gateway.verifyErr = razorpay.ErrSignatureMismatch

	_, err := f.svc.Confirm(context.Background(), result.SessionID, validCallback())
	require.ErrorIs(t, err, ErrSignature)
	require.Empty(t, f.orders.stored)

	session, err := f.sessions.Get(context.Background(), result.SessionID)
	require.NoError(t, err)
	require.Equal(t, checkout.StateFailed, session.State)
	require.Empty(t, f.carts.cleared, "cart must survive a failed attempt")
}

func TestConfirmRejectsMismatchedGatewayOrder(t *testing.T) {
	t.Parallel()

	f := newFixture()
	result := f.begin(t)

	cb := validCallback()
	cb.GatewayOrderID = "order_gw_other"

	_, err := f.svc.Confirm(context.Background(), result.SessionID, cb)
	require.ErrorIs(t, err, ErrSignature)
}

func TestConfirmUnknownSession(t *testing.T) {
	t.Parallel()

	f := newFixture()

	_, err := f.svc.Confirm(context.Background(), "no-such-session", validCallback())
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestConfirmPersistFailureLeavesSessionVerified(t *testing.T) {
	t.Parallel()

	f := newFixture()
	result := f.begin(t)
	f.orders.createErr = errors.New("db down")

	_, err := f.svc.Confirm(context.Background(), result.SessionID, validCallback())
	require.ErrorIs(t, err, ErrPersistence)

	// The verified session survives as the durable retry record.
	session, getErr := f.sessions.Get(context.Background(), result.SessionID)
	require.NoError(t, getErr)
	require.Equal(t, checkout.StateVerified, session.State)
	require.NotNil(t, session.Payment)
	require.Equal(t, "pay_xyz", session.Payment.GatewayPaymentID)
	require.Empty(t, f.carts.cleared)
}

func TestCompleteVerifiedRecoversStalledSession(t *testing.T) {
	t.Parallel()

	f := newFixture()
	result := f.begin(t)
	f.orders.createErr = errors.New("db down")

	_, err := f.svc.Confirm(context.Background(), result.SessionID, validCallback())
	require.ErrorIs(t, err, ErrPersistence)

	f.orders.createErr = nil

	stored, err := f.svc.CompleteVerified(context.Background(), result.SessionID)
	require.NoError(t, err)
	require.NotZero(t, stored.ID)
	require.Contains(t, f.carts.cleared, "cart-1")

	session, err := f.sessions.Get(context.Background(), result.SessionID)
	require.NoError(t, err)
	require.Equal(t, checkout.StateCompleted, session.State)
}

func TestCompleteVerifiedOnCompletedReturnsStoredOrder(t *testing.T) {
	t.Parallel()

	f := newFixture()
	result := f.begin(t)

	first, err := f.svc.Confirm(context.Background(), result.SessionID, validCallback())
	require.NoError(t, err)

	again, err := f.svc.CompleteVerified(context.Background(), result.SessionID)
	require.NoError(t, err)
	require.Equal(t, first.ID, again.ID)
}

func TestCompleteVerifiedRejectsWrongState(t *testing.T) {
	t.Parallel()

	f := newFixture()
	result := f.begin(t)

	_, err := f.svc.CompleteVerified(context.Background(), result.SessionID)
	require.ErrorIs(t, err, ErrSessionState)
}

func TestConfirmKeepsCallbackDataWhenFetchFails(t *testing.T) {
	t.Parallel()

	f := newFixture()
	result := f.begin(t)
	f.gateway.fetchErr = errors.New("gateway timeout")

	stored, err := f.svc.Confirm(context.Background(), result.SessionID, validCallback())
	require.NoError(t, err)
	require.Equal(t, "captured", stored.PaymentInfo.Status)
	require.Equal(t, "card", stored.PaymentInfo.Method)
}

func TestExpireFailsAwaitingSession(t *testing.T) {
	t.Parallel()

	f := newFixture()
	result := f.begin(t)

	require.NoError(t, f.svc.Expire(context.Background(), result.SessionID))

	session, err := f.sessions.Get(context.Background(), result.SessionID)
	require.NoError(t, err)
	require.Equal(t, checkout.StateFailed, session.State)
	require.Empty(t, f.carts.cleared)

	// The cart is free to start over.
	_, err = f.svc.Begin(context.Background(), "cart-1", "US", validForm())
	require.NoError(t, err)
}

func TestExpireIgnoresOtherStates(t *testing.T) {
	t.Parallel()

	f := newFixture()
	result := f.begin(t)

	_, err := f.svc.Confirm(context.Background(), result.SessionID, validCallback())
	require.NoError(t, err)

	require.NoError(t, f.svc.Expire(context.Background(), result.SessionID))

	session, err := f.sessions.Get(context.Background(), result.SessionID)
	require.NoError(t, err)
	require.Equal(t, checkout.StateCompleted, session.State)
}

func TestValidateFormEachRequiredField(t *testing.T) {
	t.Parallel()

	svc := MustNewCheckoutService()

	require.NoError(t, svc.ValidateForm(validForm()))

	blank := func(mutate func(*checkout.Form)) checkout.Form {
		form := validForm()
		mutate(&form)

		return form
	}

	cases := map[string]checkout.Form{
		"email":     blank(func(f *checkout.Form) { f.Email = "" }),
		"firstName": blank(func(f *checkout.Form) { f.FirstName = "" }),
		"lastName":  blank(func(f *checkout.Form) { f.LastName = "" }),
		"address":   blank(func(f *checkout.Form) { f.Address = "" }),
		"city":      blank(func(f *checkout.Form) { f.City = "" }),
		"zipCode":   blank(func(f *checkout.Form) { f.ZipCode = "" }),
		"phone":     blank(func(f *checkout.Form) { f.Phone = "" }),
	}

	for field, form := range cases {
		require.ErrorIs(t, svc.ValidateForm(form), ErrValidation, "field %s", field)
	}
}
