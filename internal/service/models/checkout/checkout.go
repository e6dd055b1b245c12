package checkout

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/velouria/commerce/internal/service/models/cart"
	"github.com/velouria/commerce/internal/service/models/currency"
	"github.com/velouria/commerce/internal/service/models/pricing"
)

// State is a checkout session's position in the payment flow.
type State string

const (
	// StateCreated: the session row exists, no gateway order yet.
	StateCreated State = "created"
	// StateAwaitingGateway: a gateway order exists and the hosted payment
	// UI is (or may be) open; the flow is suspended on user action.
	StateAwaitingGateway State = "awaiting_gateway"
	// StateVerified: the gateway callback's signature checked out, so the
	// charge is real, but no order row exists yet.
	StateVerified State = "verified"
	// StateCompleted: the order is persisted and the cart cleared.
	StateCompleted State = "completed"
	// StateFailed: terminal failure; the cart is left untouched.
	StateFailed State = "failed"
)

var ErrInvalidTransition = errors.New("invalid checkout state transition")

var transitions = map[State][]State{
	StateCreated:         {StateAwaitingGateway, StateFailed},
	StateAwaitingGateway: {StateVerified, StateFailed},
	StateVerified:        {StateCompleted, StateFailed},
}

// Form carries the checkout form fields. Apartment is the only optional
// field; required fields only need to be non-empty, so whitespace-only
// values pass (matching the storefront's observed validation).
type Form struct {
	Email     string `json:"email" validate:"required"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Address   string `json:"address" validate:"required"`
	Apartment string `json:"apartment,omitempty"`
	City      string `json:"city" validate:"required"`
	ZipCode   string `json:"zipCode" validate:"required"`
	Phone     string `json:"phone" validate:"required"`
}

// GatewayCallback is what the hosted payment UI posts back after the
// customer completes payment.
type GatewayCallback struct {
	GatewayOrderID   string `json:"gatewayOrderId"`
	GatewayPaymentID string `json:"gatewayPaymentId"`
	Signature        string `json:"signature"`
	Method           string `json:"method,omitempty"`
	Email            string `json:"email,omitempty"`
	Contact          string `json:"contact,omitempty"`
	CardNetwork      string `json:"cardNetwork,omitempty"`
	CardLast4        string `json:"cardLast4,omitempty"`
	CardIssuer       string `json:"cardIssuer,omitempty"`
}

// PaymentDetails is the verified payment record kept on the session so the
// order can be composed (or re-composed by the reconcile worker) without
// another gateway round trip.
type PaymentDetails struct {
	GatewayOrderID   string            `json:"gatewayOrderId"`
	GatewayPaymentID string            `json:"gatewayPaymentId"`
	Status           string            `json:"status"`
	Method           string            `json:"method,omitempty"`
	Email            string            `json:"email,omitempty"`
	Contact          string            `json:"contact,omitempty"`
	CardNetwork      string            `json:"cardNetwork,omitempty"`
	CardLast4        string            `json:"cardLast4,omitempty"`
	CardIssuer       string            `json:"cardIssuer,omitempty"`
	Currency         currency.Currency `json:"currency"`
}

// Session is one checkout attempt. It snapshots the cart and form at
// checkout start so later cart mutations cannot alter what gets charged or
// persisted, and it doubles as the durable retry record for the window
// where payment is captured but the order is not yet stored.
type Session struct {
	ID             string            `json:"id"`
	CartID         string            `json:"cartId"`
	State          State             `json:"state"`
	Country        string            `json:"country"`
	Items          []cart.LineItem   `json:"items"`
	Form           Form              `json:"form"`
	SubtotalMinor  int64             `json:"subtotalMinor"`
	ShippingMinor  int64             `json:"shippingMinor"`
	AmountMinor    int64             `json:"amountMinor"`
	Currency       currency.Currency `json:"currency"`
	Symbol         string            `json:"symbol"`
	GatewayOrderID string            `json:"gatewayOrderId,omitempty"`
	IdempotencyKey string            `json:"idempotencyKey"`
	Payment        *PaymentDetails   `json:"payment,omitempty"`
	FailureReason  string            `json:"failureReason,omitempty"`
	RetryCount     int               `json:"retryCount"`
	NextRetryAt    time.Time         `json:"nextRetryAt"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// NewSession snapshots a cart and checkout form into a fresh session in
// StateCreated. The idempotency key minted here follows the whole attempt:
// it ties the gateway order to at most one persisted order.
func NewSession(cartID, country string, items []cart.LineItem, form Form, totals pricing.Totals) Session {
	snapshot := make([]cart.LineItem, len(items))
	copy(snapshot, items)

	return Session{
		ID:             uuid.NewString(),
		CartID:         cartID,
		State:          StateCreated,
		Country:        country,
		Items:          snapshot,
		Form:           form,
		SubtotalMinor:  totals.Subtotal.Shift(2).IntPart(),
		ShippingMinor:  totals.Shipping.Shift(2).IntPart(),
		AmountMinor:    totals.MinorUnits(),
		Currency:       totals.Currency,
		Symbol:         totals.Symbol,
		IdempotencyKey: uuid.NewString(),
	}
}

// TransitionTo moves the session to next, rejecting transitions the flow
// does not define. Terminal states have no outgoing transitions.
func (s *Session) TransitionTo(next State) error {
	for _, allowed := range transitions[s.State] {
		if allowed == next {
			s.State = next

			return nil
		}
	}

	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.State, next)
}

// Terminal reports whether the session can no longer change state.
func (s *Session) Terminal() bool {
	return s.State == StateCompleted || s.State == StateFailed
}

// Totals rebuilds the pricing breakdown captured at checkout start.
func (s *Session) Totals() pricing.Totals {
	return pricing.Totals{
		Country:    pricing.CountryCode(s.Country),
		Currency:   s.Currency,
		Symbol:     s.Symbol,
		Subtotal:   decimal.New(s.SubtotalMinor, -2),
		Shipping:   decimal.New(s.ShippingMinor, -2),
		GrandTotal: decimal.New(s.SubtotalMinor+s.ShippingMinor, -2),
	}
}
