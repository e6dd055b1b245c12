package order

import (
	"errors"
	"time"

	"github.com/velouria/commerce/internal/service/models/currency"
	"github.com/velouria/commerce/internal/service/models/orderitem"
)

// Status is an order's lifecycle state. The checkout flow only ever writes
// StatusCompleted; the rest are set by admin review afterwards.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

var ErrInvalidStatus = errors.New("invalid order status")

func (s Status) String() string {
	return string(s)
}

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusProcessing, StatusCompleted, StatusCancelled:
		return Status(s), nil
	default:
		return "", ErrInvalidStatus
	}
}

// ShippingAddress is the delivery address captured from the checkout form.
type ShippingAddress struct {
	Name      string `json:"name"`
	Street    string `json:"street"`
	Apartment string `json:"apartment,omitempty"`
	City      string `json:"city"`
	ZipCode   string `json:"zipCode"`
}

// PaymentInfo records the gateway's view of the captured payment.
type PaymentInfo struct {
	GatewayOrderID   string            `json:"gatewayOrderId"`
	GatewayPaymentID string            `json:"gatewayPaymentId"`
	Status           string            `json:"status"`
	Method           string            `json:"method,omitempty"`
	Email            string            `json:"email,omitempty"`
	Contact          string            `json:"contact,omitempty"`
	CardNetwork      string            `json:"cardNetwork,omitempty"`
	CardLast4        string            `json:"cardLast4,omitempty"`
	CardIssuer       string            `json:"cardIssuer,omitempty"`
	TransactionTime  time.Time         `json:"transactionTime"`
	Currency         currency.Currency `json:"currency"`
}

// Order is a persisted order. Created exactly once, after signature
// verification succeeds; never mutated by the checkout flow afterwards
// (status changes are an admin operation).
type Order struct {
	ID               int64                 `json:"id"`
	CartID           string                `json:"cartId"`
	SessionID        string                `json:"sessionId"`
	IdempotencyKey   string                `json:"idempotencyKey"`
	TotalAmountMinor int64                 `json:"totalAmountMinor"`
	Currency         currency.Currency     `json:"currency"`
	Status           Status                `json:"status"`
	ShippingAddress  ShippingAddress       `json:"shippingAddress"`
	PaymentInfo      PaymentInfo           `json:"paymentInfo"`
	CreatedAt        time.Time             `json:"createdAt"`
	UpdatedAt        time.Time             `json:"updatedAt"`
	OrderItems       []orderitem.OrderItem `json:"orderItems"`
}
