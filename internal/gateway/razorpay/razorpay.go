package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	razorpay "github.com/razorpay/razorpay-go"
)

// ErrSignatureMismatch means the payment callback did not originate from
// the gateway (or was tampered with); the attempt must be treated as failed
// with no order created.
var ErrSignatureMismatch = errors.New("razorpay: payment signature mismatch")

// Order is a gateway-side order created before the hosted payment UI opens.
type Order struct {
	ID       string
	Amount   int64
	Currency string
}

// Payment is the gateway's record of a captured payment, fetched for
// reconciliation so the stored order carries the gateway's own status.
type Payment struct {
	ID          string
	Status      string
	Method      string
	Email       string
	Contact     string
	CardNetwork string
	CardLast4   string
	CardIssuer  string
}

// Client wraps the Razorpay SDK with the three calls checkout needs.
type Client struct {
	api       *razorpay.Client
	keyID     string
	keySecret string
}

// NewClient creates a gateway client with explicit credentials.
func NewClient(keyID, keySecret string) *Client {
	return &Client{
		api:       razorpay.NewClient(keyID, keySecret),
		keyID:     keyID,
		keySecret: keySecret,
	}
}

// MustNewClientFromEnv creates a gateway client from the environment.
func MustNewClientFromEnv() *Client {
	keyID := os.Getenv("RAZORPAY_KEY_ID")
	keySecret := os.Getenv("RAZORPAY_KEY_SECRET")
	if keyID == "" || keySecret == "" {
		panic("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET must be set")
	}

	return NewClient(keyID, keySecret)
}

// KeyID returns the public key the hosted payment UI is opened with.
func (c *Client) KeyID() string {
	return c.keyID
}

// CreateOrder registers an order with the gateway. amountMinor is in the
// currency's minor units; receipt links the gateway order back to the
// checkout session.
func (c *Client) CreateOrder(ctx context.Context, amountMinor int64, currencyCode, receipt string) (Order, error) {
	data := map[string]interface{}{
		"amount":          amountMinor,
		"currency":        currencyCode,
		"receipt":         receipt,
		"payment_capture": 1,
	}

	body, err := c.api.Order.Create(data, nil)
	if err != nil {
		return Order{}, fmt.Errorf("failed to create gateway order: %w", err)
	}

	id, ok := body["id"].(string)
	if !ok || id == "" {
		return Order{}, fmt.Errorf("gateway order response missing id: %v", body)
	}

	return Order{
		ID:       id,
		Amount:   amountMinor,
		Currency: currencyCode,
	}, nil
}

// VerifySignature checks the HMAC-SHA256 the gateway computes over
// "<order_id>|<payment_id>" with the key secret. Constant-time compare.
func (c *Client) VerifySignature(orderID, paymentID, signature string) error {
	mac := hmac.New(sha256.New, []byte(c.keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrSignatureMismatch
	}

	return nil
}

// FetchPayment retrieves the gateway's record of a payment.
func (c *Client) FetchPayment(ctx context.Context, paymentID string) (Payment, error) {
	body, err := c.api.Payment.Fetch(paymentID, nil, nil)
	if err != nil {
		return Payment{}, fmt.Errorf("failed to fetch payment %s: %w", paymentID, err)
	}

	p := Payment{ID: paymentID}
	p.Status, _ = body["status"].(string)
	p.Method, _ = body["method"].(string)
	p.Email, _ = body["email"].(string)
	p.Contact, _ = body["contact"].(string)

	if card, ok := body["card"].(map[string]interface{}); ok {
		p.CardNetwork, _ = card["network"].(string)
		p.CardLast4, _ = card["last4"].(string)
		p.CardIssuer, _ = card["issuer"].(string)
	}

	return p, nil
}
