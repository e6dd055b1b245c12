package order

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/velouria/commerce/internal/service/models/cart"
	"github.com/velouria/commerce/internal/service/models/checkout"
	"github.com/velouria/commerce/internal/service/models/currency"
	"github.com/velouria/commerce/internal/service/models/pricing"
)

func composeFixture() ([]cart.LineItem, checkout.Form, pricing.Totals, checkout.PaymentDetails) {
	items := []cart.LineItem{
		{ID: "noir-10", Name: "Noir", UnitPriceCents: 100000, Quantity: 2, Size: "100ml"},
		{ID: "oud-5", Name: "Oud", UnitPriceCents: 50000, Quantity: 1},
	}
	form := checkout.Form{
		Email:     "customer@example.com",
		FirstName: "Ada",
		LastName:  "Laurent",
		Address:   "12 Rue des Fleurs",
		Apartment: "4B",
		City:      "Lyon",
		ZipCode:   "69001",
		Phone:     "+33600000000",
	}
	totals := pricing.Totals{
		Country:    pricing.CountryEU,
		Currency:   currency.CurrencyEUR,
		Symbol:     "€",
		Subtotal:   decimal.NewFromInt(30),
		Shipping:   decimal.NewFromInt(9),
		GrandTotal: decimal.NewFromInt(39),
	}
	payment := checkout.PaymentDetails{
		GatewayOrderID:   "order_abc",
		GatewayPaymentID: "pay_xyz",
		Status:           "captured",
		Method:           "card",
		Currency:         currency.CurrencyEUR,
	}

	return items, form, totals, payment
}

func TestComposeBuildsOrderFromSnapshot(t *testing.T) {
	t.Parallel()

	items, form, totals, payment := composeFixture()
	now := time.Date(2025, 8, 12, 10, 0, 0, 0, time.UTC)

	o := Compose(items, form, totals, payment, now)

	require.Equal(t, StatusCompleted, o.Status)
	require.Equal(t, int64(3900), o.TotalAmountMinor)
	require.Equal(t, currency.CurrencyEUR, o.Currency)
	require.Equal(t, "Ada Laurent", o.ShippingAddress.Name)
	require.Equal(t, "12 Rue des Fleurs", o.ShippingAddress.Street)
	require.Equal(t, "4B", o.ShippingAddress.Apartment)
	require.Equal(t, "pay_xyz", o.PaymentInfo.GatewayPaymentID)
	require.Equal(t, now, o.PaymentInfo.TransactionTime)

	require.Len(t, o.OrderItems, 2)
	require.Equal(t, "noir-10", o.OrderItems[0].ProductID)
	require.Equal(t, 2, o.OrderItems[0].Quantity)
	require.Equal(t, int64(100000), o.OrderItems[0].UnitPriceCents)
}

func TestComposeIsolatesFromLaterMutation(t *testing.T) {
	t.Parallel()

	items, form, totals, payment := composeFixture()

	o := Compose(items, form, totals, payment, time.Now())

	items[0].Quantity = 50
	items[0].Name = "changed"
	items[1].UnitPriceCents = 1

	require.Equal(t, 2, o.OrderItems[0].Quantity)
	require.Equal(t, "Noir", o.OrderItems[0].Name)
	require.Equal(t, int64(50000), o.OrderItems[1].UnitPriceCents)
}
