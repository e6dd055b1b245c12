package order

import (
	"time"

	"github.com/velouria/commerce/internal/service/models/cart"
	"github.com/velouria/commerce/internal/service/models/checkout"
	"github.com/velouria/commerce/internal/service/models/orderitem"
	"github.com/velouria/commerce/internal/service/models/pricing"
)

// Compose assembles the order record persisted after payment: a deep copy
// of the cart snapshot, the shipping address from the form, and the
// verified payment details with a server-generated transaction time. Pure;
// none of the inputs are mutated, and mutating them afterwards does not
// affect the composed order.
func Compose(
	items []cart.LineItem,
	form checkout.Form,
	totals pricing.Totals,
	payment checkout.PaymentDetails,
	now time.Time,
) Order {
	orderItems := make([]orderitem.OrderItem, 0, len(items))
	for _, item := range items {
		orderItems = append(orderItems, orderitem.OrderItem{
			ProductID:      item.ID,
			Quantity:       item.Quantity,
			Name:           item.Name,
			UnitPriceCents: item.UnitPriceCents,
			Image:          item.Image,
			Description:    item.Description,
			Category:       item.Category,
			Size:           item.Size,
			Fragrance:      item.Fragrance,
		})
	}

	return Order{
		TotalAmountMinor: totals.MinorUnits(),
		Currency:         totals.Currency,
		Status:           StatusCompleted,
		ShippingAddress: ShippingAddress{
			Name:      form.FirstName + " " + form.LastName,
			Street:    form.Address,
			Apartment: form.Apartment,
			City:      form.City,
			ZipCode:   form.ZipCode,
		},
		PaymentInfo: PaymentInfo{
			GatewayOrderID:   payment.GatewayOrderID,
			GatewayPaymentID: payment.GatewayPaymentID,
			Status:           payment.Status,
			Method:           payment.Method,
			Email:            payment.Email,
			Contact:          payment.Contact,
			CardNetwork:      payment.CardNetwork,
			CardLast4:        payment.CardLast4,
			CardIssuer:       payment.CardIssuer,
			TransactionTime:  now,
			Currency:         totals.Currency,
		},
		OrderItems: orderItems,
	}
}
