package orderitem

import (
	"time"
)

// OrderItem is a line item snapshot copied into an order at checkout time.
// Prices are in minor units of the base currency, matching the cart.
type OrderItem struct {
	ID             int64     `json:"id"`
	OrderID        int64     `json:"orderId"`
	ProductID      string    `json:"productId"`
	Quantity       int       `json:"quantity"`
	Name           string    `json:"name"`
	UnitPriceCents int64     `json:"unitPriceCents"`
	Image          string    `json:"image,omitempty"`
	Description    string    `json:"description,omitempty"`
	Category       string    `json:"category,omitempty"`
	Size           string    `json:"size,omitempty"`
	Fragrance      string    `json:"fragrance,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// QueryOrderItemsModel represents filter parameters for querying order items.
type QueryOrderItemsModel struct {
	OrderIds []int64 `json:"orderIds,omitempty"`
}
