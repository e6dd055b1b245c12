package cart

import (
	"time"
)

// LineItem represents one purchasable entity with a quantity in a cart.
// Prices are stored in minor units of the base currency; descriptive
// fields are carried through to the order for record-keeping only.
type LineItem struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	UnitPriceCents int64     `json:"unitPriceCents"`
	Quantity       int       `json:"quantity"`
	Image          string    `json:"image,omitempty"`
	Size           string    `json:"size,omitempty"`
	Category       string    `json:"category,omitempty"`
	Description    string    `json:"description,omitempty"`
	Fragrance      string    `json:"fragrance,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
