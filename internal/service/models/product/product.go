package product

import (
	"time"
)

// Product represents a catalog entry. The catalog is a display-only read
// side: cart line items carry their own base price, so nothing in pricing
// or checkout reads back into this table.
type Product struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	Category       string    `json:"category,omitempty"`
	Fragrance      string    `json:"fragrance,omitempty"`
	Size           string    `json:"size,omitempty"`
	UnitPriceCents int64     `json:"unitPriceCents"`
	Image          string    `json:"image,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// QueryProductsModel represents filter parameters for querying the catalog.
type QueryProductsModel struct {
	Ids        []string `json:"ids,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Fragrances []string `json:"fragrances,omitempty"`
	Limit      int      `json:"limit,omitempty"`
	Offset     int      `json:"offset,omitempty"`
}
