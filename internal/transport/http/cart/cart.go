package carthandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/velouria/commerce/internal/service/models/cart"
	"github.com/velouria/commerce/internal/service/models/pricing"
	"github.com/velouria/commerce/internal/service/services/cartsvc"
)

// service is an interface for the service layer.
type service interface {
	Get(ctx context.Context, cartID string) ([]cart.LineItem, error)
	AddItem(ctx context.Context, cartID string, item cart.LineItem) (cart.LineItem, error)
	UpdateQuantity(ctx context.Context, cartID, itemID string, quantity int) error
	RemoveItem(ctx context.Context, cartID, itemID string) error
	Clear(ctx context.Context, cartID string) error
	Totals(ctx context.Context, cartID, countryCode string) (pricing.Totals, error)
}

var validate = validator.New()

// addItemRequest represents an add-to-cart request.
type addItemRequest struct {
	ID             string `json:"id"             validate:"required"`
	Name           string `json:"name"           validate:"required"`
	UnitPriceCents int64  `json:"unitPriceCents" validate:"gt=0"`
	Quantity       int    `json:"quantity"       validate:"gt=0"`
	Image          string `json:"image"`
	Size           string `json:"size"`
	Category       string `json:"category"`
	Description    string `json:"description"`
	Fragrance      string `json:"fragrance"`
}

func (r *addItemRequest) toModel() cart.LineItem {
	return cart.LineItem{
		ID:             r.ID,
		Name:           r.Name,
		UnitPriceCents: r.UnitPriceCents,
		Quantity:       r.Quantity,
		Image:          r.Image,
		Size:           r.Size,
		Category:       r.Category,
		Description:    r.Description,
		Fragrance:      r.Fragrance,
	}
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

func GetCart(w http.ResponseWriter, r *http.Request, service service) {
	items, err := service.Get(r.Context(), chi.URLParam(r, "cartID"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error getting cart", "error", err)

		return
	}

	if err := json.NewEncoder(w).Encode(items); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error sending response", "error", err)
	}
}

func AddItem(w http.ResponseWriter, r *http.Request, service service) {
	req := addItemRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request body for add item", "error", err)

		return
	}

	if err := validate.Struct(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error validating request body for add item", "error", err)

		return
	}

	item, err := service.AddItem(r.Context(), chi.URLParam(r, "cartID"), req.toModel())
	if err != nil {
		http.Error(w, err.Error(), cartErrStatus(err))
		slog.Error("Error adding cart item", "error", err)

		return
	}

	if err := json.NewEncoder(w).Encode(item); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error sending response", "error", err)
	}
}

// UpdateItem sets an item quantity; zero or negative removes the item.
func UpdateItem(w http.ResponseWriter, r *http.Request, service service) {
	req := updateItemRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request body for update item", "error", err)

		return
	}

	err := service.UpdateQuantity(r.Context(), chi.URLParam(r, "cartID"), chi.URLParam(r, "itemID"), req.Quantity)
	if err != nil {
		http.Error(w, err.Error(), cartErrStatus(err))
		slog.Error("Error updating cart item", "error", err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func RemoveItem(w http.ResponseWriter, r *http.Request, service service) {
	err := service.RemoveItem(r.Context(), chi.URLParam(r, "cartID"), chi.URLParam(r, "itemID"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error removing cart item", "error", err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func ClearCart(w http.ResponseWriter, r *http.Request, service service) {
	if err := service.Clear(r.Context(), chi.URLParam(r, "cartID")); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error clearing cart", "error", err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetTotals prices the cart for the country in the query string; unknown
// or missing countries price in the default region.
func GetTotals(w http.ResponseWriter, r *http.Request, service service) {
	totals, err := service.Totals(r.Context(), chi.URLParam(r, "cartID"), r.URL.Query().Get("country"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error computing cart totals", "error", err)

		return
	}

	if err := json.NewEncoder(w).Encode(totals); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error sending response", "error", err)
	}
}

func cartErrStatus(err error) int {
	switch {
	case errors.Is(err, cartsvc.ErrInvalidQuantity),
		errors.Is(err, cartsvc.ErrInvalidPrice),
		errors.Is(err, cartsvc.ErrMissingItemID):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
