package begincheckout

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/velouria/commerce/internal/service/models/checkout"
	"github.com/velouria/commerce/internal/service/services/checkoutsvc"
)

// service is an interface for the service layer.
type service interface {
	Begin(ctx context.Context, cartID, countryCode string, form checkout.Form) (checkoutsvc.BeginResult, error)
}

// beginCheckoutRequest represents a begin checkout request.
type beginCheckoutRequest struct {
	CartID  string        `json:"cartId"`
	Country string        `json:"country"`
	Form    checkout.Form `json:"form"`
}

// BeginCheckout handles the start of a checkout attempt and returns the
// hosted payment UI handoff.
func BeginCheckout(w http.ResponseWriter, r *http.Request, service service) {
	req := beginCheckoutRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request body for begin checkout", "error", err)

		return
	}
	if req.CartID == "" {
		http.Error(w, "cartId is required", http.StatusBadRequest)

		return
	}

	result, err := service.Begin(r.Context(), req.CartID, req.Country, req.Form)
	if err != nil {
		http.Error(w, err.Error(), beginErrStatus(err))
		slog.Error("Error beginning checkout", "cart_id", req.CartID, "error", err)

		return
	}

	if err := json.NewEncoder(w).Encode(result); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error sending response for begin checkout", "error", err)
	}
}

func beginErrStatus(err error) int {
	switch {
	case errors.Is(err, checkoutsvc.ErrValidation),
		errors.Is(err, checkoutsvc.ErrEmptyCart):
		return http.StatusBadRequest
	case errors.Is(err, checkoutsvc.ErrCheckoutInFlight):
		return http.StatusConflict
	case errors.Is(err, checkoutsvc.ErrGatewayOrder):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
