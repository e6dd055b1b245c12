package confirmcheckout

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/velouria/commerce/internal/service/models/checkout"
	"github.com/velouria/commerce/internal/service/models/order"
	"github.com/velouria/commerce/internal/service/services/checkoutsvc"
)

// service is an interface for the service layer.
type service interface {
	Confirm(ctx context.Context, sessionID string, cb checkout.GatewayCallback) (order.Order, error)
}

var validate = validator.New()

// confirmCheckoutRequest carries the gateway callback fields posted by the
// storefront after the hosted payment UI closes.
type confirmCheckoutRequest struct {
	GatewayOrderID   string `json:"gatewayOrderId"   validate:"required"`
	GatewayPaymentID string `json:"gatewayPaymentId" validate:"required"`
	Signature        string `json:"signature"        validate:"required"`
	Method           string `json:"method"`
	Email            string `json:"email"`
	Contact          string `json:"contact"`
	CardNetwork      string `json:"cardNetwork"`
	CardLast4        string `json:"cardLast4"`
	CardIssuer       string `json:"cardIssuer"`
}

func (r *confirmCheckoutRequest) toModel() checkout.GatewayCallback {
	return checkout.GatewayCallback{
		GatewayOrderID:   r.GatewayOrderID,
		GatewayPaymentID: r.GatewayPaymentID,
		Signature:        r.Signature,
		Method:           r.Method,
		Email:            r.Email,
		Contact:          r.Contact,
		CardNetwork:      r.CardNetwork,
		CardLast4:        r.CardLast4,
		CardIssuer:       r.CardIssuer,
	}
}

// ConfirmCheckout verifies the payment callback and returns the stored order.
func ConfirmCheckout(w http.ResponseWriter, r *http.Request, service service) {
	req := confirmCheckoutRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request body for confirm checkout", "error", err)

		return
	}

	if err := validate.Struct(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error validating request body for confirm checkout", "error", err)

		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	stored, err := service.Confirm(r.Context(), sessionID, req.toModel())
	if err != nil {
		http.Error(w, err.Error(), confirmErrStatus(err))
		slog.Error("Error confirming checkout", "session_id", sessionID, "error", err)

		return
	}

	if err := json.NewEncoder(w).Encode(stored); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error sending response for confirm checkout", "error", err)
	}
}

func confirmErrStatus(err error) int {
	switch {
	case errors.Is(err, checkoutsvc.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, checkoutsvc.ErrSessionState):
		return http.StatusConflict
	case errors.Is(err, checkoutsvc.ErrSignature):
		return http.StatusBadRequest
	case errors.Is(err, checkoutsvc.ErrPersistence):
		// The charge went through; tell the client to poll, not retry payment.
		return http.StatusAccepted
	default:
		return http.StatusInternalServerError
	}
}
