package updateorderstatus

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/velouria/commerce/internal/service/models/order"
	"github.com/velouria/commerce/internal/service/services/ordersvc"
)

type service interface {
	UpdateStatus(ctx context.Context, id int64, status order.Status) error
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus moves an order through its fulfilment states.
func UpdateOrderStatus(w http.ResponseWriter, r *http.Request, service service) {
	id, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)

		return
	}

	req := updateStatusRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request body for update order status", "error", err)

		return
	}

	status, err := order.ParseStatus(req.Status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	if err := service.UpdateStatus(r.Context(), id, status); err != nil {
		if errors.Is(err, ordersvc.ErrOrderNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)

			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error updating order status", "order_id", id, "error", err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}
