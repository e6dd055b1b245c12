package listproducts

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/schema"

	"github.com/velouria/commerce/internal/service/models/product"
)

type service interface {
	GetProducts(ctx context.Context, filter *product.QueryProductsModel) ([]product.Product, error)
}

type queryProductsRequest struct {
	Ids        []string `schema:"ids,omitempty"`
	Categories []string `schema:"categories,omitempty"`
	Fragrances []string `schema:"fragrances,omitempty"`
	Limit      int      `schema:"limit,omitempty"`
	Offset     int      `schema:"offset,omitempty"`
}

func (q *queryProductsRequest) ToModel() *product.QueryProductsModel {
	return &product.QueryProductsModel{
		Ids:        q.Ids,
		Categories: q.Categories,
		Fragrances: q.Fragrances,
		Limit:      q.Limit,
		Offset:     q.Offset,
	}
}

func ListProducts(w http.ResponseWriter, r *http.Request, service service) {
	decoder := schema.NewDecoder()
	query := &queryProductsRequest{}
	err := decoder.Decode(query, r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request", "error", err)

		return
	}

	products, err := service.GetProducts(r.Context(), query.ToModel())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error getting products", "error", err)

		return
	}

	if err := json.NewEncoder(w).Encode(products); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error sending response", "error", err)
	}
}
