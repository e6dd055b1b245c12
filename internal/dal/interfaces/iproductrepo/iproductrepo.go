package iproductrepo

import (
	"context"

	"github.com/velouria/commerce/internal/service/models/product"
)

// IProductRepository is an interface for the product catalog repository.
type IProductRepository interface {
	Query(ctx context.Context, filter *product.QueryProductsModel) ([]product.Product, error)
}
