package catalogsvc

import (
	"context"

	"github.com/velouria/commerce/internal/dal/interfaces/iproductrepo"
	"github.com/velouria/commerce/internal/service/models/product"
)

// CatalogService serves the storefront's product read side.
type CatalogService struct {
	productRepo iproductrepo.IProductRepository
}

// option is a function that configures the CatalogService.
type option func(*CatalogService)

// MustNewCatalogService creates a new CatalogService.
func MustNewCatalogService(opts ...option) *CatalogService {
	s := &CatalogService{}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// WithProductRepository sets the product repository for the CatalogService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithProductRepository(repo iproductrepo.IProductRepository) option {
	return func(s *CatalogService) {
		s.productRepo = repo
	}
}

// GetProducts retrieves catalog entries based on filter.
func (s *CatalogService) GetProducts(
	ctx context.Context,
	filter *product.QueryProductsModel,
) ([]product.Product, error) {
	return s.productRepo.Query(ctx, filter)
}
