package service

import (
	"github.com/MeronDaniel/E-commerce-project/internal/sandbox/catalog"
	"github.com/MeronDaniel/E-commerce-project/internal/storefront"
	"github.com/MeronDaniel/E-commerce-project/pkg/pagination"
)

// ProductService serves the read-only product listing.
type ProductService struct {
	catalog *catalog.Catalog
}

// NewProductService creates a product service over cat.
func NewProductService(cat *catalog.Catalog) *ProductService {
	return &ProductService{catalog: cat}
}

// List returns one page of products ordered by id, in the same product
// shape the cart payload embeds.
func (s *ProductService) List(p pagination.Params) pagination.Result[storefront.ProductPayload] {
	products := s.catalog.List()
	start, end := p.Window(len(products))

	data := make([]storefront.ProductPayload, 0, end-start)
	for _, prod := range products[start:end] {
		data = append(data, productPayload(prod))
	}
	return pagination.NewResult(data, len(products), p)
}
