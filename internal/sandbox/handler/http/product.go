package http

import (
	"net/http"

	"github.com/MeronDaniel/E-commerce-project/internal/sandbox/service"
	"github.com/MeronDaniel/E-commerce-project/pkg/httputil"
	"github.com/MeronDaniel/E-commerce-project/pkg/pagination"
)

// ProductHandler serves the public product listing.
type ProductHandler struct {
	service *service.ProductService
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(svc *service.ProductService) *ProductHandler {
	return &ProductHandler{service: svc}
}

// List handles GET /api/products?page=&per_page=.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.service.List(pagination.FromRequest(r)))
}
