package http

import (
	"log/slog"
	"net/http"

	"github.com/MeronDaniel/E-commerce-project/internal/sandbox/service"
	"github.com/MeronDaniel/E-commerce-project/internal/storefront"
	"github.com/MeronDaniel/E-commerce-project/pkg/httputil"
	"github.com/MeronDaniel/E-commerce-project/pkg/middleware"
	"github.com/MeronDaniel/E-commerce-project/pkg/validator"
)

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		service: svc,
		logger:  logger,
	}
}

type messageResponse struct {
	Message string `json:"message"`
}

// GetCart handles GET /api/cart.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.GetCart(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cart)
}

// Count handles GET /api/cart/count.
func (h *CartHandler) Count(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.Count(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, count)
}

// AddItem handles POST /api/cart/add.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req storefront.QuantityRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	if err := h.service.AddItem(r.Context(), middleware.UserIDFromContext(r.Context()), req.ProductID, req.Quantity); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, messageResponse{Message: "Item added to cart"})
}

// UpdateQuantity handles PUT /api/cart/update.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req storefront.QuantityRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	if err := h.service.UpdateQuantity(r.Context(), middleware.UserIDFromContext(r.Context()), req.ProductID, req.Quantity); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, messageResponse{Message: "Cart updated"})
}

// RemoveItem handles DELETE /api/cart/remove. The product id travels in the
// JSON body.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	var req storefront.RemoveRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	if err := h.service.RemoveItem(r.Context(), middleware.UserIDFromContext(r.Context()), req.ProductID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, messageResponse{Message: "Item removed from cart"})
}

// ApplyPromo handles POST /api/cart/apply-promo.
func (h *CartHandler) ApplyPromo(w http.ResponseWriter, r *http.Request) {
	var req storefront.PromoRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	resp, err := h.service.ApplyPromo(r.Context(), req.PromoCode)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// ClearCart handles DELETE /api/cart.
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearCart(r.Context(), middleware.UserIDFromContext(r.Context())); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
