// Package service implements the sandbox storefront's cart rules.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MeronDaniel/E-commerce-project/internal/domain"
	"github.com/MeronDaniel/E-commerce-project/internal/sandbox/catalog"
	"github.com/MeronDaniel/E-commerce-project/internal/sandbox/repository"
	"github.com/MeronDaniel/E-commerce-project/internal/storefront"
	apperrors "github.com/MeronDaniel/E-commerce-project/pkg/errors"
	"github.com/MeronDaniel/E-commerce-project/pkg/httpclient"
)

const (
	// MaxItemsPerCart is the maximum number of distinct lines in a cart.
	MaxItemsPerCart = 50
	// maxSaveAttempts bounds retries after losing an optimistic-lock race.
	maxSaveAttempts = 3
)

var errItemNotInCart = &apperrors.AppError{
	Code:    "ITEM_NOT_IN_CART",
	Message: "Item not found in cart",
	Status:  http.StatusNotFound,
	Err:     apperrors.ErrNotFound,
}

var errInvalidPromo = &apperrors.AppError{
	Code:    "INVALID_PROMO",
	Message: "Invalid promo code",
	Status:  http.StatusBadRequest,
	Err:     apperrors.ErrInvalidInput,
}

func insufficientStock(stock int) *apperrors.AppError {
	msg := fmt.Sprintf("Only %d in stock", stock)
	if stock == 0 {
		msg = "Out of stock"
	}
	return &apperrors.AppError{
		Code:    httpclient.CodeInsufficientStock,
		Message: msg,
		Status:  http.StatusConflict,
		Err:     apperrors.ErrConflict,
	}
}

// CartService implements the business logic for cart operations.
type CartService struct {
	repo    repository.CartRepository
	catalog *catalog.Catalog
	promos  map[string]int
	pricing domain.PricingConfig
	logger  *slog.Logger
	nowFunc func() time.Time
}

// NewCartService creates a new cart service. Promo codes are matched after
// normalization.
func NewCartService(repo repository.CartRepository, cat *catalog.Catalog, promos map[string]int, pricing domain.PricingConfig, logger *slog.Logger) *CartService {
	normalized := make(map[string]int, len(promos))
	for code, pct := range promos {
		normalized[domain.NormalizePromoCode(code)] = pct
	}
	return &CartService{
		repo:    repo,
		catalog: cat,
		promos:  normalized,
		pricing: pricing,
		logger:  logger,
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// GetCart returns the priced cart for a user. A user without a cart gets an
// empty one.
func (s *CartService) GetCart(ctx context.Context, userID string) (*storefront.CartPayload, error) {
	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.price(ctx, cart), nil
}

// Count returns the number of lines and units in the user's cart.
func (s *CartService) Count(ctx context.Context, userID string) (storefront.CountResponse, error) {
	cart, err := s.load(ctx, userID)
	if err != nil {
		return storefront.CountResponse{}, err
	}
	resp := storefront.CountResponse{Count: len(cart.Items)}
	for _, it := range cart.Items {
		resp.TotalItems += it.Quantity
	}
	return resp, nil
}

// AddItem adds quantity units of a product, merging with an existing line.
func (s *CartService) AddItem(ctx context.Context, userID string, productID int64, quantity int) error {
	if quantity < 1 {
		return apperrors.ValidationRejected("Quantity must be at least 1")
	}
	product, err := s.product(productID)
	if err != nil {
		return err
	}

	err = s.mutate(ctx, userID, func(cart *repository.Cart) error {
		if i := cart.Item(productID); i >= 0 {
			next := cart.Items[i].Quantity + quantity
			if next > product.Stock {
				return insufficientStock(product.Stock)
			}
			cart.Items[i].Quantity = next
			return nil
		}

		if quantity > product.Stock {
			return insufficientStock(product.Stock)
		}
		if len(cart.Items) >= MaxItemsPerCart {
			return apperrors.ValidationRejected(fmt.Sprintf("A cart holds at most %d different products", MaxItemsPerCart))
		}
		id, err := s.repo.NextID(ctx, "item")
		if err != nil {
			return fmt.Errorf("allocate item id: %w", err)
		}
		cart.Items = append(cart.Items, repository.Item{
			ID:        id,
			ProductID: productID,
			Quantity:  quantity,
			AddedAt:   s.nowFunc(),
		})
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("user_id", userID),
		slog.Int64("product_id", productID),
		slog.Int("quantity", quantity),
	)
	return nil
}

// UpdateQuantity sets the quantity of a line already in the cart.
func (s *CartService) UpdateQuantity(ctx context.Context, userID string, productID int64, quantity int) error {
	if quantity < 1 {
		return apperrors.ValidationRejected("Quantity must be at least 1")
	}
	product, err := s.product(productID)
	if err != nil {
		return err
	}

	err = s.mutate(ctx, userID, func(cart *repository.Cart) error {
		i := cart.Item(productID)
		if i < 0 {
			return errItemNotInCart
		}
		if quantity > product.Stock {
			return insufficientStock(product.Stock)
		}
		cart.Items[i].Quantity = quantity
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "cart item quantity updated",
		slog.String("user_id", userID),
		slog.Int64("product_id", productID),
		slog.Int("quantity", quantity),
	)
	return nil
}

// RemoveItem drops a line from the cart.
func (s *CartService) RemoveItem(ctx context.Context, userID string, productID int64) error {
	err := s.mutate(ctx, userID, func(cart *repository.Cart) error {
		i := cart.Item(productID)
		if i < 0 {
			return errItemNotInCart
		}
		cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "item removed from cart",
		slog.String("user_id", userID),
		slog.Int64("product_id", productID),
	)
	return nil
}

// ApplyPromo validates a promo code. The cart itself is not changed; the
// client applies the discount when it computes totals.
func (s *CartService) ApplyPromo(_ context.Context, code string) (storefront.PromoResponse, error) {
	code = domain.NormalizePromoCode(code)
	pct, ok := s.promos[code]
	if code == "" || !ok {
		return storefront.PromoResponse{}, errInvalidPromo
	}
	return storefront.PromoResponse{
		PromoCode:       code,
		DiscountPercent: pct,
		Message:         fmt.Sprintf("Promo code applied: %d%% off", pct),
	}, nil
}

// ClearCart deletes the user's cart.
func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	if err := s.repo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (s *CartService) product(id int64) (catalog.Product, error) {
	p, err := s.catalog.Get(id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return catalog.Product{}, &apperrors.AppError{
			Code:    "PRODUCT_NOT_FOUND",
			Message: "Product not found",
			Status:  http.StatusNotFound,
			Err:     err,
		}
	}
	return p, err
}

// load returns the stored cart, or a new unsaved cart with version 0.
func (s *CartService) load(ctx context.Context, userID string) (*repository.Cart, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}

	cart, err := s.repo.Get(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	now := s.nowFunc()
	return &repository.Cart{UserID: userID, Items: []repository.Item{}, CreatedAt: now, UpdatedAt: now}, nil
}

// mutate applies fn to the latest cart and saves it, retrying when another
// request saved the cart in between.
func (s *CartService) mutate(ctx context.Context, userID string, fn func(*repository.Cart) error) error {
	for attempt := 1; attempt <= maxSaveAttempts; attempt++ {
		cart, err := s.load(ctx, userID)
		if err != nil {
			return err
		}
		expected := cart.Version

		if err := fn(cart); err != nil {
			return err
		}
		if cart.ID == 0 {
			if cart.ID, err = s.repo.NextID(ctx, "cart"); err != nil {
				return fmt.Errorf("allocate cart id: %w", err)
			}
		}
		cart.UpdatedAt = s.nowFunc()

		ok, err := s.repo.SaveIfVersion(ctx, cart, expected)
		if err != nil {
			return fmt.Errorf("save cart: %w", err)
		}
		if ok {
			return nil
		}
		s.logger.DebugContext(ctx, "cart version conflict",
			slog.String("user_id", userID),
			slog.Int("attempt", attempt),
		)
	}
	return apperrors.Conflict("Cart was modified concurrently, please retry")
}

// price builds the storefront payload. Prices and stock come from the
// catalog at read time; lines whose product disappeared are skipped.
func (s *CartService) price(ctx context.Context, cart *repository.Cart) *storefront.CartPayload {
	payload := &storefront.CartPayload{
		CartID:   cart.ID,
		Items:    make([]storefront.ItemPayload, 0, len(cart.Items)),
		TaxRate:  s.pricing.TaxRate.InexactFloat64(),
		Currency: "USD",
	}

	lines := make([]domain.Line, 0, len(cart.Items))
	for _, it := range cart.Items {
		p, err := s.catalog.Get(it.ProductID)
		if err != nil {
			s.logger.WarnContext(ctx, "cart references unknown product",
				slog.String("user_id", cart.UserID),
				slog.Int64("product_id", it.ProductID),
			)
			continue
		}
		payload.Currency = p.Currency

		unit := p.UnitPriceCents()
		payload.Items = append(payload.Items, storefront.ItemPayload{
			ID:                     it.ID,
			ProductID:              it.ProductID,
			Quantity:               it.Quantity,
			UnitPriceCents:         unit,
			OriginalPriceCents:     p.PriceCents,
			LineTotalCents:         unit * int64(it.Quantity),
			OriginalLineTotalCents: p.PriceCents * int64(it.Quantity),
			AddedAt:                it.AddedAt.Format(time.RFC3339),
			Product:                productPayload(p),
		})
		lines = append(lines, domain.Line{
			ProductID:              domain.ProductID(it.ProductID),
			Title:                  p.Title,
			Quantity:               it.Quantity,
			UnitPriceCents:         unit,
			OriginalUnitPriceCents: p.PriceCents,
			Stock:                  max(p.Stock, it.Quantity),
		})
	}

	snap, err := domain.NewSnapshot(payload.Currency, lines)
	if err != nil {
		// Stored carts hold one line per product, so this means corrupt data.
		s.logger.ErrorContext(ctx, "stored cart is invalid",
			slog.String("user_id", cart.UserID),
			slog.String("error", err.Error()),
		)
		snap = domain.EmptySnapshot(payload.Currency)
	}

	totals := domain.ComputeTotals(snap, nil, s.pricing)
	payload.ItemCount = len(payload.Items)
	payload.TotalItems = totals.TotalItems
	payload.SubtotalCents = totals.SubtotalCents
	payload.OriginalSubtotalCents = totals.OriginalSubtotalCents
	payload.SaleSavingsCents = totals.SaleSavingsCents
	payload.ShippingCents = totals.ShippingCents
	payload.TaxCents = totals.TaxCents
	payload.TotalCents = totals.TotalCents
	return payload
}

func productPayload(p catalog.Product) storefront.ProductPayload {
	out := storefront.ProductPayload{
		ID:         p.ID,
		Title:      p.Title,
		Slug:       p.Slug,
		PriceCents: p.PriceCents,
		Currency:   p.Currency,
		Stock:      p.Stock,
		IsOnSale:   p.OnSale(),
	}
	if p.Description != "" {
		desc := p.Description
		out.Description = &desc
	}
	if p.OnSale() {
		pct, sale := p.SalePercent, p.UnitPriceCents()
		out.SalePercent = &pct
		out.SalePriceCents = &sale
	}
	if p.Brand != "" {
		out.Brand = &storefront.Ref{Name: p.Brand}
	}
	if p.Category != "" {
		out.Category = &storefront.Ref{Name: p.Category}
	}
	if p.ImageURL != "" {
		out.Image = &storefront.Image{URL: p.ImageURL, AltText: p.Title}
	}
	return out
}
