package storefront

import (
	"fmt"
	"log/slog"

	"github.com/MeronDaniel/E-commerce-project/internal/domain"
	"github.com/MeronDaniel/E-commerce-project/pkg/pagination"
)

// Ref is a named reference such as a product's brand or category.
type Ref struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Image is a product's primary image.
type Image struct {
	URL     string `json:"url"`
	AltText string `json:"alt_text"`
}

// ProductPayload is the product block embedded in each cart item.
type ProductPayload struct {
	ID             int64   `json:"id"`
	Title          string  `json:"title"`
	Slug           string  `json:"slug"`
	Description    *string `json:"description"`
	PriceCents     int64   `json:"price_cents"`
	Currency       string  `json:"currency"`
	Stock          int     `json:"stock"`
	IsOnSale       bool    `json:"is_on_sale"`
	SalePercent    *int    `json:"sale_percent"`
	SalePriceCents *int64  `json:"sale_price_cents"`
	Brand          *Ref    `json:"brand"`
	Category       *Ref    `json:"category"`
	Image          *Image  `json:"image"`
}

// ProductPage is one page of GET /products.
type ProductPage = pagination.Result[ProductPayload]

// ItemPayload is one cart line as served by GET /cart.
type ItemPayload struct {
	ID                     int64          `json:"id"`
	ProductID              int64          `json:"product_id"`
	Quantity               int            `json:"quantity"`
	UnitPriceCents         int64          `json:"unit_price_cents"`
	OriginalPriceCents     int64          `json:"original_price_cents"`
	LineTotalCents         int64          `json:"line_total_cents"`
	OriginalLineTotalCents int64          `json:"original_line_total_cents"`
	AddedAt                string         `json:"added_at"`
	Product                ProductPayload `json:"product"`
}

// CartPayload is the full GET /cart response.
type CartPayload struct {
	CartID                int64         `json:"cart_id"`
	Items                 []ItemPayload `json:"items"`
	ItemCount             int           `json:"item_count"`
	TotalItems            int           `json:"total_items"`
	SubtotalCents         int64         `json:"subtotal_cents"`
	OriginalSubtotalCents int64         `json:"original_subtotal_cents"`
	SaleSavingsCents      int64         `json:"sale_savings_cents"`
	TaxCents              int64         `json:"tax_cents"`
	TaxRate               float64       `json:"tax_rate"`
	ShippingCents         int64         `json:"shipping_cents"`
	TotalCents            int64         `json:"total_cents"`
	Currency              string        `json:"currency"`
}

// QuantityRequest is the body of POST /cart/add and PUT /cart/update.
type QuantityRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"gte=1"`
}

// RemoveRequest is the body of DELETE /cart/remove.
type RemoveRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
}

// PromoRequest is the body of POST /cart/apply-promo.
type PromoRequest struct {
	PromoCode string `json:"promo_code" validate:"required,max=64"`
}

// PromoResponse is the success body of POST /cart/apply-promo.
type PromoResponse struct {
	PromoCode       string `json:"promo_code"`
	DiscountPercent int    `json:"discount_percent"`
	Message         string `json:"message,omitempty"`
}

// CountResponse is the body of GET /cart/count.
type CountResponse struct {
	Count      int `json:"count"`
	TotalItems int `json:"total_items"`
}

const defaultCurrency = "USD"

// Cart is a parsed GET /cart response.
type Cart struct {
	ID       int64
	Snapshot *domain.Snapshot
	// ReportedSubtotalCents is the remote's own subtotal, kept for drift logging.
	ReportedSubtotalCents int64
}

// ToCart converts the payload into a validated snapshot. Lines with a
// non-positive quantity are dropped. A line whose quantity already exceeds
// the reported stock keeps its quantity as the ceiling, and a unit price above
// the list price lifts the list price to match.
func (p CartPayload) ToCart(log *slog.Logger) (*Cart, error) {
	currency := p.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	lines := make([]domain.Line, 0, len(p.Items))
	for _, it := range p.Items {
		if it.Quantity <= 0 {
			log.Warn("dropping cart line with non-positive quantity",
				slog.Int64("product_id", it.ProductID),
				slog.Int("quantity", it.Quantity),
			)
			continue
		}
		lines = append(lines, domain.Line{
			ProductID:              domain.ProductID(it.ProductID),
			Title:                  it.Product.Title,
			Quantity:               it.Quantity,
			UnitPriceCents:         it.UnitPriceCents,
			OriginalUnitPriceCents: max(it.OriginalPriceCents, it.UnitPriceCents),
			Stock:                  max(it.Product.Stock, it.Quantity),
		})
	}

	snap, err := domain.NewSnapshot(currency, lines)
	if err != nil {
		return nil, fmt.Errorf("cart %d: %w", p.CartID, err)
	}
	return &Cart{ID: p.CartID, Snapshot: snap, ReportedSubtotalCents: p.SubtotalCents}, nil
}
