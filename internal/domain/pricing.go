package domain

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/MeronDaniel/E-commerce-project/pkg/money"
)

// Defaults observed in the deployed storefront.
const (
	DefaultFreeShippingThresholdCents = 10000
	DefaultFlatShippingCents          = 999
	DefaultTaxRate                    = "0.13"
)

// PricingConfig holds the storefront's fixed pricing rules.
type PricingConfig struct {
	FreeShippingThresholdCents int64
	FlatShippingCents          int64
	TaxRate                    decimal.Decimal
}

// DefaultPricing returns the rules of the observed deployment.
func DefaultPricing() PricingConfig {
	return PricingConfig{
		FreeShippingThresholdCents: DefaultFreeShippingThresholdCents,
		FlatShippingCents:          DefaultFlatShippingCents,
		TaxRate:                    decimal.RequireFromString(DefaultTaxRate),
	}
}

// Validate checks the rules are usable.
func (c PricingConfig) Validate() error {
	if c.FreeShippingThresholdCents < 0 {
		return fmt.Errorf("free shipping threshold must not be negative")
	}
	if c.FlatShippingCents < 0 {
		return fmt.Errorf("flat shipping must not be negative")
	}
	if c.TaxRate.IsNegative() || c.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("tax rate %s out of range [0, 1]", c.TaxRate.String())
	}
	return nil
}

// Totals is every money value the cart displays, in cents.
type Totals struct {
	Currency              string `json:"currency"`
	TotalItems            int    `json:"total_items"`
	SubtotalCents         int64  `json:"subtotal_cents"`
	OriginalSubtotalCents int64  `json:"original_subtotal_cents"`
	SaleSavingsCents      int64  `json:"sale_savings_cents"`
	PromoDiscountCents    int64  `json:"promo_discount_cents"`
	AfterDiscountCents    int64  `json:"after_discount_cents"`
	ShippingCents         int64  `json:"shipping_cents"`
	TaxCents              int64  `json:"tax_cents"`
	TotalCents            int64  `json:"total_cents"`
	TotalSavingsCents     int64  `json:"total_savings_cents"`
	// FreeShippingRemainingCents is how much more subtotal earns free shipping.
	FreeShippingRemainingCents int64 `json:"free_shipping_remaining_cents"`
}

// ComputeTotals derives the price breakdown from the snapshot, the active
// promo (nil for none) and the pricing rules alone.
//
// The promo discount applies to the subtotal only. Shipping eligibility uses
// the pre-promo subtotal. Tax is charged on the discounted subtotal and never
// on shipping.
func ComputeTotals(s *Snapshot, promo *Promo, cfg PricingConfig) Totals {
	if s == nil {
		s = EmptySnapshot("")
	}

	subtotal := s.SubtotalCents()
	var promoDiscount int64
	if promo != nil {
		promoDiscount = money.PercentOf(subtotal, promo.DiscountPercent)
	}
	afterDiscount := subtotal - promoDiscount
	shipping := s.ShippingCents(cfg)
	tax := money.ApplyRate(afterDiscount, cfg.TaxRate)

	var remaining int64
	if shipping > 0 {
		remaining = cfg.FreeShippingThresholdCents - subtotal
	}

	return Totals{
		Currency:                   s.Currency(),
		TotalItems:                 s.TotalItemCount(),
		SubtotalCents:              subtotal,
		OriginalSubtotalCents:      s.OriginalSubtotalCents(),
		SaleSavingsCents:           s.SaleSavingsCents(),
		PromoDiscountCents:         promoDiscount,
		AfterDiscountCents:         afterDiscount,
		ShippingCents:              shipping,
		TaxCents:                   tax,
		TotalCents:                 afterDiscount + shipping + tax,
		TotalSavingsCents:          s.SaleSavingsCents() + promoDiscount,
		FreeShippingRemainingCents: remaining,
	}
}
