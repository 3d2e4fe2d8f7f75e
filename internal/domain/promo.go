package domain

import (
	"fmt"
	"strings"
)

// Promo is the single active promo code and the discount the remote granted for it.
type Promo struct {
	Code            string `json:"promo_code"`
	DiscountPercent int    `json:"discount_percent"`
}

// NewPromo validates a promo granted by the remote.
func NewPromo(code string, discountPercent int) (Promo, error) {
	if code == "" {
		return Promo{}, fmt.Errorf("promo code is empty")
	}
	if discountPercent < 0 || discountPercent > 100 {
		return Promo{}, fmt.Errorf("promo %s: discount %d%% out of range", code, discountPercent)
	}
	return Promo{Code: code, DiscountPercent: discountPercent}, nil
}

// NormalizePromoCode trims and upper-cases a user-entered code.
func NormalizePromoCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
