package domain

import (
	"fmt"

	apperrors "github.com/MeronDaniel/E-commerce-project/pkg/errors"
)

// ProductID identifies a catalog product. The catalog itself is external.
type ProductID int64

// Line is one product's presence in the cart.
type Line struct {
	ProductID              ProductID `json:"product_id"`
	Title                  string    `json:"title"`
	Quantity               int       `json:"quantity"`
	UnitPriceCents         int64     `json:"unit_price_cents"`
	OriginalUnitPriceCents int64     `json:"original_unit_price_cents"`
	// Stock is the available stock at the last sync and caps Quantity.
	Stock int `json:"stock"`
}

// LineTotalCents is the sale-price total of the line.
func (l Line) LineTotalCents() int64 {
	return l.UnitPriceCents * int64(l.Quantity)
}

// OriginalLineTotalCents is the list-price total of the line.
func (l Line) OriginalLineTotalCents() int64 {
	return l.OriginalUnitPriceCents * int64(l.Quantity)
}

// OnSale reports whether the unit price is below the list price.
func (l Line) OnSale() bool {
	return l.UnitPriceCents < l.OriginalUnitPriceCents
}

func (l Line) validate() error {
	switch {
	case l.Quantity < 1:
		return fmt.Errorf("product %d: quantity %d is below 1", l.ProductID, l.Quantity)
	case l.Quantity > l.Stock:
		return fmt.Errorf("product %d: quantity %d exceeds stock %d", l.ProductID, l.Quantity, l.Stock)
	case l.UnitPriceCents < 0:
		return fmt.Errorf("product %d: negative unit price", l.ProductID)
	case l.UnitPriceCents > l.OriginalUnitPriceCents:
		return fmt.Errorf("product %d: unit price %d above original price %d",
			l.ProductID, l.UnitPriceCents, l.OriginalUnitPriceCents)
	}
	return nil
}

// Count is the cart badge: distinct lines and total units.
type Count struct {
	Count      int `json:"count"`
	TotalItems int `json:"total_items"`
}

// Snapshot is the cached cart state. A Snapshot is never modified after
// construction; mutations return a new Snapshot. Every aggregate is computed
// from the lines on demand so none can drift from them.
type Snapshot struct {
	currency string
	order    []ProductID
	lines    map[ProductID]Line
}

// NewSnapshot builds a snapshot from lines in display order.
func NewSnapshot(currency string, lines []Line) (*Snapshot, error) {
	s := &Snapshot{
		currency: currency,
		order:    make([]ProductID, 0, len(lines)),
		lines:    make(map[ProductID]Line, len(lines)),
	}
	for _, l := range lines {
		if err := l.validate(); err != nil {
			return nil, err
		}
		if _, dup := s.lines[l.ProductID]; dup {
			return nil, fmt.Errorf("product %d appears twice", l.ProductID)
		}
		s.order = append(s.order, l.ProductID)
		s.lines[l.ProductID] = l
	}
	return s, nil
}

// EmptySnapshot returns a cart with no lines.
func EmptySnapshot(currency string) *Snapshot {
	s, _ := NewSnapshot(currency, nil)
	return s
}

// Currency returns the ISO currency shared by every line.
func (s *Snapshot) Currency() string {
	return s.currency
}

// Lines returns a copy of the lines in display order.
func (s *Snapshot) Lines() []Line {
	out := make([]Line, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.lines[id])
	}
	return out
}

// Line returns the line for id.
func (s *Snapshot) Line(id ProductID) (Line, bool) {
	l, ok := s.lines[id]
	return l, ok
}

// Len returns the number of distinct lines.
func (s *Snapshot) Len() int {
	return len(s.order)
}

// IsEmpty reports whether the cart has no lines.
func (s *Snapshot) IsEmpty() bool {
	return len(s.order) == 0
}

// WithQuantity returns a copy of s with the line for id set to quantity.
// Quantity must lie in [1, stock]; dropping a line goes through Without.
func (s *Snapshot) WithQuantity(id ProductID, quantity int) (*Snapshot, error) {
	l, ok := s.lines[id]
	if !ok {
		return nil, apperrors.ValidationRejected(fmt.Sprintf("Product %d is not in your cart", id))
	}
	if quantity < 1 {
		return nil, apperrors.ValidationRejected("Quantity must be at least 1")
	}
	if quantity > l.Stock {
		return nil, apperrors.ValidationRejected(fmt.Sprintf("Only %d in stock", l.Stock))
	}

	next := s.clone()
	l.Quantity = quantity
	next.lines[id] = l
	return next, nil
}

// Without returns a copy of s with the line for id removed.
func (s *Snapshot) Without(id ProductID) (*Snapshot, error) {
	if _, ok := s.lines[id]; !ok {
		return nil, apperrors.ValidationRejected(fmt.Sprintf("Product %d is not in your cart", id))
	}

	next := s.clone()
	delete(next.lines, id)
	order := next.order[:0]
	for _, pid := range next.order {
		if pid != id {
			order = append(order, pid)
		}
	}
	next.order = order
	return next, nil
}

func (s *Snapshot) clone() *Snapshot {
	next := &Snapshot{
		currency: s.currency,
		order:    make([]ProductID, len(s.order)),
		lines:    make(map[ProductID]Line, len(s.lines)),
	}
	copy(next.order, s.order)
	for id, l := range s.lines {
		next.lines[id] = l
	}
	return next
}

// SubtotalCents is the sum of line totals at sale prices.
func (s *Snapshot) SubtotalCents() int64 {
	var total int64
	for _, l := range s.lines {
		total += l.LineTotalCents()
	}
	return total
}

// OriginalSubtotalCents is the sum of line totals at list prices.
func (s *Snapshot) OriginalSubtotalCents() int64 {
	var total int64
	for _, l := range s.lines {
		total += l.OriginalLineTotalCents()
	}
	return total
}

// SaleSavingsCents is what sale prices save against list prices.
func (s *Snapshot) SaleSavingsCents() int64 {
	return s.OriginalSubtotalCents() - s.SubtotalCents()
}

// TotalItemCount is the number of units across all lines.
func (s *Snapshot) TotalItemCount() int {
	var count int
	for _, l := range s.lines {
		count += l.Quantity
	}
	return count
}

// Count returns the badge numbers for the snapshot.
func (s *Snapshot) Count() Count {
	return Count{Count: s.Len(), TotalItems: s.TotalItemCount()}
}

// ShippingCents applies the free-shipping threshold to the pre-promo subtotal.
// An empty cart ships nothing and is charged nothing.
func (s *Snapshot) ShippingCents(cfg PricingConfig) int64 {
	if s.IsEmpty() {
		return 0
	}
	if s.SubtotalCents() >= cfg.FreeShippingThresholdCents {
		return 0
	}
	return cfg.FlatShippingCents
}
