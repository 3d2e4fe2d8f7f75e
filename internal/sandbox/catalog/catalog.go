// Package catalog holds the sandbox's in-memory product table.
package catalog

import (
	"fmt"
	"sort"
	"sync"

	apperrors "github.com/MeronDaniel/E-commerce-project/pkg/errors"
	"github.com/MeronDaniel/E-commerce-project/pkg/money"
	"github.com/MeronDaniel/E-commerce-project/pkg/slug"
)

// Product is a sellable item. Prices are in cents.
type Product struct {
	ID          int64
	Title       string
	Slug        string
	Description string
	PriceCents  int64
	Currency    string
	// SalePercent is the markdown off PriceCents; 0 means not on sale.
	SalePercent int
	Stock       int
	Brand       string
	Category    string
	ImageURL    string
}

// OnSale reports whether the product is marked down.
func (p Product) OnSale() bool {
	return p.SalePercent > 0
}

// UnitPriceCents is the price a buyer pays per unit.
func (p Product) UnitPriceCents() int64 {
	if !p.OnSale() {
		return p.PriceCents
	}
	return p.PriceCents - money.PercentOf(p.PriceCents, p.SalePercent)
}

func (p Product) validate() error {
	switch {
	case p.ID <= 0:
		return fmt.Errorf("product id must be positive, got %d", p.ID)
	case p.Title == "":
		return fmt.Errorf("product %d: title is required", p.ID)
	case p.PriceCents < 0:
		return fmt.Errorf("product %d: negative price", p.ID)
	case p.SalePercent < 0 || p.SalePercent > 100:
		return fmt.Errorf("product %d: sale percent %d out of range", p.ID, p.SalePercent)
	case p.Stock < 0:
		return fmt.Errorf("product %d: negative stock", p.ID)
	}
	return nil
}

// Catalog is a concurrency-safe product table.
type Catalog struct {
	mu       sync.RWMutex
	products map[int64]Product
}

// New builds a catalog from products. Duplicate or invalid products are
// rejected. Missing slugs are derived from the title.
func New(products []Product) (*Catalog, error) {
	c := &Catalog{products: make(map[int64]Product, len(products))}
	for _, p := range products {
		if err := p.validate(); err != nil {
			return nil, err
		}
		if _, dup := c.products[p.ID]; dup {
			return nil, fmt.Errorf("duplicate product id %d", p.ID)
		}
		if p.Currency == "" {
			p.Currency = "USD"
		}
		if p.Slug == "" {
			p.Slug = slug.Generate(p.Title)
		}
		c.products[p.ID] = p
	}
	return c, nil
}

// Get returns the product with the given id.
func (c *Catalog) Get(id int64) (Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[id]
	if !ok {
		return Product{}, apperrors.NotFound("product", fmt.Sprint(id))
	}
	return p, nil
}

// List returns every product ordered by id.
func (c *Catalog) List() []Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetStock changes a product's stock level.
func (c *Catalog) SetStock(id int64, stock int) error {
	if stock < 0 {
		return apperrors.InvalidInput("stock must not be negative")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.products[id]
	if !ok {
		return apperrors.NotFound("product", fmt.Sprint(id))
	}
	p.Stock = stock
	c.products[id] = p
	return nil
}

// Seed returns the demo product table.
func Seed() []Product {
	return []Product{
		{ID: 1, Title: "Wireless Mouse", PriceCents: 2999, Stock: 25, Brand: "Logi", Category: "Accessories"},
		{ID: 2, Title: "Mechanical Keyboard", PriceCents: 8999, SalePercent: 20, Stock: 10, Brand: "Keychron", Category: "Accessories"},
		{ID: 3, Title: "Ceramic Mug", PriceCents: 1875, SalePercent: 20, Stock: 10, Brand: "Studio", Category: "Kitchen"},
		{ID: 4, Title: "USB-C Cable", PriceCents: 1299, Stock: 3, Brand: "Anker", Category: "Cables"},
		{ID: 5, Title: "Noise Cancelling Headphones", PriceCents: 24999, SalePercent: 15, Stock: 5, Brand: "Sony", Category: "Audio"},
		{ID: 6, Title: "Laptop Stand", PriceCents: 4500, Stock: 0, Brand: "Rain", Category: "Accessories"},
	}
}
