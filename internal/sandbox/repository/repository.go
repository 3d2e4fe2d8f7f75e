// Package repository persists sandbox carts.
package repository

import (
	"context"
	"time"
)

// Item is a stored cart line. Prices are looked up from the catalog on read.
type Item struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

// Cart is a user's stored cart.
type Cart struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Items     []Item    `json:"items"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Item returns the index of the line for productID, or -1.
func (c *Cart) Item(productID int64) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// CartRepository defines the interface for cart persistence operations.
type CartRepository interface {
	// Get retrieves a cart by its user ID. A missing cart is apperrors.ErrNotFound.
	Get(ctx context.Context, userID string) (*Cart, error)

	// SaveIfVersion stores cart only if the stored version still equals
	// expected (0 for a cart never saved). On success cart.Version is bumped.
	SaveIfVersion(ctx context.Context, cart *Cart, expected int64) (bool, error)

	// Delete removes a cart from the store by the user ID.
	Delete(ctx context.Context, userID string) error

	// NextID allocates a unique id in the named sequence.
	NextID(ctx context.Context, sequence string) (int64, error)
}
