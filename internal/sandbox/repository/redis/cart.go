package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MeronDaniel/E-commerce-project/internal/sandbox/repository"
	"github.com/MeronDaniel/E-commerce-project/pkg/database"
	apperrors "github.com/MeronDaniel/E-commerce-project/pkg/errors"
)

const (
	keyPrefix = "cart:"
	seqPrefix = "seq:"
)

// CartRepository implements repository.CartRepository using Redis.
type CartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartRepository creates a new Redis-backed cart repository.
func NewCartRepository(client *redis.Client, ttl time.Duration) *CartRepository {
	return &CartRepository{
		client: client,
		ttl:    ttl,
	}
}

// Get retrieves a cart by user ID from Redis.
func (r *CartRepository) Get(ctx context.Context, userID string) (*repository.Cart, error) {
	ctx, end := database.TraceCommand(ctx, "GetCart", "GET", keyPrefix+userID)
	data, err := r.client.Get(ctx, keyPrefix+userID).Bytes()
	end(err)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("cart", userID)
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	return decode(data)
}

// SaveIfVersion writes the cart inside a WATCH transaction so a concurrent
// writer makes it return false instead of overwriting.
func (r *CartRepository) SaveIfVersion(ctx context.Context, cart *repository.Cart, expected int64) (bool, error) {
	key := keyPrefix + cart.UserID
	saved := false

	ctx, end := database.TraceCommand(ctx, "SaveCart", "WATCH", key)
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			if expected != 0 {
				return nil
			}
		case err != nil:
			return fmt.Errorf("redis get cart: %w", err)
		default:
			stored, err := decode(current)
			if err != nil {
				return err
			}
			if stored.Version != expected {
				return nil
			}
		}

		next := *cart
		next.Version = expected + 1
		data, err := json.Marshal(&next)
		if err != nil {
			return fmt.Errorf("marshal cart: %w", err)
		}

		if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.ttl)
			return nil
		}); err != nil {
			return err
		}

		cart.Version = next.Version
		saved = true
		return nil
	}, key)
	end(err)

	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis save cart: %w", err)
	}
	return saved, nil
}

// Delete removes a cart from Redis by user ID.
func (r *CartRepository) Delete(ctx context.Context, userID string) error {
	ctx, end := database.TraceCommand(ctx, "DeleteCart", "DEL", keyPrefix+userID)
	err := r.client.Del(ctx, keyPrefix+userID).Err()
	end(err)
	if err != nil {
		return fmt.Errorf("redis del cart: %w", err)
	}
	return nil
}

// NextID increments the named sequence counter.
func (r *CartRepository) NextID(ctx context.Context, sequence string) (int64, error) {
	ctx, end := database.TraceCommand(ctx, "NextID", "INCR", seqPrefix+sequence)
	id, err := r.client.Incr(ctx, seqPrefix+sequence).Result()
	end(err)
	if err != nil {
		return 0, fmt.Errorf("redis incr %s: %w", strconv.Quote(sequence), err)
	}
	return id, nil
}

func decode(data []byte) (*repository.Cart, error) {
	var cart repository.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}
	return &cart, nil
}
