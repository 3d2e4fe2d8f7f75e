package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeronDaniel/E-commerce-project/internal/domain"
	"github.com/MeronDaniel/E-commerce-project/internal/sandbox/catalog"
	"github.com/MeronDaniel/E-commerce-project/internal/sandbox/repository"
	redisrepo "github.com/MeronDaniel/E-commerce-project/internal/sandbox/repository/redis"
	apperrors "github.com/MeronDaniel/E-commerce-project/pkg/errors"
	"github.com/MeronDaniel/E-commerce-project/pkg/logger"
)

const (
	mouseID    = 1
	mugID      = 3
	cableID    = 4
	standID    = 6
	testUserID = "user-1"
)

// conflictingRepo loses the first n optimistic-lock races.
type conflictingRepo struct {
	repository.CartRepository
	conflicts int
}

func (r *conflictingRepo) SaveIfVersion(ctx context.Context, cart *repository.Cart, expected int64) (bool, error) {
	if r.conflicts > 0 {
		r.conflicts--
		return false, nil
	}
	return r.CartRepository.SaveIfVersion(ctx, cart, expected)
}

func newRedisRepo(t *testing.T) *redisrepo.CartRepository {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redisrepo.NewCartRepository(client, time.Hour)
}

func newTestService(t *testing.T, repo repository.CartRepository) (*CartService, *catalog.Catalog) {
	t.Helper()
	cat, err := catalog.New(catalog.Seed())
	require.NoError(t, err)
	if repo == nil {
		repo = newRedisRepo(t)
	}
	promos := map[string]int{"SAVE10": 10, "welcome20": 20}
	return NewCartService(repo, cat, promos, domain.DefaultPricing(), logger.Discard()), cat
}

func requireAppError(t *testing.T, err error, status int, code, message string) {
	t.Helper()
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, status, appErr.Status)
	assert.Equal(t, code, appErr.Code)
	if message != "" {
		assert.Equal(t, message, appErr.Message)
	}
}

func TestGetCart_EmptyForNewUser(t *testing.T) {
	svc, _ := newTestService(t, nil)

	cart, err := svc.GetCart(context.Background(), testUserID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Equal(t, int64(0), cart.TotalCents)
	assert.Equal(t, int64(0), cart.ShippingCents)
	assert.Equal(t, "USD", cart.Currency)
	assert.InDelta(t, 0.13, cart.TaxRate, 1e-9)
}

func TestGetCart_RequiresUser(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.GetCart(context.Background(), "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestAddItem_PricesCart(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, testUserID, mugID, 4))

	cart, err := svc.GetCart(ctx, testUserID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)

	item := cart.Items[0]
	assert.Equal(t, int64(mugID), item.ProductID)
	assert.Equal(t, int64(1500), item.UnitPriceCents)
	assert.Equal(t, int64(1875), item.OriginalPriceCents)
	assert.Equal(t, int64(6000), item.LineTotalCents)
	assert.Equal(t, "Ceramic Mug", item.Product.Title)
	require.NotNil(t, item.Product.SalePercent)
	assert.Equal(t, 20, *item.Product.SalePercent)
	assert.NotZero(t, item.ID)
	assert.NotZero(t, cart.CartID)

	assert.Equal(t, int64(6000), cart.SubtotalCents)
	assert.Equal(t, int64(7500), cart.OriginalSubtotalCents)
	assert.Equal(t, int64(1500), cart.SaleSavingsCents)
	assert.Equal(t, int64(999), cart.ShippingCents)
	assert.Equal(t, int64(780), cart.TaxCents)
	assert.Equal(t, int64(7779), cart.TotalCents)
	assert.Equal(t, 1, cart.ItemCount)
	assert.Equal(t, 4, cart.TotalItems)
}

func TestAddItem_MergesExistingLine(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, testUserID, mouseID, 2))
	require.NoError(t, svc.AddItem(ctx, testUserID, mouseID, 3))

	cart, err := svc.GetCart(ctx, testUserID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
}

func TestAddItem_Rejections(t *testing.T) {
	tests := []struct {
		name      string
		productID int64
		quantity  int
		status    int
		code      string
		message   string
	}{
		{"above stock", cableID, 4, http.StatusConflict, "insufficient_stock", "Only 3 in stock"},
		{"out of stock", standID, 1, http.StatusConflict, "insufficient_stock", "Out of stock"},
		{"unknown product", 99, 1, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found"},
		{"zero quantity", mouseID, 0, http.StatusBadRequest, "VALIDATION_REJECTED", "Quantity must be at least 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, nil)
			err := svc.AddItem(context.Background(), testUserID, tt.productID, tt.quantity)
			requireAppError(t, err, tt.status, tt.code, tt.message)
		})
	}
}

func TestAddItem_MergeAboveStock(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, testUserID, cableID, 2))
	err := svc.AddItem(ctx, testUserID, cableID, 2)
	requireAppError(t, err, http.StatusConflict, "insufficient_stock", "Only 3 in stock")
}

func TestUpdateQuantity(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	require.NoError(t, svc.AddItem(ctx, testUserID, mouseID, 1))

	require.NoError(t, svc.UpdateQuantity(ctx, testUserID, mouseID, 7))

	cart, err := svc.GetCart(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, 7, cart.Items[0].Quantity)
}

func TestUpdateQuantity_StockShrankSinceAdd(t *testing.T) {
	svc, cat := newTestService(t, nil)
	ctx := context.Background()
	require.NoError(t, svc.AddItem(ctx, testUserID, mouseID, 1))
	require.NoError(t, cat.SetStock(mouseID, 2))

	err := svc.UpdateQuantity(ctx, testUserID, mouseID, 3)
	requireAppError(t, err, http.StatusConflict, "insufficient_stock", "Only 2 in stock")

	require.NoError(t, svc.UpdateQuantity(ctx, testUserID, mouseID, 2))
}

func TestUpdateQuantity_NotInCart(t *testing.T) {
	svc, _ := newTestService(t, nil)

	err := svc.UpdateQuantity(context.Background(), testUserID, mouseID, 1)
	requireAppError(t, err, http.StatusNotFound, "ITEM_NOT_IN_CART", "Item not found in cart")
}

func TestRemoveItem(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	require.NoError(t, svc.AddItem(ctx, testUserID, mouseID, 1))
	require.NoError(t, svc.AddItem(ctx, testUserID, mugID, 1))

	require.NoError(t, svc.RemoveItem(ctx, testUserID, mouseID))

	cart, err := svc.GetCart(ctx, testUserID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(mugID), cart.Items[0].ProductID)

	err = svc.RemoveItem(ctx, testUserID, mouseID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestApplyPromo(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	resp, err := svc.ApplyPromo(ctx, "  save10 ")
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", resp.PromoCode)
	assert.Equal(t, 10, resp.DiscountPercent)

	resp, err = svc.ApplyPromo(ctx, "WELCOME20")
	require.NoError(t, err)
	assert.Equal(t, 20, resp.DiscountPercent)

	for _, code := range []string{"BOGUS", "", "   "} {
		_, err := svc.ApplyPromo(ctx, code)
		requireAppError(t, err, http.StatusBadRequest, "INVALID_PROMO", "Invalid promo code")
	}
}

func TestCount(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	require.NoError(t, svc.AddItem(ctx, testUserID, mouseID, 2))
	require.NoError(t, svc.AddItem(ctx, testUserID, mugID, 3))

	count, err := svc.Count(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, 2, count.Count)
	assert.Equal(t, 5, count.TotalItems)
}

func TestClearCart(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	require.NoError(t, svc.AddItem(ctx, testUserID, mouseID, 2))

	require.NoError(t, svc.ClearCart(ctx, testUserID))

	count, err := svc.Count(ctx, testUserID)
	require.NoError(t, err)
	assert.Zero(t, count.Count)
}

func TestMutate_RetriesVersionConflict(t *testing.T) {
	repo := &conflictingRepo{CartRepository: newRedisRepo(t), conflicts: maxSaveAttempts - 1}
	svc, _ := newTestService(t, repo)

	require.NoError(t, svc.AddItem(context.Background(), testUserID, mouseID, 1))
	assert.Zero(t, repo.conflicts)
}

func TestMutate_GivesUpAfterRepeatedConflicts(t *testing.T) {
	repo := &conflictingRepo{CartRepository: newRedisRepo(t), conflicts: maxSaveAttempts}
	svc, _ := newTestService(t, repo)

	err := svc.AddItem(context.Background(), testUserID, mouseID, 1)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestGetCart_SkipsVanishedProducts(t *testing.T) {
	repo := newRedisRepo(t)
	svc, _ := newTestService(t, repo)
	ctx := context.Background()

	stored := &repository.Cart{
		ID:     1,
		UserID: testUserID,
		Items: []repository.Item{
			{ID: 1, ProductID: 404, Quantity: 1},
			{ID: 2, ProductID: mouseID, Quantity: 1},
		},
	}
	ok, err := repo.SaveIfVersion(ctx, stored, 0)
	require.NoError(t, err)
	require.True(t, ok)

	cart, err := svc.GetCart(ctx, testUserID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(2999), cart.SubtotalCents)
}
