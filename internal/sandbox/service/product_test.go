package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeronDaniel/E-commerce-project/internal/sandbox/catalog"
	"github.com/MeronDaniel/E-commerce-project/pkg/pagination"
)

func TestProductService_List(t *testing.T) {
	cat, err := catalog.New(catalog.Seed())
	require.NoError(t, err)
	svc := NewProductService(cat)

	page := svc.List(pagination.New(1, 4))
	require.Len(t, page.Data, 4)
	assert.Equal(t, 6, page.TotalCount)
	assert.Equal(t, 2, page.TotalPages)
	assert.True(t, page.HasNext)
	assert.Equal(t, int64(1), page.Data[0].ID)
	assert.Equal(t, "wireless-mouse", page.Data[0].Slug)

	mug := page.Data[2]
	assert.True(t, mug.IsOnSale)
	require.NotNil(t, mug.SalePriceCents)
	assert.Equal(t, int64(1500), *mug.SalePriceCents)

	last := svc.List(pagination.New(2, 4))
	require.Len(t, last.Data, 2)
	assert.Equal(t, int64(6), last.Data[1].ID)
	assert.False(t, last.HasNext)
}

func TestProductService_ListPastEnd(t *testing.T) {
	cat, err := catalog.New(catalog.Seed())
	require.NoError(t, err)

	page := NewProductService(cat).List(pagination.New(10, 20))
	assert.Empty(t, page.Data)
	assert.Equal(t, 6, page.TotalCount)
}
