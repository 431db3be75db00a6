package cart_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-storefront/internal/apperr"
	"github.com/imrishuroy/go-storefront/internal/cart"
	"github.com/imrishuroy/go-storefront/internal/memstore"
	"github.com/imrishuroy/go-storefront/internal/products"
)

func newCartService(t *testing.T) *cart.Service {
	t.Helper()
	store := memstore.New(time.Hour)
	ctx := context.Background()
	require.NoError(t, store.Products().Put(ctx, products.Product{ProductID: "mug", Name: "Mug", PriceCents: 1250, Stock: 3, IsActive: true}))
	require.NoError(t, store.Products().Put(ctx, products.Product{ProductID: "old", Name: "Old", PriceCents: 500, Stock: 3}))
	return cart.NewService(store.Carts(), products.NewService(store.Products()))
}

func TestService_AddItemSnapshotsPrice(t *testing.T) {
	svc := newCartService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "c1", "mug", 1)
	require.NoError(t, err)
	c, err := svc.AddItem(ctx, "c1", "mug", 1)
	require.NoError(t, err)

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, int64(1250), lines[0].UnitPriceCents)
	assert.Equal(t, 2, lines[0].Quantity)

	stored, err := svc.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, cart.Totals{SubtotalCents: 2500, ItemCount: 2}, stored.Totals())
}

func TestService_AddItemRejections(t *testing.T) {
	svc := newCartService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "c1", "mug", 0)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.AddItem(ctx, "c1", "old", 1)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = svc.AddItem(ctx, "c1", "mug", 4)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	c, err := svc.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Zero(t, c.Len())
}

func TestService_SetQuantityAndRemove(t *testing.T) {
	svc := newCartService(t)
	ctx := context.Background()
	_, err := svc.AddItem(ctx, "c1", "mug", 1)
	require.NoError(t, err)

	c, err := svc.SetQuantity(ctx, "c1", "mug", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Totals().ItemCount)

	_, err = svc.SetQuantity(ctx, "c1", "mug", 9)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = svc.SetQuantity(ctx, "c1", "tee", 1)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	c, err = svc.SetQuantity(ctx, "c1", "mug", 0)
	require.NoError(t, err)
	assert.Zero(t, c.Len())

	_, err = svc.AddItem(ctx, "c1", "mug", 1)
	require.NoError(t, err)
	c, err = svc.RemoveItem(ctx, "c1", "mug")
	require.NoError(t, err)
	assert.Zero(t, c.Len())
}

func TestService_Clear(t *testing.T) {
	svc := newCartService(t)
	ctx := context.Background()
	_, err := svc.AddItem(ctx, "c1", "mug", 2)
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, "c1"))
	c, err := svc.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Zero(t, c.Len())
}
