package coupons_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-storefront/internal/coupons"
	"github.com/imrishuroy/go-storefront/internal/idempotency"
	"github.com/imrishuroy/go-storefront/internal/memstore"
	"github.com/imrishuroy/go-storefront/internal/orders"
)

func TestUpdate_KeepsUsageCountedDuringEdit(t *testing.T) {
	ctx := context.Background()
	st := memstore.New(time.Hour)
	svc := coupons.NewService(st.Coupons())
	_, err := svc.Create(ctx, coupons.Coupon{Code: "SAVE", DiscountType: coupons.DiscountPercentage, DiscountValue: 10, IsActive: true})
	require.NoError(t, err)

	o := &orders.Order{
		OrderID:       "o1",
		OrderNumber:   "ORD-1",
		Status:        orders.StatusPending,
		PaymentStatus: orders.PaymentPending,
		TotalCents:    900,
		CouponCode:    "SAVE",
	}
	require.NoError(t, st.Orders().CreateWithIdempotencyTransaction(ctx, idempotency.IdempotencyRecord{IdempotencyKey: "k1"}, o))

	// the admin form is loaded before the order is confirmed
	edit, err := svc.Get(ctx, "save")
	require.NoError(t, err)

	tr, err := orders.Plan(o, orders.Input{Event: orders.EventCheckoutCompleted, PaymentIntentID: "pi_1"})
	require.NoError(t, err)
	require.NoError(t, st.Orders().Apply(ctx, o, tr))

	edit.DiscountValue = 15
	updated, err := svc.Update(ctx, "save", *edit)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.CurrentUses)
	assert.Equal(t, float64(15), updated.DiscountValue)

	got, err := svc.Get(ctx, "SAVE")
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentUses)
	assert.Equal(t, updated.CouponID, got.CouponID)
}
