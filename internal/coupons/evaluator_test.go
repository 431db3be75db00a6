package coupons

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-storefront/internal/apperr"
)

type mapFinder map[string]Coupon

func (m mapFinder) GetByCode(ctx context.Context, code string) (*Coupon, error) {
	c, ok := m[code]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

type failingFinder struct{}

func (failingFinder) GetByCode(ctx context.Context, code string) (*Coupon, error) {
	return nil, errors.New("throttled")
}

var evalNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func intPtr(i int) *int { return &i }

func save10() Coupon {
	return Coupon{
		Code:          "SAVE10",
		CouponID:      "c-1",
		Description:   "10% off",
		DiscountType:  DiscountPercentage,
		DiscountValue: 10,
		MinOrderCents: 0,
		MaxUses:       intPtr(100),
		CurrentUses:   5,
		IsActive:      true,
	}
}

func newTestEvaluator(coupons ...Coupon) *Evaluator {
	f := mapFinder{}
	for _, c := range coupons {
		f[c.Code] = c
	}
	return NewEvaluator(f).WithClock(func() time.Time { return evalNow })
}

func TestEvaluate_Save10Scenario(t *testing.T) {
	e := newTestEvaluator(save10())

	res, err := e.Evaluate(context.Background(), "save10", 5000)
	require.NoError(t, err)
	assert.Equal(t, int64(500), res.DiscountCents)
	assert.Equal(t, "SAVE10", res.Coupon.Summary().Code)
	assert.Equal(t, "c-1", res.Coupon.Summary().ID)

	res, err = e.Evaluate(context.Background(), "SAVE10", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.DiscountCents)
}

func TestEvaluate_ValidationOrder(t *testing.T) {
	past := evalNow.Add(-time.Hour)
	future := evalNow.Add(time.Hour)

	cases := []struct {
		name     string
		mutate   func(c *Coupon)
		code     string
		subtotal int64
		reason   Reason
	}{
		{"unknown code", nil, "NOPE", 5000, ReasonInvalidCode},
		{"inactive beats expired", func(c *Coupon) { c.IsActive = false; c.ExpiresAt = &past }, "SAVE10", 5000, ReasonInactive},
		{"expired while active", func(c *Coupon) { c.ExpiresAt = &past }, "SAVE10", 5000, ReasonExpired},
		{"expired beats usage", func(c *Coupon) { c.ExpiresAt = &past; c.CurrentUses = 100 }, "SAVE10", 5000, ReasonExpired},
		{"usage limit reached", func(c *Coupon) { c.CurrentUses = 100; c.ExpiresAt = &future }, "SAVE10", 5000, ReasonUsageLimitReached},
		{"usage beats minimum", func(c *Coupon) { c.CurrentUses = 100; c.MinOrderCents = 9000 }, "SAVE10", 5000, ReasonUsageLimitReached},
		{"below minimum", func(c *Coupon) { c.MinOrderCents = 7500 }, "SAVE10", 7499, ReasonBelowMinimum},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := save10()
			if tc.mutate != nil {
				tc.mutate(&c)
			}
			_, err := newTestEvaluator(c).Evaluate(context.Background(), tc.code, tc.subtotal)
			require.Error(t, err)
			assert.True(t, IsReason(err, tc.reason), "got %v", err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}

func TestEvaluate_BelowMinimumMessageIncludesAmount(t *testing.T) {
	c := save10()
	c.MinOrderCents = 7500

	_, err := newTestEvaluator(c).Evaluate(context.Background(), "SAVE10", 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "$75.00")
}

func TestEvaluate_MinimumIsInclusive(t *testing.T) {
	c := save10()
	c.MinOrderCents = 7500

	res, err := newTestEvaluator(c).Evaluate(context.Background(), "SAVE10", 7500)
	require.NoError(t, err)
	assert.Equal(t, int64(750), res.DiscountCents)
}

func TestEvaluate_NoMaxUsesMeansUnlimited(t *testing.T) {
	c := save10()
	c.MaxUses = nil
	c.CurrentUses = 1_000_000

	_, err := newTestEvaluator(c).Evaluate(context.Background(), "SAVE10", 100)
	require.NoError(t, err)
}

func TestEvaluate_EmptyCode(t *testing.T) {
	_, err := newTestEvaluator().Evaluate(context.Background(), "   ", 100)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.False(t, IsReason(err, ReasonInvalidCode))
}

func TestEvaluate_LookupFailureIsInternal(t *testing.T) {
	e := NewEvaluator(failingFinder{})
	_, err := e.Evaluate(context.Background(), "SAVE10", 100)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestDiscount_PercentageProperty(t *testing.T) {
	for _, pct := range []float64{1, 5, 10, 12.5, 33, 50, 99.9, 100} {
		for _, sub := range []int64{0, 1, 3, 99, 1003, 5000, 123457} {
			c := Coupon{DiscountType: DiscountPercentage, DiscountValue: pct}
			d := Discount(c, sub)
			assert.LessOrEqual(t, d, sub)
			assert.GreaterOrEqual(t, d, int64(0))
		}
	}
	assert.Equal(t, int64(126), Discount(Coupon{DiscountType: DiscountPercentage, DiscountValue: 12.5}, 1004))
}

func TestDiscount_FixedProperty(t *testing.T) {
	c := Coupon{DiscountType: DiscountFixedAmount, DiscountValue: 1000}
	assert.Equal(t, int64(1000), Discount(c, 5000))
	assert.Equal(t, int64(1000), Discount(c, 1000))
	assert.Equal(t, int64(999), Discount(c, 999))
	assert.Equal(t, int64(0), Discount(c, 0))
}
