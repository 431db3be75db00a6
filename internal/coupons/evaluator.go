package coupons

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/imrishuroy/go-storefront/internal/apperr"
	"github.com/imrishuroy/go-storefront/internal/money"
)

// Reason identifies why a coupon was rejected.
type Reason string

const (
	ReasonInvalidCode       Reason = "invalid_code"
	ReasonInactive          Reason = "inactive"
	ReasonExpired           Reason = "expired"
	ReasonUsageLimitReached Reason = "usage_limit_reached"
	ReasonBelowMinimum      Reason = "below_minimum"
)

// EvaluationError is returned when a coupon cannot be applied to an order.
type EvaluationError struct {
	Reason  Reason
	Message string
}

func (e *EvaluationError) Error() string { return e.Message }

func (e *EvaluationError) ErrorKind() apperr.Kind { return apperr.KindValidation }

// IsReason reports whether err is an EvaluationError with the given reason.
func IsReason(err error, r Reason) bool {
	var ee *EvaluationError
	return errors.As(err, &ee) && ee.Reason == r
}

// Finder looks coupons up by normalized code. It returns (nil, nil) when the
// code does not exist.
type Finder interface {
	GetByCode(ctx context.Context, code string) (*Coupon, error)
}

// Evaluation is a successful coupon check.
type Evaluation struct {
	DiscountCents int64
	Coupon        Coupon
}

// Evaluator validates coupons against an order subtotal. It never mutates
// usage counts.
type Evaluator struct {
	finder  Finder
	nowFunc func() time.Time
}

func NewEvaluator(finder Finder) *Evaluator {
	return &Evaluator{finder: finder, nowFunc: time.Now}
}

// WithClock overrides the evaluation time source.
func (e *Evaluator) WithClock(now func() time.Time) *Evaluator {
	e.nowFunc = now
	return e
}

func (e *Evaluator) Evaluate(ctx context.Context, code string, subtotalCents int64) (*Evaluation, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, apperr.Validation("Coupon code is required")
	}
	if subtotalCents < 0 {
		return nil, apperr.Validation("Subtotal must not be negative")
	}

	c, err := e.finder.GetByCode(ctx, code)
	if err != nil {
		return nil, errors.Wrapf(err, "lookup coupon %s", code)
	}
	if err := Check(c, subtotalCents, e.nowFunc()); err != nil {
		return nil, err
	}

	return &Evaluation{
		DiscountCents: Discount(*c, subtotalCents),
		Coupon:        *c,
	}, nil
}

// Check applies the validation rules in order and stops at the first failure.
// A nil coupon is an unknown code.
func Check(c *Coupon, subtotalCents int64, now time.Time) error {
	switch {
	case c == nil:
		return &EvaluationError{Reason: ReasonInvalidCode, Message: "Invalid coupon code"}
	case !c.IsActive:
		return &EvaluationError{Reason: ReasonInactive, Message: "This coupon is no longer active"}
	case c.ExpiresAt != nil && c.ExpiresAt.Before(now):
		return &EvaluationError{Reason: ReasonExpired, Message: "This coupon has expired"}
	case c.MaxUses != nil && c.CurrentUses >= *c.MaxUses:
		return &EvaluationError{Reason: ReasonUsageLimitReached, Message: "This coupon has reached its usage limit"}
	case c.MinOrderCents > 0 && subtotalCents < c.MinOrderCents:
		return &EvaluationError{
			Reason:  ReasonBelowMinimum,
			Message: fmt.Sprintf("Minimum order amount of %s required for this coupon", money.Format(c.MinOrderCents)),
		}
	}
	return nil
}

// Discount computes the discount for a subtotal, clamped to [0, subtotal].
func Discount(c Coupon, subtotalCents int64) int64 {
	var d int64
	switch c.DiscountType {
	case DiscountPercentage:
		d = money.Percent(subtotalCents, c.DiscountValue)
	case DiscountFixedAmount:
		d = money.FromFloat(c.DiscountValue)
	}
	if d > subtotalCents {
		d = subtotalCents
	}
	if d < 0 {
		d = 0
	}
	return d
}
