package coupons

import (
	"strings"
	"time"
)

// DiscountType selects how DiscountValue is applied.
type DiscountType string

const (
	// DiscountPercentage takes DiscountValue percent of the subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixedAmount takes DiscountValue cents off the subtotal.
	DiscountFixedAmount DiscountType = "fixed_amount"
)

func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixedAmount
}

// Coupon is the item stored in the coupons table, keyed by the uppercased code.
type Coupon struct {
	Code          string       `dynamodbav:"code" json:"code"` // PK
	CouponID      string       `dynamodbav:"coupon_id" json:"id"`
	Description   string       `dynamodbav:"description,omitempty" json:"description"`
	DiscountType  DiscountType `dynamodbav:"discount_type" json:"discountType"`
	DiscountValue float64      `dynamodbav:"discount_value" json:"discountValue"`
	MinOrderCents int64        `dynamodbav:"min_order_cents" json:"minOrderCents"`
	MaxUses       *int         `dynamodbav:"max_uses,omitempty" json:"maxUses,omitempty"`
	CurrentUses   int          `dynamodbav:"current_uses" json:"currentUses"`
	ExpiresAt     *time.Time   `dynamodbav:"expires_at,omitempty" json:"expiresAt,omitempty"`
	IsActive      bool         `dynamodbav:"is_active" json:"isActive"`
	CreatedAt     time.Time    `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt     time.Time    `dynamodbav:"updated_at" json:"updatedAt"`
}

// Summary is the public view returned by the validation endpoint.
type Summary struct {
	ID            string       `json:"id"`
	Code          string       `json:"code"`
	DiscountType  DiscountType `json:"discountType"`
	DiscountValue float64      `json:"discountValue"`
	Description   string       `json:"description"`
}

func (c Coupon) Summary() Summary {
	return Summary{
		ID:            c.CouponID,
		Code:          c.Code,
		DiscountType:  c.DiscountType,
		DiscountValue: c.DiscountValue,
		Description:   c.Description,
	}
}

// NormalizeCode makes codes case-insensitive.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
