package validation

import (
	"time"

	"github.com/imrishuroy/go-storefront/internal/checkout"
	"github.com/imrishuroy/go-storefront/internal/coupons"
	"github.com/imrishuroy/go-storefront/internal/orders"
	"github.com/imrishuroy/go-storefront/internal/products"
	"github.com/imrishuroy/go-storefront/internal/shipping"
)

// CouponValidateRequest is the payload for POST /coupons/validate. An empty
// code is reported by the evaluator itself.
type CouponValidateRequest struct {
	Code          string `json:"code"`
	SubtotalCents int64  `json:"subtotalCents" validate:"min=0"`
}

// ShippingRatesRequest is the payload for POST /shipping/rates.
type ShippingRatesRequest struct {
	SubtotalCents int64 `json:"subtotalCents" validate:"min=0"`
}

type CheckoutItem struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

// CheckoutRequest is the payload for POST /checkout.
type CheckoutRequest struct {
	Items           []CheckoutItem `json:"items" validate:"required,min=1,unique=ProductID,dive"`
	CustomerEmail   string         `json:"customerEmail" validate:"required,email"`
	ShippingAddress orders.Address `json:"shippingAddress"`
	CouponCode      string         `json:"couponCode,omitempty" validate:"max=64"`
	ShippingRateID  string         `json:"shippingRateId,omitempty"`
	CartID          string         `json:"cartId,omitempty" validate:"max=128"`
}

func (r CheckoutRequest) Checkout() checkout.Request {
	items := make([]checkout.Item, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, checkout.Item{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return checkout.Request{
		Items:           items,
		CustomerEmail:   r.CustomerEmail,
		ShippingAddress: r.ShippingAddress,
		CouponCode:      r.CouponCode,
		ShippingRateID:  r.ShippingRateID,
		CartID:          r.CartID,
	}
}

// CartItemRequest is the payload for POST /carts/:cartId/items.
type CartItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

// QuantityRequest sets a cart line quantity; zero or less removes the line.
type QuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// RefundRequest is the admin refund payload. Amount is in cents and defaults
// to the remaining refundable amount.
type RefundRequest struct {
	OrderID string `json:"orderId" validate:"required"`
	Amount  *int64 `json:"amount,omitempty" validate:"omitempty,gt=0"`
	Reason  string `json:"reason,omitempty" validate:"max=500"`
}

type FulfillmentRequest struct {
	Status         orders.Status `json:"status" validate:"required,oneof=processing shipped delivered cancelled"`
	TrackingNumber string        `json:"trackingNumber,omitempty" validate:"max=100"`
	TrackingURL    string        `json:"trackingUrl,omitempty" validate:"omitempty,url"`
	Note           string        `json:"note,omitempty" validate:"max=500"`
}

// CouponRequest creates or replaces a coupon.
type CouponRequest struct {
	Code          string     `json:"code" validate:"required,max=64"`
	Description   string     `json:"description" validate:"max=500"`
	DiscountType  string     `json:"discountType" validate:"required,oneof=percentage fixed_amount"`
	DiscountValue float64    `json:"discountValue" validate:"gt=0"`
	MinOrderCents int64      `json:"minOrderCents" validate:"min=0"`
	MaxUses       *int       `json:"maxUses,omitempty" validate:"omitempty,min=1"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	IsActive      *bool      `json:"isActive,omitempty"`
}

func (r CouponRequest) Coupon() coupons.Coupon {
	return coupons.Coupon{
		Code:          r.Code,
		Description:   r.Description,
		DiscountType:  coupons.DiscountType(r.DiscountType),
		DiscountValue: r.DiscountValue,
		MinOrderCents: r.MinOrderCents,
		MaxUses:       r.MaxUses,
		ExpiresAt:     r.ExpiresAt,
		IsActive:      active(r.IsActive),
	}
}

// ShippingRateRequest creates or replaces a shipping rate. Omitted band
// limits leave that side open.
type ShippingRateRequest struct {
	Name             string `json:"name" validate:"required,max=100"`
	Description      string `json:"description" validate:"max=500"`
	RateCents        int64  `json:"rateCents" validate:"min=0"`
	MinOrderCents    *int64 `json:"minOrderCents,omitempty" validate:"omitempty,min=0"`
	MaxOrderCents    *int64 `json:"maxOrderCents,omitempty" validate:"omitempty,min=0"`
	EstimatedDaysMin int    `json:"estimatedDaysMin" validate:"min=0"`
	EstimatedDaysMax int    `json:"estimatedDaysMax" validate:"min=0"`
	IsActive         *bool  `json:"isActive,omitempty"`
}

func (r ShippingRateRequest) Rate() shipping.Rate {
	return shipping.Rate{
		Name:             r.Name,
		Description:      r.Description,
		RateCents:        r.RateCents,
		MinOrderCents:    r.MinOrderCents,
		MaxOrderCents:    r.MaxOrderCents,
		EstimatedDaysMin: r.EstimatedDaysMin,
		EstimatedDaysMax: r.EstimatedDaysMax,
		IsActive:         active(r.IsActive),
	}
}

type ProductRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	PriceCents  int64  `json:"priceCents" validate:"min=0"`
	Stock       *int   `json:"stock" validate:"omitempty,min=0"`
	ImageRef    string `json:"imageRef,omitempty" validate:"max=500"`
	IsActive    *bool  `json:"isActive,omitempty"`
}

// Product converts the request; an omitted stock is zero.
func (r ProductRequest) Product() products.Product {
	var stock int
	if r.Stock != nil {
		stock = *r.Stock
	}
	return products.Product{
		Name:        r.Name,
		Description: r.Description,
		PriceCents:  r.PriceCents,
		Stock:       stock,
		ImageRef:    r.ImageRef,
		IsActive:    active(r.IsActive),
	}
}

// active defaults an omitted flag to true.
func active(b *bool) bool {
	return b == nil || *b
}
