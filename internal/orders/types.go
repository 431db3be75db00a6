package orders

import (
	"sort"
	"time"
)

// Status is the fulfilment state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded" // terminal
)

// PaymentStatus tracks the money side of an order.
type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "pending"
	PaymentPaid              PaymentStatus = "paid"
	PaymentFailed            PaymentStatus = "failed"
	PaymentRefunded          PaymentStatus = "refunded"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
)

// LineItem is a product snapshot taken at checkout.
type LineItem struct {
	ProductID      string `dynamodbav:"product_id" json:"productId"`
	Name           string `dynamodbav:"name" json:"name"`
	UnitPriceCents int64  `dynamodbav:"unit_price_cents" json:"unitPriceCents"`
	Quantity       int    `dynamodbav:"quantity" json:"quantity"`
	ImageRef       string `dynamodbav:"image_ref,omitempty" json:"imageRef,omitempty"`
}

// Address is copied into the order at checkout and never follows later edits.
type Address struct {
	Name       string `dynamodbav:"name" json:"name" validate:"required"`
	Line1      string `dynamodbav:"line1" json:"line1" validate:"required"`
	Line2      string `dynamodbav:"line2,omitempty" json:"line2,omitempty"`
	City       string `dynamodbav:"city" json:"city" validate:"required"`
	State      string `dynamodbav:"state,omitempty" json:"state,omitempty"`
	PostalCode string `dynamodbav:"postal_code" json:"postalCode" validate:"required"`
	Country    string `dynamodbav:"country" json:"country" validate:"required,len=2"`
	Phone      string `dynamodbav:"phone,omitempty" json:"phone,omitempty"`
}

// Order represents the item stored in the orders table.
type Order struct {
	OrderID           string        `dynamodbav:"order_id" json:"id"`                // PK
	OrderNumber       string        `dynamodbav:"order_number" json:"orderNumber"`   // GSI order_number-index
	CustomerEmail     string        `dynamodbav:"customer_email" json:"customerEmail"`
	Status            Status        `dynamodbav:"status" json:"status"`
	PaymentStatus     PaymentStatus `dynamodbav:"payment_status" json:"paymentStatus"`
	Items             []LineItem    `dynamodbav:"items" json:"items"`
	SubtotalCents     int64         `dynamodbav:"subtotal_cents" json:"subtotalCents"`
	DiscountCents     int64         `dynamodbav:"discount_cents" json:"discountCents"`
	ShippingCents     int64         `dynamodbav:"shipping_cents" json:"shippingCents"`
	TotalCents        int64         `dynamodbav:"total_cents" json:"totalCents"`
	CouponCode        string        `dynamodbav:"coupon_code,omitempty" json:"couponCode,omitempty"`
	CartID            string        `dynamodbav:"cart_id,omitempty" json:"cartId,omitempty"`
	ShippingRateID    string        `dynamodbav:"shipping_rate_id" json:"shippingRateId"`
	ShippingRateName  string        `dynamodbav:"shipping_rate_name,omitempty" json:"shippingRateName,omitempty"`
	ShippingAddress   Address       `dynamodbav:"shipping_address" json:"shippingAddress"`
	CheckoutSessionID string        `dynamodbav:"checkout_session_id,omitempty" json:"checkoutSessionId,omitempty"`
	PaymentIntentID   string        `dynamodbav:"payment_intent_id,omitempty" json:"paymentIntentId,omitempty"` // GSI payment_intent_id-index
	RefundedCents     int64         `dynamodbav:"refunded_cents" json:"refundedCents"`
	TrackingNumber    string        `dynamodbav:"tracking_number,omitempty" json:"trackingNumber,omitempty"`
	TrackingURL       string        `dynamodbav:"tracking_url,omitempty" json:"trackingUrl,omitempty"`
	Notes             []string      `dynamodbav:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt         time.Time     `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt         time.Time     `dynamodbav:"updated_at" json:"updatedAt"`
	ShippedAt         *time.Time    `dynamodbav:"shipped_at,omitempty" json:"shippedAt,omitempty"`
	DeliveredAt       *time.Time    `dynamodbav:"delivered_at,omitempty" json:"deliveredAt,omitempty"`
}

// RefundableCents is what is left to refund.
func (o Order) RefundableCents() int64 {
	if r := o.TotalCents - o.RefundedCents; r > 0 {
		return r
	}
	return 0
}

// StockChange is the quantity to take off one product.
type StockChange struct {
	ProductID string
	Quantity  int
}

// StockChanges aggregates line quantities per product, sorted by product id.
func (o Order) StockChanges() []StockChange {
	qty := map[string]int{}
	for _, it := range o.Items {
		qty[it.ProductID] += it.Quantity
	}
	out := make([]StockChange, 0, len(qty))
	for id, q := range qty {
		out = append(out, StockChange{ProductID: id, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// HistoryEntry is an append-only record of one applied transition, stored in
// the history table under (order_id, entry_key).
type HistoryEntry struct {
	OrderID       string        `dynamodbav:"order_id" json:"orderId"`  // PK
	EntryKey      string        `dynamodbav:"entry_key" json:"-"`       // SK: created_at#entry_id
	EntryID       string        `dynamodbav:"entry_id" json:"id"`
	Event         Event         `dynamodbav:"event" json:"event"`
	Status        Status        `dynamodbav:"status" json:"status"`
	PaymentStatus PaymentStatus `dynamodbav:"payment_status" json:"paymentStatus"`
	Note          string        `dynamodbav:"note,omitempty" json:"note,omitempty"`
	ChangedBy     string        `dynamodbav:"changed_by" json:"changedBy"`
	CreatedAt     time.Time     `dynamodbav:"created_at" json:"createdAt"`
}

// View is an order with its history, as returned by tracking and admin reads.
type View struct {
	Order
	History []HistoryEntry `json:"history"`
}
