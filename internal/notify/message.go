// Package notify builds customer emails and hands them to the worker queue.
package notify

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/imrishuroy/go-storefront/internal/orders"
)

const KindOrderConfirmation = "order_confirmation"

// Message is the queue payload for one email.
type Message struct {
	Kind            string         `json:"kind"`
	OrderID         string         `json:"order_id"`
	OrderNumber     string         `json:"order_number"`
	To              string         `json:"to"`
	Items           []Item         `json:"items"`
	SubtotalCents   int64          `json:"subtotal_cents"`
	DiscountCents   int64          `json:"discount_cents"`
	ShippingCents   int64          `json:"shipping_cents"`
	TotalCents      int64          `json:"total_cents"`
	CouponCode      string         `json:"coupon_code,omitempty"`
	ShippingMethod  string         `json:"shipping_method,omitempty"`
	ShippingAddress orders.Address `json:"shipping_address"`
}

type Item struct {
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

// LineTotalCents is used by the templates.
func (i Item) LineTotalCents() int64 { return i.UnitPriceCents * int64(i.Quantity) }

// OrderConfirmation snapshots what the email needs so the worker never reads the order.
func OrderConfirmation(o orders.Order) Message {
	m := Message{
		Kind:            KindOrderConfirmation,
		OrderID:         o.OrderID,
		OrderNumber:     o.OrderNumber,
		To:              o.CustomerEmail,
		SubtotalCents:   o.SubtotalCents,
		DiscountCents:   o.DiscountCents,
		ShippingCents:   o.ShippingCents,
		TotalCents:      o.TotalCents,
		CouponCode:      o.CouponCode,
		ShippingMethod:  o.ShippingRateName,
		ShippingAddress: o.ShippingAddress,
	}
	for _, it := range o.Items {
		m.Items = append(m.Items, Item{Name: it.Name, Quantity: it.Quantity, UnitPriceCents: it.UnitPriceCents})
	}
	return m
}

// Publisher is satisfied by aws.Publisher.
type Publisher interface {
	Publish(ctx context.Context, messageBody string, attributes map[string]string) error
}

// Notifier enqueues confirmation emails.
type Notifier struct {
	pub Publisher
}

func NewNotifier(pub Publisher) *Notifier {
	return &Notifier{pub: pub}
}

func (n *Notifier) OrderConfirmed(ctx context.Context, o orders.Order) error {
	if o.CustomerEmail == "" {
		return errors.Errorf("order %s has no customer email", o.OrderID)
	}
	body, err := json.Marshal(OrderConfirmation(o))
	if err != nil {
		return errors.Wrap(err, "encode message")
	}
	err = n.pub.Publish(ctx, string(body), map[string]string{
		"kind":     KindOrderConfirmation,
		"order_id": o.OrderID,
	})
	return errors.Wrapf(err, "enqueue confirmation for order %s", o.OrderID)
}
