package memstore

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/imrishuroy/go-storefront/internal/idempotency"
	"github.com/imrishuroy/go-storefront/internal/orders"
)

// Orders implements the orders repository and the checkout order writer.
type Orders struct{ s *Store }

func (r *Orders) CreateWithIdempotencyTransaction(ctx context.Context, idempotencyItem interface{}, o *orders.Order) error {
	var rec idempotency.IdempotencyRecord
	switch v := idempotencyItem.(type) {
	case idempotency.IdempotencyRecord:
		rec = v
	case *idempotency.IdempotencyRecord:
		rec = *v
	default:
		return errors.Errorf("unsupported idempotency item %T", idempotencyItem)
	}

	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowFunc()
	if s.liveRecord(rec.IdempotencyKey) {
		return orders.ErrIdempotencyKeyExists
	}
	if _, ok := s.orders[o.OrderID]; ok {
		return errors.Errorf("order %s already exists", o.OrderID)
	}
	if rec.ExpiresAt == 0 && s.ttl > 0 {
		rec.ExpiresAt = now.Add(s.ttl).Unix()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now

	s.idem[rec.IdempotencyKey] = rec
	s.orders[o.OrderID] = cloneOrder(*o)
	placed := orders.Transition{
		Event:     orders.EventPlaced,
		ToStatus:  o.Status,
		ToPayment: o.PaymentStatus,
		Note:      "Order placed",
		Actor:     "customer",
	}
	s.history[o.OrderID] = append(s.history[o.OrderID], placed.History(o.OrderID, s.newID(), now))
	return nil
}

func (r *Orders) SetCheckoutSession(ctx context.Context, orderID, sessionID string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return errors.Errorf("order %s not found", orderID)
	}
	o.CheckoutSessionID = sessionID
	o.UpdatedAt = s.nowFunc()
	s.orders[orderID] = o
	return nil
}

func (r *Orders) Get(ctx context.Context, orderID string) (*orders.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[orderID]
	if !ok {
		return nil, nil
	}
	c := cloneOrder(o)
	return &c, nil
}

func (r *Orders) GetByNumber(ctx context.Context, number string) (*orders.Order, error) {
	return r.find(func(o orders.Order) bool { return o.OrderNumber == number }), nil
}

func (r *Orders) GetByPaymentIntent(ctx context.Context, paymentIntentID string) (*orders.Order, error) {
	return r.find(func(o orders.Order) bool { return o.PaymentIntentID == paymentIntentID }), nil
}

func (r *Orders) find(match func(orders.Order) bool) *orders.Order {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.orders {
		if match(o) {
			c := cloneOrder(o)
			return &c
		}
	}
	return nil
}

func (r *Orders) List(ctx context.Context) ([]orders.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]orders.Order, 0, len(r.s.orders))
	for _, o := range r.s.orders {
		out = append(out, cloneOrder(o))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *Orders) History(ctx context.Context, orderID string) ([]orders.HistoryEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]orders.HistoryEntry(nil), r.s.history[orderID]...), nil
}

// Apply mirrors the DynamoDB transaction: the status guard, the coupon
// usage limit, history entry, stock and coupon effects commit together or
// not at all.
func (r *Orders) Apply(ctx context.Context, o *orders.Order, t orders.Transition) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.orders[o.OrderID]
	if !ok || cur.Status != t.FromStatus || cur.PaymentStatus != t.FromPayment {
		return orders.ErrStatusMismatch
	}
	now := s.nowFunc()

	counted := t.Has(orders.EffectIncrementCouponUsage) && cur.CouponCode != ""
	if counted {
		c, ok := s.coupons[cur.CouponCode]
		if !ok || (c.MaxUses != nil && c.CurrentUses >= *c.MaxUses) {
			return orders.ErrCouponLimitReached
		}
	}

	if t.Has(orders.EffectDecrementStock) {
		for _, ch := range cur.StockChanges() {
			p := s.products[ch.ProductID]
			p.ProductID = ch.ProductID
			p.Stock -= ch.Quantity
			p.UpdatedAt = now
			s.products[ch.ProductID] = p
		}
	}
	if counted {
		c := s.coupons[cur.CouponCode]
		c.CurrentUses++
		c.UpdatedAt = now
		s.coupons[cur.CouponCode] = c
	}

	t.ApplyTo(&cur, now)
	s.orders[o.OrderID] = cur
	s.history[o.OrderID] = append(s.history[o.OrderID], t.History(o.OrderID, s.newID(), now))
	*o = cloneOrder(cur)
	return nil
}

func cloneOrder(o orders.Order) orders.Order {
	o.Items = append([]orders.LineItem(nil), o.Items...)
	if o.Notes != nil {
		o.Notes = append([]string(nil), o.Notes...)
	}
	if o.ShippedAt != nil {
		t := *o.ShippedAt
		o.ShippedAt = &t
	}
	if o.DeliveredAt != nil {
		t := *o.DeliveredAt
		o.DeliveredAt = &t
	}
	return o
}
