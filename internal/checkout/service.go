// Package checkout prices a basket, places the pending order and opens a
// hosted payment session for it.
package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/imrishuroy/go-storefront/internal/apperr"
	"github.com/imrishuroy/go-storefront/internal/coupons"
	"github.com/imrishuroy/go-storefront/internal/idempotency"
	"github.com/imrishuroy/go-storefront/internal/orders"
	"github.com/imrishuroy/go-storefront/internal/payments"
	"github.com/imrishuroy/go-storefront/internal/products"
	"github.com/imrishuroy/go-storefront/internal/shipping"
)

type Catalog interface {
	GetActive(ctx context.Context, id string) (*products.Product, error)
}

type CouponEvaluator interface {
	Evaluate(ctx context.Context, code string, subtotalCents int64) (*coupons.Evaluation, error)
}

type ShippingChooser interface {
	Choose(ctx context.Context, subtotalCents int64, id string) (shipping.Option, error)
}

// OrderWriter is implemented by orders.Store and memstore.Orders.
type OrderWriter interface {
	CreateWithIdempotencyTransaction(ctx context.Context, idempotencyItem interface{}, order *orders.Order) error
	SetCheckoutSession(ctx context.Context, orderID, sessionID string) error
}

type KeyStore interface {
	Get(ctx context.Context, key string) (*idempotency.IdempotencyRecord, error)
	MarkDone(ctx context.Context, key, responseBody string, responseStatus int) error
	MarkFailed(ctx context.Context, key, note string) error
}

type SessionCreator interface {
	CreateSession(ctx context.Context, o orders.Order, idempotencyKey string) (*payments.Session, error)
}

type Metrics interface {
	Incr(ctx context.Context, name string)
}

type Item struct {
	ProductID string
	Quantity  int
}

type Request struct {
	Items           []Item
	CustomerEmail   string
	ShippingAddress orders.Address
	CouponCode      string
	ShippingRateID  string
	// CartID, when set, is cleared once the order is paid.
	CartID string
}

// Response is stored verbatim in the idempotency record and replayed to
// duplicate requests.
type Response struct {
	OrderID     string `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
	TotalCents  int64  `json:"totalCents"`
	CheckoutURL string `json:"checkoutUrl"`
	SessionID   string `json:"sessionId"`
}

type Deps struct {
	Catalog  Catalog
	Coupons  CouponEvaluator
	Shipping ShippingChooser
	Orders   OrderWriter
	Keys     KeyStore
	Payments SessionCreator
	Metrics  Metrics
	Log      logrus.FieldLogger
}

type Service struct {
	deps    Deps
	nowFunc func() time.Time
	newID   func() string
}

func NewService(d Deps) *Service {
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	return &Service{deps: d, nowFunc: time.Now, newID: uuid.NewString}
}

// Checkout places the order for req under the client's idempotency key. The
// returned Replay carries either the fresh 201 response or whatever a previous
// request with the same key earned.
func (s *Service) Checkout(ctx context.Context, key string, req Request) (*idempotency.Replay, error) {
	if strings.TrimSpace(key) == "" {
		return nil, apperr.Validation("Idempotency-Key header is required")
	}
	log := s.deps.Log.WithField("idempotency_key", key)

	if rec, err := s.deps.Keys.Get(ctx, key); err != nil {
		return nil, errors.Wrap(err, "read idempotency record")
	} else if rec != nil {
		replay := rec.Replay()
		return &replay, nil
	}

	order, err := s.price(ctx, req)
	if err != nil {
		return nil, err
	}

	rec := idempotency.IdempotencyRecord{
		IdempotencyKey: key,
		Status:         idempotency.StatusInProgress,
		OrderID:        order.OrderID,
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.CreatedAt,
	}
	if err := s.deps.Orders.CreateWithIdempotencyTransaction(ctx, rec, order); err != nil {
		if errors.Is(err, orders.ErrIdempotencyKeyExists) {
			return s.replay(ctx, key)
		}
		return nil, errors.Wrap(err, "create order")
	}
	log = log.WithFields(logrus.Fields{"order_id": order.OrderID, "order_number": order.OrderNumber})
	log.Info("order placed")

	sess, err := s.deps.Payments.CreateSession(ctx, *order, key)
	if err != nil {
		if merr := s.deps.Keys.MarkFailed(ctx, key, fmt.Sprintf("checkout_session_failed: %v", err)); merr != nil {
			log.WithError(merr).Warn("mark idempotency failed")
		}
		s.incr(ctx, "CheckoutSessionFailed")
		return nil, apperr.Upstream("Failed to create checkout session", err)
	}
	if err := s.deps.Orders.SetCheckoutSession(ctx, order.OrderID, sess.ID); err != nil {
		// the webhook still carries order_id, so the order can be confirmed without it
		log.WithError(err).Warn("checkout session id not recorded")
	}

	body, err := json.Marshal(Response{
		OrderID:     order.OrderID,
		OrderNumber: order.OrderNumber,
		TotalCents:  order.TotalCents,
		CheckoutURL: sess.URL,
		SessionID:   sess.ID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encode checkout response")
	}
	if err := s.deps.Keys.MarkDone(ctx, key, string(body), http.StatusCreated); err != nil {
		log.WithError(err).Warn("mark idempotency done")
	}
	s.incr(ctx, "CheckoutCreated")
	return &idempotency.Replay{Status: http.StatusCreated, Body: body}, nil
}

func (s *Service) replay(ctx context.Context, key string) (*idempotency.Replay, error) {
	rec, err := s.deps.Keys.Get(ctx, key)
	if err != nil {
		return nil, errors.Wrap(err, "read idempotency record")
	}
	if rec == nil {
		return nil, errors.Errorf("idempotency key %s taken but no record found", key)
	}
	replay := rec.Replay()
	return &replay, nil
}

// price builds the pending order from authoritative catalog prices.
func (s *Service) price(ctx context.Context, req Request) (*orders.Order, error) {
	if len(req.Items) == 0 {
		return nil, apperr.Validation("Cart is empty")
	}
	if strings.TrimSpace(req.CustomerEmail) == "" {
		return nil, apperr.Validation("customerEmail is required")
	}

	var (
		lines    []orders.LineItem
		subtotal int64
		wanted   = map[string]int{}
	)
	for _, it := range req.Items {
		if it.Quantity <= 0 {
			return nil, apperr.Validation("quantity must be positive")
		}
		p, err := s.deps.Catalog.GetActive(ctx, it.ProductID)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindNotFound {
				return nil, apperr.Validation(fmt.Sprintf("Product %s is not available", it.ProductID))
			}
			return nil, err
		}
		wanted[p.ProductID] += it.Quantity
		if wanted[p.ProductID] > p.Stock {
			return nil, apperr.Conflict(fmt.Sprintf("Insufficient stock for %s", p.Name))
		}
		lines = append(lines, orders.LineItem{
			ProductID:      p.ProductID,
			Name:           p.Name,
			UnitPriceCents: p.PriceCents,
			Quantity:       it.Quantity,
			ImageRef:       p.ImageRef,
		})
		subtotal += p.PriceCents * int64(it.Quantity)
	}

	var (
		discount   int64
		couponCode string
	)
	if strings.TrimSpace(req.CouponCode) != "" {
		ev, err := s.deps.Coupons.Evaluate(ctx, req.CouponCode, subtotal)
		if err != nil {
			return nil, err
		}
		discount = ev.DiscountCents
		couponCode = ev.Coupon.Code
	}

	opt, err := s.deps.Shipping.Choose(ctx, subtotal, req.ShippingRateID)
	if err != nil {
		return nil, err
	}

	now := s.nowFunc().UTC()
	id := s.newID()
	return &orders.Order{
		OrderID:          id,
		OrderNumber:      orderNumber(now, id),
		CustomerEmail:    strings.TrimSpace(req.CustomerEmail),
		Status:           orders.StatusPending,
		PaymentStatus:    orders.PaymentPending,
		Items:            lines,
		SubtotalCents:    subtotal,
		DiscountCents:    discount,
		ShippingCents:    opt.PriceCents,
		TotalCents:       subtotal - discount + opt.PriceCents,
		CouponCode:       couponCode,
		CartID:           strings.TrimSpace(req.CartID),
		ShippingRateID:   opt.ID,
		ShippingRateName: opt.Name,
		ShippingAddress:  req.ShippingAddress,
		CreatedAt:        now,
	}, nil
}

// orderNumber is the human-facing reference, e.g. ORD-20240131-3F9A2C.
func orderNumber(now time.Time, id string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(id, "-", ""))
	if len(suffix) > 6 {
		suffix = suffix[:6]
	}
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}

func (s *Service) incr(ctx context.Context, name string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.Incr(ctx, name)
	}
}
