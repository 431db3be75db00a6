package payments

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/imrishuroy/go-storefront/internal/orders"
)

// SessionAPI is the part of the Stripe client that creates checkout sessions.
type SessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// RefundAPI is the part of the Stripe client that creates refunds.
type RefundAPI interface {
	New(params *stripe.RefundParams) (*stripe.Refund, error)
}

// NewClient builds a Stripe API client for the secret key.
func NewClient(secretKey string) *client.API {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return sc
}

type CheckoutConfig struct {
	SuccessURL string
	CancelURL  string
	Currency   string
}

// Session is what the storefront needs back from a created session.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Checkout creates hosted checkout sessions for pending orders.
type Checkout struct {
	api SessionAPI
	cfg CheckoutConfig
}

func NewCheckout(api SessionAPI, cfg CheckoutConfig) *Checkout {
	return &Checkout{api: api, cfg: cfg}
}

// CreateSession charges exactly the order total. Itemized lines are sent when
// no discount applies; otherwise a single line carries the discounted total.
func (c *Checkout) CreateSession(ctx context.Context, o orders.Order, idempotencyKey string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(c.cfg.SuccessURL),
		CancelURL:         stripe.String(c.cfg.CancelURL),
		ClientReferenceID: stripe.String(o.OrderID),
		LineItems:         c.lineItems(o),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{metaOrderID: o.OrderID},
		},
	}
	if o.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(o.CustomerEmail)
	}
	params.Context = ctx
	params.AddMetadata(metaOrderID, o.OrderID)
	params.AddMetadata("order_number", o.OrderNumber)
	if idempotencyKey != "" {
		params.SetIdempotencyKey("checkout-" + idempotencyKey)
	}

	sess, err := c.api.New(params)
	if err != nil {
		return nil, errors.Wrap(err, "create checkout session")
	}
	return &Session{ID: sess.ID, URL: sess.URL}, nil
}

func (c *Checkout) lineItems(o orders.Order) []*stripe.CheckoutSessionLineItemParams {
	line := func(name string, cents, qty int64) *stripe.CheckoutSessionLineItemParams {
		return &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(c.cfg.Currency),
				UnitAmount:  stripe.Int64(cents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{Name: stripe.String(name)},
			},
			Quantity: stripe.Int64(qty),
		}
	}
	if o.DiscountCents > 0 {
		return []*stripe.CheckoutSessionLineItemParams{line(fmt.Sprintf("Order %s", o.OrderNumber), o.TotalCents, 1)}
	}
	out := make([]*stripe.CheckoutSessionLineItemParams, 0, len(o.Items)+1)
	for _, it := range o.Items {
		out = append(out, line(it.Name, it.UnitPriceCents, int64(it.Quantity)))
	}
	if o.ShippingCents > 0 {
		name := o.ShippingRateName
		if name == "" {
			name = "Shipping"
		}
		out = append(out, line(name, o.ShippingCents, 1))
	}
	return out
}

// Refunder issues refunds against a payment intent.
type Refunder struct {
	api RefundAPI
}

func NewRefunder(api RefundAPI) *Refunder {
	return &Refunder{api: api}
}

func (r *Refunder) Refund(ctx context.Context, req orders.RefundRequest) (*orders.RefundResult, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.PaymentIntentID),
		Amount:        stripe.Int64(req.AmountCents),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.Context = ctx
	params.AddMetadata(metaOrderID, req.OrderID)
	if req.Reason != "" {
		params.AddMetadata("reason", req.Reason)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	ref, err := r.api.New(params)
	if err != nil {
		var serr *stripe.Error
		if errors.As(err, &serr) && serr.Msg != "" {
			return nil, errors.New(serr.Msg)
		}
		return nil, errors.Wrap(err, "create refund")
	}
	return &orders.RefundResult{RefundID: ref.ID, Status: string(ref.Status)}, nil
}
