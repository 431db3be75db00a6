// Package payments talks to Stripe: webhook verification and translation,
// checkout sessions and refunds.
package payments

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/imrishuroy/go-storefront/internal/apperr"
	"github.com/imrishuroy/go-storefront/internal/orders"
)

const metaOrderID = "order_id"

const (
	eventCheckoutCompleted    stripe.EventType = "checkout.session.completed"
	eventAsyncPaymentSucceded stripe.EventType = "checkout.session.async_payment_succeeded"
	eventAsyncPaymentFailed   stripe.EventType = "checkout.session.async_payment_failed"
	eventPaymentFailed        stripe.EventType = "payment_intent.payment_failed"
	eventChargeRefunded       stripe.EventType = "charge.refunded"
)

// Verifier checks the Stripe-Signature header against the endpoint secret.
type Verifier struct {
	secret    string
	tolerance time.Duration
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret, tolerance: webhook.DefaultTolerance}
}

// Verify returns the event when the signature is valid. Any failure is a
// Validation error.
func (v *Verifier) Verify(payload []byte, header string) (stripe.Event, error) {
	if v.secret == "" {
		return stripe.Event{}, errors.New("webhook secret is not configured")
	}
	ev, err := webhook.ConstructEventWithOptions(payload, header, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, &apperr.Error{Kind: apperr.KindValidation, Message: "Invalid signature", Err: err}
	}
	return ev, nil
}

// Translate maps a Stripe event onto an order payment event. ok is false for
// event types the store does not act on.
func Translate(ev stripe.Event) (pe orders.PaymentEvent, ok bool, err error) {
	if ev.Data == nil {
		return pe, false, errors.Errorf("event %s has no data", ev.ID)
	}
	pe.ID = ev.ID

	switch ev.Type {
	case eventCheckoutCompleted, eventAsyncPaymentSucceded, eventAsyncPaymentFailed:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &sess); err != nil {
			return pe, false, errors.Wrapf(err, "decode checkout session in %s", ev.ID)
		}
		// delayed payment methods complete the session before the money arrives
		if ev.Type == eventCheckoutCompleted && sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
			return pe, false, nil
		}
		pe.Type = orders.EventCheckoutCompleted
		if ev.Type == eventAsyncPaymentFailed {
			pe.Type = orders.EventPaymentFailed
			pe.Reason = "asynchronous payment failed"
		}
		pe.OrderID = sess.Metadata[metaOrderID]
		if pe.OrderID == "" {
			pe.OrderID = sess.ClientReferenceID
		}
		if sess.PaymentIntent != nil {
			pe.PaymentIntentID = sess.PaymentIntent.ID
		}
		pe.CustomerEmail = sess.CustomerEmail
		if sess.CustomerDetails != nil && sess.CustomerDetails.Email != "" {
			pe.CustomerEmail = sess.CustomerDetails.Email
		}
		return pe, true, nil

	case eventPaymentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
			return pe, false, errors.Wrapf(err, "decode payment intent in %s", ev.ID)
		}
		pe.Type = orders.EventPaymentFailed
		pe.OrderID = pi.Metadata[metaOrderID]
		pe.PaymentIntentID = pi.ID
		if pi.LastPaymentError != nil {
			pe.Reason = pi.LastPaymentError.Msg
		}
		return pe, true, nil

	case eventChargeRefunded:
		var ch stripe.Charge
		if err := json.Unmarshal(ev.Data.Raw, &ch); err != nil {
			return pe, false, errors.Wrapf(err, "decode charge in %s", ev.ID)
		}
		pe.Type = orders.EventChargeRefunded
		pe.OrderID = ch.Metadata[metaOrderID]
		if ch.PaymentIntent != nil {
			pe.PaymentIntentID = ch.PaymentIntent.ID
		}
		pe.AmountCents = ch.AmountRefunded
		pe.ChargeCents = ch.Amount
		return pe, true, nil
	}
	return pe, false, nil
}
