package orders

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/imrishuroy/go-storefront/internal/money"
)

// Event drives a transition.
type Event string

const (
	EventPlaced            Event = "placed"
	EventCheckoutCompleted Event = "checkout_completed"
	EventPaymentFailed     Event = "payment_failed"
	EventChargeRefunded    Event = "charge_refunded"
	EventRefundIssued      Event = "refund_issued"
	EventFulfillment       Event = "fulfillment"
)

// Effect is a command run together with a transition.
type Effect string

const (
	// EffectDecrementStock takes each line's quantity off product stock in the
	// same write as the status change.
	EffectDecrementStock Effect = "decrement_stock"
	// EffectIncrementCouponUsage adds one use to the order's coupon in the same write.
	EffectIncrementCouponUsage Effect = "increment_coupon_usage"
	// EffectSendConfirmation is best-effort and runs after the write commits.
	EffectSendConfirmation Effect = "send_confirmation"
	// EffectClearCart deletes the shopper's cart after the write commits.
	EffectClearCart Effect = "clear_cart"
)

var (
	// ErrAlreadyApplied means the order already reflects the event.
	ErrAlreadyApplied = errors.New("event already applied to order")
	// ErrTransitionNotAllowed means the event is invalid for the order's state.
	ErrTransitionNotAllowed = errors.New("transition not allowed")
)

// Input is an event plus the data it carries.
type Input struct {
	Event           Event
	Actor           string
	PaymentIntentID string
	// AmountCents is the refund amount for EventRefundIssued and the total
	// refunded on the charge for EventChargeRefunded.
	AmountCents int64
	// ChargeCents is the original charge amount for EventChargeRefunded.
	ChargeCents    int64
	RefundID       string
	Reason         string
	TargetStatus   Status
	TrackingNumber string
	TrackingURL    string
	Note           string
	// SkipCouponUsage confirms a payment without counting the coupon, used
	// once the coupon has no uses left.
	SkipCouponUsage bool
}

// Transition is a planned, not yet applied, change to one order. Stores apply
// it only while the order still has FromStatus and FromPayment.
type Transition struct {
	Event           Event
	FromStatus      Status
	FromPayment     PaymentStatus
	ToStatus        Status
	ToPayment       PaymentStatus
	Effects         []Effect
	Note            string
	OrderNote       string
	Actor           string
	PaymentIntentID string
	RefundedCents   int64
	RefundID        string
	TrackingNumber  string
	TrackingURL     string
}

func (t Transition) Has(e Effect) bool {
	for _, x := range t.Effects {
		if x == e {
			return true
		}
	}
	return false
}

// ApplyTo mutates o as the store does when the transition commits.
func (t Transition) ApplyTo(o *Order, now time.Time) {
	o.Status = t.ToStatus
	o.PaymentStatus = t.ToPayment
	o.UpdatedAt = now
	if t.PaymentIntentID != "" {
		o.PaymentIntentID = t.PaymentIntentID
	}
	o.RefundedCents += t.RefundedCents
	if t.OrderNote != "" {
		o.Notes = append(o.Notes, t.OrderNote)
	}
	if t.TrackingNumber != "" {
		o.TrackingNumber = t.TrackingNumber
	}
	if t.TrackingURL != "" {
		o.TrackingURL = t.TrackingURL
	}
	if t.StampsShipped() {
		ts := now
		o.ShippedAt = &ts
	}
	if t.StampsDelivered() {
		ts := now
		o.DeliveredAt = &ts
	}
}

func (t Transition) StampsShipped() bool {
	return t.ToStatus == StatusShipped && t.FromStatus != StatusShipped
}

func (t Transition) StampsDelivered() bool {
	return t.ToStatus == StatusDelivered && t.FromStatus != StatusDelivered
}

// entryKeyLayout is fixed width so sort keys order chronologically.
const entryKeyLayout = "2006-01-02T15:04:05.000000000Z"

// History builds the log entry recorded with the transition.
func (t Transition) History(orderID, entryID string, now time.Time) HistoryEntry {
	return HistoryEntry{
		OrderID:       orderID,
		EntryKey:      now.UTC().Format(entryKeyLayout) + "#" + entryID,
		EntryID:       entryID,
		Event:         t.Event,
		Status:        t.ToStatus,
		PaymentStatus: t.ToPayment,
		Note:          t.Note,
		ChangedBy:     t.Actor,
		CreatedAt:     now,
	}
}

type rule struct {
	event   Event
	status  []Status // nil matches any status
	payment []PaymentStatus
	apply   func(o *Order, in Input, t *Transition) error
}

// rules is the transition table. The first row matching (event, status,
// paymentStatus) wins; no match means the transition is not allowed.
var rules = []rule{
	{EventCheckoutCompleted, []Status{StatusPending}, []PaymentStatus{PaymentPending, PaymentFailed}, confirmPayment},
	{EventPaymentFailed, []Status{StatusPending}, []PaymentStatus{PaymentPending}, failPayment},
	{EventChargeRefunded, nil, []PaymentStatus{PaymentPaid, PaymentPartiallyRefunded, PaymentRefunded}, processorRefund},
	{EventRefundIssued, nil, []PaymentStatus{PaymentPaid, PaymentPartiallyRefunded}, issueRefund},
	{EventFulfillment, []Status{StatusPending, StatusConfirmed, StatusProcessing, StatusShipped}, nil, fulfil},
}

// settled reports whether the order already reflects the event, so that
// re-delivery is a no-op.
var settled = map[Event]func(o *Order, in Input) bool{
	EventCheckoutCompleted: func(o *Order, in Input) bool {
		return paymentIn(o.PaymentStatus, PaymentPaid, PaymentRefunded, PaymentPartiallyRefunded)
	},
	EventPaymentFailed: func(o *Order, in Input) bool {
		return o.PaymentStatus != PaymentPending
	},
	EventChargeRefunded: func(o *Order, in Input) bool {
		return o.Status == StatusRefunded
	},
	EventFulfillment: func(o *Order, in Input) bool {
		return o.Status == in.TargetStatus && in.TrackingNumber == "" && in.TrackingURL == ""
	},
}

var fulfillmentPaths = map[Status][]Status{
	StatusPending:    {StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusShipped, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusShipped},
}

// Plan decides how an event changes the order without touching storage.
func Plan(o *Order, in Input) (Transition, error) {
	if isSettled, ok := settled[in.Event]; ok && isSettled(o, in) {
		return Transition{}, ErrAlreadyApplied
	}
	if o.Status == StatusRefunded {
		return Transition{}, errors.Wrap(ErrTransitionNotAllowed, "order is refunded")
	}

	for _, r := range rules {
		if r.event != in.Event || !statusIn(o.Status, r.status...) || !paymentIn(o.PaymentStatus, r.payment...) {
			continue
		}
		t := Transition{
			Event:       in.Event,
			FromStatus:  o.Status,
			FromPayment: o.PaymentStatus,
			ToStatus:    o.Status,
			ToPayment:   o.PaymentStatus,
			Actor:       in.Actor,
		}
		if err := r.apply(o, in, &t); err != nil {
			return Transition{}, err
		}
		return t, nil
	}
	return Transition{}, errors.Wrapf(ErrTransitionNotAllowed, "%s from status=%s payment=%s", in.Event, o.Status, o.PaymentStatus)
}

func confirmPayment(o *Order, in Input, t *Transition) error {
	t.ToStatus = StatusConfirmed
	t.ToPayment = PaymentPaid
	t.PaymentIntentID = in.PaymentIntentID
	t.Note = "Payment received"
	t.Effects = []Effect{EffectDecrementStock}
	switch {
	case o.CouponCode == "":
	case in.SkipCouponUsage:
		t.Note = fmt.Sprintf("Payment received; coupon %s over its usage limit, use not counted", o.CouponCode)
	default:
		t.Effects = append(t.Effects, EffectIncrementCouponUsage)
	}
	t.Effects = append(t.Effects, EffectSendConfirmation)
	if o.CartID != "" {
		t.Effects = append(t.Effects, EffectClearCart)
	}
	return nil
}

func failPayment(o *Order, in Input, t *Transition) error {
	t.ToPayment = PaymentFailed
	t.Note = "Payment failed"
	if in.Reason != "" {
		t.Note += ": " + in.Reason
	}
	return nil
}

func processorRefund(o *Order, in Input, t *Transition) error {
	charge := in.ChargeCents
	if charge <= 0 {
		charge = o.TotalCents
	}
	t.ToStatus = StatusRefunded
	t.ToPayment = PaymentPartiallyRefunded
	if in.AmountCents >= charge {
		t.ToPayment = PaymentRefunded
	}
	// AmountCents is cumulative and already includes refunds issued here
	if d := in.AmountCents - o.RefundedCents; d > 0 {
		t.RefundedCents = d
	}
	t.Note = fmt.Sprintf("Charge refunded by payment processor (%s of %s)", money.Format(in.AmountCents), money.Format(charge))
	return nil
}

func issueRefund(o *Order, in Input, t *Transition) error {
	if in.AmountCents <= 0 || in.AmountCents > o.RefundableCents() {
		return errors.Wrapf(ErrTransitionNotAllowed, "refund of %d exceeds refundable %d", in.AmountCents, o.RefundableCents())
	}
	t.ToPayment = PaymentPartiallyRefunded
	if o.RefundedCents+in.AmountCents >= o.TotalCents {
		t.ToPayment = PaymentRefunded
	}
	t.RefundedCents = in.AmountCents
	t.RefundID = in.RefundID
	t.Note = fmt.Sprintf("Refund %s issued for %s", in.RefundID, money.Format(in.AmountCents))
	t.OrderNote = fmt.Sprintf("Refunded %s (refund %s)", money.Format(in.AmountCents), in.RefundID)
	if in.Reason != "" {
		t.OrderNote += ". Reason: " + in.Reason
	}
	return nil
}

func fulfil(o *Order, in Input, t *Transition) error {
	if !statusIn(in.TargetStatus, fulfillmentPaths[o.Status]...) {
		return errors.Wrapf(ErrTransitionNotAllowed, "cannot move order from %s to %s", o.Status, in.TargetStatus)
	}
	t.ToStatus = in.TargetStatus
	t.TrackingNumber = in.TrackingNumber
	t.TrackingURL = in.TrackingURL
	t.Note = in.Note
	if t.Note == "" {
		t.Note = fmt.Sprintf("Status changed to %s", in.TargetStatus)
	}
	return nil
}

func statusIn(s Status, set ...Status) bool {
	if set == nil {
		return true
	}
	for _, x := range set {
		if x == s {
			return true
		}
	}
	return false
}

func paymentIn(p PaymentStatus, set ...PaymentStatus) bool {
	if set == nil {
		return true
	}
	for _, x := range set {
		if x == p {
			return true
		}
	}
	return false
}
