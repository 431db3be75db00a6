package orders

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/imrishuroy/go-storefront/internal/apperr"
	"github.com/imrishuroy/go-storefront/internal/idempotency"
)

// maxApplyAttempts bounds re-read/re-plan rounds after a lost compare-and-set.
const maxApplyAttempts = 3

// Repository is the persistence the service needs. Apply must commit the
// transition atomically and return ErrStatusMismatch when the order moved on.
type Repository interface {
	Get(ctx context.Context, orderID string) (*Order, error)
	GetByNumber(ctx context.Context, number string) (*Order, error)
	GetByPaymentIntent(ctx context.Context, paymentIntentID string) (*Order, error)
	List(ctx context.Context) ([]Order, error)
	History(ctx context.Context, orderID string) ([]HistoryEntry, error)
	Apply(ctx context.Context, o *Order, t Transition) error
}

// EventLog remembers processor event ids that were already handled.
type EventLog interface {
	CreateIfNotExists(ctx context.Context, key, orderID string) (bool, error)
	Get(ctx context.Context, key string) (*idempotency.IdempotencyRecord, error)
	MarkDone(ctx context.Context, key, responseBody string, responseStatus int) error
	MarkFailed(ctx context.Context, key, note string) error
}

// Notifier delivers the order confirmation. It is best-effort.
type Notifier interface {
	OrderConfirmed(ctx context.Context, o Order) error
}

// CartClearer removes the cart an order was bought from.
type CartClearer interface {
	Clear(ctx context.Context, cartID string) error
}

type RefundRequest struct {
	OrderID         string
	PaymentIntentID string
	AmountCents     int64
	Reason          string
	IdempotencyKey  string
}

type RefundResult struct {
	RefundID string
	Status   string
}

// Refunder creates refunds at the payment processor.
type Refunder interface {
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
}

type Metrics interface {
	Incr(ctx context.Context, name string)
}

// PaymentEvent is a verified processor event translated to order terms.
type PaymentEvent struct {
	ID              string
	Type            Event
	OrderID         string
	PaymentIntentID string
	// AmountCents is the cumulative refunded amount for charge refunds.
	AmountCents   int64
	ChargeCents   int64
	CustomerEmail string
	Reason        string
}

// Outcome reports what HandlePaymentEvent did.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
)

type Deps struct {
	Repo     Repository
	Events   EventLog
	Notifier Notifier
	Carts    CartClearer
	Refunder Refunder
	Metrics  Metrics
	Log      logrus.FieldLogger
}

type Service struct {
	repo     Repository
	events   EventLog
	notifier Notifier
	carts    CartClearer
	refunder Refunder
	metrics  Metrics
	log      logrus.FieldLogger
}

func NewService(d Deps) *Service {
	log := d.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		repo:     d.Repo,
		events:   d.Events,
		notifier: d.Notifier,
		carts:    d.Carts,
		refunder: d.Refunder,
		metrics:  d.Metrics,
		log:      log,
	}
}

// HandlePaymentEvent applies a processor event to its order at most once.
// Unknown orders and events that do not fit the order's state are logged and
// acknowledged so the processor stops retrying them.
func (s *Service) HandlePaymentEvent(ctx context.Context, ev PaymentEvent) (Outcome, error) {
	log := s.log.WithFields(logrus.Fields{"event_id": ev.ID, "event": ev.Type, "order_id": ev.OrderID})

	key := ""
	if ev.ID != "" && s.events != nil {
		key = "evt:" + ev.ID
		if s.seen(ctx, log, key, ev.OrderID) {
			log.Info("duplicate processor event")
			s.incr(ctx, "WebhookDuplicate")
			return OutcomeDuplicate, nil
		}
	}

	outcome, err := s.handle(ctx, log, ev)
	if key != "" {
		if err != nil {
			if merr := s.events.MarkFailed(ctx, key, err.Error()); merr != nil {
				log.WithError(merr).Warn("mark event failed")
			}
		} else if merr := s.events.MarkDone(ctx, key, string(outcome), 200); merr != nil {
			log.WithError(merr).Warn("mark event done")
		}
	}
	return outcome, err
}

// seen reports whether the event id was already processed to completion.
// Log failures fall through to the transition guard.
func (s *Service) seen(ctx context.Context, log logrus.FieldLogger, key, orderID string) bool {
	created, err := s.events.CreateIfNotExists(ctx, key, orderID)
	if err != nil {
		log.WithError(err).Warn("record event id")
		return false
	}
	if created {
		return false
	}
	rec, err := s.events.Get(ctx, key)
	if err != nil || rec == nil {
		return false
	}
	return rec.Status == idempotency.StatusDone
}

func (s *Service) handle(ctx context.Context, log logrus.FieldLogger, ev PaymentEvent) (Outcome, error) {
	o, err := s.resolve(ctx, ev)
	if err != nil {
		return "", err
	}
	if o == nil {
		log.Warn("payment event for unknown order")
		return OutcomeIgnored, nil
	}
	log = log.WithField("order_id", o.OrderID)

	in := Input{
		Event:           ev.Type,
		Actor:           "payment_processor",
		PaymentIntentID: ev.PaymentIntentID,
		AmountCents:     ev.AmountCents,
		ChargeCents:     ev.ChargeCents,
		Reason:          ev.Reason,
	}
	t, err := s.apply(ctx, o, in)
	switch {
	case errors.Is(err, ErrAlreadyApplied):
		log.Info("event already applied")
		s.incr(ctx, "WebhookDuplicate")
		return OutcomeDuplicate, nil
	case errors.Is(err, ErrTransitionNotAllowed):
		log.WithError(err).Warn("event ignored")
		return OutcomeIgnored, nil
	case err != nil:
		return "", err
	}

	log.WithFields(logrus.Fields{"status": o.Status, "payment_status": o.PaymentStatus}).Info("order transitioned")
	s.incr(ctx, "OrderTransition")

	if t.Has(EffectSendConfirmation) {
		if o.CustomerEmail == "" {
			o.CustomerEmail = ev.CustomerEmail
		}
		s.sendConfirmation(ctx, log, *o)
	}
	if t.Has(EffectClearCart) && s.carts != nil {
		if err := s.carts.Clear(ctx, o.CartID); err != nil {
			log.WithError(err).WithField("cart_id", o.CartID).Warn("cart not cleared")
		}
	}
	return OutcomeApplied, nil
}

func (s *Service) resolve(ctx context.Context, ev PaymentEvent) (*Order, error) {
	if ev.OrderID != "" {
		o, err := s.repo.Get(ctx, ev.OrderID)
		if err != nil {
			return nil, errors.Wrapf(err, "get order %s", ev.OrderID)
		}
		if o != nil {
			return o, nil
		}
	}
	if ev.PaymentIntentID != "" {
		o, err := s.repo.GetByPaymentIntent(ctx, ev.PaymentIntentID)
		if err != nil {
			return nil, errors.Wrapf(err, "get order by payment intent %s", ev.PaymentIntentID)
		}
		return o, nil
	}
	return nil, nil
}

// apply plans and commits in a loop: a lost compare-and-set re-reads the
// order and plans again against its new state.
func (s *Service) apply(ctx context.Context, o *Order, in Input) (Transition, error) {
	for attempt := 1; ; attempt++ {
		t, err := Plan(o, in)
		if err != nil {
			return Transition{}, err
		}
		err = s.repo.Apply(ctx, o, t)
		if err == nil {
			return t, nil
		}
		if errors.Is(err, ErrCouponLimitReached) && !in.SkipCouponUsage {
			// the customer already paid for the discounted order
			s.log.WithFields(logrus.Fields{"order_id": o.OrderID, "coupon": o.CouponCode}).
				Warn("coupon over its usage limit; confirming without counting the use")
			s.incr(ctx, "CouponOverUse")
			in.SkipCouponUsage = true
			continue
		}
		if !errors.Is(err, ErrStatusMismatch) {
			return Transition{}, errors.Wrapf(err, "apply %s to order %s", in.Event, o.OrderID)
		}
		if attempt >= maxApplyAttempts {
			return Transition{}, errors.Wrapf(err, "apply %s to order %s after %d attempts", in.Event, o.OrderID, attempt)
		}
		fresh, gerr := s.repo.Get(ctx, o.OrderID)
		if gerr != nil {
			return Transition{}, errors.Wrapf(gerr, "re-read order %s", o.OrderID)
		}
		if fresh == nil {
			return Transition{}, errors.Errorf("order %s disappeared", o.OrderID)
		}
		*o = *fresh
	}
}

func (s *Service) sendConfirmation(ctx context.Context, log logrus.FieldLogger, o Order) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.OrderConfirmed(ctx, o); err != nil {
		log.WithError(err).Warn("order confirmation not sent")
		s.incr(ctx, "ConfirmationFailed")
	}
}

type RefundCommand struct {
	OrderID string
	// AmountCents nil means the remaining refundable amount.
	AmountCents *int64
	Reason      string
	Actor       string
}

type RefundOutcome struct {
	OrderID       string        `json:"orderId"`
	Status        Status        `json:"status"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	RefundID      string        `json:"refundId"`
	AmountCents   int64         `json:"amountCents"`
}

// Refund creates a processor refund and records it on the order.
func (s *Service) Refund(ctx context.Context, cmd RefundCommand) (*RefundOutcome, error) {
	o, err := s.mustGet(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if o.Status == StatusRefunded {
		return nil, apperr.Conflict("Order has already been refunded")
	}
	if o.PaymentStatus != PaymentPaid && o.PaymentStatus != PaymentPartiallyRefunded {
		return nil, apperr.Conflict(fmt.Sprintf("Order payment is %s; only paid orders can be refunded", o.PaymentStatus))
	}
	remaining := o.RefundableCents()
	amount := remaining
	if cmd.AmountCents != nil {
		amount = *cmd.AmountCents
	}
	if amount <= 0 {
		return nil, apperr.Validation("Refund amount must be positive")
	}
	if amount > remaining {
		return nil, apperr.Validation(fmt.Sprintf("Refund amount exceeds refundable balance of %d cents", remaining))
	}
	if o.PaymentIntentID == "" {
		return nil, apperr.Conflict("Order has no captured payment")
	}
	if s.refunder == nil {
		return nil, errors.New("refunds are not configured")
	}

	log := s.log.WithFields(logrus.Fields{"order_id": o.OrderID, "amount_cents": amount})
	res, err := s.refunder.Refund(ctx, RefundRequest{
		OrderID:         o.OrderID,
		PaymentIntentID: o.PaymentIntentID,
		AmountCents:     amount,
		Reason:          cmd.Reason,
		IdempotencyKey:  fmt.Sprintf("refund-%s-%d-%d", o.OrderID, o.RefundedCents, amount),
	})
	if err != nil {
		log.WithError(err).Error("processor refund failed")
		return nil, apperr.Upstream("Failed to create refund", err)
	}

	actor := cmd.Actor
	if actor == "" {
		actor = "admin"
	}
	_, err = s.apply(ctx, o, Input{
		Event:       EventRefundIssued,
		Actor:       actor,
		AmountCents: amount,
		RefundID:    res.RefundID,
		Reason:      cmd.Reason,
	})
	switch {
	case err != nil && o.Status == StatusRefunded:
		// the processor's charge.refunded event for this refund committed first
		log.WithError(err).WithField("refund_id", res.RefundID).Warn("refund already recorded by processor event")
	case err != nil:
		// the money has moved; the order record is now behind the processor
		log.WithError(err).WithField("refund_id", res.RefundID).Error("refund created but order not updated")
		if errors.Is(err, ErrTransitionNotAllowed) || errors.Is(err, ErrAlreadyApplied) {
			return nil, apperr.Conflict("Order changed while the refund was being issued")
		}
		return nil, err
	}
	log.WithField("refund_id", res.RefundID).Info("refund issued")
	s.incr(ctx, "RefundIssued")

	return &RefundOutcome{
		OrderID:       o.OrderID,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		RefundID:      res.RefundID,
		AmountCents:   amount,
	}, nil
}

type FulfillmentCommand struct {
	OrderID        string
	Status         Status
	TrackingNumber string
	TrackingURL    string
	Note           string
	Actor          string
}

// UpdateFulfillment moves an order along the shipping path.
func (s *Service) UpdateFulfillment(ctx context.Context, cmd FulfillmentCommand) (*Order, error) {
	o, err := s.mustGet(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	actor := cmd.Actor
	if actor == "" {
		actor = "admin"
	}
	_, err = s.apply(ctx, o, Input{
		Event:          EventFulfillment,
		Actor:          actor,
		TargetStatus:   cmd.Status,
		TrackingNumber: cmd.TrackingNumber,
		TrackingURL:    cmd.TrackingURL,
		Note:           cmd.Note,
	})
	switch {
	case errors.Is(err, ErrAlreadyApplied):
		return o, nil
	case errors.Is(err, ErrTransitionNotAllowed):
		return nil, apperr.Conflict(fmt.Sprintf("Cannot change order from %s to %s", o.Status, cmd.Status))
	case err != nil:
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"order_id": o.OrderID, "status": o.Status, "actor": actor}).Info("fulfillment updated")
	return o, nil
}

// Get returns an order with its history.
func (s *Service) Get(ctx context.Context, orderID string) (*View, error) {
	o, err := s.mustGet(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, o)
}

// Track returns an order by its customer-facing number.
func (s *Service) Track(ctx context.Context, number string) (*View, error) {
	o, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %s", number)
	}
	if o == nil {
		return nil, apperr.NotFound("Order not found")
	}
	return s.view(ctx, o)
}

func (s *Service) List(ctx context.Context) ([]Order, error) {
	out, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return out, nil
}

func (s *Service) view(ctx context.Context, o *Order) (*View, error) {
	h, err := s.repo.History(ctx, o.OrderID)
	if err != nil {
		return nil, errors.Wrapf(err, "history for order %s", o.OrderID)
	}
	if h == nil {
		h = []HistoryEntry{}
	}
	return &View{Order: *o, History: h}, nil
}

func (s *Service) mustGet(ctx context.Context, orderID string) (*Order, error) {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %s", orderID)
	}
	if o == nil {
		return nil, apperr.NotFound("Order not found")
	}
	return o, nil
}

func (s *Service) incr(ctx context.Context, name string) {
	if s.metrics != nil {
		s.metrics.Incr(ctx, name)
	}
}
