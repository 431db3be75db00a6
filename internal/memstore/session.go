package memstore

import (
	"context"

	"github.com/pkg/errors"

	"github.com/imrishuroy/go-storefront/internal/cart"
	"github.com/imrishuroy/go-storefront/internal/idempotency"
)

// Carts keeps the serialized snapshot, like the DynamoDB store does.
type Carts struct{ s *Store }

func (r *Carts) Load(ctx context.Context, cartID string) (*cart.Cart, error) {
	r.s.mu.Lock()
	data, ok := r.s.carts[cartID]
	r.s.mu.Unlock()
	c := cart.New()
	if !ok {
		return c, nil
	}
	if err := c.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *Carts) Save(ctx context.Context, cartID string, c *cart.Cart) error {
	data, err := c.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "encode cart")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.carts[cartID] = data
	return nil
}

func (r *Carts) Delete(ctx context.Context, cartID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.carts, cartID)
	return nil
}

// Idempotency matches idempotency.Store. Expired records count as absent.
type Idempotency struct{ s *Store }

func (r *Idempotency) CreateIfNotExists(ctx context.Context, key, orderID string) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.liveRecord(key) {
		return false, nil
	}
	now := s.nowFunc()
	s.idem[key] = idempotency.IdempotencyRecord{
		IdempotencyKey: key,
		Status:         idempotency.StatusInProgress,
		OrderID:        orderID,
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(s.ttl).Unix(),
	}
	return true, nil
}

func (r *Idempotency) Get(ctx context.Context, key string) (*idempotency.IdempotencyRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !r.s.liveRecord(key) {
		return nil, nil
	}
	rec := r.s.idem[key]
	return &rec, nil
}

func (r *Idempotency) MarkDone(ctx context.Context, key, responseBody string, responseStatus int) error {
	return r.update(key, func(rec *idempotency.IdempotencyRecord) {
		rec.Status = idempotency.StatusDone
		rec.ResponseBody = responseBody
		rec.ResponseStatus = responseStatus
	})
}

func (r *Idempotency) MarkFailed(ctx context.Context, key, note string) error {
	return r.update(key, func(rec *idempotency.IdempotencyRecord) {
		rec.Status = idempotency.StatusFailed
		rec.Note = note
	})
}

func (r *Idempotency) update(key string, fn func(*idempotency.IdempotencyRecord)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.idem[key]
	if !ok {
		return errors.Errorf("idempotency key %s not found", key)
	}
	fn(&rec)
	rec.UpdatedAt = r.s.nowFunc()
	r.s.idem[key] = rec
	return nil
}

// liveRecord must be called with mu held.
func (s *Store) liveRecord(key string) bool {
	rec, ok := s.idem[key]
	if !ok {
		return false
	}
	return rec.ExpiresAt == 0 || rec.ExpiresAt > s.nowFunc().Unix()
}
