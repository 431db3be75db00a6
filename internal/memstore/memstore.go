// Package memstore is an in-process backend for every repository. All tables
// share one mutex, so a transition and its effects commit atomically just as
// they do in a DynamoDB transaction.
package memstore

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/imrishuroy/go-storefront/internal/coupons"
	"github.com/imrishuroy/go-storefront/internal/idempotency"
	"github.com/imrishuroy/go-storefront/internal/orders"
	"github.com/imrishuroy/go-storefront/internal/products"
	"github.com/imrishuroy/go-storefront/internal/shipping"
)

type Store struct {
	mu      sync.Mutex
	nowFunc func() time.Time
	newID   func() string
	ttl     time.Duration

	orders   map[string]orders.Order
	history  map[string][]orders.HistoryEntry
	products map[string]products.Product
	coupons  map[string]coupons.Coupon
	rates    map[string]shipping.Rate
	carts    map[string][]byte
	idem     map[string]idempotency.IdempotencyRecord
}

// New returns an empty store. ttl bounds the life of idempotency records.
func New(ttl time.Duration) *Store {
	return &Store{
		nowFunc:  time.Now,
		newID:    uuid.NewString,
		ttl:      ttl,
		orders:   map[string]orders.Order{},
		history:  map[string][]orders.HistoryEntry{},
		products: map[string]products.Product{},
		coupons:  map[string]coupons.Coupon{},
		rates:    map[string]shipping.Rate{},
		carts:    map[string][]byte{},
		idem:     map[string]idempotency.IdempotencyRecord{},
	}
}

// WithClock replaces the clock, for tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.nowFunc = now
	return s
}

func (s *Store) Orders() *Orders               { return &Orders{s} }
func (s *Store) Products() *Products           { return &Products{s} }
func (s *Store) Coupons() *Coupons             { return &Coupons{s} }
func (s *Store) ShippingRates() *ShippingRates { return &ShippingRates{s} }
func (s *Store) Carts() *Carts                 { return &Carts{s} }
func (s *Store) Idempotency() *Idempotency     { return &Idempotency{s} }
