package memstore

import (
	"context"
	"sort"

	"github.com/imrishuroy/go-storefront/internal/coupons"
	"github.com/imrishuroy/go-storefront/internal/products"
	"github.com/imrishuroy/go-storefront/internal/shipping"
)

type Products struct{ s *Store }

func (r *Products) Get(ctx context.Context, id string) (*products.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *Products) List(ctx context.Context) ([]products.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]products.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (r *Products) Put(ctx context.Context, p products.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.products[p.ProductID] = p
	return nil
}

// Update keeps the stored stock unless withStock is set.
func (r *Products) Update(ctx context.Context, p products.Product, withStock bool) (*products.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.products[p.ProductID]
	if !ok {
		return nil, products.ErrNotFound
	}
	if !withStock {
		p.Stock = cur.Stock
	}
	p.CreatedAt = cur.CreatedAt
	p.UpdatedAt = r.s.nowFunc()
	r.s.products[p.ProductID] = p
	return &p, nil
}

type Coupons struct{ s *Store }

func (r *Coupons) GetByCode(ctx context.Context, code string) (*coupons.Coupon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.coupons[code]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *Coupons) List(ctx context.Context) ([]coupons.Coupon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]coupons.Coupon, 0, len(r.s.coupons))
	for _, c := range r.s.coupons {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *Coupons) Create(ctx context.Context, c coupons.Coupon) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.coupons[c.Code]; ok {
		return coupons.ErrCodeExists
	}
	r.s.coupons[c.Code] = c
	return nil
}

// Update keeps the stored id, usage count and creation time.
func (r *Coupons) Update(ctx context.Context, c coupons.Coupon) (*coupons.Coupon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.coupons[c.Code]
	if !ok {
		return nil, coupons.ErrNotFound
	}
	if c.MaxUses != nil && cur.CurrentUses > *c.MaxUses {
		return nil, coupons.ErrMaxUsesBelowUsage
	}
	c.CouponID = cur.CouponID
	c.CurrentUses = cur.CurrentUses
	c.CreatedAt = cur.CreatedAt
	r.s.coupons[c.Code] = c
	return &c, nil
}

func (r *Coupons) Delete(ctx context.Context, code string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.coupons[code]; !ok {
		return coupons.ErrNotFound
	}
	delete(r.s.coupons, code)
	return nil
}

type ShippingRates struct{ s *Store }

func (r *ShippingRates) ListActive(ctx context.Context) ([]shipping.Rate, error) {
	all, _ := r.List(ctx)
	out := all[:0]
	for _, rate := range all {
		if rate.IsActive {
			out = append(out, rate)
		}
	}
	return out, nil
}

func (r *ShippingRates) List(ctx context.Context) ([]shipping.Rate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]shipping.Rate, 0, len(r.s.rates))
	for _, rate := range r.s.rates {
		out = append(out, rate)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RateID < out[j].RateID })
	return out, nil
}

func (r *ShippingRates) Get(ctx context.Context, id string) (*shipping.Rate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rate, ok := r.s.rates[id]
	if !ok {
		return nil, nil
	}
	return &rate, nil
}

func (r *ShippingRates) Put(ctx context.Context, rate shipping.Rate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.rates[rate.RateID] = rate
	return nil
}

func (r *ShippingRates) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.rates[id]; !ok {
		return shipping.ErrNotFound
	}
	delete(r.s.rates, id)
	return nil
}
