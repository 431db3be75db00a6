package shipping

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/imrishuroy/go-storefront/internal/apperr"
)

// ActiveLister returns the rates currently marked active.
type ActiveLister interface {
	ListActive(ctx context.Context) ([]Rate, error)
}

// Selector picks the shipping options offered for a subtotal.
type Selector struct {
	rates ActiveLister
}

func NewSelector(rates ActiveLister) *Selector {
	return &Selector{rates: rates}
}

// Select returns every active rate whose band contains subtotalCents, cheapest
// first. It never returns an empty slice.
func (s *Selector) Select(ctx context.Context, subtotalCents int64) ([]Option, error) {
	if subtotalCents < 0 {
		return nil, apperr.Validation("Subtotal must not be negative")
	}
	rates, err := s.rates.ListActive(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list active shipping rates")
	}
	return Applicable(rates, subtotalCents), nil
}

// Choose returns the option with the given id among those offered for the
// subtotal, or the cheapest one when id is empty.
func (s *Selector) Choose(ctx context.Context, subtotalCents int64, id string) (Option, error) {
	opts, err := s.Select(ctx, subtotalCents)
	if err != nil {
		return Option{}, err
	}
	if id == "" {
		return opts[0], nil
	}
	for _, o := range opts {
		if o.ID == id {
			return o, nil
		}
	}
	return Option{}, apperr.Validation("Selected shipping rate is not available for this order")
}

// Applicable filters rates to the inclusive band and sorts by price, then name.
// Inactive rates are skipped even if the caller passed them in.
func Applicable(rates []Rate, subtotalCents int64) []Option {
	out := make([]Option, 0, len(rates))
	for _, r := range rates {
		if r.IsActive && r.Applies(subtotalCents) {
			out = append(out, r.Option())
		}
	}
	if len(out) == 0 {
		return []Option{Fallback}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PriceCents != out[j].PriceCents {
			return out[i].PriceCents < out[j].PriceCents
		}
		return out[i].Name < out[j].Name
	})
	return out
}
