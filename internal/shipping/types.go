package shipping

import "time"

// Rate is an admin-configured shipping tier stored in the shipping_rates table.
// MinOrderCents and MaxOrderCents bound an inclusive subtotal band; nil means
// unbounded on that side.
type Rate struct {
	RateID           string    `dynamodbav:"rate_id" json:"id"` // PK
	Name             string    `dynamodbav:"name" json:"name"`
	Description      string    `dynamodbav:"description,omitempty" json:"description"`
	RateCents        int64     `dynamodbav:"rate_cents" json:"rateCents"`
	MinOrderCents    *int64    `dynamodbav:"min_order_cents,omitempty" json:"minOrderCents,omitempty"`
	MaxOrderCents    *int64    `dynamodbav:"max_order_cents,omitempty" json:"maxOrderCents,omitempty"`
	EstimatedDaysMin int       `dynamodbav:"estimated_days_min" json:"estimatedDaysMin"`
	EstimatedDaysMax int       `dynamodbav:"estimated_days_max" json:"estimatedDaysMax"`
	IsActive         bool      `dynamodbav:"is_active" json:"isActive"`
	CreatedAt        time.Time `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt        time.Time `dynamodbav:"updated_at" json:"updatedAt"`
}

// Applies reports whether subtotal falls inside the rate's band.
func (r Rate) Applies(subtotalCents int64) bool {
	if r.MinOrderCents != nil && subtotalCents < *r.MinOrderCents {
		return false
	}
	if r.MaxOrderCents != nil && subtotalCents > *r.MaxOrderCents {
		return false
	}
	return true
}

// Option is a shipping choice offered at checkout.
type Option struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	PriceCents       int64  `json:"price_cents"`
	EstimatedDaysMin int    `json:"estimated_days_min"`
	EstimatedDaysMax int    `json:"estimated_days_max"`
}

func (r Rate) Option() Option {
	return Option{
		ID:               r.RateID,
		Name:             r.Name,
		Description:      r.Description,
		PriceCents:       r.RateCents,
		EstimatedDaysMin: r.EstimatedDaysMin,
		EstimatedDaysMax: r.EstimatedDaysMax,
	}
}

// Fallback is offered when no configured rate matches.
var Fallback = Option{
	ID:               "standard",
	Name:             "Standard Shipping",
	Description:      "Delivered in 5-7 business days",
	PriceCents:       599,
	EstimatedDaysMin: 5,
	EstimatedDaysMax: 7,
}
