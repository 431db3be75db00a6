package coupons

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/imrishuroy/go-storefront/internal/apperr"
)

// Repository is the admin-side persistence contract for coupons.
type Repository interface {
	Finder
	List(ctx context.Context) ([]Coupon, error)
	Create(ctx context.Context, c Coupon) error
	// Update writes the editable fields and returns the stored coupon.
	Update(ctx context.Context, c Coupon) (*Coupon, error)
	Delete(ctx context.Context, code string) error
}

// Service implements the admin coupon operations.
type Service struct {
	repo    Repository
	nowFunc func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, nowFunc: time.Now}
}

func (s *Service) List(ctx context.Context) ([]Coupon, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, code string) (*Coupon, error) {
	c, err := s.repo.GetByCode(ctx, NormalizeCode(code))
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.NotFound("coupon not found")
	}
	return c, nil
}

// Create stores a new coupon. The code is uppercased and usage starts at zero.
func (s *Service) Create(ctx context.Context, c Coupon) (*Coupon, error) {
	if err := validate(c); err != nil {
		return nil, err
	}
	now := s.nowFunc()
	c.Code = NormalizeCode(c.Code)
	c.CouponID = uuid.NewString()
	c.CurrentUses = 0
	c.CreatedAt = now
	c.UpdatedAt = now

	if err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, ErrCodeExists) {
			return nil, apperr.Conflict("A coupon with this code already exists")
		}
		return nil, errors.Wrap(err, "create coupon")
	}
	return &c, nil
}

// Update edits an existing coupon. Code, id, usage count and creation time are
// kept from the stored record.
func (s *Service) Update(ctx context.Context, code string, c Coupon) (*Coupon, error) {
	c.Code = NormalizeCode(code)
	if err := validate(c); err != nil {
		return nil, err
	}
	c.UpdatedAt = s.nowFunc()

	stored, err := s.repo.Update(ctx, c)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil, apperr.NotFound("coupon not found")
	case errors.Is(err, ErrMaxUsesBelowUsage):
		return nil, apperr.Validation("maxUses cannot be lower than the uses already counted")
	case err != nil:
		return nil, errors.Wrap(err, "update coupon")
	}
	return stored, nil
}

func (s *Service) Delete(ctx context.Context, code string) error {
	if err := s.repo.Delete(ctx, NormalizeCode(code)); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFound("coupon not found")
		}
		return errors.Wrap(err, "delete coupon")
	}
	return nil
}

func validate(c Coupon) error {
	switch {
	case NormalizeCode(c.Code) == "":
		return apperr.Validation("Coupon code is required")
	case !c.DiscountType.Valid():
		return apperr.Validation("discountType must be percentage or fixed_amount")
	case c.DiscountValue <= 0:
		return apperr.Validation("discountValue must be positive")
	case c.DiscountType == DiscountPercentage && c.DiscountValue > 100:
		return apperr.Validation("percentage discount cannot exceed 100")
	case c.MinOrderCents < 0:
		return apperr.Validation("minOrderCents must not be negative")
	case c.MaxUses != nil && *c.MaxUses < 1:
		return apperr.Validation("maxUses must be at least 1")
	}
	return nil
}
