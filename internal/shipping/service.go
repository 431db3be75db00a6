package shipping

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/imrishuroy/go-storefront/internal/apperr"
)

// Repository is the admin-side persistence contract for shipping rates.
type Repository interface {
	ActiveLister
	List(ctx context.Context) ([]Rate, error)
	Get(ctx context.Context, id string) (*Rate, error)
	Put(ctx context.Context, r Rate) error
	Delete(ctx context.Context, id string) error
}

// Service implements the admin shipping-rate operations. Band overlap between
// rates is allowed.
type Service struct {
	repo    Repository
	nowFunc func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, nowFunc: time.Now}
}

func (s *Service) List(ctx context.Context) ([]Rate, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*Rate, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, apperr.NotFound("shipping rate not found")
	}
	return r, nil
}

func (s *Service) Create(ctx context.Context, r Rate) (*Rate, error) {
	if err := validate(r); err != nil {
		return nil, err
	}
	now := s.nowFunc()
	r.RateID = uuid.NewString()
	r.CreatedAt = now
	r.UpdatedAt = now
	if err := s.repo.Put(ctx, r); err != nil {
		return nil, errors.Wrap(err, "create shipping rate")
	}
	return &r, nil
}

func (s *Service) Update(ctx context.Context, id string, r Rate) (*Rate, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validate(r); err != nil {
		return nil, err
	}
	r.RateID = existing.RateID
	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = s.nowFunc()
	if err := s.repo.Put(ctx, r); err != nil {
		return nil, errors.Wrap(err, "update shipping rate")
	}
	return &r, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFound("shipping rate not found")
		}
		return errors.Wrap(err, "delete shipping rate")
	}
	return nil
}

func validate(r Rate) error {
	switch {
	case r.Name == "":
		return apperr.Validation("name is required")
	case r.RateCents < 0:
		return apperr.Validation("rateCents must not be negative")
	case r.MinOrderCents != nil && *r.MinOrderCents < 0:
		return apperr.Validation("minOrderCents must not be negative")
	case r.MinOrderCents != nil && r.MaxOrderCents != nil && *r.MinOrderCents > *r.MaxOrderCents:
		return apperr.Validation("minOrderCents must not exceed maxOrderCents")
	case r.EstimatedDaysMin < 0 || r.EstimatedDaysMax < r.EstimatedDaysMin:
		return apperr.Validation("estimated day range is invalid")
	}
	return nil
}
