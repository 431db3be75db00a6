package products

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/imrishuroy/go-storefront/internal/apperr"
)

type Repository interface {
	Get(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context) ([]Product, error)
	Put(ctx context.Context, p Product) error
	Update(ctx context.Context, p Product, withStock bool) (*Product, error)
}

// Service serves the catalog to shoppers and to the admin console.
type Service struct {
	repo    Repository
	nowFunc func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, nowFunc: time.Now}
}

// Get returns any product, active or not.
func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %s", id)
	}
	if p == nil {
		return nil, apperr.NotFound("product not found")
	}
	return p, nil
}

// GetActive hides inactive products from shoppers.
func (s *Service) GetActive(ctx context.Context, id string) (*Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, apperr.NotFound("product not found")
	}
	return p, nil
}

// List returns products sorted by name; activeOnly filters the storefront view.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]Product, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	out := make([]Product, 0, len(all))
	for _, p := range all {
		if activeOnly && !p.IsActive {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Service) Create(ctx context.Context, p Product) (*Product, error) {
	if err := validate(p); err != nil {
		return nil, err
	}
	now := s.nowFunc()
	p.ProductID = uuid.NewString()
	p.CreatedAt = now
	p.UpdatedAt = now
	if err := s.repo.Put(ctx, p); err != nil {
		return nil, errors.Wrap(err, "create product")
	}
	return &p, nil
}

// Update edits the catalog fields of a product. A nil stock leaves the stored
// stock as it is.
func (s *Service) Update(ctx context.Context, id string, p Product, stock *int) (*Product, error) {
	if stock != nil {
		p.Stock = *stock
	}
	if err := validate(p); err != nil {
		return nil, err
	}
	p.ProductID = id
	stored, err := s.repo.Update(ctx, p, stock != nil)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("product not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "update product")
	}
	return stored, nil
}

func validate(p Product) error {
	switch {
	case p.Name == "":
		return apperr.Validation("name is required")
	case p.PriceCents < 0:
		return apperr.Validation("priceCents must not be negative")
	case p.Stock < 0:
		return apperr.Validation("stock must not be negative")
	}
	return nil
}
