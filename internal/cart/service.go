package cart

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/imrishuroy/go-storefront/internal/apperr"
	"github.com/imrishuroy/go-storefront/internal/products"
)

type Repository interface {
	Load(ctx context.Context, cartID string) (*Cart, error)
	Save(ctx context.Context, cartID string, c *Cart) error
	Delete(ctx context.Context, cartID string) error
}

// Catalog resolves products shoppers may buy.
type Catalog interface {
	GetActive(ctx context.Context, id string) (*products.Product, error)
}

// Service applies cart actions and persists the result. Prices are taken from
// the catalog when a product is first added.
type Service struct {
	repo    Repository
	catalog Catalog
}

func NewService(repo Repository, catalog Catalog) *Service {
	return &Service{repo: repo, catalog: catalog}
}

func (s *Service) Get(ctx context.Context, cartID string) (*Cart, error) {
	c, err := s.repo.Load(ctx, cartID)
	if err != nil {
		return nil, errors.Wrapf(err, "load cart %s", cartID)
	}
	return c, nil
}

func (s *Service) AddItem(ctx context.Context, cartID, productID string, quantity int) (*Cart, error) {
	if quantity <= 0 {
		return nil, apperr.Validation("quantity must be positive")
	}
	p, err := s.catalog.GetActive(ctx, productID)
	if err != nil {
		return nil, err
	}
	c, err := s.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	have := 0
	if l, ok := c.Line(productID); ok {
		have = l.Quantity
	}
	if err := checkStock(p, have+quantity); err != nil {
		return nil, err
	}
	if err := c.Add(Line{
		ProductID:      p.ProductID,
		Name:           p.Name,
		UnitPriceCents: p.PriceCents,
		Quantity:       quantity,
		ImageRef:       p.ImageRef,
	}); err != nil {
		return nil, apperr.Validation(err.Error())
	}
	return c, s.save(ctx, cartID, c)
}

func (s *Service) SetQuantity(ctx context.Context, cartID, productID string, quantity int) (*Cart, error) {
	c, err := s.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if _, ok := c.Line(productID); !ok {
		return nil, apperr.NotFound("product is not in the cart")
	}
	if quantity > 0 {
		p, err := s.catalog.GetActive(ctx, productID)
		if err != nil {
			return nil, err
		}
		if err := checkStock(p, quantity); err != nil {
			return nil, err
		}
	}
	c.SetQuantity(productID, quantity)
	return c, s.save(ctx, cartID, c)
}

func (s *Service) RemoveItem(ctx context.Context, cartID, productID string) (*Cart, error) {
	c, err := s.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	c.Remove(productID)
	return c, s.save(ctx, cartID, c)
}

func (s *Service) Clear(ctx context.Context, cartID string) error {
	if err := s.repo.Delete(ctx, cartID); err != nil {
		return errors.Wrapf(err, "clear cart %s", cartID)
	}
	return nil
}

func (s *Service) save(ctx context.Context, cartID string, c *Cart) error {
	if err := s.repo.Save(ctx, cartID, c); err != nil {
		return errors.Wrapf(err, "save cart %s", cartID)
	}
	return nil
}

func checkStock(p *products.Product, want int) error {
	if want > p.Stock {
		return apperr.Conflict(fmt.Sprintf("Only %d of %s left in stock", p.Stock, p.Name))
	}
	return nil
}
