// Package wishlist keeps the products a signed-in shopper saved for later.
package wishlist

import (
	"context"
	"slices"

	"github.com/fjod/natal_store/internal/domain"
	"github.com/rs/zerolog/log"
)

type ProductSource interface {
	Get(ctx context.Context, id int64) (*domain.Product, error)
	GetMany(ctx context.Context, ids []int64) (map[int64]*domain.Product, error)
}

type Service struct {
	repo     Repository
	products ProductSource
}

func NewService(repo Repository, products ProductSource) *Service {
	return &Service{repo: repo, products: products}
}

// Toggle saves the product, or removes it when already saved. It reports
// whether the product is saved afterwards.
func (s *Service) Toggle(ctx context.Context, userID string, productID int64) (bool, error) {
	saved, err := s.Contains(ctx, userID, productID)
	if err != nil {
		return false, err
	}
	if saved {
		if err := s.repo.Remove(ctx, userID, productID); err != nil {
			return false, err
		}
		log.Ctx(ctx).Debug().Str("user_id", userID).Int64("product_id", productID).Msg("removed from wishlist")
		return false, nil
	}

	if _, err := s.products.Get(ctx, productID); err != nil {
		return false, err
	}
	if err := s.repo.Add(ctx, userID, productID); err != nil {
		return false, err
	}
	log.Ctx(ctx).Debug().Str("user_id", userID).Int64("product_id", productID).Msg("added to wishlist")
	return true, nil
}

// List returns the saved products that are still on sale.
func (s *Service) List(ctx context.Context, userID string) ([]*domain.Product, error) {
	ids, err := s.repo.ProductIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Product, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	products, err := s.products.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if p, ok := products[id]; ok && p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) Contains(ctx context.Context, userID string, productID int64) (bool, error) {
	ids, err := s.repo.ProductIDs(ctx, userID)
	if err != nil {
		return false, err
	}
	return slices.Contains(ids, productID), nil
}
