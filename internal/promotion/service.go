// Package promotion manages percentage-off campaigns over sets of products.
package promotion

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/fjod/natal_store/internal/apperr"
	"github.com/fjod/natal_store/internal/domain"
	"github.com/rs/zerolog/log"
)

const MaxDiscountPercentage = 90

var ErrPromotionNotFound = apperr.NotFound("promotion_not_found", "Promoção não encontrada.")

// ProductChecker reports which product ids do not exist in the catalog.
type ProductChecker interface {
	MissingProducts(ctx context.Context, ids []int64) ([]int64, error)
}

type Input struct {
	Title              string
	DiscountPercentage int
	StartDate          time.Time
	EndDate            time.Time
	BannerURL          string
	ProductIDs         []int64
}

type Service struct {
	repo     Repository
	products ProductChecker
	now      func() time.Time
}

func NewService(repo Repository, products ProductChecker) *Service {
	return &Service{repo: repo, products: products, now: time.Now}
}

func (s *Service) Create(ctx context.Context, in Input) (*domain.Promotion, error) {
	fields := map[string]string{}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		fields["title"] = "Campo obrigatório."
	}
	if in.DiscountPercentage <= 0 || in.DiscountPercentage > MaxDiscountPercentage {
		fields["discount_percentage"] = fmt.Sprintf("O desconto deve estar entre 1%% e %d%%.", MaxDiscountPercentage)
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		fields["dates"] = "Informe o período da promoção."
	} else if in.EndDate.Before(in.StartDate) {
		fields["dates"] = "A data final deve ser posterior à data inicial."
	}

	ids := dedupe(in.ProductIDs)
	if len(ids) == 0 {
		fields["product_ids"] = "Selecione pelo menos um produto."
	} else {
		missing, err := s.products.MissingProducts(ctx, ids)
		if err != nil {
			return nil, err
		}
		if len(missing) > 0 {
			fields["product_ids"] = fmt.Sprintf("Produtos inexistentes: %v.", missing)
		}
	}
	if len(fields) > 0 {
		return nil, apperr.Validation(fields)
	}

	p := &domain.Promotion{
		Title:              title,
		DiscountPercentage: in.DiscountPercentage,
		StartDate:          in.StartDate,
		EndDate:            in.EndDate,
		Active:             true,
		BannerURL:          strings.TrimSpace(in.BannerURL),
		ProductIDs:         ids,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().Int64("promotion_id", p.ID).Int("discount", p.DiscountPercentage).Msg("promotion created")
	return p, nil
}

func (s *Service) List(ctx context.Context) ([]*domain.Promotion, error) {
	return s.repo.List(ctx)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) Deactivate(ctx context.Context, id int64) error {
	return s.repo.SetActive(ctx, id, false)
}

// ActiveDiscounts returns the best running discount percentage for each of
// productIDs that has one. A nil productIDs means every product.
func (s *Service) ActiveDiscounts(ctx context.Context, productIDs []int64) (map[int64]int, error) {
	now := s.now()
	running, err := s.repo.ListRunning(ctx, now)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]int)
	for _, p := range running {
		if !p.IsRunning(now) {
			continue
		}
		ids := productIDs
		if ids == nil {
			ids = p.ProductIDs
		}
		for _, id := range ids {
			if p.Covers(id) && p.DiscountPercentage > out[id] {
				out[id] = p.DiscountPercentage
			}
		}
	}
	return out, nil
}

// ExpireFinished deactivates promotions that ended before now.
func (s *Service) ExpireFinished(ctx context.Context) error {
	n, err := s.repo.DeactivateEndedBefore(ctx, s.now())
	if err != nil {
		return err
	}
	if n > 0 {
		log.Ctx(ctx).Info().Int64("count", n).Msg("expired finished promotions")
	}
	return nil
}

func dedupe(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
