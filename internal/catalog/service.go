package catalog

import (
	"context"
	"slices"
	"sort"
	"strings"

	"github.com/fjod/natal_store/internal/apperr"
	"github.com/fjod/natal_store/internal/domain"
	"github.com/fjod/natal_store/internal/inventory"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// MinProductImages is the minimum gallery size for a product.
const MinProductImages = 3

// StockLedger is the reservation ledger. The catalog mirrors persisted stock
// into it and reads back the units held by checkouts in flight.
type StockLedger interface {
	SetStock(productID int64, quantity int32) error
	RemoveProduct(productID int64)
	GetStock(productIDs []int64) ([]inventory.StockInfo, error)
}

type Service struct {
	repo  Repository
	stock StockLedger
}

func NewService(repo Repository, stock StockLedger) *Service {
	return &Service{repo: repo, stock: stock}
}

type Filter struct {
	Category string
	Search   string
}

// ProductInput is the back-office form for creating and editing products.
// Specifications are entered one per line.
type ProductInput struct {
	Name           string           `json:"name"`
	Price          decimal.Decimal  `json:"price"`
	OldPrice       *decimal.Decimal `json:"old_price"`
	Category       string           `json:"category"`
	Images         []string         `json:"images"`
	Description    string           `json:"description"`
	Specifications string           `json:"specifications"`
	IsFeatured     bool             `json:"is_featured"`
	Stock          int32            `json:"stock"`
	IsActive       *bool            `json:"is_active"`
}

// Categories returns the standard categories followed by any custom ones
// created from the back-office, sorted.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := slices.Clone(domain.StandardCategories)
	var custom []string
	for _, p := range products {
		if !slices.Contains(out, p.Category) && !slices.Contains(custom, p.Category) {
			custom = append(custom, p.Category)
		}
	}
	sort.Strings(custom)
	return append(out, custom...), nil
}

// List returns the active products in category (any when empty or "Todas")
// whose name contains search, ignoring case and accents.
func (s *Service) List(ctx context.Context, f Filter) ([]*domain.Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Product, 0, len(products))
	for _, p := range products {
		if !p.IsActive {
			continue
		}
		if f.Category != "" && f.Category != domain.CategoryAll && p.Category != f.Category {
			continue
		}
		if !matches(p.Name, f.Search) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Service) Featured(ctx context.Context, search string) ([]*domain.Product, error) {
	products, err := s.List(ctx, Filter{Search: search})
	if err != nil {
		return nil, err
	}
	out := products[:0]
	for _, p := range products {
		if p.IsFeatured {
			out = append(out, p)
		}
	}
	return out, nil
}

// Get returns an active product. Its Stock excludes units held by open
// reservations.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, ErrProductNotFound
	}
	if s.stock != nil {
		infos, err := s.stock.GetStock([]int64{id})
		if err != nil {
			return nil, err
		}
		if len(infos) == 1 {
			p.Stock = min(p.Stock, infos[0].Available())
		}
	}
	return p, nil
}

// GetMany returns the requested products keyed by id, inactive ones
// included. Unknown ids are absent from the map.
func (s *Service) GetMany(ctx context.Context, ids []int64) (map[int64]*domain.Product, error) {
	products, err := s.repo.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]*domain.Product, len(products))
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

// MissingProducts returns the ids that do not reference an existing product.
func (s *Service) MissingProducts(ctx context.Context, ids []int64) ([]int64, error) {
	found, err := s.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	var missing []int64
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// AdminSearch matches term against name or category over every product,
// active or not.
func (s *Service) AdminSearch(ctx context.Context, term string) ([]*domain.Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Product, 0, len(products))
	for _, p := range products {
		if matches(p.Name, term) || matches(p.Category, term) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) AdminGet(ctx context.Context, id int64) (*domain.Product, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in ProductInput) (*domain.Product, error) {
	p := &domain.Product{IsActive: true}
	if err := apply(p, in); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.mirrorStock(ctx, p)
	log.Ctx(ctx).Info().Int64("product_id", p.ID).Msg("product created")
	return p, nil
}

// Update replaces the editable fields of a product. Rating and reviews are
// kept from the stored product.
func (s *Service) Update(ctx context.Context, id int64, in ProductInput) (*domain.Product, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(p, in); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.mirrorStock(ctx, p)
	log.Ctx(ctx).Info().Int64("product_id", p.ID).Msg("product updated")
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.stock != nil {
		s.stock.RemoveProduct(id)
	}
	log.Ctx(ctx).Info().Int64("product_id", id).Msg("product deleted")
	return nil
}

// AdjustStock persists a stock change, e.g. -qty after a paid order or +qty
// after a cancellation. The new level is mirrored into the ledger.
func (s *Service) AdjustStock(ctx context.Context, id int64, delta int32) (int32, error) {
	stock, err := s.repo.AdjustStock(ctx, id, delta)
	if err != nil {
		return 0, err
	}
	s.mirrorStock(ctx, &domain.Product{ID: id, Stock: stock})
	return stock, nil
}

// SyncInventory loads every product's persisted stock into the ledger.
func (s *Service) SyncInventory(ctx context.Context) error {
	if s.stock == nil {
		return nil
	}
	products, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	for _, p := range products {
		if err := s.stock.SetStock(p.ID, p.Stock); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) mirrorStock(ctx context.Context, p *domain.Product) {
	if s.stock == nil {
		return
	}
	if err := s.stock.SetStock(p.ID, p.Stock); err != nil {
		log.Ctx(ctx).Error().Err(err).Int64("product_id", p.ID).Msg("failed to mirror stock")
	}
}

func apply(p *domain.Product, in ProductInput) error {
	fields := map[string]string{}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		fields["name"] = "Campo obrigatório."
	}
	if !in.Price.IsPositive() {
		fields["price"] = "Informe um preço válido."
	}
	if in.Stock < 0 {
		fields["stock"] = "O estoque não pode ser negativo."
	}
	category := strings.TrimSpace(in.Category)
	if category == "" || category == domain.CategoryAll {
		fields["category"] = msgMissingCategory
	}
	var images []string
	for _, img := range in.Images {
		if img = strings.TrimSpace(img); img != "" {
			images = append(images, img)
		}
	}
	if len(images) < MinProductImages {
		fields["images"] = msgNotEnoughImages
	}
	if len(fields) > 0 {
		return apperr.Validation(fields)
	}

	p.Name = name
	p.Price = in.Price.Round(2)
	p.OldPrice = nil
	if in.OldPrice != nil && in.OldPrice.IsPositive() {
		old := in.OldPrice.Round(2)
		p.OldPrice = &old
	}
	p.Category = category
	p.Images = images
	p.Image = images[0]
	p.Description = strings.TrimSpace(in.Description)
	p.Specifications = splitLines(in.Specifications)
	p.IsFeatured = in.IsFeatured
	p.Stock = in.Stock
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	return nil
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
