package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fjod/natal_store/internal/apperr"
	"github.com/fjod/natal_store/internal/domain"
	"github.com/fjod/natal_store/internal/shipping"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

var (
	ErrInvalidQuantity   = apperr.Invalid("invalid_quantity", "Quantidade inválida. Escolha entre 1 e 99 unidades.")
	ErrItemNotInCart     = apperr.NotFound("item_not_in_cart", "Item não encontrado no carrinho.")
	ErrInsufficientStock = apperr.Conflict("insufficient_stock", "Quantidade indisponível em estoque.")
)

// ProductSource resolves product ids against the catalog. Get must fail for
// inactive products.
type ProductSource interface {
	Get(ctx context.Context, id int64) (*domain.Product, error)
	GetMany(ctx context.Context, ids []int64) (map[int64]*domain.Product, error)
}

type DiscountSource interface {
	ActiveDiscounts(ctx context.Context, productIDs []int64) (map[int64]int, error)
}

type Service struct {
	repo      Repository
	cache     Cache
	products  ProductSource
	discounts DiscountSource
	flatRate  decimal.Decimal
	sfg       singleflight.Group // Prevents cache stampede

	// fillMu orders cache fills against invalidations. gen counts
	// invalidations across all carts.
	fillMu sync.Mutex
	gen    uint64
}

func NewService(repo Repository, cache Cache, products ProductSource, discounts DiscountSource, flatRate decimal.Decimal) *Service {
	return &Service{
		repo:      repo,
		cache:     cache,
		products:  products,
		discounts: discounts,
		flatRate:  flatRate,
	}
}

// Get returns the owner's cart priced with current catalog data and running
// promotions. Lines whose product was deleted or deactivated are omitted.
func (s *Service) Get(ctx context.Context, ownerID string) (*View, error) {
	cart, err := s.getCart(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, cart)
}

func (s *Service) getCart(ctx context.Context, ownerID string) (*Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(ownerID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, ownerID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			log.Ctx(ctx).Warn().Err(err).Str("owner_id", ownerID).Msg("cart cache get failed")
		}

		seen := s.generation()
		cart, err = s.repo.GetCart(ctx, ownerID)
		if errors.Is(err, ErrCartNotFound) {
			now := time.Now()
			return &Cart{OwnerID: ownerID, CreatedAt: now, UpdatedAt: now}, nil
		}
		if err != nil {
			return nil, err
		}
		s.fill(ctx, ownerID, cart, seen)

		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Cart), nil
}

// Snapshot prices the cart as stored, bypassing the cache. Checkout uses it
// so an order is never built from a cached copy of a cleared cart.
func (s *Service) Snapshot(ctx context.Context, ownerID string) (*View, error) {
	cart, err := s.storedCart(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, cart)
}

func (s *Service) generation() uint64 {
	s.fillMu.Lock()
	defer s.fillMu.Unlock()
	return s.gen
}

// fill caches a cart read from the repository unless some cart was
// invalidated after the read started.
func (s *Service) fill(ctx context.Context, ownerID string, cart *Cart, seen uint64) {
	s.fillMu.Lock()
	defer s.fillMu.Unlock()
	if s.gen != seen {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := s.cache.Set(ctx, ownerID, cart); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("owner_id", ownerID).Msg("cart cache set failed")
	}
}

// storedCart reads the cart from the repository, bypassing the cache, so
// that writes are computed from the current state.
func (s *Service) storedCart(ctx context.Context, ownerID string) (*Cart, error) {
	cart, err := s.repo.GetCart(ctx, ownerID)
	if errors.Is(err, ErrCartNotFound) {
		return &Cart{OwnerID: ownerID}, nil
	}
	return cart, err
}

func (s *Service) render(ctx context.Context, cart *Cart) (*View, error) {
	view := &View{OwnerID: cart.OwnerID, Items: []Line{}, Subtotal: decimal.Zero}
	if len(cart.Items) == 0 {
		return view, nil
	}

	ids := make([]int64, len(cart.Items))
	for i, item := range cart.Items {
		ids[i] = item.ProductID
	}
	products, err := s.products.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	discounts := map[int64]int{}
	if s.discounts != nil {
		if discounts, err = s.discounts.ActiveDiscounts(ctx, ids); err != nil {
			return nil, err
		}
	}

	for _, item := range cart.Items {
		p, ok := products[item.ProductID]
		if !ok || !p.IsActive {
			continue
		}
		pct := discounts[p.ID]
		unit := domain.ApplyDiscount(p.Price, pct)
		line := Line{
			Product:            p,
			Quantity:           item.Quantity,
			UnitPrice:          unit,
			DiscountPercentage: pct,
			Subtotal:           unit.Mul(decimal.NewFromInt32(item.Quantity)),
		}
		view.Items = append(view.Items, line)
		view.Count += item.Quantity
		view.Subtotal = view.Subtotal.Add(line.Subtotal)
	}
	return view, nil
}

// Add puts quantity units of a product in the cart, on top of any already
// there. The resulting line is capped at MaxQuantity.
func (s *Service) Add(ctx context.Context, ownerID string, productID int64, quantity int32) error {
	if quantity < 1 || quantity > MaxQuantity {
		return ErrInvalidQuantity
	}
	p, err := s.products.Get(ctx, productID)
	if err != nil {
		return err
	}
	cart, err := s.storedCart(ctx, ownerID)
	if err != nil {
		return err
	}

	newQty := min(cart.quantityOf(productID)+quantity, MaxQuantity)
	if newQty > p.Stock {
		return ErrInsufficientStock
	}
	return s.setItem(ctx, ownerID, productID, newQty)
}

// ChangeQuantity moves a line's quantity by delta. A change that would take
// the quantity to zero or below leaves the line as it is; removal is
// explicit.
func (s *Service) ChangeQuantity(ctx context.Context, ownerID string, productID int64, delta int32) error {
	cart, err := s.storedCart(ctx, ownerID)
	if err != nil {
		return err
	}
	current := cart.quantityOf(productID)
	if current == 0 {
		return ErrItemNotInCart
	}

	newQty := min(current+delta, MaxQuantity)
	if newQty <= 0 || newQty == current {
		return nil
	}
	if delta > 0 {
		if err := s.checkStock(ctx, productID, newQty); err != nil {
			return err
		}
	}
	return s.setItem(ctx, ownerID, productID, newQty)
}

// SetQuantity replaces a line's quantity.
func (s *Service) SetQuantity(ctx context.Context, ownerID string, productID int64, quantity int32) error {
	if quantity < 1 || quantity > MaxQuantity {
		return ErrInvalidQuantity
	}
	cart, err := s.storedCart(ctx, ownerID)
	if err != nil {
		return err
	}
	if cart.quantityOf(productID) == 0 {
		return ErrItemNotInCart
	}
	if err := s.checkStock(ctx, productID, quantity); err != nil {
		return err
	}
	return s.setItem(ctx, ownerID, productID, quantity)
}

func (s *Service) checkStock(ctx context.Context, productID int64, quantity int32) error {
	p, err := s.products.Get(ctx, productID)
	if err != nil {
		return err
	}
	if quantity > p.Stock {
		return ErrInsufficientStock
	}
	return nil
}

func (s *Service) setItem(ctx context.Context, ownerID string, productID int64, quantity int32) error {
	if err := s.repo.SetItem(ctx, ownerID, productID, quantity); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("owner_id", ownerID).Int64("product_id", productID).Msg("repo set item failed")
		return err
	}
	s.invalidateCache(ctx, ownerID)
	return nil
}

func (s *Service) Remove(ctx context.Context, ownerID string, productID int64) error {
	err := s.repo.RemoveItem(ctx, ownerID, productID)
	if err != nil && !errors.Is(err, ErrCartNotFound) {
		log.Ctx(ctx).Error().Err(err).Str("owner_id", ownerID).Msg("repo remove item failed")
		return err
	}
	s.invalidateCache(ctx, ownerID)
	return nil
}

// Clear empties the cart. Clearing a cart that does not exist is not an
// error.
func (s *Service) Clear(ctx context.Context, ownerID string) error {
	err := s.repo.DeleteCart(ctx, ownerID)
	if err != nil && !errors.Is(err, ErrCartNotFound) {
		log.Ctx(ctx).Error().Err(err).Str("owner_id", ownerID).Msg("repo delete cart failed")
		return err
	}
	s.invalidateCache(ctx, ownerID)
	return nil
}

// Merge moves a guest cart into a user's cart after login. Quantities of
// products present in both are added, capped at MaxQuantity. Only guest
// carts are merged; another user's cart is never emptied.
func (s *Service) Merge(ctx context.Context, guestOwner, userOwner string) error {
	if !IsGuestOwner(guestOwner) || guestOwner == userOwner {
		return nil
	}
	guest, err := s.repo.GetCart(ctx, guestOwner)
	if errors.Is(err, ErrCartNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	user, err := s.storedCart(ctx, userOwner)
	if err != nil {
		return err
	}

	for _, item := range guest.Items {
		qty := min(user.quantityOf(item.ProductID)+item.Quantity, MaxQuantity)
		if err := s.repo.SetItem(ctx, userOwner, item.ProductID, qty); err != nil {
			return err
		}
	}
	s.invalidateCache(ctx, userOwner)

	log.Ctx(ctx).Info().Str("guest", guestOwner).Str("owner_id", userOwner).Int("items", len(guest.Items)).Msg("merged guest cart")
	return s.Clear(ctx, guestOwner)
}

// EstimateShipping validates the CEP and returns the flat shipping rate.
func (s *Service) EstimateShipping(zip string) (decimal.Decimal, error) {
	if _, err := shipping.NormalizeZip(zip); err != nil {
		return decimal.Zero, err
	}
	return s.flatRate, nil
}

func (s *Service) invalidateCache(ctx context.Context, ownerID string) {
	s.fillMu.Lock()
	defer s.fillMu.Unlock()
	s.gen++

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, ownerID); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("owner_id", ownerID).Msg("cart cache invalidate failed")
	}
}
