// Package checkout turns a cart into a paid order: it snapshots prices,
// reserves stock, charges the payment and records the order.
package checkout

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fjod/natal_store/internal/apperr"
	"github.com/fjod/natal_store/internal/cart"
	"github.com/fjod/natal_store/internal/domain"
	"github.com/fjod/natal_store/internal/inventory"
	"github.com/fjod/natal_store/internal/orders"
	"github.com/fjod/natal_store/internal/payment"
	"github.com/fjod/natal_store/internal/shipping"
	"github.com/fjod/natal_store/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

var (
	ErrEmptyCart             = apperr.Invalid("empty_cart", "Seu carrinho está vazio.")
	ErrMissingIdempotencyKey = apperr.Invalid("missing_idempotency_key", "Envie o cabeçalho Idempotency-Key.")
)

type Request struct {
	IdempotencyKey string               `json:"-"`
	Address        domain.Address       `json:"address"`
	PaymentMethod  domain.PaymentMethod `json:"payment_method"`
}

type Carts interface {
	Snapshot(ctx context.Context, ownerID string) (*cart.View, error)
	Clear(ctx context.Context, ownerID string) error
}

type Orders interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Order, error)
}

type Reserver interface {
	Reserve(orderID string, items []inventory.ReservationItem) (*inventory.Reservation, error)
	Confirm(reservationID string) error
	Release(reservationID string) error
}

type Payments interface {
	Charge(ctx context.Context, c payment.Charge) (*payment.Result, error)
	Refund(ctx context.Context, transactionID string) error
}

type Stock interface {
	AdjustStock(ctx context.Context, productID int64, delta int32) (int32, error)
}

type AddressBook interface {
	UpdateAddress(ctx context.Context, userID string, addr domain.Address) (*domain.User, error)
}

type Service struct {
	carts     Carts
	orders    Orders
	inventory Reserver
	payments  Payments
	stock     Stock
	addresses AddressBook
	flatRate  decimal.Decimal
	group     singleflight.Group
	newID     func() uuid.UUID
}

func NewService(carts Carts, orderRepo Orders, inv Reserver, payments Payments, stock Stock,
	addresses AddressBook, flatRate decimal.Decimal) *Service {
	return &Service{
		carts:     carts,
		orders:    orderRepo,
		inventory: inv,
		payments:  payments,
		stock:     stock,
		addresses: addresses,
		flatRate:  flatRate,
		newID:     uuid.New,
	}
}

// PlaceOrder checks out the user's cart. Repeating a request with the same
// idempotency key returns the order created by the first one.
func (s *Service) PlaceOrder(ctx context.Context, user *domain.User, req Request) (*domain.Order, error) {
	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		return nil, ErrMissingIdempotencyKey
	}
	req.IdempotencyKey = key

	v, err, _ := s.group.Do(user.ID+":"+key, func() (interface{}, error) {
		return s.placeOrder(ctx, user, req)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Order), nil
}

func (s *Service) placeOrder(ctx context.Context, user *domain.User, req Request) (*domain.Order, error) {
	logger := log.Ctx(ctx).With().Str("user_id", user.ID).Str("idempotency_key", req.IdempotencyKey).Logger()

	existing, err := s.orders.GetByIdempotencyKey(ctx, user.ID, req.IdempotencyKey)
	if err == nil {
		logger.Info().Str("order_id", existing.ID.String()).Msg("duplicate checkout request")
		return existing, nil
	}
	if !errors.Is(err, orders.ErrOrderNotFound) {
		return nil, err
	}

	view, err := s.carts.Snapshot(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if view.IsEmpty() {
		return nil, ErrEmptyCart
	}

	addr, err := validateAddress(req.Address)
	if err != nil {
		return nil, err
	}
	if !req.PaymentMethod.Valid() {
		return nil, payment.ErrInvalidMethod
	}

	order := s.buildOrder(user, view, addr, req)
	logger = logger.With().Str("order_id", order.ID.String()).Logger()

	reservation, err := s.inventory.Reserve(order.ID.String(), reservationItems(order.Items))
	if err != nil {
		return nil, err
	}

	result, err := s.payments.Charge(ctx, payment.Charge{
		Reference: order.ID.String(),
		Amount:    order.Total,
		Method:    payment.Method(order.PaymentMethod),
		Customer:  user.ID,
	})
	if err != nil {
		s.release(logger, reservation.ID)
		return nil, err
	}
	if !result.Approved() {
		s.release(logger, reservation.ID)
		logger.Info().Str("refusal", result.Refusal.String()).Msg("payment declined")
		return nil, payment.ErrDeclined
	}

	// the charge went through; finish even if the client goes away
	ctx = context.WithoutCancel(ctx)
	order.PaymentID = result.TransactionID
	order.Status = domain.OrderPaid

	if err := s.orders.Create(ctx, order); err != nil {
		s.release(logger, reservation.ID)
		s.refund(ctx, logger, result.TransactionID)
		if errors.Is(err, orders.ErrDuplicateOrder) {
			return s.orders.GetByIdempotencyKey(ctx, user.ID, req.IdempotencyKey)
		}
		return nil, err
	}

	s.complete(ctx, logger, order, reservation.ID, addr)
	logger.Info().Str("total", order.Total.StringFixed(2)).Msg("order placed")
	return order, nil
}

// complete runs the steps after the order is stored. Failures are logged;
// the order stands.
func (s *Service) complete(ctx context.Context, logger zerolog.Logger, order *domain.Order, reservationID string, addr domain.Address) {
	if err := s.inventory.Confirm(reservationID); err != nil {
		logger.Error().Err(err).Str("reservation_id", reservationID).Msg("failed to confirm reservation")
	}
	for _, it := range order.Items {
		if _, err := s.stock.AdjustStock(ctx, it.ProductID, -it.Quantity); err != nil {
			logger.Error().Err(err).Int64("product_id", it.ProductID).Msg("failed to decrement stock")
		}
	}
	if err := s.carts.Clear(ctx, order.UserID); err != nil {
		logger.Error().Err(err).Msg("failed to clear cart")
	}
	if _, err := s.addresses.UpdateAddress(ctx, order.UserID, addr); err != nil {
		logger.Warn().Err(err).Msg("failed to save address")
	}
}

func (s *Service) release(logger zerolog.Logger, reservationID string) {
	if err := s.inventory.Release(reservationID); err != nil {
		logger.Error().Err(err).Str("reservation_id", reservationID).Msg("failed to release reservation")
	}
}

func (s *Service) refund(ctx context.Context, logger zerolog.Logger, transactionID string) {
	if err := s.payments.Refund(ctx, transactionID); err != nil {
		logger.Error().Err(err).Str("transaction_id", transactionID).Msg("failed to refund payment")
	}
}

func (s *Service) buildOrder(user *domain.User, view *cart.View, addr domain.Address, req Request) *domain.Order {
	order := &domain.Order{
		ID:              s.newID(),
		IdempotencyKey:  req.IdempotencyKey,
		UserID:          user.ID,
		UserName:        user.Name,
		UserEmail:       user.Email,
		Items:           make([]domain.OrderItem, 0, len(view.Items)),
		Subtotal:        decimal.Zero,
		Shipping:        s.flatRate,
		Discount:        decimal.Zero,
		Status:          domain.OrderPending,
		ShippingAddress: addr.Format(),
		PaymentMethod:   req.PaymentMethod,
		CreatedAt:       time.Now(),
	}
	for _, line := range view.Items {
		qty := decimal.NewFromInt32(line.Quantity)
		item := domain.OrderItem{
			ProductID:     line.Product.ID,
			Name:          line.Product.Name,
			Image:         line.Product.Image,
			Quantity:      line.Quantity,
			UnitPrice:     line.UnitPrice,
			OriginalPrice: line.Product.Price,
			Subtotal:      line.UnitPrice.Mul(qty),
		}
		order.Items = append(order.Items, item)
		order.Subtotal = order.Subtotal.Add(item.Subtotal)
		order.Discount = order.Discount.Add(item.OriginalPrice.Sub(item.UnitPrice).Mul(qty))
	}
	order.Total = order.Subtotal.Add(order.Shipping)
	return order
}

func reservationItems(items []domain.OrderItem) []inventory.ReservationItem {
	out := make([]inventory.ReservationItem, len(items))
	for i, it := range items {
		out[i] = inventory.ReservationItem{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	return out
}

// validateAddress checks the required fields and normalizes the CEP.
func validateAddress(addr domain.Address) (domain.Address, error) {
	addr.Street = strings.TrimSpace(addr.Street)
	addr.Number = strings.TrimSpace(addr.Number)
	addr.Neighborhood = strings.TrimSpace(addr.Neighborhood)
	addr.Complement = strings.TrimSpace(addr.Complement)
	addr.City = strings.TrimSpace(addr.City)
	addr.State = strings.TrimSpace(addr.State)

	fields := validation.Struct(addr)
	if fields == nil {
		fields = map[string]string{}
	}
	if _, missing := fields["zip"]; !missing {
		zip, err := shipping.NormalizeZip(addr.Zip)
		if err != nil {
			fields["zip"] = shipping.ErrInvalidZip.Message
		}
		addr.Zip = zip
	}
	if len(fields) > 0 {
		return addr, apperr.Validation(fields)
	}
	return addr, nil
}
