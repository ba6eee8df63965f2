package orders

import (
	"context"
	"errors"
	"strings"

	"github.com/fjod/natal_store/internal/apperr"
	"github.com/fjod/natal_store/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrOrderNotFound     = apperr.NotFound("order_not_found", "Pedido não encontrado.")
	ErrDuplicateOrder    = apperr.Conflict("duplicate_order", "Este pedido já foi registrado.")
	ErrInvalidStatus     = apperr.Invalid("invalid_order_status", "Status de pedido inválido.")
	ErrInvalidTransition = apperr.Invalid("invalid_status_transition", "Não é possível mudar o pedido para este status.")
	ErrOrderClosed       = apperr.Conflict("order_closed", "Pedidos entregues ou cancelados não podem ser alterados.")
	ErrStatusConflict    = apperr.Conflict("order_status_conflict", "O pedido foi alterado por outra pessoa. Atualize a página.")
)

// StockRestorer puts stock back on the shelf when a paid order is cancelled.
type StockRestorer interface {
	AdjustStock(ctx context.Context, productID int64, delta int32) (int32, error)
}

type Service struct {
	repo  Repository
	stock StockRestorer
}

func NewService(repo Repository, stock StockRestorer) *Service {
	return &Service{repo: repo, stock: stock}
}

func parseID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return uuid.Nil, ErrOrderNotFound
	}
	return parsed, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Order, error) {
	orderID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, orderID)
}

// GetForUser hides orders of other users behind not found.
func (s *Service) GetForUser(ctx context.Context, userID, id string) (*domain.Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) Search(ctx context.Context, term string) ([]*domain.Order, error) {
	return s.repo.Search(ctx, strings.TrimSpace(term))
}

// UpdateStatus applies a back-office status change. Cancelling an order
// whose stock already left the shelf restocks the catalog.
func (s *Service) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status == status {
		return o, nil
	}
	if o.Status.IsTerminal() {
		return nil, ErrOrderClosed
	}
	if !o.Status.CanTransitionTo(status) {
		return nil, ErrInvalidTransition
	}

	from := o.Status
	o.Status = status
	if err := s.repo.UpdateStatus(ctx, o, from); err != nil {
		return nil, err
	}

	logger := log.Ctx(ctx).With().Str("order_id", o.ID.String()).Logger()
	logger.Info().Str("from", string(from)).Str("to", string(status)).Msg("order status changed")

	// The status change is committed; a restock failure is left for the
	// back office to reconcile.
	if status == domain.OrderCancelled && from.HoldsStock() {
		if err := s.restock(ctx, o); err != nil {
			logger.Error().Err(err).Int32("items", o.ItemCount()).Msg("failed to restock cancelled order")
		}
	}
	return o, nil
}

func (s *Service) restock(ctx context.Context, o *domain.Order) error {
	var errs []error
	for _, it := range o.Items {
		_, err := s.stock.AdjustStock(ctx, it.ProductID, it.Quantity)
		if err != nil && apperr.KindOf(err) != apperr.KindNotFound {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
