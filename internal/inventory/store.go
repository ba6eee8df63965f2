package inventory

import "github.com/fjod/natal_store/internal/apperr"

var (
	ErrProductNotFound     = apperr.NotFound("product_not_found", "Produto não encontrado.")
	ErrInsufficientStock   = apperr.Conflict("insufficient_stock", "Estoque insuficiente para um ou mais produtos.")
	ErrReservationNotFound = apperr.NotFound("reservation_not_found", "Reserva não encontrada.")
	ErrReservationExpired  = apperr.Conflict("reservation_expired", "A reserva de estoque expirou.")
	ErrInvalidStatus       = apperr.Conflict("invalid_reservation_status", "Status de reserva inválido para esta operação.")
)

// Store defines the ledger operations used by checkout and the catalog.
type Store interface {
	// GetStock skips IDs the ledger does not know
	GetStock(productIDs []int64) ([]StockInfo, error)

	// Reserve holds stock for every item or for none of them
	Reserve(orderID string, items []ReservationItem) (*Reservation, error)

	// Confirm permanently deducts a reserved quantity
	Confirm(reservationID string) error

	// Release returns a reserved quantity to the available pool
	Release(reservationID string) error

	SetStock(productID int64, quantity int32) error
	RemoveProduct(productID int64)
	Close() error
}
