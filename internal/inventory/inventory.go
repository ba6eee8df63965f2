// Package inventory keeps the stock reservation ledger used during checkout.
// The ledger is seeded from the catalog's persisted stock and holds units
// aside while a payment is in flight.
package inventory

import "time"

type ReservationStatus string

const (
	StatusReserved  ReservationStatus = "reserved"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusReleased  ReservationStatus = "released"
	StatusExpired   ReservationStatus = "expired"
)

// ReservationItem is one order line to hold.
type ReservationItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int32 `json:"quantity"`
}

// Reservation holds units of one or more products for the order being
// placed under OrderID.
type Reservation struct {
	ID        string            `json:"id"`
	OrderID   string            `json:"order_id"`
	Items     []ReservationItem `json:"items"`
	Status    ReservationStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// Open reports whether the reservation still holds stock at instant now.
func (r *Reservation) Open(now time.Time) bool {
	return r.Status == StatusReserved && now.Before(r.ExpiresAt)
}

func (r *Reservation) expiredAt(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// StockInfo is the ledger view of one product: units on the shelf and units
// held for checkouts that have not settled.
type StockInfo struct {
	ProductID int64 `json:"product_id"`
	OnHand    int32 `json:"on_hand"`
	Held      int32 `json:"held"`
}

func (s StockInfo) Available() int32 {
	return s.OnHand - s.Held
}
