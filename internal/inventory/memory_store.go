package inventory

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	DefaultReservationTTL = 5 * time.Minute
	sweepInterval         = 30 * time.Second
)

// MemoryStore is the process-local ledger. Stock levels are re-seeded from
// the catalog, so nothing here needs to survive a restart.
type MemoryStore struct {
	mu           sync.RWMutex
	stocks       map[int64]*StockInfo
	reservations map[string]*Reservation
	ttl          time.Duration
	now          func() time.Time

	done chan struct{}
	wg   sync.WaitGroup
}

// NewMemoryStore starts a ledger whose reservations lapse after ttl
// (DefaultReservationTTL when ttl is not positive).
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultReservationTTL
	}
	s := &MemoryStore{
		stocks:       map[int64]*StockInfo{},
		reservations: map[string]*Reservation{},
		ttl:          ttl,
		now:          time.Now,
		done:         make(chan struct{}),
	}
	s.wg.Add(1)
	go s.sweep()
	return s
}

func (s *MemoryStore) sweep() {
	defer s.wg.Done()
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-t.C:
			s.expireReservations()
		}
	}
}

// expireReservations gives back the units of lapsed reservations and drops
// settled ones once they are a full ttl past their deadline.
func (s *MemoryStore) expireReservations() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var lapsed int
	for id, r := range s.reservations {
		if r.Status == StatusReserved {
			if r.expiredAt(now) {
				r.Status = StatusExpired
				s.giveBack(r.Items)
				lapsed++
			}
			continue
		}
		if now.Sub(r.ExpiresAt) > s.ttl {
			delete(s.reservations, id)
		}
	}
	if lapsed > 0 {
		log.Info().Str("component", "inventory").Int("count", lapsed).Msg("expired abandoned reservations")
	}
}

// giveBack requires s.mu. Products removed from the catalog are skipped.
func (s *MemoryStore) giveBack(items []ReservationItem) {
	for _, it := range items {
		if st, ok := s.stocks[it.ProductID]; ok {
			st.Held = max(st.Held-it.Quantity, 0)
		}
	}
}

func (s *MemoryStore) GetStock(productIDs []int64) ([]StockInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]StockInfo, 0, len(productIDs))
	for _, id := range productIDs {
		if st, ok := s.stocks[id]; ok {
			out = append(out, *st)
		}
	}
	return out, nil
}

// Reserve holds every line of an order or none of them.
func (s *MemoryStore) Reserve(orderID string, items []ReservationItem) (*Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Repeated product lines are checked against their combined quantity.
	want := make(map[int64]int32, len(items))
	for _, it := range items {
		st, ok := s.stocks[it.ProductID]
		if !ok {
			return nil, ErrProductNotFound
		}
		want[it.ProductID] += it.Quantity
		if it.Quantity <= 0 || want[it.ProductID] > st.Available() {
			return nil, ErrInsufficientStock
		}
	}
	for id, q := range want {
		s.stocks[id].Held += q
	}

	now := s.now()
	r := &Reservation{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		Items:     append([]ReservationItem(nil), items...),
		Status:    StatusReserved,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	s.reservations[r.ID] = r
	return r, nil
}

// pending requires s.mu.
func (s *MemoryStore) pending(reservationID string) (*Reservation, error) {
	r, ok := s.reservations[reservationID]
	if !ok {
		return nil, ErrReservationNotFound
	}
	if r.Status != StatusReserved {
		return nil, ErrInvalidStatus
	}
	return r, nil
}

// Confirm takes the held units off the shelf once payment settles.
func (s *MemoryStore) Confirm(reservationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.pending(reservationID)
	if err != nil {
		return err
	}
	if !r.Open(s.now()) {
		return ErrReservationExpired
	}
	for _, it := range r.Items {
		if st, ok := s.stocks[it.ProductID]; ok {
			st.OnHand -= it.Quantity
			st.Held -= it.Quantity
		}
	}
	r.Status = StatusConfirmed
	return nil
}

// Release returns the held units, used when payment fails.
func (s *MemoryStore) Release(reservationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.pending(reservationID)
	if err != nil {
		return err
	}
	s.giveBack(r.Items)
	r.Status = StatusReleased
	return nil
}

// SetStock overwrites the on-hand count of a product and leaves held units
// untouched.
func (s *MemoryStore) SetStock(productID int64, quantity int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.stocks[productID]
	if !ok {
		st = &StockInfo{ProductID: productID}
		s.stocks[productID] = st
	}
	st.OnHand = quantity
	return nil
}

func (s *MemoryStore) RemoveProduct(productID int64) {
	s.mu.Lock()
	delete(s.stocks, productID)
	s.mu.Unlock()
}

// Close stops the expiry sweep.
func (s *MemoryStore) Close() error {
	close(s.done)
	s.wg.Wait()
	return nil
}
