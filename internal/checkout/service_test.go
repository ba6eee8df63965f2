package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fjod/natal_store/internal/apperr"
	"github.com/fjod/natal_store/internal/cart"
	"github.com/fjod/natal_store/internal/domain"
	"github.com/fjod/natal_store/internal/inventory"
	"github.com/fjod/natal_store/internal/orders"
	"github.com/fjod/natal_store/internal/payment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCarts struct {
	m       sync.RWMutex
	views   map[string]*cart.View
	cleared []string
}

func (c *mockCarts) Snapshot(_ context.Context, ownerID string) (*cart.View, error) {
	c.m.RLock()
	defer c.m.RUnlock()
	if v, ok := c.views[ownerID]; ok {
		return v, nil
	}
	return &cart.View{OwnerID: ownerID, Subtotal: decimal.Zero}, nil
}

func (c *mockCarts) Clear(_ context.Context, ownerID string) error {
	c.m.Lock()
	defer c.m.Unlock()
	delete(c.views, ownerID)
	c.cleared = append(c.cleared, ownerID)
	return nil
}

type mockOrders struct {
	m         sync.RWMutex
	orders    []*domain.Order
	createErr error
	creates   int

	// concurrent is stored just before Create runs, as if another
	// request with the same key won the race.
	concurrent *domain.Order
}

func (o *mockOrders) Create(_ context.Context, order *domain.Order) error {
	o.m.Lock()
	defer o.m.Unlock()
	o.creates++
	if o.concurrent != nil {
		o.orders = append(o.orders, o.concurrent)
		return orders.ErrDuplicateOrder
	}
	if o.createErr != nil {
		return o.createErr
	}
	cp := *order
	o.orders = append(o.orders, &cp)
	return nil
}

func (o *mockOrders) GetByIdempotencyKey(_ context.Context, userID, key string) (*domain.Order, error) {
	o.m.RLock()
	defer o.m.RUnlock()
	for _, order := range o.orders {
		if order.UserID == userID && order.IdempotencyKey == key {
			cp := *order
			return &cp, nil
		}
	}
	return nil, orders.ErrOrderNotFound
}

type mockPayments struct {
	m        sync.Mutex
	status   payment.Status
	err      error
	charges  []payment.Charge
	refunded []string
}

func (p *mockPayments) Charge(_ context.Context, c payment.Charge) (*payment.Result, error) {
	p.m.Lock()
	defer p.m.Unlock()
	p.charges = append(p.charges, c)
	if p.err != nil {
		return nil, p.err
	}
	status := p.status
	if status == "" {
		status = payment.StatusApproved
	}
	res := &payment.Result{TransactionID: "TXN-1", Status: status}
	if status == payment.StatusDeclined {
		res.Refusal = payment.RefusalInsufficientFunds
	}
	return res, nil
}

func (p *mockPayments) Refund(_ context.Context, transactionID string) error {
	p.m.Lock()
	defer p.m.Unlock()
	p.refunded = append(p.refunded, transactionID)
	return nil
}

type mockStock struct {
	m      sync.Mutex
	deltas map[int64]int32
}

func (s *mockStock) AdjustStock(_ context.Context, productID int64, delta int32) (int32, error) {
	s.m.Lock()
	defer s.m.Unlock()
	if s.deltas == nil {
		s.deltas = map[int64]int32{}
	}
	s.deltas[productID] += delta
	return s.deltas[productID], nil
}

type mockAddressBook struct {
	m     sync.Mutex
	saved map[string]domain.Address
}

func (a *mockAddressBook) UpdateAddress(_ context.Context, userID string, addr domain.Address) (*domain.User, error) {
	a.m.Lock()
	defer a.m.Unlock()
	if a.saved == nil {
		a.saved = map[string]domain.Address{}
	}
	a.saved[userID] = addr
	return &domain.User{ID: userID, Address: &addr}, nil
}

type fixture struct {
	svc       *Service
	carts     *mockCarts
	orders    *mockOrders
	ledger    *inventory.MemoryStore
	payments  *mockPayments
	stock     *mockStock
	addresses *mockAddressBook
}

var testUser = &domain.User{ID: "u1", Name: "Ana Souza", Email: "ana@example.com", Role: domain.RoleUser, Status: domain.UserActive}

func cartView() *cart.View {
	cortina := &domain.Product{ID: 1, Name: "Cortina 400 Leds", Price: decimal.RequireFromString("100"), Image: "cortina.jpg"}
	pisca := &domain.Product{ID: 2, Name: "Pisca-pisca", Price: decimal.RequireFromString("15.90"), Image: "pisca.jpg"}
	return &cart.View{
		OwnerID: testUser.ID,
		Items: []cart.Line{
			{Product: cortina, Quantity: 2, UnitPrice: decimal.RequireFromString("80"), DiscountPercentage: 20, Subtotal: decimal.RequireFromString("160")},
			{Product: pisca, Quantity: 1, UnitPrice: decimal.RequireFromString("15.90"), Subtotal: decimal.RequireFromString("15.90")},
		},
		Count:    3,
		Subtotal: decimal.RequireFromString("175.90"),
	}
}

func validAddress() domain.Address {
	return domain.Address{Street: "Rua Coberta", Number: "10", Neighborhood: "Centro", City: "Gramado", State: "RS", Zip: "95670-000"}
}

func setupCheckout(t *testing.T) *fixture {
	t.Helper()
	ledger := inventory.NewMemoryStore(time.Minute)
	t.Cleanup(func() { ledger.Close() })
	require.NoError(t, ledger.SetStock(1, 5))
	require.NoError(t, ledger.SetStock(2, 5))

	f := &fixture{
		carts:     &mockCarts{views: map[string]*cart.View{testUser.ID: cartView()}},
		orders:    &mockOrders{},
		ledger:    ledger,
		payments:  &mockPayments{},
		stock:     &mockStock{},
		addresses: &mockAddressBook{},
	}
	f.svc = NewService(f.carts, f.orders, f.ledger, f.payments, f.stock, f.addresses, decimal.RequireFromString("18.50"))
	return f
}

func request(key string) Request {
	return Request{IdempotencyKey: key, Address: validAddress(), PaymentMethod: domain.PaymentPix}
}

func available(t *testing.T, ledger *inventory.MemoryStore, id int64) int32 {
	t.Helper()
	infos, err := ledger.GetStock([]int64{id})
	require.NoError(t, err)
	require.Len(t, infos, 1)
	return infos[0].Available()
}

func TestPlaceOrder_Success(t *testing.T) {
	f := setupCheckout(t)

	order, err := f.svc.PlaceOrder(context.Background(), testUser, request("key-1"))
	require.NoError(t, err)

	assert.Equal(t, domain.OrderPaid, order.Status)
	assert.Equal(t, "TXN-1", order.PaymentID)
	assert.Equal(t, "key-1", order.IdempotencyKey)
	assert.Equal(t, "Ana Souza", order.UserName)
	assert.True(t, decimal.RequireFromString("175.90").Equal(order.Subtotal))
	assert.True(t, decimal.RequireFromString("18.50").Equal(order.Shipping))
	assert.True(t, decimal.RequireFromString("194.40").Equal(order.Total))
	assert.True(t, decimal.RequireFromString("40").Equal(order.Discount))
	assert.Equal(t, "Rua Coberta, 10 - Centro, Gramado - CEP: 95670000", order.ShippingAddress)

	require.Len(t, order.Items, 2)
	assert.Equal(t, "Cortina 400 Leds", order.Items[0].Name)
	assert.Equal(t, "cortina.jpg", order.Items[0].Image)
	assert.True(t, decimal.RequireFromString("80").Equal(order.Items[0].UnitPrice))
	assert.True(t, decimal.RequireFromString("100").Equal(order.Items[0].OriginalPrice))
	assert.True(t, decimal.RequireFromString("160").Equal(order.Items[0].Subtotal))

	require.Len(t, f.payments.charges, 1)
	assert.Equal(t, order.ID.String(), f.payments.charges[0].Reference)
	assert.True(t, order.Total.Equal(f.payments.charges[0].Amount))
	assert.Equal(t, payment.MethodPix, f.payments.charges[0].Method)

	assert.Equal(t, int32(3), available(t, f.ledger, 1))
	assert.Equal(t, int32(4), available(t, f.ledger, 2))
	assert.Equal(t, map[int64]int32{1: -2, 2: -1}, f.stock.deltas)
	assert.Equal(t, []string{"u1"}, f.carts.cleared)
	assert.Equal(t, "95670000", f.addresses.saved["u1"].Zip)
}

func TestPlaceOrder_IdempotentReplay(t *testing.T) {
	f := setupCheckout(t)
	ctx := context.Background()

	first, err := f.svc.PlaceOrder(ctx, testUser, request("key-1"))
	require.NoError(t, err)

	second, err := f.svc.PlaceOrder(ctx, testUser, request(" key-1 "))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.payments.charges, 1)
	assert.Equal(t, 1, f.orders.creates)
}

func TestPlaceOrder_ConcurrentSameKey(t *testing.T) {
	f := setupCheckout(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]*domain.Order, 5)
	errs := make([]error, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.PlaceOrder(ctx, testUser, request("key-1"))
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].ID, results[i].ID)
	}
	assert.Equal(t, 1, f.orders.creates)
}

func TestPlaceOrder_MissingKey(t *testing.T) {
	f := setupCheckout(t)

	_, err := f.svc.PlaceOrder(context.Background(), testUser, request("  "))
	assert.ErrorIs(t, err, ErrMissingIdempotencyKey)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := setupCheckout(t)
	f.carts.views = map[string]*cart.View{}

	_, err := f.svc.PlaceOrder(context.Background(), testUser, request("key-1"))
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, f.payments.charges)
}

func TestPlaceOrder_InvalidAddress(t *testing.T) {
	f := setupCheckout(t)
	req := request("key-1")
	req.Address.Street = " "
	req.Address.Zip = "1234"

	_, err := f.svc.PlaceOrder(context.Background(), testUser, req)
	require.Error(t, err)

	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperr.KindInvalid, appErr.Kind)
	assert.Contains(t, appErr.Fields, "street")
	assert.Equal(t, "CEP inválido. Digite os 8 dígitos.", appErr.Fields["zip"])
	assert.Empty(t, f.payments.charges)
}

func TestPlaceOrder_InvalidPaymentMethod(t *testing.T) {
	f := setupCheckout(t)
	req := request("key-1")
	req.PaymentMethod = "Cheque"

	_, err := f.svc.PlaceOrder(context.Background(), testUser, req)
	assert.ErrorIs(t, err, payment.ErrInvalidMethod)
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	f := setupCheckout(t)
	require.NoError(t, f.ledger.SetStock(1, 1))

	_, err := f.svc.PlaceOrder(context.Background(), testUser, request("key-1"))
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)
	assert.Empty(t, f.payments.charges)
	assert.Equal(t, int32(5), available(t, f.ledger, 2))
}

func TestPlaceOrder_DeclinedReleasesStock(t *testing.T) {
	f := setupCheckout(t)
	f.payments.status = payment.StatusDeclined

	_, err := f.svc.PlaceOrder(context.Background(), testUser, request("key-1"))
	assert.ErrorIs(t, err, payment.ErrDeclined)

	assert.Equal(t, int32(5), available(t, f.ledger, 1))
	assert.Equal(t, 0, f.orders.creates)
	assert.Empty(t, f.carts.cleared)
	assert.Empty(t, f.stock.deltas)
}

func TestPlaceOrder_GatewayErrorReleasesStock(t *testing.T) {
	f := setupCheckout(t)
	f.payments.err = payment.ErrUnavailable

	_, err := f.svc.PlaceOrder(context.Background(), testUser, request("key-1"))
	assert.ErrorIs(t, err, payment.ErrUnavailable)
	assert.Equal(t, int32(5), available(t, f.ledger, 1))
}

func TestPlaceOrder_CreateFailureRefunds(t *testing.T) {
	f := setupCheckout(t)
	f.orders.createErr = errors.New("connection reset")

	_, err := f.svc.PlaceOrder(context.Background(), testUser, request("key-1"))
	require.Error(t, err)

	assert.Equal(t, []string{"TXN-1"}, f.payments.refunded)
	assert.Equal(t, int32(5), available(t, f.ledger, 1))
	assert.Empty(t, f.carts.cleared)
}

func TestPlaceOrder_DuplicateOnCreateReturnsExisting(t *testing.T) {
	f := setupCheckout(t)
	winner := &domain.Order{ID: uuid.New(), IdempotencyKey: "key-1", UserID: "u1", Status: domain.OrderPaid, PaymentID: "TXN-0"}
	f.orders.concurrent = winner

	got, err := f.svc.PlaceOrder(context.Background(), testUser, request("key-1"))
	require.NoError(t, err)

	assert.Equal(t, winner.ID, got.ID)
	assert.Equal(t, []string{"TXN-1"}, f.payments.refunded)
	assert.Equal(t, int32(5), available(t, f.ledger, 1))
	assert.Empty(t, f.carts.cleared)
}
