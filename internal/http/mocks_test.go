package http

import (
	"context"
	"sync"

	"github.com/fjod/natal_store/internal/auth"
	"github.com/fjod/natal_store/internal/cart"
	"github.com/fjod/natal_store/internal/catalog"
	"github.com/fjod/natal_store/internal/checkout"
	"github.com/fjod/natal_store/internal/domain"
	"github.com/fjod/natal_store/internal/orders"
	"github.com/fjod/natal_store/internal/promotion"
	"github.com/fjod/natal_store/internal/shipping"
	"github.com/shopspring/decimal"
)

type mockAuth struct {
	sessions   map[string]*domain.User
	session    *auth.Session
	loginErr   error
	loggedOut  []string
	statusSet  map[string]domain.UserStatus
	resetSent  []string
	registered *auth.VerificationCodes
}

func newMockAuth() *mockAuth {
	return &mockAuth{
		sessions:  map[string]*domain.User{},
		statusSet: map[string]domain.UserStatus{},
	}
}

func (m *mockAuth) Session(ctx context.Context, token string) (*domain.User, error) {
	u, ok := m.sessions[token]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return u, nil
}

func (m *mockAuth) RequestVerification(ctx context.Context, reg auth.Registration) error {
	return nil
}

func (m *mockAuth) Register(ctx context.Context, reg auth.Registration, codes auth.VerificationCodes) (*auth.Session, error) {
	m.registered = &codes
	if codes.SMS != "123456" {
		return nil, auth.ErrInvalidCodes
	}
	return m.session, nil
}

func (m *mockAuth) Login(ctx context.Context, email, password string) (*auth.Session, error) {
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return m.session, nil
}

func (m *mockAuth) AdminLogin(ctx context.Context, email, password string) (*auth.Session, error) {
	return nil, auth.ErrAdminOnly
}

func (m *mockAuth) Logout(ctx context.Context, token string) error {
	m.loggedOut = append(m.loggedOut, token)
	return nil
}

func (m *mockAuth) PasswordStrength(password string) int {
	return len(password) % 5
}

func (m *mockAuth) RequestPasswordReset(ctx context.Context, email string) error {
	return nil
}

func (m *mockAuth) ResetPassword(ctx context.Context, token, password, confirm string) error {
	if token != "good" {
		return auth.ErrInvalidResetToken
	}
	return nil
}

func (m *mockAuth) UpdateAddress(ctx context.Context, userID string, addr domain.Address) (*domain.User, error) {
	return &domain.User{ID: userID, Address: &addr}, nil
}

func (m *mockAuth) ListUsers(ctx context.Context, search string) ([]*domain.User, error) {
	return []*domain.User{{ID: "u1", Name: "Maria"}}, nil
}

func (m *mockAuth) SetStatus(ctx context.Context, userID string, status domain.UserStatus) error {
	if !status.Valid() {
		return auth.ErrInvalidStatus
	}
	m.statusSet[userID] = status
	return nil
}

func (m *mockAuth) SendPasswordReset(ctx context.Context, userID string) error {
	m.resetSent = append(m.resetSent, userID)
	return nil
}

type mockCatalog struct {
	products map[int64]*domain.Product
	created  *catalog.ProductInput
}

func (m *mockCatalog) Categories(ctx context.Context) ([]string, error) {
	return domain.StandardCategories, nil
}

func (m *mockCatalog) List(ctx context.Context, f catalog.Filter) ([]*domain.Product, error) {
	var out []*domain.Product
	for _, p := range m.products {
		if f.Category == "" || f.Category == p.Category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockCatalog) Featured(ctx context.Context, search string) ([]*domain.Product, error) {
	return nil, nil
}

func (m *mockCatalog) Get(ctx context.Context, id int64) (*domain.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return p, nil
}

func (m *mockCatalog) AdminSearch(ctx context.Context, term string) ([]*domain.Product, error) {
	return m.List(ctx, catalog.Filter{})
}

func (m *mockCatalog) Create(ctx context.Context, in catalog.ProductInput) (*domain.Product, error) {
	m.created = &in
	return &domain.Product{ID: 99, Name: in.Name, Price: in.Price}, nil
}

func (m *mockCatalog) Update(ctx context.Context, id int64, in catalog.ProductInput) (*domain.Product, error) {
	if _, ok := m.products[id]; !ok {
		return nil, catalog.ErrProductNotFound
	}
	return &domain.Product{ID: id, Name: in.Name, Price: in.Price}, nil
}

func (m *mockCatalog) Delete(ctx context.Context, id int64) error {
	if _, ok := m.products[id]; !ok {
		return catalog.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

type mockCart struct {
	mu     sync.Mutex
	items  map[string]map[int64]int32
	merged [][2]string
}

func newMockCart() *mockCart {
	return &mockCart{items: map[string]map[int64]int32{}}
}

func (m *mockCart) Get(ctx context.Context, ownerID string) (*cart.View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	view := &cart.View{OwnerID: ownerID, Items: []cart.Line{}}
	for id, q := range m.items[ownerID] {
		view.Items = append(view.Items, cart.Line{Product: &domain.Product{ID: id}, Quantity: q})
		view.Count += q
	}
	return view, nil
}

func (m *mockCart) set(owner string, productID int64, q int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items[owner] == nil {
		m.items[owner] = map[int64]int32{}
	}
	if q <= 0 {
		delete(m.items[owner], productID)
		return
	}
	m.items[owner][productID] = q
}

func (m *mockCart) Add(ctx context.Context, ownerID string, productID int64, quantity int32) error {
	m.set(ownerID, productID, m.items[ownerID][productID]+quantity)
	return nil
}

func (m *mockCart) ChangeQuantity(ctx context.Context, ownerID string, productID int64, delta int32) error {
	m.set(ownerID, productID, m.items[ownerID][productID]+delta)
	return nil
}

func (m *mockCart) SetQuantity(ctx context.Context, ownerID string, productID int64, quantity int32) error {
	m.set(ownerID, productID, quantity)
	return nil
}

func (m *mockCart) Remove(ctx context.Context, ownerID string, productID int64) error {
	m.set(ownerID, productID, 0)
	return nil
}

func (m *mockCart) Clear(ctx context.Context, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, ownerID)
	return nil
}

func (m *mockCart) Merge(ctx context.Context, guestOwner, userOwner string) error {
	m.merged = append(m.merged, [2]string{guestOwner, userOwner})
	return nil
}

func (m *mockCart) EstimateShipping(zip string) (decimal.Decimal, error) {
	if _, err := shipping.NormalizeZip(zip); err != nil {
		return decimal.Zero, err
	}
	return decimal.RequireFromString("18.50"), nil
}

type mockWishlist struct {
	items map[int64]bool
}

func (m *mockWishlist) Toggle(ctx context.Context, userID string, productID int64) (bool, error) {
	if m.items[productID] {
		delete(m.items, productID)
		return false, nil
	}
	m.items[productID] = true
	return true, nil
}

func (m *mockWishlist) List(ctx context.Context, userID string) ([]*domain.Product, error) {
	var out []*domain.Product
	for id := range m.items {
		out = append(out, &domain.Product{ID: id})
	}
	return out, nil
}

type mockCheckout struct {
	lastReq checkout.Request
	order   *domain.Order
	err     error
}

func (m *mockCheckout) PlaceOrder(ctx context.Context, user *domain.User, req checkout.Request) (*domain.Order, error) {
	m.lastReq = req
	if req.IdempotencyKey == "" {
		return nil, checkout.ErrMissingIdempotencyKey
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.order, nil
}

type mockOrders struct {
	orders map[string]*domain.Order
}

func (m *mockOrders) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	var out []*domain.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockOrders) GetForUser(ctx context.Context, userID, id string) (*domain.Order, error) {
	o, ok := m.orders[id]
	if !ok || o.UserID != userID {
		return nil, orders.ErrOrderNotFound
	}
	return o, nil
}

func (m *mockOrders) Search(ctx context.Context, term string) ([]*domain.Order, error) {
	return m.ListByUser(ctx, term)
}

func (m *mockOrders) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, orders.ErrOrderNotFound
	}
	if !o.Status.CanTransitionTo(status) {
		return nil, orders.ErrInvalidTransition
	}
	o.Status = status
	return o, nil
}

func (m *mockOrders) Invoice(ctx context.Context, id string) ([]byte, error) {
	if _, ok := m.orders[id]; !ok {
		return nil, orders.ErrOrderNotFound
	}
	return []byte("<html><body>Nota</body></html>"), nil
}

type mockPromotions struct {
	created *promotion.Input
}

func (m *mockPromotions) Create(ctx context.Context, in promotion.Input) (*domain.Promotion, error) {
	m.created = &in
	return &domain.Promotion{ID: 1, Title: in.Title, StartDate: in.StartDate, EndDate: in.EndDate, Active: true}, nil
}

func (m *mockPromotions) List(ctx context.Context) ([]*domain.Promotion, error) {
	return nil, nil
}

func (m *mockPromotions) Delete(ctx context.Context, id int64) error {
	return nil
}

func (m *mockPromotions) Deactivate(ctx context.Context, id int64) error {
	if id != 1 {
		return promotion.ErrPromotionNotFound
	}
	return nil
}

type mockPaymentSettings struct {
	settings domain.PaymentSettings
}

func (m *mockPaymentSettings) Get(ctx context.Context) (*domain.PaymentSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockPaymentSettings) Save(ctx context.Context, in domain.PaymentSettings) (*domain.PaymentSettings, error) {
	m.settings = in
	return &in, nil
}

type mockUploader struct {
	names []string
}

func (m *mockUploader) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	m.names = append(m.names, filename)
	return "https://cdn.test/products/" + filename, nil
}
