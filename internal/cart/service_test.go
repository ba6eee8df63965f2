package cart

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fjod/natal_store/internal/apperr"
	"github.com/fjod/natal_store/internal/domain"
	"github.com/fjod/natal_store/internal/shipping"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	m     sync.RWMutex
	carts map[string]*Cart
	err   error
}

func newMockRepository(carts ...*Cart) *mockRepository {
	m := &mockRepository{carts: map[string]*Cart{}}
	for _, c := range carts {
		m.carts[c.OwnerID] = c
	}
	return m
}

func (m *mockRepository) GetCart(_ context.Context, ownerID string) (*Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.carts[ownerID]
	if !ok {
		return nil, ErrCartNotFound
	}
	cp := *c
	cp.Items = append([]Item(nil), c.Items...)
	return &cp, nil
}

func (m *mockRepository) SetItem(_ context.Context, ownerID string, productID int64, quantity int32) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	c, ok := m.carts[ownerID]
	if !ok {
		c = &Cart{OwnerID: ownerID}
		m.carts[ownerID] = c
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = quantity
			return nil
		}
	}
	c.Items = append(c.Items, Item{ProductID: productID, Quantity: quantity, AddedAt: time.Now()})
	return nil
}

func (m *mockRepository) RemoveItem(_ context.Context, ownerID string, productID int64) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	c, ok := m.carts[ownerID]
	if !ok {
		return ErrCartNotFound
	}
	for i, item := range c.Items {
		if item.ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			break
		}
	}
	return nil
}

func (m *mockRepository) DeleteCart(_ context.Context, ownerID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.carts[ownerID]; !ok {
		return ErrCartNotFound
	}
	delete(m.carts, ownerID)
	return nil
}

func (m *mockRepository) quantity(ownerID string, productID int64) int32 {
	m.m.RLock()
	defer m.m.RUnlock()
	if c, ok := m.carts[ownerID]; ok {
		return c.quantityOf(productID)
	}
	return 0
}

type mockCache struct {
	m    sync.RWMutex
	cart *Cart
	err  error
}

func (m *mockCache) Get(context.Context, string) (*Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.cart == nil {
		return nil, ErrCacheMiss
	}
	return m.cart, nil
}

func (m *mockCache) Set(_ context.Context, _ string, cart *Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.cart = cart
	return m.err
}

func (m *mockCache) Delete(context.Context, string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.cart = nil
	return m.err
}

func (m *mockCache) getCart() *Cart {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.cart
}

type mockProducts struct {
	products map[int64]*domain.Product
}

var errProductNotFound = apperr.NotFound("product_not_found", "Produto não encontrado.")

func (m mockProducts) Get(_ context.Context, id int64) (*domain.Product, error) {
	p, ok := m.products[id]
	if !ok || !p.IsActive {
		return nil, errProductNotFound
	}
	return p, nil
}

func (m mockProducts) GetMany(_ context.Context, ids []int64) (map[int64]*domain.Product, error) {
	out := map[int64]*domain.Product{}
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type mockDiscounts map[int64]int

func (m mockDiscounts) ActiveDiscounts(context.Context, []int64) (map[int64]int, error) {
	return m, nil
}

func catalogFixture() mockProducts {
	return mockProducts{products: map[int64]*domain.Product{
		1: {ID: 1, Name: "Cortina 400 Leds", Price: decimal.RequireFromString("80.00"), Stock: 50, IsActive: true},
		2: {ID: 2, Name: "Mangueira de Led", Price: decimal.RequireFromString("19.77"), Stock: 150, IsActive: true},
		3: {ID: 3, Name: "Estrela de Topo", Price: decimal.RequireFromString("45.90"), Stock: 2, IsActive: true},
		4: {ID: 4, Name: "Produto inativo", Price: decimal.RequireFromString("10.00"), Stock: 10, IsActive: false},
	}}
}

func newTestService(repo *mockRepository, c *mockCache, discounts DiscountSource) *Service {
	return NewService(repo, c, catalogFixture(), discounts, shipping.FlatRate())
}

func TestGet_EnrichesAndPrices(t *testing.T) {
	repo := newMockRepository(&Cart{OwnerID: "u1", Items: []Item{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 3},
		{ProductID: 4, Quantity: 1},  // inactive
		{ProductID: 99, Quantity: 1}, // deleted
	}})
	c := &mockCache{}
	sut := newTestService(repo, c, mockDiscounts{1: 25})

	view, err := sut.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, view.Items, 2)

	assert.Equal(t, "60.00", view.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, 25, view.Items[0].DiscountPercentage)
	assert.Equal(t, "120.00", view.Items[0].Subtotal.StringFixed(2))
	assert.Equal(t, "59.31", view.Items[1].Subtotal.StringFixed(2))
	assert.Equal(t, int32(5), view.Count)
	assert.Equal(t, "179.31", view.Subtotal.StringFixed(2))

	assert.NotNil(t, c.getCart(), "cart was not cached")
}

func TestGet_CacheHit(t *testing.T) {
	repo := newMockRepository() // repo should NOT be consulted
	c := &mockCache{cart: &Cart{OwnerID: "u1", Items: []Item{{ProductID: 2, Quantity: 1}}}}
	sut := newTestService(repo, c, nil)

	view, err := sut.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, int64(2), view.Items[0].Product.ID)
}

func TestGet_CartNotFound_ReturnsEmptyCart(t *testing.T) {
	sut := newTestService(newMockRepository(), &mockCache{}, nil)

	view, err := sut.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", view.OwnerID)
	assert.True(t, view.IsEmpty())
	assert.Equal(t, int32(0), view.Count)
	assert.True(t, view.Subtotal.IsZero())
}

func TestGet_RepoError(t *testing.T) {
	repo := newMockRepository()
	repo.err = fmt.Errorf("database error")
	c := &mockCache{}
	sut := newTestService(repo, c, nil)

	_, err := sut.Get(context.Background(), "u1")
	require.ErrorContains(t, err, "database error")
	assert.Nil(t, c.getCart())
}

func TestAdd_NewAndExistingLine(t *testing.T) {
	repo := newMockRepository()
	c := &mockCache{cart: &Cart{OwnerID: "u1"}}
	sut := newTestService(repo, c, nil)
	ctx := context.Background()

	require.NoError(t, sut.Add(ctx, "u1", 1, 1))
	require.NoError(t, sut.Add(ctx, "u1", 1, 2))
	assert.Equal(t, int32(3), repo.quantity("u1", 1))

	require.Eventually(t, func() bool {
		return c.getCart() == nil
	}, 100*time.Millisecond, 10*time.Millisecond, "cache was not invalidated")
}

func TestAdd_CapsAtMaxQuantity(t *testing.T) {
	repo := newMockRepository(&Cart{OwnerID: "u1", Items: []Item{{ProductID: 2, Quantity: 98}}})
	sut := newTestService(repo, &mockCache{}, nil)

	require.NoError(t, sut.Add(context.Background(), "u1", 2, 5))
	assert.Equal(t, int32(MaxQuantity), repo.quantity("u1", 2))
}

func TestAdd_Errors(t *testing.T) {
	ctx := context.Background()
	sut := newTestService(newMockRepository(), &mockCache{}, nil)

	assert.ErrorIs(t, sut.Add(ctx, "u1", 1, 0), ErrInvalidQuantity)
	assert.ErrorIs(t, sut.Add(ctx, "u1", 4, 1), errProductNotFound)
	assert.ErrorIs(t, sut.Add(ctx, "u1", 99, 1), errProductNotFound)
	assert.ErrorIs(t, sut.Add(ctx, "u1", 3, 3), ErrInsufficientStock)
}

func TestAdd_RepoError(t *testing.T) {
	repo := newMockRepository()
	repo.err = fmt.Errorf("database error")
	sut := newTestService(repo, &mockCache{}, nil)

	require.ErrorContains(t, sut.Add(context.Background(), "u1", 1, 1), "database error")
}

func TestChangeQuantity(t *testing.T) {
	repo := newMockRepository(&Cart{OwnerID: "u1", Items: []Item{
		{ProductID: 1, Quantity: 2},
		{ProductID: 3, Quantity: 2},
	}})
	sut := newTestService(repo, &mockCache{}, nil)
	ctx := context.Background()

	require.NoError(t, sut.ChangeQuantity(ctx, "u1", 1, 1))
	assert.Equal(t, int32(3), repo.quantity("u1", 1))

	require.NoError(t, sut.ChangeQuantity(ctx, "u1", 1, -1))
	assert.Equal(t, int32(2), repo.quantity("u1", 1))

	// Going to zero leaves the line unchanged.
	require.NoError(t, sut.ChangeQuantity(ctx, "u1", 1, -2))
	assert.Equal(t, int32(2), repo.quantity("u1", 1))

	assert.ErrorIs(t, sut.ChangeQuantity(ctx, "u1", 3, 1), ErrInsufficientStock)
	assert.ErrorIs(t, sut.ChangeQuantity(ctx, "u1", 2, 1), ErrItemNotInCart)
}

func TestSetQuantity(t *testing.T) {
	repo := newMockRepository(&Cart{OwnerID: "u1", Items: []Item{{ProductID: 2, Quantity: 1}}})
	sut := newTestService(repo, &mockCache{}, nil)
	ctx := context.Background()

	require.NoError(t, sut.SetQuantity(ctx, "u1", 2, 40))
	assert.Equal(t, int32(40), repo.quantity("u1", 2))

	assert.ErrorIs(t, sut.SetQuantity(ctx, "u1", 2, 0), ErrInvalidQuantity)
	assert.ErrorIs(t, sut.SetQuantity(ctx, "u1", 2, 100), ErrInvalidQuantity)
	assert.ErrorIs(t, sut.SetQuantity(ctx, "u1", 1, 1), ErrItemNotInCart)
}

func TestRemove(t *testing.T) {
	repo := newMockRepository(&Cart{OwnerID: "u1", Items: []Item{
		{ProductID: 1, Quantity: 5},
		{ProductID: 2, Quantity: 10},
	}})
	c := &mockCache{cart: &Cart{}}
	sut := newTestService(repo, c, nil)

	require.NoError(t, sut.Remove(context.Background(), "u1", 1))
	assert.Equal(t, int32(0), repo.quantity("u1", 1))
	assert.Equal(t, int32(10), repo.quantity("u1", 2))
	assert.Nil(t, c.getCart())

	// Removing from a missing cart is a no-op.
	assert.NoError(t, sut.Remove(context.Background(), "nobody", 1))
}

func TestClear(t *testing.T) {
	repo := newMockRepository(&Cart{OwnerID: "u1", Items: []Item{{ProductID: 1, Quantity: 5}}})
	c := &mockCache{cart: &Cart{}}
	sut := newTestService(repo, c, nil)

	require.NoError(t, sut.Clear(context.Background(), "u1"))
	_, err := repo.GetCart(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrCartNotFound)
	assert.Nil(t, c.getCart())

	assert.NoError(t, sut.Clear(context.Background(), "u1"))
}

// gatedRepository pauses the first GetCart after it has read the cart, so a
// test can change the cart while that read is in flight.
type gatedRepository struct {
	*mockRepository
	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func (g *gatedRepository) GetCart(ctx context.Context, ownerID string) (*Cart, error) {
	c, err := g.mockRepository.GetCart(ctx, ownerID)
	g.once.Do(func() {
		close(g.read)
		<-g.release
	})
	return c, err
}

func TestGet_ClearDuringReadIsNotCached(t *testing.T) {
	repo := &gatedRepository{
		mockRepository: newMockRepository(&Cart{OwnerID: "u1", Items: []Item{{ProductID: 1, Quantity: 1}}}),
		read:           make(chan struct{}),
		release:        make(chan struct{}),
	}
	c := &mockCache{}
	sut := NewService(repo, c, catalogFixture(), nil, shipping.FlatRate())
	ctx := context.Background()

	done := make(chan *View, 1)
	go func() {
		view, err := sut.Get(ctx, "u1")
		assert.NoError(t, err)
		done <- view
	}()

	<-repo.read
	require.NoError(t, sut.Clear(ctx, "u1"))
	close(repo.release)

	inFlight := <-done
	require.NotNil(t, inFlight)
	assert.Len(t, inFlight.Items, 1)
	assert.Nil(t, c.getCart(), "cart read before Clear must not be cached")

	view, err := sut.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, view.IsEmpty())
}

func TestSnapshot_IgnoresCache(t *testing.T) {
	repo := newMockRepository(&Cart{OwnerID: "u1", Items: []Item{{ProductID: 2, Quantity: 4}}})
	c := &mockCache{cart: &Cart{OwnerID: "u1", Items: []Item{{ProductID: 1, Quantity: 1}}}}
	sut := newTestService(repo, c, nil)

	view, err := sut.Snapshot(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, int64(2), view.Items[0].Product.ID)

	require.NoError(t, repo.DeleteCart(context.Background(), "u1"))
	view, err = sut.Snapshot(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, view.IsEmpty())
}

func TestClear_RepoError(t *testing.T) {
	repo := newMockRepository()
	repo.err = fmt.Errorf("database error")
	sut := newTestService(repo, &mockCache{}, nil)

	require.ErrorContains(t, sut.Clear(context.Background(), "u1"), "database error")
}

func TestMerge(t *testing.T) {
	guest := GuestOwner("7f1c")
	repo := newMockRepository(
		&Cart{OwnerID: guest, Items: []Item{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 90}}},
		&Cart{OwnerID: "u1", Items: []Item{{ProductID: 2, Quantity: 20}}},
	)
	sut := newTestService(repo, &mockCache{}, nil)

	require.NoError(t, sut.Merge(context.Background(), guest, "u1"))
	assert.Equal(t, int32(2), repo.quantity("u1", 1))
	assert.Equal(t, int32(MaxQuantity), repo.quantity("u1", 2))

	_, err := repo.GetCart(context.Background(), guest)
	assert.ErrorIs(t, err, ErrCartNotFound)

	// No guest cart: nothing to do.
	assert.NoError(t, sut.Merge(context.Background(), GuestOwner("none"), "u1"))
}

func TestMerge_OnlyFromGuestCarts(t *testing.T) {
	repo := newMockRepository(
		&Cart{OwnerID: "u2", Items: []Item{{ProductID: 1, Quantity: 3}}},
		&Cart{OwnerID: "u1"},
	)
	sut := newTestService(repo, &mockCache{}, nil)

	require.NoError(t, sut.Merge(context.Background(), "u2", "u1"))
	assert.Equal(t, int32(0), repo.quantity("u1", 1))
	assert.Equal(t, int32(3), repo.quantity("u2", 1))

	assert.NoError(t, sut.Merge(context.Background(), "", "u1"))
}

func TestEstimateShipping(t *testing.T) {
	sut := newTestService(newMockRepository(), &mockCache{}, nil)

	rate, err := sut.EstimateShipping("95670-000")
	require.NoError(t, err)
	assert.Equal(t, "18.50", rate.StringFixed(2))

	_, err = sut.EstimateShipping("9567")
	assert.ErrorIs(t, err, shipping.ErrInvalidZip)
}

func TestGuestOwner(t *testing.T) {
	assert.Equal(t, "guest:abc", GuestOwner("abc"))
	assert.True(t, IsGuestOwner("guest:abc"))
	assert.False(t, IsGuestOwner("01HZY"))
}
