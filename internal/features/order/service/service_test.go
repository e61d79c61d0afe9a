package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "avastore-backend/internal/common/errors"
	authmodels "avastore-backend/internal/features/auth/models"
	cartrepo "avastore-backend/internal/features/cart/repository"
	cartmemory "avastore-backend/internal/features/cart/repository/memory"
	catalogmodels "avastore-backend/internal/features/catalog/models"
	catalogmemory "avastore-backend/internal/features/catalog/repository/memory"
	"avastore-backend/internal/features/order/models"
	ordermemory "avastore-backend/internal/features/order/repository/memory"
	"avastore-backend/internal/platform/memory"
	"avastore-backend/internal/platform/redis"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event models.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Events() []models.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Event(nil), p.events...)
}

type recordingCache struct {
	mu  sync.Mutex
	ids []int64
}

func (c *recordingCache) InvalidateProducts(_ context.Context, ids ...int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = append(c.ids, ids...)
	return nil
}

type lockedLocker struct{}

func (lockedLocker) Acquire(context.Context, string, time.Duration) (func(), error) {
	return nil, redis.ErrLocked
}

type fixture struct {
	store     *memory.Store
	cart      cartrepo.CartRepository
	service   OrderService
	publisher *recordingPublisher
	cache     *recordingCache
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()

	store := memory.NewStore()
	f := &fixture{
		store:     store,
		cart:      cartmemory.NewMemoryRepository(store),
		publisher: &recordingPublisher{},
		cache:     &recordingCache{},
	}
	f.service = NewOrderService(ordermemory.NewMemoryRepository(store), nil, f.publisher, f.cache, opts, zap.NewNop())
	return f
}

func (f *fixture) product(name, price string, stock int) catalogmodels.Product {
	return catalogmemory.SeedProduct(f.store, catalogmodels.Product{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		IsActive: true,
	})
}

func (f *fixture) addToCart(t *testing.T, userID, productID int64, quantity int) {
	t.Helper()
	_, _, err := f.cart.Add(context.Background(), userID, productID, quantity)
	require.NoError(t, err)
}

func (f *fixture) stock(t *testing.T, productID int64) int {
	t.Helper()
	var stock int
	require.NoError(t, f.store.Do(context.Background(), func() error {
		p, _ := memory.GetTable[catalogmodels.Product](f.store, memory.TableProducts).Get(productID)
		stock = p.Stock
		return nil
	}))
	return stock
}

func (f *fixture) cartLen(t *testing.T, userID int64) int {
	t.Helper()
	items, err := f.cart.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	return len(items)
}

func (f *fixture) ordersCount(t *testing.T) int {
	t.Helper()
	var n int
	require.NoError(t, f.store.Do(context.Background(), func() error {
		n = memory.GetTable[models.Order](f.store, memory.TableOrders).Len()
		return nil
	}))
	return n
}

func TestCheckout_ExactStock(t *testing.T) {
	f := newFixture(t, Options{})
	p := f.product("Кружка", "199.90", 3)
	f.addToCart(t, 1, p.ID, 3)

	order, err := f.service.Checkout(context.Background(), 1, models.CheckoutInput{ShippingAddress: " Москва "})
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, models.PaymentPending, order.PaymentStatus)
	assert.Equal(t, "cash", order.PaymentMethod)
	assert.Equal(t, "Москва", order.ShippingAddress)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("599.70")), order.TotalAmount.String())
	require.Len(t, order.Items, 1)
	assert.Equal(t, 3, order.Items[0].Quantity)
	assert.True(t, order.Items[0].Price.Equal(p.Price))

	assert.Equal(t, 0, f.stock(t, p.ID))
	assert.Equal(t, 0, f.cartLen(t, 1))

	events := f.publisher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, models.EventOrderCreated, events[0].Type)
	assert.Equal(t, order.ID, events[0].OrderID)
	assert.Equal(t, []int64{p.ID}, f.cache.ids)
}

func TestCheckout_InsufficientStockChangesNothing(t *testing.T) {
	f := newFixture(t, Options{})
	ok := f.product("Футболка", "500", 10)
	short := f.product("Кружка", "100", 2)
	f.addToCart(t, 1, ok.ID, 1)
	f.addToCart(t, 1, short.ID, 3)

	_, err := f.service.Checkout(context.Background(), 1, models.CheckoutInput{})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInsufficientStock))
	assert.Contains(t, err.Error(), "Insufficient stock for Кружка")

	assert.Equal(t, 10, f.stock(t, ok.ID))
	assert.Equal(t, 2, f.stock(t, short.ID))
	assert.Equal(t, 2, f.cartLen(t, 1))
	assert.Equal(t, 0, f.ordersCount(t))
	assert.Empty(t, f.publisher.Events())
}

func TestCheckout_ConcurrentLastUnit(t *testing.T) {
	f := newFixture(t, Options{})
	p := f.product("Последняя кружка", "100", 1)
	f.addToCart(t, 1, p.ID, 1)
	f.addToCart(t, 2, p.ID, 1)

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.Checkout(context.Background(), int64(i+1), models.CheckoutInput{})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t,
			apperrors.HasCode(err, apperrors.ErrCodeInsufficientStock) || apperrors.HasCode(err, apperrors.ErrCodeConflict),
			err.Error())
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 0, f.stock(t, p.ID))
	assert.Equal(t, 1, f.ordersCount(t))
}

func TestCheckout_TotalSurvivesPriceChange(t *testing.T) {
	f := newFixture(t, Options{})
	a := f.product("Кружка", "250.50", 5)
	b := f.product("Футболка", "1000", 5)
	f.addToCart(t, 1, b.ID, 1)
	f.addToCart(t, 1, a.ID, 2)

	order, err := f.service.Checkout(context.Background(), 1, models.CheckoutInput{PaymentMethod: "card"})
	require.NoError(t, err)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("1501")))

	// позиции идут в порядке блокировки товаров
	require.Len(t, order.Items, 2)
	assert.Equal(t, a.ID, order.Items[0].ProductID)
	assert.Equal(t, b.ID, order.Items[1].ProductID)

	a.Price = decimal.RequireFromString("999")
	a.Stock = 3
	catalogmemory.SeedProduct(f.store, a)

	got, err := f.service.Get(context.Background(), 1, order.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("1501")))
	assert.Equal(t, "card", got.PaymentMethod)
	require.Len(t, got.Items, 2)
	assert.True(t, got.Items[0].Price.Equal(decimal.RequireFromString("250.50")))
	require.NotNil(t, got.Items[0].Product)
	assert.Equal(t, "Кружка", got.Items[0].Product.Name)
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := newFixture(t, Options{})

	_, err := f.service.Checkout(context.Background(), 1, models.CheckoutInput{})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeEmptyCart))
	assert.Equal(t, 0, f.ordersCount(t))
}

func TestCheckout_InvalidPaymentMethod(t *testing.T) {
	f := newFixture(t, Options{})
	p := f.product("Кружка", "100", 1)
	f.addToCart(t, 1, p.ID, 1)

	_, err := f.service.Checkout(context.Background(), 1, models.CheckoutInput{PaymentMethod: "barter"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
	assert.Equal(t, 1, f.stock(t, p.ID))
}

func TestCheckout_Timeout(t *testing.T) {
	f := newFixture(t, Options{TxTimeout: 30 * time.Millisecond})
	p := f.product("Кружка", "100", 1)
	f.addToCart(t, 1, p.ID, 1)

	// чужая транзакция держит хранилище дольше таймаута
	blocker, err := f.store.Begin(context.Background())
	require.NoError(t, err)

	_, err = f.service.Checkout(context.Background(), 1, models.CheckoutInput{})
	require.NoError(t, blocker.Rollback())

	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeTimeout), err)
	assert.Equal(t, 1, f.stock(t, p.ID))
	assert.Equal(t, 1, f.cartLen(t, 1))
}

func TestCheckout_DuplicateSubmitRejected(t *testing.T) {
	store := memory.NewStore()
	service := NewOrderService(ordermemory.NewMemoryRepository(store), lockedLocker{}, nil, nil, Options{}, zap.NewNop())

	_, err := service.Checkout(context.Background(), 1, models.CheckoutInput{})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeConflict))
}

func placeOrder(t *testing.T, f *fixture, userID int64) *models.Order {
	t.Helper()
	p := f.product("Кружка", "100", 10)
	f.addToCart(t, userID, p.ID, 1)
	order, err := f.service.Checkout(context.Background(), userID, models.CheckoutInput{})
	require.NoError(t, err)
	return order
}

func TestUpdateStatus_OwnerMayOnlyCancel(t *testing.T) {
	f := newFixture(t, Options{})
	order := placeOrder(t, f, 1)
	owner := &authmodels.Identity{UserID: 1}

	_, err := f.service.UpdateStatus(context.Background(), owner, order.ID, "processing")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeForbidden))

	_, err = f.service.UpdateStatus(context.Background(), &authmodels.Identity{UserID: 2}, order.ID, "cancelled")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeOrderNotFound))

	updated, err := f.service.UpdateStatus(context.Background(), owner, order.ID, "Cancelled")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, updated.Status)

	_, err = f.service.UpdateStatus(context.Background(), owner, order.ID, "cancelled")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidStatusTransition))

	events := f.publisher.Events()
	require.Len(t, events, 2)
	assert.Equal(t, models.EventOrderStatusChanged, events[1].Type)
	assert.Equal(t, models.StatusCancelled, events[1].Status)
}

func TestUpdateStatus_AdminTransitions(t *testing.T) {
	f := newFixture(t, Options{})
	order := placeOrder(t, f, 1)
	admin := &authmodels.Identity{UserID: 99, IsAdmin: true}

	_, err := f.service.UpdateStatus(context.Background(), admin, order.ID, "delivered")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidStatusTransition))

	for _, status := range []string{"processing", "shipped", "delivered"} {
		updated, err := f.service.UpdateStatus(context.Background(), admin, order.ID, status)
		require.NoError(t, err, status)
		assert.Equal(t, models.Status(status), updated.Status)
	}

	_, err = f.service.UpdateStatus(context.Background(), admin, order.ID, "cancelled")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidStatusTransition))

	_, err = f.service.UpdateStatus(context.Background(), admin, order.ID, "lost")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))

	_, err = f.service.UpdateStatus(context.Background(), admin, 12345, "processing")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeOrderNotFound))
}

func TestCancel_DoesNotRestock(t *testing.T) {
	f := newFixture(t, Options{})
	p := f.product("Кружка", "100", 2)
	f.addToCart(t, 1, p.ID, 2)
	order, err := f.service.Checkout(context.Background(), 1, models.CheckoutInput{})
	require.NoError(t, err)

	_, err = f.service.UpdateStatus(context.Background(), &authmodels.Identity{UserID: 1}, order.ID, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, 0, f.stock(t, p.ID))
}

func TestListAndGet_ScopedToOwner(t *testing.T) {
	f := newFixture(t, Options{})
	first := placeOrder(t, f, 1)
	second := placeOrder(t, f, 1)
	other := placeOrder(t, f, 2)

	orders, err := f.service.List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID, orders[0].ID)
	assert.Equal(t, first.ID, orders[1].ID)

	_, err = f.service.Get(context.Background(), 1, other.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeOrderNotFound))

	orders, err = f.service.List(context.Background(), 3)
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.NotNil(t, orders)
}
