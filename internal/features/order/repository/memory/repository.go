package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	cartmodels "avastore-backend/internal/features/cart/models"
	catalogmodels "avastore-backend/internal/features/catalog/models"
	"avastore-backend/internal/features/order/models"
	"avastore-backend/internal/features/order/repository"
	"avastore-backend/internal/platform/memory"
)

type memoryRepository struct {
	store *memory.Store
}

func NewMemoryRepository(store *memory.Store) repository.OrderRepository {
	return &memoryRepository{store: store}
}

func orders(s *memory.Store) *memory.Table[models.Order] {
	return memory.GetTable[models.Order](s, memory.TableOrders)
}

func orderItems(s *memory.Store) *memory.Table[models.OrderItem] {
	return memory.GetTable[models.OrderItem](s, memory.TableOrderItems)
}

func products(s *memory.Store) *memory.Table[catalogmodels.Product] {
	return memory.GetTable[catalogmodels.Product](s, memory.TableProducts)
}

func cart(s *memory.Store) *memory.Table[cartmodels.CartItem] {
	return memory.GetTable[cartmodels.CartItem](s, memory.TableCart)
}

// check: транзакция хранилища уже держит его блокировку, store.Do здесь звать нельзя
func check(ctx context.Context, tx repository.Transaction) error {
	mtx, ok := tx.(*memory.Tx)
	if !ok {
		return fmt.Errorf("unexpected transaction type %T", tx)
	}
	return mtx.Check(ctx)
}

func (r *memoryRepository) BeginTx(ctx context.Context) (repository.Transaction, error) {
	return r.store.Begin(ctx)
}

func (r *memoryRepository) GetCartLinesForUpdate(ctx context.Context, tx repository.Transaction, userID int64) ([]models.CartLine, error) {
	if err := check(ctx, tx); err != nil {
		return nil, err
	}

	var lines []models.CartLine
	for _, item := range cart(r.store).Scan(func(i cartmodels.CartItem) bool { return i.UserID == userID }) {
		p, ok := products(r.store).Get(item.ProductID)
		if !ok {
			continue
		}
		lines = append(lines, models.CartLine{
			CartID:    item.ID,
			ProductID: item.ProductID,
			Name:      p.Name,
			Quantity:  item.Quantity,
			Price:     p.Price,
			Stock:     p.Stock,
		})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return lines, nil
}

func (r *memoryRepository) CreateOrderTx(ctx context.Context, tx repository.Transaction, order *models.Order) error {
	if err := check(ctx, tx); err != nil {
		return err
	}

	now := time.Now()
	order.ID = orders(r.store).NextID()
	order.CreatedAt = now
	order.UpdatedAt = now

	stored := *order
	stored.Items = nil
	orders(r.store).Put(order.ID, stored)
	return nil
}

func (r *memoryRepository) CreateOrderItemTx(ctx context.Context, tx repository.Transaction, item *models.OrderItem) error {
	if err := check(ctx, tx); err != nil {
		return err
	}

	item.ID = orderItems(r.store).NextID()
	item.CreatedAt = time.Now()

	stored := *item
	stored.Product = nil
	orderItems(r.store).Put(item.ID, stored)
	return nil
}

func (r *memoryRepository) DecrementStockTx(ctx context.Context, tx repository.Transaction, productID int64, quantity int) (bool, error) {
	if err := check(ctx, tx); err != nil {
		return false, err
	}

	p, ok := products(r.store).Get(productID)
	if !ok || p.Stock < quantity {
		return false, nil
	}
	p.Stock -= quantity
	p.UpdatedAt = time.Now()
	products(r.store).Put(productID, p)
	return true, nil
}

func (r *memoryRepository) ClearCartTx(ctx context.Context, tx repository.Transaction, userID int64) error {
	if err := check(ctx, tx); err != nil {
		return err
	}

	table := cart(r.store)
	for _, item := range table.Scan(func(i cartmodels.CartItem) bool { return i.UserID == userID }) {
		table.Delete(item.ID)
	}
	return nil
}

// withItems вызывается под блокировкой хранилища
func (r *memoryRepository) withItems(o models.Order) models.Order {
	o.Items = orderItems(r.store).Scan(func(i models.OrderItem) bool { return i.OrderID == o.ID })
	for i := range o.Items {
		if p, ok := products(r.store).Get(o.Items[i].ProductID); ok {
			o.Items[i].Product = &models.ProductRef{
				ID:     p.ID,
				Name:   p.Name,
				Images: append([]string{}, p.Images...),
			}
		}
	}
	if o.Items == nil {
		o.Items = []models.OrderItem{}
	}
	return o
}

func (r *memoryRepository) GetByID(ctx context.Context, orderID int64) (*models.Order, error) {
	var result models.Order
	err := r.store.Do(ctx, func() error {
		o, ok := orders(r.store).Get(orderID)
		if !ok {
			return repository.ErrOrderNotFound
		}
		result = r.withItems(o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *memoryRepository) ListByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	var result []models.Order
	err := r.store.Do(ctx, func() error {
		for _, o := range orders(r.store).Scan(func(o models.Order) bool { return o.UserID == userID }) {
			result = append(result, r.withItems(o))
		}
		// новые сверху
		sort.SliceStable(result, func(i, j int) bool { return result[i].ID > result[j].ID })
		return nil
	})
	return result, err
}

func (r *memoryRepository) GetByIDForUpdate(ctx context.Context, tx repository.Transaction, orderID int64) (*models.Order, error) {
	if err := check(ctx, tx); err != nil {
		return nil, err
	}

	o, ok := orders(r.store).Get(orderID)
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return &o, nil
}

func (r *memoryRepository) UpdateStatusTx(ctx context.Context, tx repository.Transaction, orderID int64, status models.Status) error {
	if err := check(ctx, tx); err != nil {
		return err
	}

	o, ok := orders(r.store).Get(orderID)
	if !ok {
		return repository.ErrOrderNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	orders(r.store).Put(orderID, o)
	return nil
}
