package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"avastore-backend/internal/features/cart/models"
	"avastore-backend/internal/features/cart/repository"
	catalogmodels "avastore-backend/internal/features/catalog/models"
	"avastore-backend/internal/platform/memory"
)

type memoryRepository struct {
	store *memory.Store
}

func NewMemoryRepository(store *memory.Store) repository.CartRepository {
	return &memoryRepository{store: store}
}

func lines(s *memory.Store) *memory.Table[models.CartItem] {
	return memory.GetTable[models.CartItem](s, memory.TableCart)
}

// withProduct дополняет строку полями товара, как JOIN в postgres
func (r *memoryRepository) withProduct(item models.CartItem) (models.CartItem, bool) {
	p, ok := memory.GetTable[catalogmodels.Product](r.store, memory.TableProducts).Get(item.ProductID)
	if !ok {
		return item, false
	}
	item.Name = p.Name
	item.Price = p.Price
	item.Images = append([]string{}, p.Images...)
	item.Stock = p.Stock
	return item, true
}

func (r *memoryRepository) ListByUser(ctx context.Context, userID int64) ([]models.CartItem, error) {
	var result []models.CartItem
	err := r.store.Do(ctx, func() error {
		for _, item := range lines(r.store).Scan(func(i models.CartItem) bool { return i.UserID == userID }) {
			if joined, ok := r.withProduct(item); ok {
				result = append(result, joined)
			}
		}
		sort.SliceStable(result, func(i, j int) bool { return result[i].ID > result[j].ID })
		return nil
	})
	return result, err
}

func (r *memoryRepository) Add(ctx context.Context, userID, productID int64, quantity int) (*models.CartItem, bool, error) {
	var (
		result  models.CartItem
		created bool
	)
	err := r.store.Do(ctx, func() error {
		table := lines(r.store)
		now := time.Now()

		existing := table.Scan(func(i models.CartItem) bool { return i.UserID == userID && i.ProductID == productID })
		item := models.CartItem{
			UserID:    userID,
			ProductID: productID,
			Quantity:  quantity,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if len(existing) > 0 {
			item = existing[0]
			item.Quantity += quantity
			item.UpdatedAt = now
		} else {
			item.ID = table.NextID()
			created = true
		}

		joined, ok := r.withProduct(item)
		if !ok {
			return fmt.Errorf("product %d does not exist", productID)
		}
		table.Put(item.ID, item)
		result = joined
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &result, created, nil
}

func (r *memoryRepository) UpdateQuantity(ctx context.Context, userID, itemID int64, quantity int) (*models.CartItem, error) {
	var result models.CartItem
	err := r.store.Do(ctx, func() error {
		item, ok := lines(r.store).Get(itemID)
		if !ok || item.UserID != userID {
			return repository.ErrCartItemNotFound
		}
		item.Quantity = quantity
		item.UpdatedAt = time.Now()
		lines(r.store).Put(itemID, item)

		result, _ = r.withProduct(item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *memoryRepository) Delete(ctx context.Context, userID, itemID int64) error {
	return r.store.Do(ctx, func() error {
		item, ok := lines(r.store).Get(itemID)
		if !ok || item.UserID != userID {
			return repository.ErrCartItemNotFound
		}
		lines(r.store).Delete(itemID)
		return nil
	})
}
