package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"avastore-backend/internal/features/catalog/models"
	"avastore-backend/internal/features/catalog/repository"
	usermodels "avastore-backend/internal/features/user/models"
	"avastore-backend/internal/platform/memory"
)

type memoryRepository struct {
	store *memory.Store
}

func NewMemoryRepository(store *memory.Store) repository.CatalogRepository {
	return &memoryRepository{store: store}
}

func products(s *memory.Store) *memory.Table[models.Product] {
	return memory.GetTable[models.Product](s, memory.TableProducts)
}

func categories(s *memory.Store) *memory.Table[models.Category] {
	return memory.GetTable[models.Category](s, memory.TableCategories)
}

func reviews(s *memory.Store) *memory.Table[models.Review] {
	return memory.GetTable[models.Review](s, memory.TableReviews)
}

func users(s *memory.Store) *memory.Table[usermodels.User] {
	return memory.GetTable[usermodels.User](s, memory.TableUsers)
}

func memTx(ctx context.Context, tx repository.Transaction) (*memory.Tx, error) {
	mtx, ok := tx.(*memory.Tx)
	if !ok {
		return nil, fmt.Errorf("unexpected transaction type %T", tx)
	}
	if err := mtx.Check(ctx); err != nil {
		return nil, err
	}
	return mtx, nil
}

func (r *memoryRepository) BeginTx(ctx context.Context) (repository.Transaction, error) {
	return r.store.Begin(ctx)
}

func matches(p models.Product, f models.ProductFilter) bool {
	if !p.IsActive {
		return false
	}
	if f.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *f.CategoryID) {
		return false
	}
	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
		if !strings.Contains(strings.ToLower(p.Name), search) && !strings.Contains(strings.ToLower(p.Description), search) {
			return false
		}
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	return true
}

func compareBy(a, b models.Product, column string) int {
	switch column {
	case "price":
		return a.Price.Cmp(b.Price)
	case "rating":
		return a.Rating.Cmp(b.Rating)
	case "name":
		return strings.Compare(a.Name, b.Name)
	case "stock":
		return a.Stock - b.Stock
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func (r *memoryRepository) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, int, error) {
	filter.Normalize()

	var (
		page  []models.Product
		total int
	)
	err := r.store.Do(ctx, func() error {
		found := products(r.store).Scan(func(p models.Product) bool { return matches(p, filter) })
		total = len(found)

		sort.SliceStable(found, func(i, j int) bool {
			c := compareBy(found[i], found[j], filter.Sort)
			if c == 0 {
				c = int(found[i].ID - found[j].ID)
			}
			if filter.Desc {
				return c > 0
			}
			return c < 0
		})

		start := filter.Offset()
		if start > len(found) {
			start = len(found)
		}
		end := start + filter.Limit
		if end > len(found) {
			end = len(found)
		}
		page = append(make([]models.Product, 0, end-start), found[start:end]...)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return page, total, nil
}

func (r *memoryRepository) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var result models.Product
	err := r.store.Do(ctx, func() error {
		p, ok := products(r.store).Get(id)
		if !ok || !p.IsActive {
			return repository.ErrProductNotFound
		}
		if p.CategoryID != nil {
			if c, ok := categories(r.store).Get(*p.CategoryID); ok {
				name := c.Name
				p.CategoryName = &name
			}
		}
		if p.SellerID != nil {
			if u, ok := users(r.store).Get(*p.SellerID); ok {
				username := u.Username
				p.SellerUsername = &username
			}
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *memoryRepository) GetProductSeller(ctx context.Context, id int64) (*int64, error) {
	var sellerID *int64
	err := r.store.Do(ctx, func() error {
		p, ok := products(r.store).Get(id)
		if !ok {
			return repository.ErrProductNotFound
		}
		sellerID = p.SellerID
		return nil
	})
	return sellerID, err
}

func (r *memoryRepository) skuTaken(sku *string, exceptID int64) bool {
	if sku == nil {
		return false
	}
	taken := products(r.store).Scan(func(p models.Product) bool {
		return p.ID != exceptID && p.SKU != nil && *p.SKU == *sku
	})
	return len(taken) > 0
}

func (r *memoryRepository) CreateProduct(ctx context.Context, sellerID int64, input models.CreateProductInput) (*models.Product, error) {
	var result models.Product
	err := r.store.Do(ctx, func() error {
		if r.skuTaken(input.SKU, 0) {
			return repository.ErrDuplicateSKU
		}

		now := time.Now()
		seller := sellerID
		p := models.Product{
			ID:          products(r.store).NextID(),
			Name:        input.Name,
			Description: input.Description,
			Price:       input.Price,
			Stock:       input.Stock,
			SKU:         input.SKU,
			CategoryID:  input.CategoryID,
			SellerID:    &seller,
			Images:      append([]string{}, input.Images...),
			Rating:      decimal.Zero,
			IsActive:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if input.OldPrice != nil {
			p.OldPrice = decimal.NewNullDecimal(*input.OldPrice)
		}

		products(r.store).Put(p.ID, p)
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *memoryRepository) UpdateProduct(ctx context.Context, id int64, input models.UpdateProductInput) (*models.Product, error) {
	var result models.Product
	err := r.store.Do(ctx, func() error {
		p, ok := products(r.store).Get(id)
		if !ok {
			return repository.ErrProductNotFound
		}
		if r.skuTaken(input.SKU, id) {
			return repository.ErrDuplicateSKU
		}

		if input.Name != nil {
			p.Name = *input.Name
		}
		if input.Description != nil {
			p.Description = *input.Description
		}
		if input.Price != nil {
			p.Price = *input.Price
		}
		if input.OldPrice != nil {
			p.OldPrice = decimal.NewNullDecimal(*input.OldPrice)
		}
		if input.Stock != nil {
			p.Stock = *input.Stock
		}
		if input.SKU != nil {
			sku := *input.SKU
			p.SKU = &sku
		}
		if input.CategoryID != nil {
			categoryID := *input.CategoryID
			p.CategoryID = &categoryID
		}
		if input.Images != nil {
			p.Images = append([]string{}, input.Images...)
		}
		if input.IsActive != nil {
			p.IsActive = *input.IsActive
		}
		p.UpdatedAt = time.Now()

		products(r.store).Put(id, p)
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func sortByName(list []models.Category) {
	sort.SliceStable(list, func(i, j int) bool { return list[i].Name < list[j].Name })
}

func (r *memoryRepository) ListRootCategories(ctx context.Context) ([]models.Category, error) {
	var result []models.Category
	err := r.store.Do(ctx, func() error {
		result = categories(r.store).Scan(func(c models.Category) bool { return c.ParentID == nil })
		for i := range result {
			id := result[i].ID
			result[i].ProductsCount = len(products(r.store).Scan(func(p models.Product) bool {
				return p.IsActive && p.CategoryID != nil && *p.CategoryID == id
			}))
		}
		sortByName(result)
		return nil
	})
	return result, err
}

func (r *memoryRepository) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	var result models.Category
	err := r.store.Do(ctx, func() error {
		c, ok := categories(r.store).Get(id)
		if !ok {
			return repository.ErrCategoryNotFound
		}
		result = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *memoryRepository) ListSubcategories(ctx context.Context, parentID int64) ([]models.Category, error) {
	var result []models.Category
	err := r.store.Do(ctx, func() error {
		result = categories(r.store).Scan(func(c models.Category) bool {
			return c.ParentID != nil && *c.ParentID == parentID
		})
		sortByName(result)
		return nil
	})
	return result, err
}

func (r *memoryRepository) ListReviews(ctx context.Context, productID int64) ([]models.Review, error) {
	var result []models.Review
	err := r.store.Do(ctx, func() error {
		result = reviews(r.store).Scan(func(rv models.Review) bool { return rv.ProductID == productID })
		// новые сверху
		for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
			result[i], result[j] = result[j], result[i]
		}
		for i := range result {
			if u, ok := users(r.store).Get(result[i].UserID); ok {
				result[i].Username = u.Username
			}
		}
		return nil
	})
	return result, err
}

func (r *memoryRepository) CreateReviewTx(ctx context.Context, tx repository.Transaction, review *models.Review) error {
	if _, err := memTx(ctx, tx); err != nil {
		return err
	}

	now := time.Now()
	review.ID = reviews(r.store).NextID()
	review.CreatedAt = now
	review.UpdatedAt = now

	stored := *review
	stored.Username = ""
	reviews(r.store).Put(review.ID, stored)
	return nil
}

func (r *memoryRepository) RefreshRatingTx(ctx context.Context, tx repository.Transaction, productID int64) error {
	if _, err := memTx(ctx, tx); err != nil {
		return err
	}

	p, ok := products(r.store).Get(productID)
	if !ok {
		return repository.ErrProductNotFound
	}

	list := reviews(r.store).Scan(func(rv models.Review) bool { return rv.ProductID == productID })
	sum := 0
	for _, rv := range list {
		sum += rv.Rating
	}

	p.ReviewsCount = len(list)
	p.Rating = decimal.Zero
	if len(list) > 0 {
		p.Rating = decimal.NewFromInt(int64(sum)).Div(decimal.NewFromInt(int64(len(list)))).Round(2)
	}
	p.UpdatedAt = time.Now()

	products(r.store).Put(productID, p)
	return nil
}

// SeedProduct кладет товар как есть; используется тестами и демо-данными
func SeedProduct(store *memory.Store, p models.Product) models.Product {
	table := products(store)
	if p.ID == 0 {
		p.ID = table.NextID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
		p.UpdatedAt = p.CreatedAt
	}
	table.Put(p.ID, p)
	return p
}

// SeedCategory кладет категорию как есть
func SeedCategory(store *memory.Store, c models.Category) models.Category {
	table := categories(store)
	if c.ID == 0 {
		c.ID = table.NextID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
		c.UpdatedAt = c.CreatedAt
	}
	table.Put(c.ID, c)
	return c
}
