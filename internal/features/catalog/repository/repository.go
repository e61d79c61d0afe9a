package repository

import (
	"context"
	"errors"

	"avastore-backend/internal/features/catalog/models"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrDuplicateSKU     = errors.New("sku already exists")
)

type Transaction interface {
	Commit() error
	Rollback() error
}

type CatalogRepository interface {
	BeginTx(ctx context.Context) (Transaction, error)

	// ListProducts возвращает страницу активных товаров и общее число подходящих под фильтр
	ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, int, error)
	// GetProduct: активный товар с названием категории и username продавца
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	// GetProductSeller возвращает продавца товара независимо от is_active
	GetProductSeller(ctx context.Context, id int64) (*int64, error)
	CreateProduct(ctx context.Context, sellerID int64, input models.CreateProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id int64, input models.UpdateProductInput) (*models.Product, error)

	ListRootCategories(ctx context.Context) ([]models.Category, error)
	GetCategory(ctx context.Context, id int64) (*models.Category, error)
	ListSubcategories(ctx context.Context, parentID int64) ([]models.Category, error)

	ListReviews(ctx context.Context, productID int64) ([]models.Review, error)
	CreateReviewTx(ctx context.Context, tx Transaction, review *models.Review) error
	// RefreshRatingTx пересчитывает rating и reviews_count товара по его отзывам
	RefreshRatingTx(ctx context.Context, tx Transaction, productID int64) error
}
