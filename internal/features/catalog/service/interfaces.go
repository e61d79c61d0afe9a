package service

import (
	"context"

	authmodels "avastore-backend/internal/features/auth/models"
	"avastore-backend/internal/features/catalog/models"
)

type CatalogService interface {
	ListProducts(ctx context.Context, filter models.ProductFilter) (*models.ProductPage, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	CreateProduct(ctx context.Context, actor *authmodels.Identity, input models.CreateProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, actor *authmodels.Identity, id int64, input models.UpdateProductInput) (*models.Product, error)

	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategory(ctx context.Context, id int64) (*models.Category, error)

	ListReviews(ctx context.Context, productID int64) ([]models.Review, error)
	AddReview(ctx context.Context, actor *authmodels.Identity, productID int64, input models.CreateReviewInput) (*models.Review, error)
}
