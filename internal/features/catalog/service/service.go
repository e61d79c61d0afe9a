package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"avastore-backend/internal/common/cache"
	apperrors "avastore-backend/internal/common/errors"
	"avastore-backend/internal/common/validation"
	authmodels "avastore-backend/internal/features/auth/models"
	"avastore-backend/internal/features/catalog/models"
	"avastore-backend/internal/features/catalog/repository"
)

const categoryRootsKey = "categories:roots"

type catalogService struct {
	repo       repository.CatalogRepository
	cache      *cache.CacheService
	productTTL time.Duration
	logger     *zap.Logger
}

func NewCatalogService(repo repository.CatalogRepository, cacheService *cache.CacheService, productTTL time.Duration, logger *zap.Logger) CatalogService {
	return &catalogService{
		repo:       repo,
		cache:      cacheService,
		productTTL: productTTL,
		logger:     logger,
	}
}

func (s *catalogService) ListProducts(ctx context.Context, filter models.ProductFilter) (*models.ProductPage, error) {
	filter.Normalize()

	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return nil, apperrors.NewValidationError("min_price", "must not exceed max_price")
	}

	products, total, err := s.repo.ListProducts(ctx, filter)
	if err != nil {
		return nil, mapError(err, "list products", 0)
	}

	return &models.ProductPage{
		Products:   products,
		Pagination: models.NewPagination(filter.Page, filter.Limit, total),
	}, nil
}

// GetProduct читает карточку через кэш
func (s *catalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.cache.GetOrSet(ctx, cache.ProductKey(id), &product, s.productTTL, func() (interface{}, error) {
		p, err := s.repo.GetProduct(ctx, id)
		if err != nil {
			return nil, mapError(err, "get product", id)
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, actor *authmodels.Identity, input models.CreateProductInput) (*models.Product, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, apperrors.NewValidationError("name", "is required")
	}
	if err := validation.ValidatePrice("price", input.Price); err != nil {
		return nil, err
	}
	if input.OldPrice != nil {
		if err := validation.ValidatePrice("old_price", *input.OldPrice); err != nil {
			return nil, err
		}
	}
	if input.Stock < 0 {
		return nil, apperrors.NewValidationError("stock", "must not be negative")
	}
	if err := s.ensureCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	product, err := s.repo.CreateProduct(ctx, actor.UserID, input)
	if err != nil {
		return nil, mapError(err, "create product", 0)
	}

	s.invalidate(ctx, product.ID)
	s.logger.Info("Product created",
		zap.Int64("product_id", product.ID),
		zap.Int64("seller_id", actor.UserID),
	)
	return product, nil
}

// UpdateProduct доступен продавцу товара и администратору
func (s *catalogService) UpdateProduct(ctx context.Context, actor *authmodels.Identity, id int64, input models.UpdateProductInput) (*models.Product, error) {
	sellerID, err := s.repo.GetProductSeller(ctx, id)
	if err != nil {
		return nil, mapError(err, "get product seller", id)
	}
	if !actor.IsAdmin && (sellerID == nil || *sellerID != actor.UserID) {
		return nil, apperrors.NewForbiddenError("not authorized to modify this product")
	}

	if input.Price != nil {
		if err := validation.ValidatePrice("price", *input.Price); err != nil {
			return nil, err
		}
	}
	if input.OldPrice != nil {
		if err := validation.ValidatePrice("old_price", *input.OldPrice); err != nil {
			return nil, err
		}
	}
	if input.Stock != nil && *input.Stock < 0 {
		return nil, apperrors.NewValidationError("stock", "must not be negative")
	}
	if err := s.ensureCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	product, err := s.repo.UpdateProduct(ctx, id, input)
	if err != nil {
		return nil, mapError(err, "update product", id)
	}

	s.invalidate(ctx, id)
	return product, nil
}

func (s *catalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	var list []models.Category
	err := s.cache.GetOrSet(ctx, categoryRootsKey, &list, s.productTTL, func() (interface{}, error) {
		categories, err := s.repo.ListRootCategories(ctx)
		if err != nil {
			return nil, mapError(err, "list categories", 0)
		}
		return categories, nil
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (s *catalogService) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	var category models.Category
	key := fmt.Sprintf("categories:%d", id)
	err := s.cache.GetOrSet(ctx, key, &category, s.productTTL, func() (interface{}, error) {
		c, err := s.repo.GetCategory(ctx, id)
		if err != nil {
			return nil, mapError(err, "get category", id)
		}
		subcategories, err := s.repo.ListSubcategories(ctx, id)
		if err != nil {
			return nil, mapError(err, "list subcategories", id)
		}
		c.Subcategories = subcategories
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (s *catalogService) ListReviews(ctx context.Context, productID int64) ([]models.Review, error) {
	reviews, err := s.repo.ListReviews(ctx, productID)
	if err != nil {
		return nil, mapError(err, "list reviews", productID)
	}
	return reviews, nil
}

// AddReview сохраняет отзыв и пересчитывает рейтинг товара в одной транзакции
func (s *catalogService) AddReview(ctx context.Context, actor *authmodels.Identity, productID int64, input models.CreateReviewInput) (*models.Review, error) {
	if err := validation.ValidateRating(input.Rating); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetProduct(ctx, productID); err != nil {
		return nil, mapError(err, "get product", productID)
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, mapError(err, "begin transaction", productID)
	}
	defer tx.Rollback()

	review := &models.Review{
		ProductID: productID,
		UserID:    actor.UserID,
		Username:  actor.Username,
		Rating:    input.Rating,
		Comment:   strings.TrimSpace(input.Comment),
	}
	if err := s.repo.CreateReviewTx(ctx, tx, review); err != nil {
		return nil, mapError(err, "create review", productID)
	}
	if err := s.repo.RefreshRatingTx(ctx, tx, productID); err != nil {
		return nil, mapError(err, "refresh rating", productID)
	}

	if err := tx.Commit(); err != nil {
		return nil, mapError(err, "commit review", productID)
	}

	s.invalidate(ctx, productID)
	return review, nil
}

func (s *catalogService) ensureCategory(ctx context.Context, categoryID *int64) error {
	if categoryID == nil {
		return nil
	}
	if _, err := s.repo.GetCategory(ctx, *categoryID); err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return apperrors.NewValidationError("category_id", "category does not exist")
		}
		return mapError(err, "get category", *categoryID)
	}
	return nil
}

func (s *catalogService) invalidate(ctx context.Context, productIDs ...int64) {
	if err := s.cache.InvalidateProducts(ctx, productIDs...); err != nil {
		s.logger.Warn("Failed to invalidate product cache", zap.Error(err))
	}
}

func mapError(err error, operation string, id int64) error {
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		return apperrors.NewNotFoundError(apperrors.ErrCodeProductNotFound, "Product", id)
	case errors.Is(err, repository.ErrCategoryNotFound):
		return apperrors.NewNotFoundError(apperrors.ErrCodeCategoryNotFound, "Category", id)
	case errors.Is(err, repository.ErrDuplicateSKU):
		return apperrors.NewConflictError("product", "sku already exists")
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewTimeoutError(operation, err)
	default:
		return apperrors.NewDatabaseError(operation, err)
	}
}
