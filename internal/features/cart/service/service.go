package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	apperrors "avastore-backend/internal/common/errors"
	"avastore-backend/internal/common/validation"
	"avastore-backend/internal/features/cart/models"
	"avastore-backend/internal/features/cart/repository"
)

type cartService struct {
	repo     repository.CartRepository
	products ProductReader
	logger   *zap.Logger
}

func NewCartService(repo repository.CartRepository, products ProductReader, logger *zap.Logger) CartService {
	return &cartService{
		repo:     repo,
		products: products,
		logger:   logger,
	}
}

func (s *cartService) GetCart(ctx context.Context, userID int64) (*models.Cart, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, mapError(err, "list cart", 0)
	}
	return models.NewCart(items), nil
}

func (s *cartService) AddItem(ctx context.Context, userID int64, input models.AddItemInput) (*models.CartItem, bool, error) {
	if input.Quantity == 0 {
		input.Quantity = 1
	}
	if err := validation.ValidateQuantity(input.Quantity); err != nil {
		return nil, false, err
	}

	// товар должен существовать и быть активным
	product, err := s.products.GetProduct(ctx, input.ProductID)
	if err != nil {
		return nil, false, err
	}
	if product.Stock < input.Quantity {
		return nil, false, apperrors.New(apperrors.ErrCodeInsufficientStock,
			fmt.Sprintf("Insufficient stock for %s", product.Name)).
			WithDetail("product_id", product.ID).
			WithDetail("available", product.Stock)
	}

	item, created, err := s.repo.Add(ctx, userID, input.ProductID, input.Quantity)
	if err != nil {
		return nil, false, mapError(err, "add cart item", 0)
	}

	s.logger.Debug("Cart item added",
		zap.Int64("user_id", userID),
		zap.Int64("product_id", input.ProductID),
		zap.Int("quantity", item.Quantity),
		zap.Bool("created", created),
	)
	return item, created, nil
}

func (s *cartService) UpdateItem(ctx context.Context, userID, itemID int64, input models.UpdateItemInput) (*models.CartItem, error) {
	if err := validation.ValidateQuantity(input.Quantity); err != nil {
		return nil, err
	}

	item, err := s.repo.UpdateQuantity(ctx, userID, itemID, input.Quantity)
	if err != nil {
		return nil, mapError(err, "update cart item", itemID)
	}
	return item, nil
}

func (s *cartService) RemoveItem(ctx context.Context, userID, itemID int64) error {
	if err := s.repo.Delete(ctx, userID, itemID); err != nil {
		return mapError(err, "delete cart item", itemID)
	}
	return nil
}

func mapError(err error, operation string, id int64) error {
	switch {
	case errors.Is(err, repository.ErrCartItemNotFound):
		return apperrors.NewNotFoundError(apperrors.ErrCodeCartItemNotFound, "Cart item", id)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewTimeoutError(operation, err)
	default:
		return apperrors.NewDatabaseError(operation, err)
	}
}
