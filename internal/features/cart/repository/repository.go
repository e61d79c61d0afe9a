package repository

import (
	"context"
	"errors"

	"avastore-backend/internal/features/cart/models"
)

var ErrCartItemNotFound = errors.New("cart item not found")

type CartRepository interface {
	ListByUser(ctx context.Context, userID int64) ([]models.CartItem, error)
	// Add увеличивает количество, если товар уже в корзине; created=true для новой строки
	Add(ctx context.Context, userID, productID int64, quantity int) (item *models.CartItem, created bool, err error)
	UpdateQuantity(ctx context.Context, userID, itemID int64, quantity int) (*models.CartItem, error)
	Delete(ctx context.Context, userID, itemID int64) error
}
