package service

import (
	"context"

	"avastore-backend/internal/features/cart/models"
	catalogmodels "avastore-backend/internal/features/catalog/models"
)

type CartService interface {
	GetCart(ctx context.Context, userID int64) (*models.Cart, error)
	AddItem(ctx context.Context, userID int64, input models.AddItemInput) (item *models.CartItem, created bool, err error)
	UpdateItem(ctx context.Context, userID, itemID int64, input models.UpdateItemInput) (*models.CartItem, error)
	RemoveItem(ctx context.Context, userID, itemID int64) error
}

// ProductReader: то, что корзине нужно от каталога
type ProductReader interface {
	GetProduct(ctx context.Context, id int64) (*catalogmodels.Product, error)
}
