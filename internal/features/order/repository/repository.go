package repository

import (
	"context"
	"errors"

	"avastore-backend/internal/features/order/models"
)

var ErrOrderNotFound = errors.New("order not found")

type Transaction interface {
	Commit() error
	Rollback() error
}

type OrderRepository interface {
	BeginTx(ctx context.Context) (Transaction, error)

	// GetCartLinesForUpdate блокирует строки корзины и товаров в порядке product_id
	GetCartLinesForUpdate(ctx context.Context, tx Transaction, userID int64) ([]models.CartLine, error)
	CreateOrderTx(ctx context.Context, tx Transaction, order *models.Order) error
	CreateOrderItemTx(ctx context.Context, tx Transaction, item *models.OrderItem) error
	// DecrementStockTx уменьшает остаток только если его хватает; false, если не хватило
	DecrementStockTx(ctx context.Context, tx Transaction, productID int64, quantity int) (bool, error)
	ClearCartTx(ctx context.Context, tx Transaction, userID int64) error

	GetByID(ctx context.Context, orderID int64) (*models.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Order, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, orderID int64) (*models.Order, error)
	UpdateStatusTx(ctx context.Context, tx Transaction, orderID int64, status models.Status) error
}
