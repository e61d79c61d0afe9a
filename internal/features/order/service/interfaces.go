package service

import (
	"context"
	"time"

	authmodels "avastore-backend/internal/features/auth/models"
	"avastore-backend/internal/features/order/models"
)

type OrderService interface {
	// Checkout атомарно превращает корзину пользователя в заказ
	Checkout(ctx context.Context, userID int64, input models.CheckoutInput) (*models.Order, error)
	List(ctx context.Context, userID int64) ([]models.Order, error)
	Get(ctx context.Context, userID, orderID int64) (*models.Order, error)
	UpdateStatus(ctx context.Context, actor *authmodels.Identity, orderID int64, status string) (*models.Order, error)
}

// Locker: необязательная блокировка оформления на пользователя
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

type Publisher interface {
	Publish(ctx context.Context, event models.Event) error
}

type ProductCache interface {
	InvalidateProducts(ctx context.Context, productIDs ...int64) error
}

type Options struct {
	TxTimeout            time.Duration
	LockTTL              time.Duration
	DefaultPaymentMethod string
}
