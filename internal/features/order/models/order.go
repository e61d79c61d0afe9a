package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status: статус заказа, закрытый набор
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// допустимые переходы; delivered и cancelled терминальные
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
}

func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return s, nil
	default:
		return "", fmt.Errorf("unknown order status %q", raw)
	}
}

// CanTransitionTo сообщает, разрешен ли переход из s в next
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Order: заказ; TotalAmount фиксируется при создании и не пересчитывается
type Order struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	Status          Status          `json:"status" enums:"pending,processing,shipped,delivered,cancelled"`
	TotalAmount     decimal.Decimal `json:"total_amount" swaggertype:"string" example:"998.00"`
	ShippingAddress string          `json:"shipping_address"`
	PaymentMethod   string          `json:"payment_method" example:"cash"`
	PaymentStatus   PaymentStatus   `json:"payment_status" enums:"pending,paid,failed,refunded"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Items           []OrderItem     `json:"items"`
}

// OrderItem: снимок строки корзины на момент заказа
type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price" swaggertype:"string" example:"499.00"`
	CreatedAt time.Time       `json:"created_at"`
	Product   *ProductRef     `json:"product,omitempty"`
}

type ProductRef struct {
	ID     int64    `json:"id"`
	Name   string   `json:"name"`
	Images []string `json:"images"`
}

// CartLine: строка корзины с ценой и остатком, прочитанная под блокировкой
type CartLine struct {
	CartID    int64
	ProductID int64
	Name      string
	Quantity  int
	Price     decimal.Decimal
	Stock     int
}

// CheckoutInput тело POST /api/orders
type CheckoutInput struct {
	ShippingAddress string `json:"shipping_address" binding:"max=1000" example:"Москва, ул. Пушкина, 1"`
	PaymentMethod   string `json:"payment_method" binding:"omitempty,oneof=cash card online" example:"cash"`
}

// UpdateStatusInput тело PATCH /api/orders/:id/status
type UpdateStatusInput struct {
	Status string `json:"status" binding:"required" example:"cancelled"`
}
