package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem: строка корзины вместе с текущими данными товара
type CartItem struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price" swaggertype:"string" example:"499.00"`
	Images []string        `json:"images"`
	Stock  int             `json:"stock"`
}

// Subtotal: цена по текущему прайсу товара
func (i CartItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Cart struct {
	Items []CartItem      `json:"items"`
	Total decimal.Decimal `json:"total" swaggertype:"string" example:"998.00"`
	Count int             `json:"count"`
}

func NewCart(items []CartItem) *Cart {
	cart := &Cart{Items: items, Total: decimal.Zero}
	if cart.Items == nil {
		cart.Items = []CartItem{}
	}
	for _, item := range items {
		cart.Total = cart.Total.Add(item.Subtotal())
		cart.Count += item.Quantity
	}
	return cart
}

// AddItemInput тело POST /api/users/cart; quantity по умолчанию 1
type AddItemInput struct {
	ProductID int64 `json:"product_id" binding:"required,min=1"`
	Quantity  int   `json:"quantity" binding:"omitempty,min=1,max=1000"`
}

// UpdateItemInput тело PUT /api/users/cart/:id
type UpdateItemInput struct {
	Quantity int `json:"quantity" binding:"required,min=1,max=1000"`
}
