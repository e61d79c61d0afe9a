package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product: товар каталога
// @Description Товар
type Product struct {
	ID           int64               `json:"id" example:"1"`
	Name         string              `json:"name" example:"Кружка"`
	Description  string              `json:"description"`
	Price        decimal.Decimal     `json:"price" swaggertype:"string" example:"499.00"`
	OldPrice     decimal.NullDecimal `json:"old_price" swaggertype:"string" example:"599.00"`
	Stock        int                 `json:"stock" example:"10"`
	SKU          *string             `json:"sku"`
	CategoryID   *int64              `json:"category_id"`
	SellerID     *int64              `json:"seller_id"`
	Images       []string            `json:"images"`
	Rating       decimal.Decimal     `json:"rating" swaggertype:"string" example:"4.50"`
	ReviewsCount int                 `json:"reviews_count"`
	IsActive     bool                `json:"is_active"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`

	// заполняются только в карточке товара
	CategoryName   *string `json:"category_name,omitempty"`
	SellerUsername *string `json:"seller_username,omitempty"`
}

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Колонки, по которым разрешена сортировка
var SortColumns = map[string]string{
	"created_at": "created_at",
	"price":      "price",
	"name":       "name",
	"rating":     "rating",
	"stock":      "stock",
}

// ProductFilter: параметры GET /api/products
type ProductFilter struct {
	CategoryID *int64
	Search     string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Sort       string
	Desc       bool
	Page       int
	Limit      int
}

// Normalize подставляет значения по умолчанию и отбрасывает неизвестную сортировку
func (f *ProductFilter) Normalize() {
	if _, ok := SortColumns[f.Sort]; !ok {
		f.Sort = "created_at"
		f.Desc = true
	}
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
}

func (f ProductFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

type ProductPage struct {
	Products   []Product  `json:"products"`
	Pagination Pagination `json:"pagination"`
}

// CreateProductInput тело POST /api/products
type CreateProductInput struct {
	Name        string           `json:"name" binding:"required,max=255"`
	Description string           `json:"description" binding:"max=5000"`
	Price       decimal.Decimal  `json:"price" swaggertype:"string"`
	OldPrice    *decimal.Decimal `json:"old_price" swaggertype:"string"`
	Stock       int              `json:"stock" binding:"min=0"`
	SKU         *string          `json:"sku" binding:"omitempty,max=100"`
	CategoryID  *int64           `json:"category_id"`
	Images      []string         `json:"images" binding:"max=10,dive,url"`
}

// UpdateProductInput тело PUT /api/products/:id; nil оставляет поле как есть
type UpdateProductInput struct {
	Name        *string          `json:"name" binding:"omitempty,min=1,max=255"`
	Description *string          `json:"description" binding:"omitempty,max=5000"`
	Price       *decimal.Decimal `json:"price" swaggertype:"string"`
	OldPrice    *decimal.Decimal `json:"old_price" swaggertype:"string"`
	Stock       *int             `json:"stock" binding:"omitempty,min=0"`
	SKU         *string          `json:"sku" binding:"omitempty,max=100"`
	CategoryID  *int64           `json:"category_id"`
	Images      []string         `json:"images" binding:"omitempty,max=10,dive,url"`
	IsActive    *bool            `json:"is_active"`
}
