package models

import "time"

type Category struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Slug          string     `json:"slug"`
	Description   *string    `json:"description"`
	ImageURL      *string    `json:"image_url"`
	ParentID      *int64     `json:"parent_id"`
	ProductsCount int        `json:"products_count"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	Subcategories []Category `json:"subcategories,omitempty"`
}
