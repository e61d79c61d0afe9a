package models

import "time"

const (
	RoleCustomer = "customer"
	RoleSeller   = "seller"
	RoleAdmin    = "admin"
)

// User представляет полную модель пользователя в системе
// @Description Полная модель пользователя
type User struct {
	ID         int64     `json:"id" example:"1" description:"Внутренний ID пользователя"`
	TelegramID int64     `json:"telegram_id" example:"279058397" description:"ID пользователя в Telegram"`
	Username   string    `json:"username" example:"johndoe"`
	FirstName  string    `json:"first_name" example:"John"`
	LastName   string    `json:"last_name" example:"Doe"`
	Phone      *string   `json:"phone" example:"+79990000000"`
	Email      *string   `json:"email" example:"john@example.com"`
	Role       string    `json:"role" example:"customer" enums:"customer,seller,admin"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UserResponse представляет публичную информацию о пользователе
// @Description Публичная информация о пользователе
type UserResponse struct {
	ID         int64     `json:"id" example:"1"`
	TelegramID int64     `json:"telegram_id" example:"279058397"`
	Username   string    `json:"username" example:"johndoe"`
	FirstName  string    `json:"first_name" example:"John"`
	LastName   string    `json:"last_name" example:"Doe"`
	Phone      *string   `json:"phone,omitempty"`
	Email      *string   `json:"email,omitempty"`
	Role       string    `json:"role" example:"customer"`
	CreatedAt  time.Time `json:"created_at"`
}

// TelegramProfile: данные пользователя из подписанной init data
type TelegramProfile struct {
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
}

// ProfileUpdate: частичное обновление профиля; nil означает «не менять»
type ProfileUpdate struct {
	Phone *string `json:"phone" binding:"omitempty,max=20" example:"+79990000000"`
	Email *string `json:"email" binding:"omitempty,email,max=255" example:"john@example.com"`
}
