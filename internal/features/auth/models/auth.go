package models

import (
	"time"

	tginitdata "github.com/telegram-mini-apps/init-data-golang"

	usermodels "avastore-backend/internal/features/user/models"
)

// Identity: аутентифицированный пользователь текущего запроса
type Identity struct {
	UserID     int64
	TelegramID int64
	Username   string
	Role       string
	IsAdmin    bool
}

// VerifyRequest тело POST /api/verify
type VerifyRequest struct {
	InitData string `json:"initData" example:"query_id=...&user=...&auth_date=...&hash=..."`
}

// VerifyResponse: ответ POST /api/verify
type VerifyResponse struct {
	OK    bool             `json:"ok"`
	User  *tginitdata.User `json:"user,omitempty"`
	Error string           `json:"error,omitempty" enums:"missing_params,missing_hash,invalid_hash,expired"`
}

// LoginRequest тело POST /api/auth/telegram
type LoginRequest struct {
	InitData string `json:"initData" binding:"required"`
}

// Session: выданный токен и профиль
type Session struct {
	Token     string                   `json:"token"`
	ExpiresAt time.Time                `json:"expires_at"`
	User      *usermodels.UserResponse `json:"user"`
}
