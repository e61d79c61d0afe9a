package repository

import (
	"context"
	"errors"

	"avastore-backend/internal/features/user/models"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository interface {
	// UpsertTelegram создает пользователя или обновляет username/имя по telegram_id
	UpsertTelegram(ctx context.Context, profile models.TelegramProfile) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	UpdateProfile(ctx context.Context, id int64, update models.ProfileUpdate) (*models.User, error)
}
