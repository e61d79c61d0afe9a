package service

import (
	"context"

	"avastore-backend/internal/features/user/models"
)

type UserService interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetOrCreateUser(ctx context.Context, profile models.TelegramProfile) (*models.User, error)
	UpdateProfile(ctx context.Context, id int64, update models.ProfileUpdate) (*models.User, error)
}
