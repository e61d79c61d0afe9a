package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	apperrors "avastore-backend/internal/common/errors"
	"avastore-backend/internal/common/validation"
	"avastore-backend/internal/features/user/models"
	"avastore-backend/internal/features/user/repository"
)

type userService struct {
	repo   repository.UserRepository
	logger *zap.Logger
}

func NewUserService(repo repository.UserRepository, logger *zap.Logger) UserService {
	return &userService{
		repo:   repo,
		logger: logger,
	}
}

func (s *userService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapError(err, "get user", id)
	}
	return user, nil
}

// GetOrCreateUser создает пользователя при первом входе и обновляет имя при последующих
func (s *userService) GetOrCreateUser(ctx context.Context, profile models.TelegramProfile) (*models.User, error) {
	if profile.TelegramID == 0 {
		return nil, apperrors.NewValidationError("user", "telegram id is required")
	}

	user, err := s.repo.UpsertTelegram(ctx, profile)
	if err != nil {
		return nil, apperrors.NewDatabaseError("upsert user", err)
	}

	s.logger.Debug("User upserted",
		zap.Int64("user_id", user.ID),
		zap.Int64("telegram_id", user.TelegramID),
	)
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, id int64, update models.ProfileUpdate) (*models.User, error) {
	if update.Phone != nil {
		phone := strings.TrimSpace(*update.Phone)
		if err := validation.ValidatePhone(phone); err != nil {
			return nil, err
		}
		update.Phone = &phone
	}
	if update.Email != nil {
		email := strings.TrimSpace(*update.Email)
		update.Email = &email
	}

	user, err := s.repo.UpdateProfile(ctx, id, update)
	if err != nil {
		return nil, s.mapError(err, "update user", id)
	}
	return user, nil
}

func (s *userService) mapError(err error, operation string, id int64) error {
	if errors.Is(err, repository.ErrUserNotFound) {
		return apperrors.NewNotFoundError(apperrors.ErrCodeUserNotFound, "User", id)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTimeoutError(operation, err)
	}
	return apperrors.NewDatabaseError(operation, err)
}
