package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	apperrors "avastore-backend/internal/common/errors"
	"avastore-backend/internal/features/auth/initdata"
	"avastore-backend/internal/features/auth/models"
	"avastore-backend/internal/features/auth/token"
	usermapper "avastore-backend/internal/features/user/mapper"
	usermodels "avastore-backend/internal/features/user/models"
	userservice "avastore-backend/internal/features/user/service"
)

type AuthService interface {
	// VerifyInitData: чистая проверка подписи, без побочных эффектов
	VerifyInitData(payload string) (*initdata.Result, error)
	Login(ctx context.Context, payload string) (*models.Session, error)
	Me(ctx context.Context, userID int64) (*usermodels.User, error)
	IdentityFromToken(ctx context.Context, raw string) (*models.Identity, error)
	IdentityFromInitData(ctx context.Context, payload string) (*models.Identity, error)
}

type authService struct {
	verifier *initdata.Verifier
	tokens   *token.Manager
	users    userservice.UserService
	adminIDs map[int64]struct{}
	logger   *zap.Logger
}

func NewAuthService(verifier *initdata.Verifier, tokens *token.Manager, users userservice.UserService, adminIDs []int64, logger *zap.Logger) AuthService {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &authService{
		verifier: verifier,
		tokens:   tokens,
		users:    users,
		adminIDs: admins,
		logger:   logger,
	}
}

func (s *authService) VerifyInitData(payload string) (*initdata.Result, error) {
	return initdata.Verify(payload, s.verifier.BotToken)
}

func (s *authService) Login(ctx context.Context, payload string) (*models.Session, error) {
	user, err := s.userFromInitData(ctx, payload)
	if err != nil {
		return nil, err
	}

	signed, expiresAt, err := s.tokens.Issue(user.ID, user.TelegramID, user.Role)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to issue token")
	}

	s.logger.Info("User authenticated",
		zap.Int64("user_id", user.ID),
		zap.Int64("telegram_id", user.TelegramID),
	)

	return &models.Session{
		Token:     signed,
		ExpiresAt: expiresAt,
		User:      usermapper.ToUserResponse(user),
	}, nil
}

func (s *authService) Me(ctx context.Context, userID int64) (*usermodels.User, error) {
	return s.users.GetUser(ctx, userID)
}

// IdentityFromToken проверяет JWT и что пользователь все еще существует
func (s *authService) IdentityFromToken(ctx context.Context, raw string) (*models.Identity, error) {
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		if errors.Is(err, token.ErrExpiredToken) {
			return nil, apperrors.NewUnauthorizedError("token expired")
		}
		return nil, apperrors.NewUnauthorizedError("invalid token")
	}

	user, err := s.users.GetUser(ctx, claims.UserID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeUserNotFound) {
			return nil, apperrors.NewUnauthorizedError("user not found")
		}
		return nil, err
	}

	return s.identity(user), nil
}

func (s *authService) IdentityFromInitData(ctx context.Context, payload string) (*models.Identity, error) {
	user, err := s.userFromInitData(ctx, payload)
	if err != nil {
		return nil, err
	}
	return s.identity(user), nil
}

func (s *authService) userFromInitData(ctx context.Context, payload string) (*usermodels.User, error) {
	res, err := s.verifier.Verify(payload)
	if err != nil {
		reason := initdata.Reason(err)
		s.logger.Debug("Init data rejected", zap.String("reason", reason))
		return nil, apperrors.NewUnauthorizedError(reason)
	}
	if res.User == nil || res.User.ID == 0 {
		return nil, apperrors.NewValidationError("user", "Invalid user data")
	}

	return s.users.GetOrCreateUser(ctx, usermodels.TelegramProfile{
		TelegramID: res.User.ID,
		Username:   res.User.Username,
		FirstName:  res.User.FirstName,
		LastName:   res.User.LastName,
	})
}

func (s *authService) identity(user *usermodels.User) *models.Identity {
	_, listed := s.adminIDs[user.TelegramID]
	return &models.Identity{
		UserID:     user.ID,
		TelegramID: user.TelegramID,
		Username:   user.Username,
		Role:       user.Role,
		IsAdmin:    listed || user.Role == usermodels.RoleAdmin,
	}
}
