package middleware

import (
	"github.com/gin-gonic/gin"

	"avastore-backend/internal/common/errors"
	authmodels "avastore-backend/internal/features/auth/models"
)

// CurrentIdentity: для хендлеров под RequireAuth; без него возвращает UNAUTHORIZED
func CurrentIdentity(c *gin.Context) (*authmodels.Identity, error) {
	identity, ok := GetIdentity(c)
	if !ok {
		return nil, errors.NewUnauthorizedError("not authenticated")
	}
	return identity, nil
}

// CurrentUserID возвращает внутренний ID пользователя запроса
func CurrentUserID(c *gin.Context) (int64, error) {
	identity, err := CurrentIdentity(c)
	if err != nil {
		return 0, err
	}
	return identity.UserID, nil
}
