package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"avastore-backend/internal/common/errors"
	authmodels "avastore-backend/internal/features/auth/models"
)

const IdentityKey = "identity"

// Authenticator превращает учетные данные запроса в Identity
type Authenticator interface {
	IdentityFromToken(ctx context.Context, raw string) (*authmodels.Identity, error)
	IdentityFromInitData(ctx context.Context, payload string) (*authmodels.Identity, error)
}

// RequireAuth принимает Bearer JWT или подписанную init data.
func RequireAuth(auth Authenticator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			identity *authmodels.Identity
			err      error
		)

		switch {
		case bearerToken(c) != "":
			identity, err = auth.IdentityFromToken(c.Request.Context(), bearerToken(c))
		case initDataFromRequest(c) != "":
			identity, err = auth.IdentityFromInitData(c.Request.Context(), initDataFromRequest(c))
		default:
			err = errors.NewUnauthorizedError("no token provided")
		}

		if err != nil {
			appErr, ok := errors.AsAppError(err)
			if !ok {
				appErr = errors.Wrap(err, errors.ErrCodeInternal, "Authentication failed")
			}
			AbortWithError(c, logger, appErr)
			return
		}

		c.Set(IdentityKey, identity)
		c.Next()
	}
}

// GetIdentity возвращает пользователя, установленного RequireAuth
func GetIdentity(c *gin.Context) (*authmodels.Identity, bool) {
	value, exists := c.Get(IdentityKey)
	if !exists {
		return nil, false
	}
	identity, ok := value.(*authmodels.Identity)
	return identity, ok && identity != nil
}
