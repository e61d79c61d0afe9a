package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"avastore-backend/internal/common/errors"
)

const (
	RequestIDKey    = "request_id"
	RequestIDHeader = "X-Request-ID"

	// секунд до повтора после TIMEOUT
	retryAfterSeconds = "1"
	internalMessage   = "Internal server error"
)

var kindStatus = map[errors.Kind]int{
	errors.KindValidation:   http.StatusBadRequest,
	errors.KindNotFound:     http.StatusNotFound,
	errors.KindUnauthorized: http.StatusUnauthorized,
	errors.KindForbidden:    http.StatusForbidden,
	errors.KindConflict:     http.StatusConflict,
	errors.KindUnavailable:  http.StatusServiceUnavailable,
	errors.KindUpstream:     http.StatusBadGateway,
	errors.KindInternal:     http.StatusInternalServerError,
}

// ErrorResponse: тело любого ответа с ошибкой
type ErrorResponse struct {
	Success   bool             `json:"success"`
	Error     string           `json:"error"`
	Code      errors.ErrorCode `json:"code"`
	RequestID string           `json:"request_id,omitempty"`
}

func HTTPStatus(code errors.ErrorCode) int {
	return kindStatus[code.Kind()]
}

// ErrorHandler превращает панику обработчика в INTERNAL_ERROR
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("Panic recovered",
			zap.String("request_id", requestID(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Any("panic", recovered),
			zap.ByteString("stack", debug.Stack()),
		)

		AbortWithError(c, logger, errors.New(errors.ErrCodeInternal, internalMessage).
			WithDetail("panic", fmt.Sprint(recovered)))
	})
}

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// HandleErrorWrapper рендерит последнюю ошибку из c.Errors, если обработчик
// сам ничего не записал
func HandleErrorWrapper(logger *zap.Logger) func(gin.HandlerFunc) gin.HandlerFunc {
	return func(handler gin.HandlerFunc) gin.HandlerFunc {
		return func(c *gin.Context) {
			handler(c)

			if len(c.Errors) == 0 || c.Writer.Written() {
				return
			}

			err := c.Errors.Last().Err
			appErr, ok := errors.AsAppError(err)
			if !ok {
				appErr = errors.Wrap(err, errors.ErrCodeInternal, "Handler error occurred")
			}
			writeError(c, appErr, logger)
		}
	}
}

func AbortWithError(c *gin.Context, logger *zap.Logger, appErr *errors.AppError) {
	writeError(c, appErr, logger)
	c.Abort()
}

func writeError(c *gin.Context, appErr *errors.AppError, logger *zap.Logger) {
	id := requestID(c)
	appErr.WithRequestID(id).
		WithUserID(currentUserID(c)).
		WithContext("path", c.Request.URL.Path).
		WithContext("method", c.Request.Method)

	status := HTTPStatus(appErr.Code)

	// детали 5xx наружу не отдаем, кроме TIMEOUT
	message := appErr.Message
	if appErr.Retryable() {
		c.Header("Retry-After", retryAfterSeconds)
	} else if status >= http.StatusInternalServerError {
		message = internalMessage
	}

	logError(logger, appErr)

	c.JSON(status, ErrorResponse{
		Success:   false,
		Error:     message,
		Code:      appErr.Code,
		RequestID: id,
	})
}

func logError(logger *zap.Logger, appErr *errors.AppError) {
	fields := []zap.Field{
		zap.String("request_id", appErr.RequestID),
		zap.String("method", appErr.Context["method"]),
		zap.String("path", appErr.Context["path"]),
		zap.String("error_code", string(appErr.Code)),
		zap.String("error_message", appErr.Message),
	}
	if appErr.UserID != 0 {
		fields = append(fields, zap.Int64("user_id", appErr.UserID))
	}
	if len(appErr.Details) > 0 {
		details, _ := json.Marshal(appErr.Details)
		fields = append(fields, zap.ByteString("details", details))
	}
	if appErr.Cause != nil {
		fields = append(fields, zap.Error(appErr.Cause))
	}

	switch appErr.Kind() {
	case errors.KindInternal, errors.KindUpstream:
		logger.Error("Internal error occurred", fields...)
	case errors.KindUnavailable:
		logger.Warn("Dependency unavailable", fields...)
	case errors.KindUnauthorized, errors.KindForbidden:
		logger.Warn("Unauthorized access attempt", fields...)
	case errors.KindValidation, errors.KindNotFound:
		logger.Info("Request rejected", fields...)
	default:
		logger.Warn("Application error occurred", fields...)
	}
}

func requestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	return "unknown"
}

func currentUserID(c *gin.Context) int64 {
	if identity, ok := GetIdentity(c); ok {
		return identity.UserID
	}
	return 0
}
