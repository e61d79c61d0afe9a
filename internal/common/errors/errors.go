// Package errors описывает ошибки приложения с машинным кодом для ответа API.
package errors

import (
	stderrors "errors"
	"fmt"
)

type ErrorCode string

const (
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeBadRequest   ErrorCode = "BAD_REQUEST"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeTimeout      ErrorCode = "TIMEOUT"

	ErrCodeUserNotFound     ErrorCode = "USER_NOT_FOUND"
	ErrCodeProductNotFound  ErrorCode = "PRODUCT_NOT_FOUND"
	ErrCodeCategoryNotFound ErrorCode = "CATEGORY_NOT_FOUND"
	ErrCodeCartItemNotFound ErrorCode = "CART_ITEM_NOT_FOUND"
	ErrCodeOrderNotFound    ErrorCode = "ORDER_NOT_FOUND"

	// Оформление заказа
	ErrCodeEmptyCart               ErrorCode = "EMPTY_CART"
	ErrCodeInsufficientStock       ErrorCode = "INSUFFICIENT_STOCK"
	ErrCodeInvalidStatusTransition ErrorCode = "INVALID_STATUS_TRANSITION"

	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	ErrCodeCacheError    ErrorCode = "CACHE_ERROR"
	ErrCodeTelegramAPI   ErrorCode = "TELEGRAM_API_ERROR"
)

// Kind группирует коды, которые клиент обрабатывает одинаково
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindConflict
	KindUnavailable
	KindUpstream
)

var codeKinds = map[ErrorCode]Kind{
	ErrCodeValidation:        KindValidation,
	ErrCodeBadRequest:        KindValidation,
	ErrCodeEmptyCart:         KindValidation,
	ErrCodeInsufficientStock: KindValidation,

	ErrCodeNotFound:         KindNotFound,
	ErrCodeUserNotFound:     KindNotFound,
	ErrCodeProductNotFound:  KindNotFound,
	ErrCodeCategoryNotFound: KindNotFound,
	ErrCodeCartItemNotFound: KindNotFound,
	ErrCodeOrderNotFound:    KindNotFound,

	ErrCodeUnauthorized: KindUnauthorized,
	ErrCodeForbidden:    KindForbidden,

	ErrCodeConflict:                KindConflict,
	ErrCodeInvalidStatusTransition: KindConflict,

	ErrCodeTimeout:    KindUnavailable,
	ErrCodeCacheError: KindUnavailable,

	ErrCodeTelegramAPI: KindUpstream,
}

// Kind неизвестного кода равен KindInternal
func (c ErrorCode) Kind() Kind {
	return codeKinds[c]
}

type AppError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Context   map[string]string      `json:"context,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	UserID    int64                  `json:"user_id,omitempty"`
	Cause     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) Kind() Kind {
	return e.Code.Kind()
}

// Retryable: запрос можно повторить без изменений
func (e *AppError) Retryable() bool {
	return e.Code == ErrCodeTimeout
}

func (e *AppError) WithContext(key, value string) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func (e *AppError) WithRequestID(requestID string) *AppError {
	e.RequestID = requestID
	return e
}

func (e *AppError) WithUserID(userID int64) *AppError {
	e.UserID = userID
	return e
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, Cause: err}
}

func NewValidationError(field, reason string) *AppError {
	return New(ErrCodeValidation, fmt.Sprintf("Validation failed for field '%s': %s", field, reason)).
		WithDetail("field", field).
		WithDetail("reason", reason)
}

// NewNotFoundError: code должен быть одним из *_NOT_FOUND
func NewNotFoundError(code ErrorCode, resource string, id interface{}) *AppError {
	return New(code, fmt.Sprintf("%s not found", resource)).
		WithDetail("resource", resource).
		WithDetail("id", id)
}

func NewUnauthorizedError(reason string) *AppError {
	return New(ErrCodeUnauthorized, fmt.Sprintf("Unauthorized: %s", reason)).
		WithDetail("reason", reason)
}

func NewForbiddenError(reason string) *AppError {
	return New(ErrCodeForbidden, fmt.Sprintf("Forbidden: %s", reason)).
		WithDetail("reason", reason)
}

func NewDatabaseError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeDatabaseError, fmt.Sprintf("Database operation failed: %s", operation)).
		WithDetail("operation", operation)
}

func NewConflictError(resource, reason string) *AppError {
	return New(ErrCodeConflict, fmt.Sprintf("Conflict with %s: %s", resource, reason)).
		WithDetail("resource", resource).
		WithDetail("reason", reason)
}

func NewTimeoutError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeTimeout, fmt.Sprintf("Operation timed out: %s", operation)).
		WithDetail("operation", operation).
		WithDetail("retryable", true)
}

// AsAppError находит AppError в цепочке %w
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if err != nil && stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
