package middleware

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"avastore-backend/internal/common/errors"
)

func TestHTTPStatus(t *testing.T) {
	cases := map[errors.ErrorCode]int{
		errors.ErrCodeValidation:              http.StatusBadRequest,
		errors.ErrCodeEmptyCart:               http.StatusBadRequest,
		errors.ErrCodeInsufficientStock:       http.StatusBadRequest,
		errors.ErrCodeOrderNotFound:           http.StatusNotFound,
		errors.ErrCodeProductNotFound:         http.StatusNotFound,
		errors.ErrCodeUnauthorized:            http.StatusUnauthorized,
		errors.ErrCodeForbidden:               http.StatusForbidden,
		errors.ErrCodeConflict:                http.StatusConflict,
		errors.ErrCodeInvalidStatusTransition: http.StatusConflict,
		errors.ErrCodeTimeout:                 http.StatusServiceUnavailable,
		errors.ErrCodeTelegramAPI:             http.StatusBadGateway,
		errors.ErrCodeDatabaseError:           http.StatusInternalServerError,
		errors.ErrorCode("SOMETHING_NEW"):     http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, HTTPStatus(code), code)
	}
}

func serve(handler gin.HandlerFunc) (*httptest.ResponseRecorder, ErrorResponse) {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	router := gin.New()
	router.Use(RequestID(), ErrorHandler(logger))
	router.GET("/x", HandleErrorWrapper(logger)(handler))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var body ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestHandleErrorWrapper_AppError(t *testing.T) {
	w, body := serve(func(c *gin.Context) {
		c.Error(errors.New(errors.ErrCodeEmptyCart, "Cart is empty"))
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, body.Success)
	assert.Equal(t, "Cart is empty", body.Error)
	assert.Equal(t, errors.ErrCodeEmptyCart, body.Code)
	assert.Equal(t, "req-1", body.RequestID)
	assert.Equal(t, "req-1", w.Header().Get(RequestIDHeader))
}

func TestHandleErrorWrapper_HidesInternalDetails(t *testing.T) {
	w, body := serve(func(c *gin.Context) {
		c.Error(stderrors.New("pq: connection refused"))
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", body.Error)
	assert.Equal(t, errors.ErrCodeInternal, body.Code)
}

func TestHandleErrorWrapper_TimeoutSetsRetryAfter(t *testing.T) {
	w, body := serve(func(c *gin.Context) {
		c.Error(errors.NewTimeoutError("checkout", stderrors.New("context deadline exceeded")))
	})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Equal(t, errors.ErrCodeTimeout, body.Code)
	assert.Contains(t, body.Error, "timed out")
}

func TestErrorHandler_RecoversPanic(t *testing.T) {
	w, body := serve(func(c *gin.Context) {
		panic("boom")
	})

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, errors.ErrCodeInternal, body.Code)
	assert.Equal(t, "Internal server error", body.Error)
}
