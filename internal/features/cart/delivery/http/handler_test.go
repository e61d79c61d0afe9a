package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"avastore-backend/internal/common/middleware"
	authmodels "avastore-backend/internal/features/auth/models"
	cartmemory "avastore-backend/internal/features/cart/repository/memory"
	cartservice "avastore-backend/internal/features/cart/service"
	catalogmodels "avastore-backend/internal/features/catalog/models"
	catalogmemory "avastore-backend/internal/features/catalog/repository/memory"
	catalogservice "avastore-backend/internal/features/catalog/service"
	"avastore-backend/internal/platform/memory"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Code    string          `json:"code"`
}

type cartItem struct {
	ID       int64  `json:"id"`
	Quantity int    `json:"quantity"`
	Name     string `json:"name"`
}

func setupRouter(t *testing.T) (*gin.Engine, catalogmodels.Product) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	product := catalogmemory.SeedProduct(store, catalogmodels.Product{
		Name:     "Кружка",
		Price:    decimal.RequireFromString("250.50"),
		Stock:    3,
		IsActive: true,
	})

	logger := zap.NewNop()
	catalog := catalogservice.NewCatalogService(catalogmemory.NewMemoryRepository(store), nil, time.Minute, logger)
	cart := cartservice.NewCartService(cartmemory.NewMemoryRepository(store), catalog, logger)

	router := gin.New()
	api := router.Group("/api")
	// X-User подставляет пользователя вместо RequireAuth
	api.Use(func(c *gin.Context) {
		userID := int64(1)
		if c.GetHeader("X-User") == "2" {
			userID = 2
		}
		c.Set(middleware.IdentityKey, &authmodels.Identity{UserID: userID})
		c.Next()
	})
	NewCartHandler(cart, logger).RegisterRoutes(api)

	return router, product
}

func do(t *testing.T, router *gin.Engine, method, path string, body interface{}, user string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User", user)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func TestCart_AddIncrementsExistingLine(t *testing.T) {
	router, product := setupRouter(t)

	w, env := do(t, router, http.MethodPost, "/api/users/cart", gin.H{"product_id": product.ID}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var first cartItem
	require.NoError(t, json.Unmarshal(env.Data, &first))
	assert.Equal(t, 1, first.Quantity)
	assert.Equal(t, "Кружка", first.Name)

	w, env = do(t, router, http.MethodPost, "/api/users/cart", gin.H{"product_id": product.ID, "quantity": 2}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var second cartItem
	require.NoError(t, json.Unmarshal(env.Data, &second))
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 3, second.Quantity)

	w, env = do(t, router, http.MethodGet, "/api/users/cart", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var cart struct {
		Items []cartItem `json:"items"`
		Total string     `json:"total"`
		Count int        `json:"count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &cart))
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "751.5", cart.Total)
	assert.Equal(t, 3, cart.Count)
}

func TestCart_AddValidation(t *testing.T) {
	router, product := setupRouter(t)

	w, env := do(t, router, http.MethodPost, "/api/users/cart", gin.H{"product_id": product.ID, "quantity": 5}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INSUFFICIENT_STOCK", env.Code)

	w, env = do(t, router, http.MethodPost, "/api/users/cart", gin.H{"product_id": 999}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "PRODUCT_NOT_FOUND", env.Code)

	w, env = do(t, router, http.MethodPost, "/api/users/cart", gin.H{"quantity": 1}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Code)
}

func TestCart_UpdateAndRemoveAreScopedToOwner(t *testing.T) {
	router, product := setupRouter(t)

	_, env := do(t, router, http.MethodPost, "/api/users/cart", gin.H{"product_id": product.ID}, "")
	var item cartItem
	require.NoError(t, json.Unmarshal(env.Data, &item))
	path := "/api/users/cart/" + strconv.FormatInt(item.ID, 10)

	w, env := do(t, router, http.MethodPut, path, gin.H{"quantity": 2}, "2")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "CART_ITEM_NOT_FOUND", env.Code)

	w, _ = do(t, router, http.MethodPut, path, gin.H{"quantity": 0}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = do(t, router, http.MethodPut, path, gin.H{"quantity": 2}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, &item))
	assert.Equal(t, 2, item.Quantity)

	w, _ = do(t, router, http.MethodDelete, path, nil, "2")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, router, http.MethodDelete, path, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, router, http.MethodDelete, path, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
