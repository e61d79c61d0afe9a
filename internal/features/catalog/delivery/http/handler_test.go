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

	apperrors "avastore-backend/internal/common/errors"
	"avastore-backend/internal/common/middleware"
	authmodels "avastore-backend/internal/features/auth/models"
	"avastore-backend/internal/features/catalog/models"
	catalogmemory "avastore-backend/internal/features/catalog/repository/memory"
	"avastore-backend/internal/features/catalog/service"
	usermodels "avastore-backend/internal/features/user/models"
	usermemory "avastore-backend/internal/features/user/repository/memory"
	"avastore-backend/internal/platform/memory"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Code    string          `json:"code"`
}

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	seller := usermemory.Seed(store, usermodels.User{TelegramID: 100, Username: "seller", Role: usermodels.RoleSeller})
	category := catalogmemory.SeedCategory(store, models.Category{Name: "Посуда"})
	for i, price := range []string{"100", "250.50", "900"} {
		catalogmemory.SeedProduct(store, models.Product{
			Name:       "Товар " + strconv.Itoa(i+1),
			Price:      decimal.RequireFromString(price),
			Stock:      5,
			CategoryID: &category.ID,
			SellerID:   &seller.ID,
			IsActive:   true,
		})
	}

	logger := zap.NewNop()
	svc := service.NewCatalogService(catalogmemory.NewMemoryRepository(store), nil, time.Minute, logger)

	// X-User подставляет пользователя вместо RequireAuth
	requireAuth := func(c *gin.Context) {
		raw := c.GetHeader("X-User")
		if raw == "" {
			middleware.AbortWithError(c, logger, apperrors.NewUnauthorizedError("no token provided"))
			return
		}
		id, _ := strconv.ParseInt(raw, 10, 64)
		c.Set(middleware.IdentityKey, &authmodels.Identity{UserID: id, Role: usermodels.RoleSeller})
		c.Next()
	}

	router := gin.New()
	api := router.Group("/api")
	NewCatalogHandler(svc, logger).RegisterRoutes(api, requireAuth)
	return router
}

func request(router *gin.Engine, method, path string, body interface{}, userID string) (*httptest.ResponseRecorder, envelope) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User", userID)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestListProducts_PriceFilterAndSort(t *testing.T) {
	router := setupRouter(t)

	w, env := request(router, http.MethodGet, "/api/products?min_price=200&sort=price&order=asc", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var page models.ProductPage
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Products, 2)
	assert.Equal(t, "250.5", page.Products[0].Price.String())
	assert.Equal(t, "900", page.Products[1].Price.String())
	assert.Equal(t, 2, page.Pagination.Total)
}

func TestListProducts_InvalidPrice(t *testing.T) {
	router := setupRouter(t)

	w, env := request(router, http.MethodGet, "/api/products?max_price=-5", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Code)
}

func TestGetProduct_NotFound(t *testing.T) {
	router := setupRouter(t)

	w, env := request(router, http.MethodGet, "/api/products/999", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "PRODUCT_NOT_FOUND", env.Code)

	w, env = request(router, http.MethodGet, "/api/products/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Code)
}

func TestCreateProduct_RequiresAuth(t *testing.T) {
	router := setupRouter(t)
	body := gin.H{"name": "Тарелка", "price": "120.00", "stock": 4}

	w, env := request(router, http.MethodPost, "/api/products", body, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", env.Code)

	w, env = request(router, http.MethodPost, "/api/products", body, "1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var product models.Product
	require.NoError(t, json.Unmarshal(env.Data, &product))
	assert.Equal(t, "Тарелка", product.Name)
	require.NotNil(t, product.SellerID)
	assert.Equal(t, int64(1), *product.SellerID)
}

func TestCategories_CountsProducts(t *testing.T) {
	router := setupRouter(t)

	w, env := request(router, http.MethodGet, "/api/categories", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var categories []models.Category
	require.NoError(t, json.Unmarshal(env.Data, &categories))
	require.Len(t, categories, 1)
	assert.Equal(t, 3, categories[0].ProductsCount)
}
