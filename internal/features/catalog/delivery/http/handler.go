package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "avastore-backend/internal/common/errors"
	"avastore-backend/internal/common/middleware"
	"avastore-backend/internal/common/response"
	"avastore-backend/internal/common/validation"
	"avastore-backend/internal/features/catalog/models"
	"avastore-backend/internal/features/catalog/service"
)

type CatalogHandler struct {
	service service.CatalogService
	logger  *zap.Logger
}

func NewCatalogHandler(service service.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes: чтение каталога публичное, запись под requireAuth
func (h *CatalogHandler) RegisterRoutes(router *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	wrap := middleware.HandleErrorWrapper(h.logger)

	products := router.Group("/products")
	{
		products.GET("", wrap(h.listProducts))
		products.GET("/:id", wrap(h.getProduct))
		products.POST("", requireAuth, wrap(h.createProduct))
		products.PUT("/:id", requireAuth, wrap(h.updateProduct))

		products.GET("/:id/reviews", wrap(h.listReviews))
		products.POST("/:id/reviews", requireAuth, wrap(h.addReview))
	}

	categories := router.Group("/categories")
	{
		categories.GET("", wrap(h.listCategories))
		categories.GET("/:id", wrap(h.getCategory))
	}
}

// productQuery: query-параметры списка товаров
type productQuery struct {
	CategoryID *int64 `form:"category_id"`
	Search     string `form:"search"`
	MinPrice   string `form:"min_price"`
	MaxPrice   string `form:"max_price"`
	Sort       string `form:"sort"`
	Order      string `form:"order"`
	Page       int    `form:"page"`
	Limit      int    `form:"limit"`
}

func (q productQuery) filter() (models.ProductFilter, error) {
	filter := models.ProductFilter{
		CategoryID: q.CategoryID,
		Search:     q.Search,
		Sort:       q.Sort,
		Desc:       !strings.EqualFold(q.Order, "asc"),
		Page:       q.Page,
		Limit:      q.Limit,
	}

	var err error
	if filter.MinPrice, err = parsePrice("min_price", q.MinPrice); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = parsePrice("max_price", q.MaxPrice); err != nil {
		return filter, err
	}
	return filter, nil
}

func parsePrice(field, raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return nil, apperrors.NewValidationError(field, "must be a non-negative number")
	}
	return &d, nil
}

func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("id", "must be a positive integer")
	}
	return id, nil
}

// @Summary List products
// @Tags products
// @Produce json
// @Param category_id query int false "Category ID"
// @Param search query string false "Substring of name or description"
// @Param min_price query string false "Minimum price"
// @Param max_price query string false "Maximum price"
// @Param sort query string false "Sort column" Enums(created_at, price, name, rating, stock)
// @Param order query string false "Sort direction" Enums(asc, desc)
// @Param page query int false "Page, from 1"
// @Param limit query int false "Page size, max 100"
// @Success 200 {object} response.Envelope{data=models.ProductPage}
// @Failure 400 {object} middleware.ErrorResponse
// @Router /products [get]
func (h *CatalogHandler) listProducts(c *gin.Context) {
	var query productQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.Error(validation.FromBinding(err))
		return
	}

	filter, err := query.filter()
	if err != nil {
		c.Error(err)
		return
	}

	page, err := h.service.ListProducts(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}
	if page.Products == nil {
		page.Products = []models.Product{}
	}

	response.JSON(c, http.StatusOK, page)
}

// @Summary Get product
// @Tags products
// @Produce json
// @Param id path int true "Product ID"
// @Success 200 {object} response.Envelope{data=models.Product}
// @Failure 404 {object} middleware.ErrorResponse
// @Router /products/{id} [get]
func (h *CatalogHandler) getProduct(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		c.Error(err)
		return
	}

	product, err := h.service.GetProduct(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	response.JSON(c, http.StatusOK, product)
}

// @Summary Create product
// @Description The caller becomes the seller
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param product body models.CreateProductInput true "Product"
// @Success 201 {object} response.Envelope{data=models.Product}
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Router /products [post]
func (h *CatalogHandler) createProduct(c *gin.Context) {
	identity, err := middleware.CurrentIdentity(c)
	if err != nil {
		c.Error(err)
		return
	}

	var input models.CreateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.Error(validation.FromBinding(err))
		return
	}

	product, err := h.service.CreateProduct(c.Request.Context(), identity, input)
	if err != nil {
		c.Error(err)
		return
	}

	response.JSON(c, http.StatusCreated, product)
}

// @Summary Update product
// @Description Only the seller or an admin may update; omitted fields keep their values
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Product ID"
// @Param product body models.UpdateProductInput true "Fields to change"
// @Success 200 {object} response.Envelope{data=models.Product}
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 403 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /products/{id} [put]
func (h *CatalogHandler) updateProduct(c *gin.Context) {
	identity, err := middleware.CurrentIdentity(c)
	if err != nil {
		c.Error(err)
		return
	}

	id, err := pathID(c)
	if err != nil {
		c.Error(err)
		return
	}

	var input models.UpdateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.Error(validation.FromBinding(err))
		return
	}

	product, err := h.service.UpdateProduct(c.Request.Context(), identity, id, input)
	if err != nil {
		c.Error(err)
		return
	}

	response.JSON(c, http.StatusOK, product)
}

// @Summary List product reviews
// @Tags reviews
// @Produce json
// @Param id path int true "Product ID"
// @Success 200 {object} response.Envelope{data=[]models.Review}
// @Router /products/{id}/reviews [get]
func (h *CatalogHandler) listReviews(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		c.Error(err)
		return
	}

	reviews, err := h.service.ListReviews(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	if reviews == nil {
		reviews = []models.Review{}
	}

	response.JSON(c, http.StatusOK, reviews)
}

// @Summary Add review
// @Tags reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Product ID"
// @Param review body models.CreateReviewInput true "Review"
// @Success 201 {object} response.Envelope{data=models.Review}
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /products/{id}/reviews [post]
func (h *CatalogHandler) addReview(c *gin.Context) {
	identity, err := middleware.CurrentIdentity(c)
	if err != nil {
		c.Error(err)
		return
	}

	id, err := pathID(c)
	if err != nil {
		c.Error(err)
		return
	}

	var input models.CreateReviewInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.Error(validation.FromBinding(err))
		return
	}

	review, err := h.service.AddReview(c.Request.Context(), identity, id, input)
	if err != nil {
		c.Error(err)
		return
	}

	response.JSON(c, http.StatusCreated, review)
}

// @Summary List root categories
// @Tags categories
// @Produce json
// @Success 200 {object} response.Envelope{data=[]models.Category}
// @Router /categories [get]
func (h *CatalogHandler) listCategories(c *gin.Context) {
	categories, err := h.service.ListCategories(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	if categories == nil {
		categories = []models.Category{}
	}

	response.JSON(c, http.StatusOK, categories)
}

// @Summary Get category with subcategories
// @Tags categories
// @Produce json
// @Param id path int true "Category ID"
// @Success 200 {object} response.Envelope{data=models.Category}
// @Failure 404 {object} middleware.ErrorResponse
// @Router /categories/{id} [get]
func (h *CatalogHandler) getCategory(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		c.Error(err)
		return
	}

	category, err := h.service.GetCategory(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	response.JSON(c, http.StatusOK, category)
}
