package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "avastore-backend/internal/common/errors"
	"avastore-backend/internal/common/middleware"
	"avastore-backend/internal/common/response"
	"avastore-backend/internal/common/validation"
	"avastore-backend/internal/features/cart/models"
	"avastore-backend/internal/features/cart/service"
)

type CartHandler struct {
	service service.CartService
	logger  *zap.Logger
}

func NewCartHandler(service service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes ожидает группу, уже защищенную RequireAuth
func (h *CartHandler) RegisterRoutes(router *gin.RouterGroup) {
	wrap := middleware.HandleErrorWrapper(h.logger)

	cart := router.Group("/users/cart")
	{
		cart.GET("", wrap(h.getCart))
		cart.POST("", wrap(h.addItem))
		cart.PUT("/:id", wrap(h.updateItem))
		cart.DELETE("/:id", wrap(h.removeItem))
	}
}

func itemID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("id", "must be a positive integer")
	}
	return id, nil
}

// @Summary Get cart
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope{data=models.Cart}
// @Failure 401 {object} middleware.ErrorResponse
// @Router /users/cart [get]
func (h *CartHandler) getCart(c *gin.Context) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		c.Error(err)
		return
	}

	cart, err := h.service.GetCart(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	response.JSON(c, http.StatusOK, cart)
}

// @Summary Add product to cart
// @Description Adding a product already in the cart increases its quantity
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param item body models.AddItemInput true "Product and quantity"
// @Success 200 {object} response.Envelope{data=models.CartItem} "Existing line updated"
// @Success 201 {object} response.Envelope{data=models.CartItem} "New line created"
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /users/cart [post]
func (h *CartHandler) addItem(c *gin.Context) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		c.Error(err)
		return
	}

	var input models.AddItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.Error(validation.FromBinding(err))
		return
	}

	item, created, err := h.service.AddItem(c.Request.Context(), userID, input)
	if err != nil {
		c.Error(err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	response.JSON(c, status, item)
}

// @Summary Set cart line quantity
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Cart item ID"
// @Param item body models.UpdateItemInput true "Quantity"
// @Success 200 {object} response.Envelope{data=models.CartItem}
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /users/cart/{id} [put]
func (h *CartHandler) updateItem(c *gin.Context) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		c.Error(err)
		return
	}

	id, err := itemID(c)
	if err != nil {
		c.Error(err)
		return
	}

	var input models.UpdateItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.Error(validation.FromBinding(err))
		return
	}

	item, err := h.service.UpdateItem(c.Request.Context(), userID, id, input)
	if err != nil {
		c.Error(err)
		return
	}

	response.JSON(c, http.StatusOK, item)
}

// @Summary Remove cart line
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Param id path int true "Cart item ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} middleware.ErrorResponse
// @Router /users/cart/{id} [delete]
func (h *CartHandler) removeItem(c *gin.Context) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		c.Error(err)
		return
	}

	id, err := itemID(c)
	if err != nil {
		c.Error(err)
		return
	}

	if err := h.service.RemoveItem(c.Request.Context(), userID, id); err != nil {
		c.Error(err)
		return
	}

	response.Message(c, http.StatusOK, "Item removed from cart")
}
