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
	"avastore-backend/internal/features/order/models"
	"avastore-backend/internal/features/order/service"
)

type OrderHandler struct {
	service service.OrderService
	logger  *zap.Logger
}

func NewOrderHandler(service service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes ожидает группу, уже защищенную RequireAuth
func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	wrap := middleware.HandleErrorWrapper(h.logger)

	orders := router.Group("/orders")
	{
		orders.GET("", wrap(h.list))
		orders.GET("/:id", wrap(h.get))
		orders.POST("", wrap(h.checkout))
		orders.PATCH("/:id/status", wrap(h.updateStatus))
	}
}

func orderID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("id", "must be a positive integer")
	}
	return id, nil
}

// @Summary List my orders
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope{data=[]models.Order}
// @Failure 401 {object} middleware.ErrorResponse
// @Router /orders [get]
func (h *OrderHandler) list(c *gin.Context) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		c.Error(err)
		return
	}

	orders, err := h.service.List(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	response.JSON(c, http.StatusOK, orders)
}

// @Summary Get my order
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path int true "Order ID"
// @Success 200 {object} response.Envelope{data=models.Order}
// @Failure 404 {object} middleware.ErrorResponse
// @Router /orders/{id} [get]
func (h *OrderHandler) get(c *gin.Context) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		c.Error(err)
		return
	}

	id, err := orderID(c)
	if err != nil {
		c.Error(err)
		return
	}

	order, err := h.service.Get(c.Request.Context(), userID, id)
	if err != nil {
		c.Error(err)
		return
	}

	response.JSON(c, http.StatusOK, order)
}

// @Summary Place order from cart
// @Description Converts the whole cart into an order, decrements stock and clears the cart in one transaction
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param order body models.CheckoutInput false "Shipping and payment"
// @Success 201 {object} response.Envelope{data=models.Order}
// @Failure 400 {object} middleware.ErrorResponse "EMPTY_CART, INSUFFICIENT_STOCK or VALIDATION_ERROR"
// @Failure 409 {object} middleware.ErrorResponse "Stock taken concurrently or duplicate submit"
// @Failure 503 {object} middleware.ErrorResponse "TIMEOUT, retry later"
// @Router /orders [post]
func (h *OrderHandler) checkout(c *gin.Context) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		c.Error(err)
		return
	}

	var input models.CheckoutInput
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.Error(validation.FromBinding(err))
			return
		}
	}

	order, err := h.service.Checkout(c.Request.Context(), userID, input)
	if err != nil {
		c.Error(err)
		return
	}

	response.JSON(c, http.StatusCreated, order)
}

// @Summary Change order status
// @Description Customers may only cancel their own orders; admins may apply any allowed transition
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Order ID"
// @Param body body models.UpdateStatusInput true "New status"
// @Success 200 {object} response.Envelope{data=models.Order}
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 403 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse "INVALID_STATUS_TRANSITION"
// @Router /orders/{id}/status [patch]
func (h *OrderHandler) updateStatus(c *gin.Context) {
	identity, err := middleware.CurrentIdentity(c)
	if err != nil {
		c.Error(err)
		return
	}

	id, err := orderID(c)
	if err != nil {
		c.Error(err)
		return
	}

	var input models.UpdateStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.Error(validation.FromBinding(err))
		return
	}

	order, err := h.service.UpdateStatus(c.Request.Context(), identity, id, input.Status)
	if err != nil {
		c.Error(err)
		return
	}

	response.JSON(c, http.StatusOK, order)
}
