package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"avastore-backend/internal/common/middleware"
	"avastore-backend/internal/common/response"
	"avastore-backend/internal/common/validation"
	"avastore-backend/internal/features/user/mapper"
	"avastore-backend/internal/features/user/models"
	"avastore-backend/internal/features/user/service"
)

type UserHandler struct {
	service service.UserService
	logger  *zap.Logger
}

func NewUserHandler(service service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes ожидает группу, уже защищенную RequireAuth
func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	wrap := middleware.HandleErrorWrapper(h.logger)

	users := router.Group("/users")
	{
		users.GET("/me", wrap(h.getMe))
		users.PUT("/me", wrap(h.updateMe))
	}
}

// @Summary Get current user profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Security TelegramInitData
// @Success 200 {object} models.UserEnvelope
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/me [get]
func (h *UserHandler) getMe(c *gin.Context) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		c.Error(err)
		return
	}

	user, err := h.service.GetUser(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	response.JSON(c, http.StatusOK, mapper.ToUserResponse(user))
}

// @Summary Update current user profile
// @Description Updates phone and email; omitted fields keep their values
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param profile body models.ProfileUpdate true "Profile fields"
// @Success 200 {object} models.UserEnvelope
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /users/me [put]
func (h *UserHandler) updateMe(c *gin.Context) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		c.Error(err)
		return
	}

	var input models.ProfileUpdate
	if err := c.ShouldBindJSON(&input); err != nil {
		c.Error(validation.FromBinding(err))
		return
	}

	user, err := h.service.UpdateProfile(c.Request.Context(), userID, input)
	if err != nil {
		c.Error(err)
		return
	}

	response.JSON(c, http.StatusOK, mapper.ToUserResponse(user))
}
