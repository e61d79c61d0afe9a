package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"avastore-backend/internal/common/middleware"
	"avastore-backend/internal/common/response"
	"avastore-backend/internal/common/validation"
	"avastore-backend/internal/features/auth/initdata"
	"avastore-backend/internal/features/auth/models"
	"avastore-backend/internal/features/auth/service"
	usermapper "avastore-backend/internal/features/user/mapper"
)

type AuthHandler struct {
	service service.AuthService
	logger  *zap.Logger
}

func NewAuthHandler(service service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger,
	}
}

func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	wrap := middleware.HandleErrorWrapper(h.logger)

	router.POST("/verify", h.verify)

	auth := router.Group("/auth")
	{
		auth.POST("/telegram", wrap(h.login))
		auth.GET("/me", requireAuth, wrap(h.me))
	}
}

// @Summary Verify Telegram init data
// @Description Checks the init data signature with the bot token. No side effects.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body models.VerifyRequest true "Raw init data"
// @Success 200 {object} models.VerifyResponse
// @Failure 400 {object} models.VerifyResponse "missing_params"
// @Failure 401 {object} models.VerifyResponse "missing_hash | invalid_hash"
// @Router /verify [post]
func (h *AuthHandler) verify(c *gin.Context) {
	var req models.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.InitData == "" {
		c.JSON(http.StatusBadRequest, models.VerifyResponse{OK: false, Error: initdata.ErrMissingParams.Error()})
		return
	}

	res, err := h.service.VerifyInitData(req.InitData)
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.VerifyResponse{OK: false, Error: initdata.Reason(err)})
		return
	}

	c.JSON(http.StatusOK, models.VerifyResponse{OK: true, User: res.User})
}

// @Summary Sign in with Telegram init data
// @Description Verifies init data, creates or updates the user and issues a session token
// @Tags auth
// @Accept json
// @Produce json
// @Param body body models.LoginRequest true "Raw init data"
// @Success 200 {object} response.Envelope{data=models.Session}
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Router /auth/telegram [post]
func (h *AuthHandler) login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(validation.FromBinding(err))
		return
	}

	session, err := h.service.Login(c.Request.Context(), req.InitData)
	if err != nil {
		c.Error(err)
		return
	}

	response.JSON(c, http.StatusOK, session)
}

// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope{data=usermodels.UserResponse}
// @Failure 401 {object} middleware.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) me(c *gin.Context) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		c.Error(err)
		return
	}

	user, err := h.service.Me(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	response.JSON(c, http.StatusOK, usermapper.ToUserResponse(user))
}
