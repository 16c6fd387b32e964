package http

import (
	"errors"
	"net/http"

	"pixelgrid/internal/dto"
	"pixelgrid/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AuthHandler 提供账号注册和登录。登录得到的 token 用于画板 API 和编辑 WebSocket。
type AuthHandler struct {
	authService *service.AuthService
	log         *logrus.Entry
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		log:         logrus.WithField("component", "auth_handler"),
	}
}

// Register 创建账号，返回 201 和账号信息 (不含密码)。
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !h.bind(c, &req, "register") {
		return
	}
	logCtx := h.log.WithField("username", req.Username)

	user, err := h.authService.Register(c.Request.Context(), req.Username, req.Password, req.Email)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrRegistrationFailed), errors.Is(err, service.ErrInvalidInput):
		logCtx.WithError(err).Warn("Account rejected")
		HandleServiceError(c, err)
		return
	default:
		logCtx.WithError(err).Error("Account creation failed")
		HandleServiceError(c, err)
		return
	}

	logCtx.WithField("user_id", user.ID).Info("Account created")
	SuccessResponse(c, http.StatusCreated, dto.NewAccountResponse(user))
}

// Login 校验凭据并签发 Bearer token。
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !h.bind(c, &req, "login") {
		return
	}
	logCtx := h.log.WithField("username", req.Username)

	token, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		logCtx.WithError(err).Warn("Sign-in refused")
		HandleServiceError(c, err)
		return
	}
	logCtx.Info("Signed in")
	SuccessResponse(c, http.StatusOK, dto.LoginResponse{Token: token, TokenType: "Bearer"})
}

// bind 解析 JSON 请求体，失败时写入 400。
func (h *AuthHandler) bind(c *gin.Context, req any, op string) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.log.WithError(err).WithField("op", op).Warn("Malformed auth request")
		ErrorResponse(c, http.StatusBadRequest, "invalid "+op+" request: "+err.Error())
		return false
	}
	return true
}
