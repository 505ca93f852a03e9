package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zacharykka/qa-manager/internal/middleware"
	authsvc "github.com/zacharykka/qa-manager/internal/service/auth"
	"github.com/zacharykka/qa-manager/pkg/httpx"
)

// AuthHandler 处理认证相关 HTTP 请求。
type AuthHandler struct {
	service      *authsvc.Service
	accessSecret string
}

// NewAuthHandler 创建 AuthHandler。
func NewAuthHandler(service *authsvc.Service, accessSecret string) *AuthHandler {
	return &AuthHandler{service: service, accessSecret: accessSecret}
}

// RegisterRoutes 注册认证相关路由。
func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/register", h.Register)
	rg.POST("/login", h.Login)
	rg.POST("/refresh", h.Refresh)
	rg.GET("/me", middleware.AuthGuard(h.accessSecret), h.Me)
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"omitempty,max=128"`
	Role     string `json:"role" binding:"omitempty,oneof=admin editor viewer"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Register 在当前组织内注册用户。
func (h *AuthHandler) Register(ctx *gin.Context) {
	var req registerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error(), nil)
		return
	}

	orgID := middleware.GetOrganizationID(ctx)
	user, err := h.service.Register(ctx, orgID, req.Email, req.Password, req.Name, req.Role)
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, gin.H{"user": user})
}

// Login 处理登录请求。
func (h *AuthHandler) Login(ctx *gin.Context) {
	var req loginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error(), nil)
		return
	}

	orgID := middleware.GetOrganizationID(ctx)
	tokens, user, err := h.service.Login(ctx, orgID, req.Email, req.Password)
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, gin.H{"tokens": tokens, "user": user})
}

// Refresh 处理令牌刷新。
func (h *AuthHandler) Refresh(ctx *gin.Context) {
	var req refreshRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error(), nil)
		return
	}

	tokens, user, err := h.service.Refresh(ctx, req.RefreshToken)
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, gin.H{"tokens": tokens, "user": user})
}

// Me 返回当前登录用户的基础信息。
func (h *AuthHandler) Me(ctx *gin.Context) {
	httpx.RespondOK(ctx, gin.H{
		"user_id":         ctx.GetString(middleware.UserContextKey),
		"email":           ctx.GetString(middleware.UserEmailContextKey),
		"role":            ctx.GetString(middleware.UserRoleContextKey),
		"organization_id": middleware.GetOrganizationID(ctx),
	})
}

func (h *AuthHandler) handleError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, authsvc.ErrInvalidInput):
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error(), nil)
	case errors.Is(err, authsvc.ErrUserExists):
		httpx.RespondError(ctx, http.StatusConflict, "USER_EXISTS", err.Error(), nil)
	case errors.Is(err, authsvc.ErrInvalidCredentials):
		httpx.RespondError(ctx, http.StatusUnauthorized, "INVALID_CREDENTIALS", err.Error(), nil)
	case errors.Is(err, authsvc.ErrUserDisabled):
		httpx.RespondError(ctx, http.StatusForbidden, "USER_DISABLED", err.Error(), nil)
	case errors.Is(err, authsvc.ErrTokenInvalid):
		httpx.RespondError(ctx, http.StatusUnauthorized, "TOKEN_INVALID", err.Error(), nil)
	case errors.Is(err, authsvc.ErrOrganizationNotFound):
		httpx.RespondError(ctx, http.StatusNotFound, "ORGANIZATION_NOT_FOUND", err.Error(), nil)
	default:
		httpx.RespondError(ctx, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
	}
}
