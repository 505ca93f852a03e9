package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zacharykka/qa-manager/internal/domain"
	"github.com/zacharykka/qa-manager/internal/middleware"
	envsvc "github.com/zacharykka/qa-manager/internal/service/environment"
	"github.com/zacharykka/qa-manager/pkg/httpx"
)

// EnvironmentHandler 处理测试环境生命周期相关的 HTTP 请求。
type EnvironmentHandler struct {
	service *envsvc.Service
}

// NewEnvironmentHandler 创建 EnvironmentHandler。
func NewEnvironmentHandler(service *envsvc.Service) *EnvironmentHandler {
	return &EnvironmentHandler{service: service}
}

// RegisterRoutes 在 /stores 分组下注册环境路由。
// 测试执行动作（状态流转、场景标记、进出环境、缺陷登记）对所有登录用户开放，
// 只有删除环境要求 admin 或 editor 角色。
func (h *EnvironmentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	editor := middleware.RequireRoles(middleware.RoleAdmin, middleware.RoleEditor)

	rg.POST("/:id/environments", editor, h.Create)
	rg.GET("/:id/environments", h.List)
	rg.GET("/:id/environments/:envId", h.Get)
	rg.DELETE("/:id/environments/:envId", editor, h.Delete)

	rg.POST("/:id/environments/:envId/status", h.Transition)
	rg.PATCH("/:id/environments/:envId/scenarios/:scenarioId", h.SetScenarioStatus)
	rg.GET("/:id/environments/:envId/stats", h.Stats)

	rg.POST("/:id/environments/:envId/users", h.Join)
	rg.DELETE("/:id/environments/:envId/users/:userId", h.Leave)

	rg.POST("/:id/environments/:envId/bugs", h.AddBug)
	rg.GET("/:id/environments/:envId/bugs", h.ListBugs)
	rg.PATCH("/:id/environments/:envId/bugs/:bugId", h.UpdateBugStatus)
}

type createEnvironmentRequest struct {
	Name    string `json:"name" binding:"required,max=128"`
	SuiteID string `json:"suite_id" binding:"omitempty"`
}

type transitionRequest struct {
	Status string `json:"status" binding:"required"`
}

type scenarioStatusRequest struct {
	Platform string `json:"platform" binding:"omitempty,oneof=mobile desktop"`
	Status   string `json:"status" binding:"required"`
}

type joinRequest struct {
	UserID string `json:"user_id" binding:"omitempty"`
}

type addBugRequest struct {
	ScenarioID  string `json:"scenario_id" binding:"omitempty"`
	Title       string `json:"title" binding:"required,max=256"`
	Description string `json:"description" binding:"omitempty"`
}

type bugStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=aberto em_andamento resolvido"`
}

// Create 创建环境。
func (h *EnvironmentHandler) Create(ctx *gin.Context) {
	var req createEnvironmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error(), nil)
		return
	}

	env, err := h.service.Create(ctx, envsvc.CreateInput{
		OrganizationID: middleware.GetOrganizationID(ctx),
		StoreID:        ctx.Param("id"),
		Name:           req.Name,
		SuiteID:        req.SuiteID,
		CreatedBy:      ctx.GetString(middleware.UserContextKey),
	})
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"data": env})
}

// List 返回被测对象下的全部环境。
func (h *EnvironmentHandler) List(ctx *gin.Context) {
	envs := h.service.List(ctx, ctx.Param("id"))
	httpx.RespondOK(ctx, gin.H{"items": envs, "total": len(envs)})
}

// Get 返回单个环境。
func (h *EnvironmentHandler) Get(ctx *gin.Context) {
	env, err := h.service.Get(ctx, ctx.Param("id"), ctx.Param("envId"))
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, env)
}

// Delete 删除环境。
func (h *EnvironmentHandler) Delete(ctx *gin.Context) {
	if err := h.service.Delete(ctx, ctx.Param("id"), ctx.Param("envId")); err != nil {
		h.handleError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// Transition 流转环境状态。
func (h *EnvironmentHandler) Transition(ctx *gin.Context) {
	var req transitionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error(), nil)
		return
	}

	env, err := h.service.Transition(
		ctx,
		middleware.GetOrganizationID(ctx),
		ctx.Param("id"),
		ctx.Param("envId"),
		domain.EnvironmentStatus(req.Status),
		ctx.GetString(middleware.UserContextKey),
	)
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, env)
}

// SetScenarioStatus 更新环境内场景在指定平台上的执行状态。
func (h *EnvironmentHandler) SetScenarioStatus(ctx *gin.Context) {
	var req scenarioStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error(), nil)
		return
	}

	env, err := h.service.SetScenarioStatus(
		ctx,
		ctx.Param("id"),
		ctx.Param("envId"),
		ctx.Param("scenarioId"),
		domain.Platform(req.Platform),
		domain.ScenarioStatus(req.Status),
	)
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, env)
}

// Stats 返回环境执行进度统计。
func (h *EnvironmentHandler) Stats(ctx *gin.Context) {
	env, err := h.service.Get(ctx, ctx.Param("id"), ctx.Param("envId"))
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, envsvc.Stats(env))
}

// Join 将用户登记为环境在场成员。未指定 user_id 时使用当前登录用户。
func (h *EnvironmentHandler) Join(ctx *gin.Context) {
	var req joinRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error(), nil)
			return
		}
	}

	userID := req.UserID
	if userID == "" {
		userID = ctx.GetString(middleware.UserContextKey)
	}
	env, err := h.service.Join(ctx, ctx.Param("id"), ctx.Param("envId"), userID)
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, env)
}

// Leave 将用户移出环境在场名单。
func (h *EnvironmentHandler) Leave(ctx *gin.Context) {
	env, err := h.service.Leave(ctx, ctx.Param("id"), ctx.Param("envId"), ctx.Param("userId"))
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, env)
}

// AddBug 在环境内登记缺陷。
func (h *EnvironmentHandler) AddBug(ctx *gin.Context) {
	var req addBugRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error(), nil)
		return
	}

	bug, err := h.service.AddBug(ctx, envsvc.AddBugInput{
		OrganizationID: middleware.GetOrganizationID(ctx),
		StoreID:        ctx.Param("id"),
		EnvironmentID:  ctx.Param("envId"),
		ScenarioID:     req.ScenarioID,
		Title:          req.Title,
		Description:    req.Description,
		ReportedBy:     ctx.GetString(middleware.UserContextKey),
	})
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"data": bug})
}

// ListBugs 返回环境缺陷列表。
func (h *EnvironmentHandler) ListBugs(ctx *gin.Context) {
	bugs := h.service.ListBugs(ctx, ctx.Param("envId"))
	httpx.RespondOK(ctx, gin.H{"items": bugs, "total": len(bugs)})
}

// UpdateBugStatus 更新缺陷状态。
func (h *EnvironmentHandler) UpdateBugStatus(ctx *gin.Context) {
	var req bugStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error(), nil)
		return
	}

	if err := h.service.UpdateBugStatus(ctx, ctx.Param("envId"), ctx.Param("bugId"), domain.BugStatus(req.Status)); err != nil {
		h.handleError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (h *EnvironmentHandler) handleError(ctx *gin.Context, err error) {
	if code := domain.ErrorCode(err); code != "" {
		status := http.StatusConflict
		if errors.Is(err, domain.ErrInvalidEnvironment) {
			status = http.StatusNotFound
		}
		httpx.RespondError(ctx, status, code, err.Error(), nil)
		return
	}

	switch {
	case errors.Is(err, envsvc.ErrNameRequired),
		errors.Is(err, envsvc.ErrInvalidStatus),
		errors.Is(err, envsvc.ErrInvalidPlatform),
		errors.Is(err, envsvc.ErrNoScenariosInSuite):
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error(), nil)
	case errors.Is(err, envsvc.ErrStoreNotFound):
		httpx.RespondError(ctx, http.StatusNotFound, "STORE_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, envsvc.ErrSuiteNotFound):
		httpx.RespondError(ctx, http.StatusNotFound, "SUITE_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, envsvc.ErrScenarioNotFound):
		httpx.RespondError(ctx, http.StatusNotFound, "SCENARIO_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, envsvc.ErrBugNotFound):
		httpx.RespondError(ctx, http.StatusNotFound, "BUG_NOT_FOUND", err.Error(), nil)
	default:
		httpx.RespondError(ctx, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
	}
}
