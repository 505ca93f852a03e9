package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zacharykka/qa-manager/internal/middleware"
	storesvc "github.com/zacharykka/qa-manager/internal/service/store"
	"github.com/zacharykka/qa-manager/pkg/httpx"
)

// StoreHandler 处理被测对象、场景目录与套件的 HTTP 请求。
type StoreHandler struct {
	service *storesvc.Service
}

// NewStoreHandler 创建 StoreHandler。
func NewStoreHandler(service *storesvc.Service) *StoreHandler {
	return &StoreHandler{service: service}
}

// RegisterRoutes 在 /stores 分组下注册路由。写操作要求 admin 或 editor 角色。
func (h *StoreHandler) RegisterRoutes(rg *gin.RouterGroup) {
	editor := middleware.RequireRoles(middleware.RoleAdmin, middleware.RoleEditor)

	rg.GET("", h.List)
	rg.POST("", editor, h.Create)
	rg.GET("/:id", h.Get)
	rg.PATCH("/:id", editor, h.Update)
	rg.DELETE("/:id", editor, h.Delete)

	rg.GET("/:id/scenarios", h.ListScenarios)
	rg.POST("/:id/scenarios", editor, h.CreateScenario)
	rg.PATCH("/:id/scenarios/:scenarioId", editor, h.UpdateScenario)
	rg.DELETE("/:id/scenarios/:scenarioId", editor, h.DeleteScenario)

	rg.GET("/:id/suites", h.ListSuites)
	rg.POST("/:id/suites", editor, h.CreateSuite)
	rg.DELETE("/:id/suites/:suiteId", editor, h.DeleteSuite)
}

type createStoreRequest struct {
	Name        string  `json:"name" binding:"required,max=128"`
	Description *string `json:"description" binding:"omitempty"`
}

type updateStoreRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=128"`
	Description *string `json:"description" binding:"omitempty"`
	Status      *string `json:"status" binding:"omitempty,oneof=active archived"`
}

type createScenarioRequest struct {
	Title       string `json:"title" binding:"required,max=256"`
	Category    string `json:"category" binding:"omitempty,max=128"`
	Criticality string `json:"criticality" binding:"omitempty,oneof=low medium high critical"`
	Automated   bool   `json:"automated"`
}

type updateScenarioRequest struct {
	Title       *string `json:"title" binding:"omitempty,max=256"`
	Category    *string `json:"category" binding:"omitempty,max=128"`
	Criticality *string `json:"criticality" binding:"omitempty,oneof=low medium high critical"`
	Automated   *bool   `json:"automated"`
}

type createSuiteRequest struct {
	Name        string   `json:"name" binding:"required,max=128"`
	Description *string  `json:"description" binding:"omitempty"`
	ScenarioIDs []string `json:"scenario_ids" binding:"required,min=1"`
}

// Create 创建被测对象。
func (h *StoreHandler) Create(ctx *gin.Context) {
	var req createStoreRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error(), nil)
		return
	}

	store, err := h.service.CreateStore(ctx, storesvc.CreateStoreInput{
		OrganizationID: middleware.GetOrganizationID(ctx),
		Name:           req.Name,
		Description:    req.Description,
		CreatedBy:      ctx.GetString(middleware.UserContextKey),
	})
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"data": store})
}

// List 返回组织内的全部被测对象。
func (h *StoreHandler) List(ctx *gin.Context) {
	stores := h.service.ListStores(ctx, middleware.GetOrganizationID(ctx))
	httpx.RespondOK(ctx, gin.H{"items": stores, "total": len(stores)})
}

// Get 返回单个被测对象。
func (h *StoreHandler) Get(ctx *gin.Context) {
	store, err := h.service.GetStore(ctx, middleware.GetOrganizationID(ctx), ctx.Param("id"))
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, store)
}

// Update 更新被测对象元数据。
func (h *StoreHandler) Update(ctx *gin.Context) {
	var req updateStoreRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error(), nil)
		return
	}

	store, err := h.service.UpdateStore(ctx, storesvc.UpdateStoreInput{
		OrganizationID: middleware.GetOrganizationID(ctx),
		StoreID:        ctx.Param("id"),
		Name:           req.Name,
		Description:    req.Description,
		Status:         req.Status,
	})
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, store)
}

// Delete 删除被测对象。
func (h *StoreHandler) Delete(ctx *gin.Context) {
	if err := h.service.DeleteStore(ctx, middleware.GetOrganizationID(ctx), ctx.Param("id")); err != nil {
		h.handleError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// CreateScenario 向场景目录新增场景。
func (h *StoreHandler) CreateScenario(ctx *gin.Context) {
	var req createScenarioRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error(), nil)
		return
	}

	scenario, err := h.service.CreateScenario(ctx, storesvc.CreateScenarioInput{
		OrganizationID: middleware.GetOrganizationID(ctx),
		StoreID:        ctx.Param("id"),
		Title:          req.Title,
		Category:       req.Category,
		Criticality:    req.Criticality,
		Automated:      req.Automated,
	})
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"data": scenario})
}

// ListScenarios 返回场景目录。
func (h *StoreHandler) ListScenarios(ctx *gin.Context) {
	scenarios := h.service.ListScenarios(ctx, ctx.Param("id"))
	httpx.RespondOK(ctx, gin.H{"items": scenarios, "total": len(scenarios)})
}

// UpdateScenario 更新目录场景。
func (h *StoreHandler) UpdateScenario(ctx *gin.Context) {
	var req updateScenarioRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error(), nil)
		return
	}

	scenario, err := h.service.UpdateScenario(ctx, storesvc.UpdateScenarioInput{
		StoreID:     ctx.Param("id"),
		ScenarioID:  ctx.Param("scenarioId"),
		Title:       req.Title,
		Category:    req.Category,
		Criticality: req.Criticality,
		Automated:   req.Automated,
	})
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, scenario)
}

// DeleteScenario 删除目录场景。
func (h *StoreHandler) DeleteScenario(ctx *gin.Context) {
	if err := h.service.DeleteScenario(ctx, ctx.Param("id"), ctx.Param("scenarioId")); err != nil {
		h.handleError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// CreateSuite 创建测试套件。
func (h *StoreHandler) CreateSuite(ctx *gin.Context) {
	var req createSuiteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error(), nil)
		return
	}

	suite, err := h.service.CreateSuite(ctx, storesvc.CreateSuiteInput{
		OrganizationID: middleware.GetOrganizationID(ctx),
		StoreID:        ctx.Param("id"),
		Name:           req.Name,
		Description:    req.Description,
		ScenarioIDs:    req.ScenarioIDs,
	})
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"data": suite})
}

// ListSuites 返回套件列表。
func (h *StoreHandler) ListSuites(ctx *gin.Context) {
	suites := h.service.ListSuites(ctx, ctx.Param("id"))
	httpx.RespondOK(ctx, gin.H{"items": suites, "total": len(suites)})
}

// DeleteSuite 删除套件。
func (h *StoreHandler) DeleteSuite(ctx *gin.Context) {
	if err := h.service.DeleteSuite(ctx, ctx.Param("id"), ctx.Param("suiteId")); err != nil {
		h.handleError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (h *StoreHandler) handleError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, storesvc.ErrNameRequired), errors.Is(err, storesvc.ErrNoFieldsToUpdate):
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error(), nil)
	case errors.Is(err, storesvc.ErrStoreNotFound):
		httpx.RespondError(ctx, http.StatusNotFound, "STORE_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, storesvc.ErrScenarioNotFound):
		httpx.RespondError(ctx, http.StatusNotFound, "SCENARIO_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, storesvc.ErrSuiteNotFound):
		httpx.RespondError(ctx, http.StatusNotFound, "SUITE_NOT_FOUND", err.Error(), nil)
	default:
		httpx.RespondError(ctx, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
	}
}
