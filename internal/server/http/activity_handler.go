package http

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/zacharykka/qa-manager/internal/middleware"
	activitysvc "github.com/zacharykka/qa-manager/internal/service/activity"
	"github.com/zacharykka/qa-manager/pkg/httpx"
)

const defaultActivityLimit = 50

// ActivityHandler 处理操作日志查询请求。
type ActivityHandler struct {
	service *activitysvc.Service
}

// NewActivityHandler 创建 ActivityHandler。
func NewActivityHandler(service *activitysvc.Service) *ActivityHandler {
	return &ActivityHandler{service: service}
}

// RegisterRoutes 注册操作日志路由。
func (h *ActivityHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Recent)
}

// Recent 返回组织内最近的操作日志，默认取 50 条。
func (h *ActivityHandler) Recent(ctx *gin.Context) {
	limit := defaultActivityLimit
	if raw := ctx.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	logs := h.service.Recent(ctx, middleware.GetOrganizationID(ctx), limit)
	httpx.RespondOK(ctx, gin.H{"items": logs, "total": len(logs)})
}
