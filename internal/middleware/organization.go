package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zacharykka/qa-manager/pkg/httpx"
)

const (
	// OrganizationContextKey 是在 Gin Context 中存储组织信息的键名。
	OrganizationContextKey = "organization_id"
	organizationHeader     = "X-Organization-ID"
	defaultOrganization    = "default-org"
)

// OrganizationInjector 提供基础的组织注入逻辑；认证通过后以令牌内的组织为准。
func OrganizationInjector() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if orgID, exists := ctx.Get(OrganizationContextKey); exists {
			if idStr, ok := orgID.(string); ok && idStr != "" {
				ctx.Writer.Header().Set(organizationHeader, idStr)
				ctx.Next()
				return
			}
		}
		orgID := ctx.GetHeader(organizationHeader)
		if orgID == "" {
			orgID = defaultOrganization
		}
		ctx.Set(OrganizationContextKey, orgID)
		ctx.Writer.Header().Set(organizationHeader, orgID)
		ctx.Next()
	}
}

// RequireOrganization 可用于确保请求携带组织信息。
func RequireOrganization() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if org := GetOrganizationID(ctx); org == "" {
			httpx.RespondError(ctx, http.StatusUnauthorized, "ORGANIZATION_MISSING", "缺少组织标识", nil)
			return
		}
		ctx.Next()
	}
}

// GetOrganizationID 从上下文读取组织标识。
func GetOrganizationID(ctx *gin.Context) string {
	val, ok := ctx.Get(OrganizationContextKey)
	if !ok {
		return ""
	}
	if org, ok := val.(string); ok {
		return org
	}
	return ""
}
