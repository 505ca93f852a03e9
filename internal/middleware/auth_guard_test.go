package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	authutil "github.com/zacharykka/qa-manager/pkg/auth"
)

const testSecret = "test-secret"

func issueTestToken(t *testing.T, tokenType, role, orgID string) string {
	t.Helper()
	token, err := authutil.GenerateToken(testSecret, time.Minute, authutil.Claims{
		UserID:    "user-1",
		Role:      role,
		TokenType: tokenType,
		Metadata:  map[string]string{"organization_id": orgID},
	})
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func guardedRouter(handler gin.HandlerFunc, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(AuthGuard(testSecret))
	for _, mw := range extra {
		router.Use(mw)
	}
	router.GET("/", handler)
	return router
}

func TestAuthGuardRejectsMissingHeader(t *testing.T) {
	router := guardedRouter(func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestAuthGuardRejectsRefreshToken(t *testing.T) {
	router := guardedRouter(func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+issueTestToken(t, "refresh", RoleAdmin, "org-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for refresh token got %d", rec.Code)
	}
}

func TestAuthGuardInjectsUserAndOrganization(t *testing.T) {
	router := guardedRouter(func(ctx *gin.Context) {
		if ctx.GetString(UserContextKey) != "user-1" {
			t.Errorf("expected user id injected, got %q", ctx.GetString(UserContextKey))
		}
		if GetOrganizationID(ctx) != "org-1" {
			t.Errorf("expected organization from token, got %q", GetOrganizationID(ctx))
		}
		ctx.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+issueTestToken(t, "access", RoleViewer, "org-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}

func TestRequireRolesBlocksViewer(t *testing.T) {
	router := guardedRouter(func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "ok")
	}, RequireRoles(RoleAdmin, RoleEditor))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+issueTestToken(t, "access", RoleViewer, "org-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}
}

func TestRequireRolesAllowsEditor(t *testing.T) {
	router := guardedRouter(func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "ok")
	}, RequireRoles(RoleAdmin, RoleEditor))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+issueTestToken(t, "access", RoleEditor, "org-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}
