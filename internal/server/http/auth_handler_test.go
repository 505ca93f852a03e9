package http

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zacharykka/qa-manager/internal/config"
	"github.com/zacharykka/qa-manager/internal/domain"
	"github.com/zacharykka/qa-manager/internal/infra/database"
	"github.com/zacharykka/qa-manager/internal/infra/docstore"
	"github.com/zacharykka/qa-manager/internal/infra/repository"
	"github.com/zacharykka/qa-manager/internal/middleware"
	authsvc "github.com/zacharykka/qa-manager/internal/service/auth"
	"go.uber.org/zap"
)

const handlerTestSecret = "handler-test-access-secret"

func setupRepositories(t *testing.T) *domain.Repositories {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	migrationPath := filepath.Join("..", "..", "..", "db", "migrations", "000001_create_documents.up.sql")
	migrationSQL, err := os.ReadFile(migrationPath)
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if _, err := db.Exec(string(migrationSQL)); err != nil {
		t.Fatalf("exec migration: %v", err)
	}

	store := docstore.New(db, database.NewDialect("sqlite"), zap.NewNop())
	repos := repository.NewDocumentRepositories(store)

	if err := repos.Organizations.Create(context.Background(), &domain.Organization{
		ID:     "default-org",
		Name:   "Default",
		Status: "active",
	}); err != nil {
		t.Fatalf("seed organization: %v", err)
	}
	return repos
}

func setupAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	repos := setupRepositories(t)
	svc := authsvc.NewService(repos, config.AuthConfig{
		AccessTokenSecret:  handlerTestSecret,
		RefreshTokenSecret: "handler-test-refresh-secret",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    24 * time.Hour,
	})
	handler := NewAuthHandler(svc, handlerTestSecret)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("/auth", middleware.OrganizationInjector())
	handler.RegisterRoutes(group)
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAuthHandlerRegisterLoginAndMe(t *testing.T) {
	router := setupAuthRouter(t)

	rec := postJSON(t, router, "/auth/register", map[string]string{
		"email":    "tester@example.com",
		"password": "password123",
		"name":     "Tester",
		"role":     "editor",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = postJSON(t, router, "/auth/login", map[string]string{
		"email":    "tester@example.com",
		"password": "password123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}

	var loginResp struct {
		Data struct {
			Tokens struct {
				AccessToken string `json:"access_token"`
			} `json:"tokens"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &loginResp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if loginResp.Data.Tokens.AccessToken == "" {
		t.Fatal("expected access token in login response")
	}

	meReq := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	meReq.Header.Set("Authorization", "Bearer "+loginResp.Data.Tokens.AccessToken)
	meRec := httptest.NewRecorder()
	router.ServeHTTP(meRec, meReq)
	if meRec.Code != http.StatusOK {
		t.Fatalf("me failed: %d %s", meRec.Code, meRec.Body.String())
	}

	var meResp struct {
		Data struct {
			Email          string `json:"email"`
			Role           string `json:"role"`
			OrganizationID string `json:"organization_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(meRec.Body.Bytes(), &meResp); err != nil {
		t.Fatalf("decode me response: %v", err)
	}
	if meResp.Data.Email != "tester@example.com" || meResp.Data.Role != "editor" {
		t.Fatalf("unexpected identity: %+v", meResp.Data)
	}
	if meResp.Data.OrganizationID != "default-org" {
		t.Fatalf("unexpected organization: %q", meResp.Data.OrganizationID)
	}
}

func TestAuthHandlerDuplicateEmailConflict(t *testing.T) {
	router := setupAuthRouter(t)

	payload := map[string]string{
		"email":    "tester@example.com",
		"password": "password123",
	}
	if rec := postJSON(t, router, "/auth/register", payload); rec.Code != http.StatusOK {
		t.Fatalf("first register failed: %d %s", rec.Code, rec.Body.String())
	}

	rec := postJSON(t, router, "/auth/register", payload)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Code != "USER_EXISTS" {
		t.Fatalf("unexpected error code %q", resp.Code)
	}
}

func TestAuthHandlerRejectsInvalidPayload(t *testing.T) {
	router := setupAuthRouter(t)

	rec := postJSON(t, router, "/auth/register", map[string]string{
		"email":    "not-an-email",
		"password": "short",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
