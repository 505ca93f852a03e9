package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/zacharykka/qa-manager/internal/config"
	domain "github.com/zacharykka/qa-manager/internal/domain"
	authutil "github.com/zacharykka/qa-manager/pkg/auth"
)

const tokenIssuer = "qa-manager"

// Service 封装认证逻辑，所有操作都以组织为边界。
type Service struct {
	repos *domain.Repositories
	cfg   config.AuthConfig
	nowFn func() time.Time
}

// Tokens 表示访问令牌与刷新令牌。
type Tokens struct {
	AccessToken           string    `json:"access_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshToken          string    `json:"refresh_token"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
}

// NewService 创建认证服务。
func NewService(repos *domain.Repositories, cfg config.AuthConfig) *Service {
	return &Service{
		repos: repos,
		cfg:   cfg,
		nowFn: time.Now,
	}
}

// WithClock 允许注入自定义时间函数，便于测试。
func (s *Service) WithClock(now func() time.Time) {
	if now != nil {
		s.nowFn = now
	}
}

// Register 在指定组织内创建新用户。
func (s *Service) Register(ctx context.Context, orgID, email, password, name, role string) (*domain.User, error) {
	email = normalizeEmail(email)
	if orgID == "" || email == "" || password == "" {
		return nil, ErrInvalidInput
	}

	if _, err := s.repos.Organizations.GetByID(ctx, orgID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, err
	}

	if _, err := s.repos.Users.GetByEmail(ctx, orgID, email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := authutil.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:             uuid.NewString(),
		OrganizationID: orgID,
		Email:          email,
		Name:           strings.TrimSpace(name),
		HashedPassword: hash,
		Role:           normalizedRole(role),
		Status:         "active",
	}

	if err := s.repos.Users.Create(ctx, user); err != nil {
		return nil, err
	}
	return s.repos.Users.GetByEmail(ctx, orgID, email)
}

// Login 校验用户凭证并返回令牌。
func (s *Service) Login(ctx context.Context, orgID, email, password string) (*Tokens, *domain.User, error) {
	email = normalizeEmail(email)
	if orgID == "" || email == "" || password == "" {
		return nil, nil, ErrInvalidCredentials
	}

	user, err := s.repos.Users.GetByEmail(ctx, orgID, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if user.Status != "active" {
		return nil, nil, ErrUserDisabled
	}

	if !authutil.VerifyPassword(user.HashedPassword, password) {
		return nil, nil, ErrInvalidCredentials
	}

	if err := s.repos.Users.UpdateLastLogin(ctx, user.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, nil, err
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}

	return tokens, user, nil
}

// Refresh 根据刷新令牌生成新令牌。
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Tokens, *domain.User, error) {
	claims, err := authutil.ParseToken(refreshToken, s.cfg.RefreshTokenSecret)
	if err != nil {
		return nil, nil, ErrTokenInvalid
	}

	if claims.TokenType != "refresh" {
		return nil, nil, ErrTokenInvalid
	}

	orgID := claims.Metadata["organization_id"]
	user, err := s.repos.Users.GetByEmail(ctx, orgID, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, ErrTokenInvalid
		}
		return nil, nil, err
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}

	return tokens, user, nil
}

func (s *Service) issueTokens(user *domain.User) (*Tokens, error) {
	now := s.nowFn()
	accessTTL := s.cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	refreshTTL := s.cfg.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}

	metadata := map[string]string{"organization_id": user.OrganizationID}

	accessClaims := authutil.Claims{
		UserID:    user.ID,
		Role:      user.Role,
		TokenType: "access",
		Metadata:  metadata,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  user.Email,
			Issuer:   tokenIssuer,
			Audience: []string{tokenIssuer},
		},
	}

	accessToken, err := authutil.GenerateToken(s.cfg.AccessTokenSecret, accessTTL, accessClaims)
	if err != nil {
		return nil, err
	}

	refreshClaims := authutil.Claims{
		UserID:    user.ID,
		Role:      user.Role,
		TokenType: "refresh",
		Metadata:  metadata,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  user.Email,
			Issuer:   tokenIssuer,
			Audience: []string{tokenIssuer},
		},
	}

	refreshToken, err := authutil.GenerateToken(s.cfg.RefreshTokenSecret, refreshTTL, refreshClaims)
	if err != nil {
		return nil, err
	}

	tokens := &Tokens{
		AccessToken:           accessToken,
		AccessTokenExpiresAt:  now.Add(accessTTL),
		RefreshToken:          refreshToken,
		RefreshTokenExpiresAt: now.Add(refreshTTL),
	}
	return tokens, nil
}

func normalizedRole(role string) string {
	value := strings.TrimSpace(strings.ToLower(role))
	switch value {
	case "admin", "editor", "viewer":
		return value
	default:
		return "viewer"
	}
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
