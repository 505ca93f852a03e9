package bootstrap

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/zacharykka/qa-manager/internal/config"
	domain "github.com/zacharykka/qa-manager/internal/domain"
	authutil "github.com/zacharykka/qa-manager/pkg/auth"
	"go.uber.org/zap"
)

// EnsureDefaults 创建默认组织与管理员账号（若不存在）。
func EnsureDefaults(ctx context.Context, repos *domain.Repositories, cfg config.BootstrapConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		logger.Info("bootstrap skipped (disabled)")
		return nil
	}

	orgID := strings.TrimSpace(cfg.OrganizationID)
	if orgID == "" {
		orgID = "default-org"
	}

	orgName := cfg.OrganizationName
	if orgName == "" {
		orgName = "Default Organization"
	}

	if _, err := repos.Organizations.GetByID(ctx, orgID); err != nil {
		if err == domain.ErrNotFound {
			org := &domain.Organization{
				ID:          orgID,
				Name:        orgName,
				Description: optionalString(cfg.OrganizationDescription),
				Status:      "active",
			}
			if err := repos.Organizations.Create(ctx, org); err != nil {
				return err
			}
			logger.Info("bootstrap organization created", zap.String("organization_id", orgID))
		} else {
			return err
		}
	}

	adminEmail := strings.TrimSpace(strings.ToLower(cfg.AdminEmail))
	if adminEmail == "" || cfg.AdminPassword == "" {
		logger.Info("bootstrap admin skipped; email or password not set")
		return nil
	}

	if _, err := repos.Users.GetByEmail(ctx, orgID, adminEmail); err == nil {
		logger.Info("bootstrap admin exists", zap.String("organization_id", orgID), zap.String("email", adminEmail))
		return nil
	} else if err != domain.ErrNotFound {
		return err
	}

	return ensureAdmin(ctx, repos, cfg, orgID, adminEmail, logger)
}

func optionalString(val string) *string {
	trimmed := strings.TrimSpace(val)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func normalizedRole(role string) string {
	value := strings.TrimSpace(strings.ToLower(role))
	switch value {
	case "admin", "editor", "viewer":
		return value
	default:
		return "admin"
	}
}

func ensureAdmin(ctx context.Context, repos *domain.Repositories, cfg config.BootstrapConfig, orgID, adminEmail string, logger *zap.Logger) error {
	hash, err := authutil.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}

	admin := &domain.User{
		ID:             uuid.NewString(),
		OrganizationID: orgID,
		Email:          adminEmail,
		HashedPassword: hash,
		Role:           normalizedRole(cfg.AdminRole),
		Status:         "active",
	}

	if err := repos.Users.Create(ctx, admin); err != nil {
		return err
	}

	logger.Info("bootstrap admin created", zap.String("organization_id", orgID), zap.String("email", adminEmail))
	return nil
}
