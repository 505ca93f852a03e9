package repository

import (
	"github.com/zacharykka/qa-manager/internal/domain"
	"github.com/zacharykka/qa-manager/internal/infra/docstore"
)

// NewDocumentRepositories 基于文档存储构建全部仓储实现。
func NewDocumentRepositories(store *docstore.Store) *domain.Repositories {
	return &domain.Repositories{
		Organizations:   &organizationRepo{store: store},
		Users:           &userRepo{store: store},
		Stores:          &storeRepo{store: store},
		Scenarios:       &scenarioRepo{store: store},
		Suites:          &suiteRepo{store: store},
		Environments:    &environmentRepo{store: store},
		EnvironmentBugs: &bugRepo{store: store},
		ActivityLogs:    &activityLogRepo{store: store},
	}
}
