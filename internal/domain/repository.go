package domain

import (
	"context"
	"time"
)

// OrganizationRepository 定义组织相关的存取接口。
type OrganizationRepository interface {
	Create(ctx context.Context, org *Organization) error
	GetByID(ctx context.Context, orgID string) (*Organization, error)
	List(ctx context.Context) ([]*Organization, error)
}

// UserRepository 定义用户存取接口。
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, userID string) (*User, error)
	GetByEmail(ctx context.Context, orgID, email string) (*User, error)
	UpdateLastLogin(ctx context.Context, userID string) error
}

// StoreRepository 定义被测对象存取接口。
type StoreRepository interface {
	Create(ctx context.Context, store *Store) error
	GetByID(ctx context.Context, orgID, storeID string) (*Store, error)
	ListByOrganization(ctx context.Context, orgID string) ([]*Store, error)
	Update(ctx context.Context, store *Store) error
	Delete(ctx context.Context, orgID, storeID string) error
}

// ScenarioRepository 定义场景目录存取接口。
type ScenarioRepository interface {
	Create(ctx context.Context, scenario *Scenario) error
	GetByID(ctx context.Context, storeID, scenarioID string) (*Scenario, error)
	ListByStore(ctx context.Context, storeID string) ([]*Scenario, error)
	Update(ctx context.Context, scenario *Scenario) error
	Delete(ctx context.Context, storeID, scenarioID string) error
}

// SuiteRepository 定义测试套件存取接口。
type SuiteRepository interface {
	Create(ctx context.Context, suite *Suite) error
	GetByID(ctx context.Context, storeID, suiteID string) (*Suite, error)
	ListByStore(ctx context.Context, storeID string) ([]*Suite, error)
	Update(ctx context.Context, suite *Suite) error
	Delete(ctx context.Context, storeID, suiteID string) error
}

// EnvironmentRepository 定义环境存取接口。
// Mutate 在后端存储的事务内执行读-改-写，是环境并发修改的唯一一致性机制。
type EnvironmentRepository interface {
	Create(ctx context.Context, env *Environment) error
	GetByID(ctx context.Context, storeID, envID string) (*Environment, error)
	ListByStore(ctx context.Context, storeID string) ([]*Environment, error)
	Mutate(ctx context.Context, storeID, envID string, fn func(env *Environment) error) (*Environment, error)
	Delete(ctx context.Context, storeID, envID string) error
}

// EnvironmentBugRepository 定义缺陷存取接口。
type EnvironmentBugRepository interface {
	Create(ctx context.Context, bug *EnvironmentBug) error
	GetByID(ctx context.Context, envID, bugID string) (*EnvironmentBug, error)
	ListByEnvironment(ctx context.Context, envID string) ([]*EnvironmentBug, error)
	UpdateStatus(ctx context.Context, envID, bugID string, status BugStatus) error
}

// ActivityLogRepository 定义审计日志接口；日志只追加，保留期清理为尽力而为。
type ActivityLogRepository interface {
	Append(ctx context.Context, entry *ActivityLog) error
	ListRecent(ctx context.Context, orgID string, limit int) ([]*ActivityLog, error)
	DeleteBefore(ctx context.Context, orgID string, cutoff time.Time) (int, error)
}

// Repositories 聚合全部仓储接口，便于依赖注入。
type Repositories struct {
	Organizations   OrganizationRepository
	Users           UserRepository
	Stores          StoreRepository
	Scenarios       ScenarioRepository
	Suites          SuiteRepository
	Environments    EnvironmentRepository
	EnvironmentBugs EnvironmentBugRepository
	ActivityLogs    ActivityLogRepository
}
