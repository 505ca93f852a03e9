package environment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zacharykka/qa-manager/internal/domain"
	"github.com/zacharykka/qa-manager/internal/infra/cache"
	activitysvc "github.com/zacharykka/qa-manager/internal/service/activity"
	"go.uber.org/zap"
)

// Service 提供环境生命周期、成员与缺陷相关操作。
// 对单个环境的全部写入都经由仓储的事务化 Mutate，避免并发丢失更新。
type Service struct {
	repos     *domain.Repositories
	activity  *activitysvc.Service
	listCache *cache.Store[[]*domain.Environment]
	logger    *zap.Logger
	nowFn     func() time.Time
}

// NewService 创建环境服务实例。listCache 可为 nil（不启用缓存）。
func NewService(repos *domain.Repositories, activity *activitysvc.Service, listCache *cache.Store[[]*domain.Environment], logger *zap.Logger) *Service {
	return &Service{
		repos:     repos,
		activity:  activity,
		listCache: listCache,
		logger:    logger,
		nowFn:     time.Now,
	}
}

// WithClock 注入自定义时间函数，便于测试计时逻辑。
func (s *Service) WithClock(now func() time.Time) {
	if now != nil {
		s.nowFn = now
	}
}

// CreateInput 定义创建环境所需字段。
type CreateInput struct {
	OrganizationID string
	StoreID        string
	Name           string
	SuiteID        string
	CreatedBy      string
}

// Create 创建环境。指定套件时按套件拷贝场景快照，否则拷贝整个目录。
// 快照是值拷贝：之后编辑目录不会改变已创建环境的场景列表。
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Environment, error) {
	if input.Name == "" {
		return nil, ErrNameRequired
	}

	store, err := s.repos.Stores.GetByID(ctx, input.OrganizationID, input.StoreID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrStoreNotFound
		}
		return nil, err
	}

	scenarios, err := s.repos.Scenarios.ListByStore(ctx, store.ID)
	if err != nil {
		return nil, err
	}

	env := &domain.Environment{
		ID:              uuid.NewString(),
		StoreID:         store.ID,
		Name:            input.Name,
		Status:          domain.EnvironmentBacklog,
		Scenarios:       map[string]domain.EnvironmentScenario{},
		PresentUsersIDs: []string{},
		Participants:    []string{},
	}

	wanted := map[string]struct{}{}
	if input.SuiteID != "" {
		suite, err := s.repos.Suites.GetByID(ctx, store.ID, input.SuiteID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, ErrSuiteNotFound
			}
			return nil, err
		}
		if len(suite.ScenarioIDs) == 0 {
			return nil, ErrNoScenariosInSuite
		}
		for _, id := range suite.ScenarioIDs {
			wanted[id] = struct{}{}
		}
		env.SuiteID = &suite.ID
		env.SuiteName = &suite.Name
	}

	for _, scenario := range scenarios {
		if input.SuiteID != "" {
			if _, ok := wanted[scenario.ID]; !ok {
				continue
			}
		}
		env.Scenarios[scenario.ID] = domain.EnvironmentScenario{
			Title:       scenario.Title,
			Category:    scenario.Category,
			Criticality: scenario.Criticality,
			Automated:   scenario.Automated,
			Status:      domain.ScenarioPendente,
		}
	}
	env.TotalCenarios = len(env.Scenarios)

	if err := s.repos.Environments.Create(ctx, env); err != nil {
		return nil, err
	}
	s.invalidateList(ctx, store.ID)

	s.activity.LogAsync(activitysvc.Entry{
		OrganizationID: input.OrganizationID,
		EntityID:       env.ID,
		EntityType:     "environment",
		Action:         "environment.created",
		Message:        fmt.Sprintf("environment %q created with %d scenarios", env.Name, env.TotalCenarios),
		ActorID:        input.CreatedBy,
	})
	return env, nil
}

// Get 返回单个环境。
func (s *Service) Get(ctx context.Context, storeID, envID string) (*domain.Environment, error) {
	env, err := s.repos.Environments.GetByID(ctx, storeID, envID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidEnvironment
		}
		return nil, err
	}
	return env, nil
}

// List 返回指定 Store 的环境列表，读取走缓存，失败时降级为空列表。
func (s *Service) List(ctx context.Context, storeID string) []*domain.Environment {
	fetcher := func(ctx context.Context) ([]*domain.Environment, error) {
		return s.repos.Environments.ListByStore(ctx, storeID)
	}
	if s.listCache == nil {
		envs, err := fetcher(ctx)
		if err != nil {
			s.logger.Warn("environment list failed", zap.String("store_id", storeID), zap.Error(err))
			return []*domain.Environment{}
		}
		return envs
	}
	return cache.Fetch(ctx, cache.FetchParams[[]*domain.Environment]{
		Cache:    s.listCache,
		Key:      listKey(storeID),
		Fetcher:  fetcher,
		Fallback: []*domain.Environment{},
		Logger:   s.logger,
	})
}

// Delete 删除环境。
func (s *Service) Delete(ctx context.Context, storeID, envID string) error {
	if err := s.repos.Environments.Delete(ctx, storeID, envID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrInvalidEnvironment
		}
		return err
	}
	s.invalidateList(ctx, storeID)
	return nil
}

// Transition 校验并执行一次状态转移；同状态为 no-op，直接返回当前环境。
func (s *Service) Transition(ctx context.Context, orgID, storeID, envID string, target domain.EnvironmentStatus, userID string) (*domain.Environment, error) {
	if !domain.ValidEnvironmentStatus(target) {
		return nil, ErrInvalidStatus
	}

	var previous domain.EnvironmentStatus
	env, err := s.repos.Environments.Mutate(ctx, storeID, envID, func(env *domain.Environment) error {
		previous = env.Status
		return applyTransition(env, target, userID, s.nowFn())
	})
	if err != nil {
		if errors.Is(err, errNoTransition) {
			return s.Get(ctx, storeID, envID)
		}
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidEnvironment
		}
		return nil, err
	}

	s.invalidateList(ctx, storeID)
	s.activity.LogAsync(activitysvc.Entry{
		OrganizationID: orgID,
		EntityID:       envID,
		EntityType:     "environment",
		Action:         "environment.status_changed",
		Message:        fmt.Sprintf("environment %q moved from %s to %s", env.Name, previous, target),
		ActorID:        userID,
	})
	return env, nil
}

// SetScenarioStatus 更新场景在指定平台上的状态；platform 为空时写旧的单状态字段。
func (s *Service) SetScenarioStatus(ctx context.Context, storeID, envID, scenarioID string, platform domain.Platform, status domain.ScenarioStatus) (*domain.Environment, error) {
	if !domain.ValidScenarioStatus(status) {
		return nil, ErrInvalidStatus
	}
	if platform != "" && platform != domain.PlatformMobile && platform != domain.PlatformDesktop {
		return nil, ErrInvalidPlatform
	}

	env, err := s.repos.Environments.Mutate(ctx, storeID, envID, func(env *domain.Environment) error {
		if env.Status == domain.EnvironmentDone {
			return domain.ErrEnvironmentDone
		}
		scenario, ok := env.Scenarios[scenarioID]
		if !ok {
			return ErrScenarioNotFound
		}
		switch platform {
		case domain.PlatformMobile:
			scenario.StatusMobile = status
		case domain.PlatformDesktop:
			scenario.StatusDesktop = status
		default:
			scenario.Status = status
		}
		env.Scenarios[scenarioID] = scenario
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidEnvironment
		}
		return nil, err
	}

	s.invalidateList(ctx, storeID)
	return env, nil
}

// Join 把用户加入在场名单与参与者名册，幂等；环境已收尾时拒绝。
func (s *Service) Join(ctx context.Context, storeID, envID, userID string) (*domain.Environment, error) {
	env, err := s.repos.Environments.Mutate(ctx, storeID, envID, func(env *domain.Environment) error {
		if env.Status == domain.EnvironmentDone {
			return domain.ErrEnvironmentDone
		}
		env.PresentUsersIDs = union(env.PresentUsersIDs, []string{userID})
		env.Participants = union(env.Participants, []string{userID})
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidEnvironment
		}
		return nil, err
	}
	s.invalidateList(ctx, storeID)
	return env, nil
}

// Leave 仅把用户移出在场名单；参与者名册是历史记录，永不收缩。
func (s *Service) Leave(ctx context.Context, storeID, envID, userID string) (*domain.Environment, error) {
	env, err := s.repos.Environments.Mutate(ctx, storeID, envID, func(env *domain.Environment) error {
		if env.Status == domain.EnvironmentDone {
			return domain.ErrEnvironmentDone
		}
		filtered := env.PresentUsersIDs[:0:0]
		for _, id := range env.PresentUsersIDs {
			if id != userID {
				filtered = append(filtered, id)
			}
		}
		env.PresentUsersIDs = filtered
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidEnvironment
		}
		return nil, err
	}
	s.invalidateList(ctx, storeID)
	return env, nil
}

// AddBugInput 定义登记缺陷所需字段。
type AddBugInput struct {
	OrganizationID string
	StoreID        string
	EnvironmentID  string
	ScenarioID     string
	Title          string
	Description    string
	ReportedBy     string
}

// AddBug 登记缺陷并在同一事务内维护环境的缺陷计数。
func (s *Service) AddBug(ctx context.Context, input AddBugInput) (*domain.EnvironmentBug, error) {
	if input.Title == "" {
		return nil, ErrNameRequired
	}

	bug := &domain.EnvironmentBug{
		ID:            uuid.NewString(),
		EnvironmentID: input.EnvironmentID,
		Title:         input.Title,
		Status:        domain.BugAberto,
	}
	if input.ScenarioID != "" {
		scenarioID := input.ScenarioID
		bug.ScenarioID = &scenarioID
	}
	if input.Description != "" {
		description := input.Description
		bug.Description = &description
	}
	if input.ReportedBy != "" {
		reporter := input.ReportedBy
		bug.ReportedBy = &reporter
	}

	_, err := s.repos.Environments.Mutate(ctx, input.StoreID, input.EnvironmentID, func(env *domain.Environment) error {
		if input.ScenarioID != "" {
			if _, ok := env.Scenarios[input.ScenarioID]; !ok {
				return ErrScenarioNotFound
			}
		}
		env.Bugs++
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidEnvironment
		}
		return nil, err
	}

	if err := s.repos.EnvironmentBugs.Create(ctx, bug); err != nil {
		return nil, err
	}
	s.invalidateList(ctx, input.StoreID)

	s.activity.LogAsync(activitysvc.Entry{
		OrganizationID: input.OrganizationID,
		EntityID:       bug.ID,
		EntityType:     "bug",
		Action:         "bug.created",
		Message:        fmt.Sprintf("bug %q reported on environment %s", bug.Title, input.EnvironmentID),
		ActorID:        input.ReportedBy,
	})
	return bug, nil
}

// UpdateBugStatus 更新缺陷状态；缺陷状态独立于环境状态，收尾后仍可流转。
func (s *Service) UpdateBugStatus(ctx context.Context, envID, bugID string, status domain.BugStatus) error {
	if !domain.ValidBugStatus(status) {
		return ErrInvalidStatus
	}
	if err := s.repos.EnvironmentBugs.UpdateStatus(ctx, envID, bugID, status); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrBugNotFound
		}
		return err
	}
	return nil
}

// ListBugs 返回环境内的缺陷，失败时降级为空列表。
func (s *Service) ListBugs(ctx context.Context, envID string) []*domain.EnvironmentBug {
	bugs, err := s.repos.EnvironmentBugs.ListByEnvironment(ctx, envID)
	if err != nil {
		s.logger.Warn("bug list failed", zap.String("environment_id", envID), zap.Error(err))
		return []*domain.EnvironmentBug{}
	}
	return bugs
}

func (s *Service) invalidateList(ctx context.Context, storeID string) {
	if s.listCache != nil {
		s.listCache.Remove(ctx, listKey(storeID))
	}
}

func listKey(storeID string) string {
	return "store:" + storeID
}
