package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/zacharykka/qa-manager/internal/domain"
	"github.com/zacharykka/qa-manager/internal/infra/cache"
	activitysvc "github.com/zacharykka/qa-manager/internal/service/activity"
	"go.uber.org/zap"
)

// Service 提供被测对象、场景目录与测试套件的维护操作。
type Service struct {
	repos     *domain.Repositories
	activity  *activitysvc.Service
	listCache *cache.Store[[]*domain.Store]
	logger    *zap.Logger
}

// NewService 创建 Store 服务实例。listCache 可为 nil（不启用缓存）。
func NewService(repos *domain.Repositories, activity *activitysvc.Service, listCache *cache.Store[[]*domain.Store], logger *zap.Logger) *Service {
	return &Service{
		repos:     repos,
		activity:  activity,
		listCache: listCache,
		logger:    logger,
	}
}

// CreateStoreInput 定义创建被测对象所需字段。
type CreateStoreInput struct {
	OrganizationID string
	Name           string
	Description    *string
	CreatedBy      string
}

// CreateStore 创建被测对象。
func (s *Service) CreateStore(ctx context.Context, input CreateStoreInput) (*domain.Store, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	store := &domain.Store{
		ID:             uuid.NewString(),
		OrganizationID: input.OrganizationID,
		Name:           name,
		Description:    optionalTrimmedString(input.Description),
		Status:         "active",
	}
	if err := s.repos.Stores.Create(ctx, store); err != nil {
		return nil, err
	}
	s.invalidateList(ctx, input.OrganizationID)

	s.activity.LogAsync(activitysvc.Entry{
		OrganizationID: input.OrganizationID,
		EntityID:       store.ID,
		EntityType:     "store",
		Action:         "store.created",
		Message:        fmt.Sprintf("store %q created", store.Name),
		ActorID:        input.CreatedBy,
	})
	return store, nil
}

// GetStore 返回单个被测对象。
func (s *Service) GetStore(ctx context.Context, orgID, storeID string) (*domain.Store, error) {
	store, err := s.repos.Stores.GetByID(ctx, orgID, storeID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrStoreNotFound
		}
		return nil, err
	}
	return store, nil
}

// ListStores 返回组织下全部被测对象，读取走缓存，失败时降级为空列表。
func (s *Service) ListStores(ctx context.Context, orgID string) []*domain.Store {
	fetcher := func(ctx context.Context) ([]*domain.Store, error) {
		return s.repos.Stores.ListByOrganization(ctx, orgID)
	}
	if s.listCache == nil {
		stores, err := fetcher(ctx)
		if err != nil {
			s.logger.Warn("store list failed", zap.String("organization_id", orgID), zap.Error(err))
			return []*domain.Store{}
		}
		return stores
	}
	return cache.Fetch(ctx, cache.FetchParams[[]*domain.Store]{
		Cache:    s.listCache,
		Key:      listKey(orgID),
		Fetcher:  fetcher,
		Fallback: []*domain.Store{},
		Logger:   s.logger,
	})
}

// UpdateStoreInput 定义可更新的字段。
type UpdateStoreInput struct {
	OrganizationID string
	StoreID        string
	Name           *string
	Description    *string
	Status         *string
}

// UpdateStore 更新被测对象元数据。
func (s *Service) UpdateStore(ctx context.Context, input UpdateStoreInput) (*domain.Store, error) {
	if input.Name == nil && input.Description == nil && input.Status == nil {
		return nil, ErrNoFieldsToUpdate
	}

	store, err := s.GetStore(ctx, input.OrganizationID, input.StoreID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		store.Name = name
	}
	if input.Description != nil {
		store.Description = optionalTrimmedString(input.Description)
	}
	if input.Status != nil {
		store.Status = strings.TrimSpace(*input.Status)
	}

	if err := s.repos.Stores.Update(ctx, store); err != nil {
		return nil, err
	}
	s.invalidateList(ctx, input.OrganizationID)
	return store, nil
}

// DeleteStore 删除被测对象。
func (s *Service) DeleteStore(ctx context.Context, orgID, storeID string) error {
	if err := s.repos.Stores.Delete(ctx, orgID, storeID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrStoreNotFound
		}
		return err
	}
	s.invalidateList(ctx, orgID)
	return nil
}

// CreateScenarioInput 定义新增场景所需字段。
type CreateScenarioInput struct {
	OrganizationID string
	StoreID        string
	Title          string
	Category       string
	Criticality    string
	Automated      bool
}

// CreateScenario 向目录新增场景。
func (s *Service) CreateScenario(ctx context.Context, input CreateScenarioInput) (*domain.Scenario, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrNameRequired
	}
	if _, err := s.GetStore(ctx, input.OrganizationID, input.StoreID); err != nil {
		return nil, err
	}

	scenario := &domain.Scenario{
		ID:          uuid.NewString(),
		StoreID:     input.StoreID,
		Title:       title,
		Category:    strings.TrimSpace(input.Category),
		Criticality: strings.TrimSpace(input.Criticality),
		Automated:   input.Automated,
	}
	if err := s.repos.Scenarios.Create(ctx, scenario); err != nil {
		return nil, err
	}
	return scenario, nil
}

// ListScenarios 返回目录内全部场景，失败时降级为空列表。
func (s *Service) ListScenarios(ctx context.Context, storeID string) []*domain.Scenario {
	scenarios, err := s.repos.Scenarios.ListByStore(ctx, storeID)
	if err != nil {
		s.logger.Warn("scenario list failed", zap.String("store_id", storeID), zap.Error(err))
		return []*domain.Scenario{}
	}
	return scenarios
}

// UpdateScenarioInput 定义场景可更新字段。
type UpdateScenarioInput struct {
	StoreID     string
	ScenarioID  string
	Title       *string
	Category    *string
	Criticality *string
	Automated   *bool
}

// UpdateScenario 更新目录场景；不会回溯修改既有环境的快照。
func (s *Service) UpdateScenario(ctx context.Context, input UpdateScenarioInput) (*domain.Scenario, error) {
	scenario, err := s.repos.Scenarios.GetByID(ctx, input.StoreID, input.ScenarioID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrScenarioNotFound
		}
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrNameRequired
		}
		scenario.Title = title
	}
	if input.Category != nil {
		scenario.Category = strings.TrimSpace(*input.Category)
	}
	if input.Criticality != nil {
		scenario.Criticality = strings.TrimSpace(*input.Criticality)
	}
	if input.Automated != nil {
		scenario.Automated = *input.Automated
	}

	if err := s.repos.Scenarios.Update(ctx, scenario); err != nil {
		return nil, err
	}
	return scenario, nil
}

// DeleteScenario 从目录删除场景。
func (s *Service) DeleteScenario(ctx context.Context, storeID, scenarioID string) error {
	if err := s.repos.Scenarios.Delete(ctx, storeID, scenarioID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrScenarioNotFound
		}
		return err
	}
	return nil
}

// CreateSuiteInput 定义新增套件所需字段。
type CreateSuiteInput struct {
	OrganizationID string
	StoreID        string
	Name           string
	Description    *string
	ScenarioIDs    []string
}

// CreateSuite 创建测试套件；引用的场景必须存在于目录。
func (s *Service) CreateSuite(ctx context.Context, input CreateSuiteInput) (*domain.Suite, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if _, err := s.GetStore(ctx, input.OrganizationID, input.StoreID); err != nil {
		return nil, err
	}

	for _, scenarioID := range input.ScenarioIDs {
		if _, err := s.repos.Scenarios.GetByID(ctx, input.StoreID, scenarioID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, ErrScenarioNotFound
			}
			return nil, err
		}
	}

	suite := &domain.Suite{
		ID:          uuid.NewString(),
		StoreID:     input.StoreID,
		Name:        name,
		Description: optionalTrimmedString(input.Description),
		ScenarioIDs: input.ScenarioIDs,
	}
	if err := s.repos.Suites.Create(ctx, suite); err != nil {
		return nil, err
	}
	return suite, nil
}

// ListSuites 返回全部套件，失败时降级为空列表。
func (s *Service) ListSuites(ctx context.Context, storeID string) []*domain.Suite {
	suites, err := s.repos.Suites.ListByStore(ctx, storeID)
	if err != nil {
		s.logger.Warn("suite list failed", zap.String("store_id", storeID), zap.Error(err))
		return []*domain.Suite{}
	}
	return suites
}

// DeleteSuite 删除套件；既有环境持有的是快照，不受影响。
func (s *Service) DeleteSuite(ctx context.Context, storeID, suiteID string) error {
	if err := s.repos.Suites.Delete(ctx, storeID, suiteID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrSuiteNotFound
		}
		return err
	}
	return nil
}

func (s *Service) invalidateList(ctx context.Context, orgID string) {
	if s.listCache != nil {
		s.listCache.Remove(ctx, listKey(orgID))
	}
}

func listKey(orgID string) string {
	return "org:" + orgID
}

func optionalTrimmedString(val *string) *string {
	if val == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*val)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
