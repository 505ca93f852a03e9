package environment

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/zacharykka/qa-manager/internal/domain"
	"github.com/zacharykka/qa-manager/internal/infra/database"
	"github.com/zacharykka/qa-manager/internal/infra/docstore"
	"github.com/zacharykka/qa-manager/internal/infra/repository"
	activitysvc "github.com/zacharykka/qa-manager/internal/service/activity"
	"go.uber.org/zap"
)

type fixture struct {
	svc      *Service
	repos    *domain.Repositories
	storeID  string
	orgID    string
	scenario []string
}

func setupFixture(t *testing.T) *fixture {
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
	activity := activitysvc.NewService(repos, 30*24*time.Hour, zap.NewNop())
	svc := NewService(repos, activity, nil, zap.NewNop())

	ctx := context.Background()
	orgID := "org-1"
	storeID := uuid.NewString()
	if err := repos.Stores.Create(ctx, &domain.Store{
		ID:             storeID,
		OrganizationID: orgID,
		Name:           "Checkout App",
		Status:         "active",
	}); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	var scenarioIDs []string
	for _, title := range []string{"Login", "Payment"} {
		id := uuid.NewString()
		if err := repos.Scenarios.Create(ctx, &domain.Scenario{
			ID:      id,
			StoreID: storeID,
			Title:   title,
		}); err != nil {
			t.Fatalf("seed scenario: %v", err)
		}
		scenarioIDs = append(scenarioIDs, id)
	}

	return &fixture{svc: svc, repos: repos, storeID: storeID, orgID: orgID, scenario: scenarioIDs}
}

func TestCreateSnapshotsCatalog(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	env, err := f.svc.Create(ctx, CreateInput{
		OrganizationID: f.orgID,
		StoreID:        f.storeID,
		Name:           "Regression",
		CreatedBy:      "user-1",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if env.Status != domain.EnvironmentBacklog {
		t.Fatalf("expected backlog status, got %s", env.Status)
	}
	if len(env.Scenarios) != 2 || env.TotalCenarios != 2 {
		t.Fatalf("expected full catalog snapshot, got %+v", env.Scenarios)
	}
	for _, scenario := range env.Scenarios {
		if scenario.Status != domain.ScenarioPendente {
			t.Fatalf("expected pendente snapshot status, got %s", scenario.Status)
		}
	}

	// 创建后修改目录不影响既有快照
	if err := f.repos.Scenarios.Create(ctx, &domain.Scenario{
		ID:      uuid.NewString(),
		StoreID: f.storeID,
		Title:   "Late addition",
	}); err != nil {
		t.Fatalf("seed extra scenario: %v", err)
	}
	stored, err := f.svc.Get(ctx, f.storeID, env.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(stored.Scenarios) != 2 {
		t.Fatalf("expected snapshot isolated from catalog edits, got %d", len(stored.Scenarios))
	}
}

func TestCreateFromSuiteSubset(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	suiteID := uuid.NewString()
	if err := f.repos.Suites.Create(ctx, &domain.Suite{
		ID:          suiteID,
		StoreID:     f.storeID,
		Name:        "Smoke",
		ScenarioIDs: []string{f.scenario[0]},
	}); err != nil {
		t.Fatalf("seed suite: %v", err)
	}

	env, err := f.svc.Create(ctx, CreateInput{
		OrganizationID: f.orgID,
		StoreID:        f.storeID,
		Name:           "Smoke run",
		SuiteID:        suiteID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(env.Scenarios) != 1 {
		t.Fatalf("expected suite subset of 1, got %d", len(env.Scenarios))
	}
	if env.SuiteName == nil || *env.SuiteName != "Smoke" {
		t.Fatalf("expected suite name captured, got %+v", env.SuiteName)
	}
}

func TestCreateRejectsEmptySuite(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	suiteID := uuid.NewString()
	if err := f.repos.Suites.Create(ctx, &domain.Suite{
		ID:      suiteID,
		StoreID: f.storeID,
		Name:    "Empty",
	}); err != nil {
		t.Fatalf("seed suite: %v", err)
	}

	_, err := f.svc.Create(ctx, CreateInput{
		OrganizationID: f.orgID,
		StoreID:        f.storeID,
		Name:           "Doomed",
		SuiteID:        suiteID,
	})
	if !errors.Is(err, ErrNoScenariosInSuite) {
		t.Fatalf("expected ErrNoScenariosInSuite got %v", err)
	}
}

func TestFullLifecycleWithTimeTracking(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	t0 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	current := t0
	f.svc.WithClock(func() time.Time { return current })

	env, err := f.svc.Create(ctx, CreateInput{
		OrganizationID: f.orgID,
		StoreID:        f.storeID,
		Name:           "Sprint 12",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	env, err = f.svc.Transition(ctx, f.orgID, f.storeID, env.ID, domain.EnvironmentInProgress, "user-1")
	if err != nil {
		t.Fatalf("to in_progress: %v", err)
	}
	if env.TimeTracking.Start == nil || !env.TimeTracking.Start.Equal(t0) {
		t.Fatalf("expected start at t0, got %+v", env.TimeTracking)
	}

	if _, err := f.svc.Join(ctx, f.storeID, env.ID, "user-1"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := f.svc.Join(ctx, f.storeID, env.ID, "user-2"); err != nil {
		t.Fatalf("join: %v", err)
	}

	// 仍有未完成平台时拒绝收尾
	if _, err := f.svc.Transition(ctx, f.orgID, f.storeID, env.ID, domain.EnvironmentDone, "user-1"); !errors.Is(err, domain.ErrPendingScenarios) {
		t.Fatalf("expected ErrPendingScenarios got %v", err)
	}

	for _, scenarioID := range f.scenario {
		if _, err := f.svc.SetScenarioStatus(ctx, f.storeID, env.ID, scenarioID, domain.PlatformMobile, domain.ScenarioConcluido); err != nil {
			t.Fatalf("mobile status: %v", err)
		}
		if _, err := f.svc.SetScenarioStatus(ctx, f.storeID, env.ID, scenarioID, domain.PlatformDesktop, domain.ScenarioNaoSeAplica); err != nil {
			t.Fatalf("desktop status: %v", err)
		}
	}

	if _, err := f.svc.Leave(ctx, f.storeID, env.ID, "user-2"); err != nil {
		t.Fatalf("leave: %v", err)
	}

	current = t0.Add(45 * time.Minute)
	env, err = f.svc.Transition(ctx, f.orgID, f.storeID, env.ID, domain.EnvironmentDone, "user-1")
	if err != nil {
		t.Fatalf("to done: %v", err)
	}

	if env.TimeTracking.TotalMs != (45 * time.Minute).Milliseconds() {
		t.Fatalf("expected 45min accumulated, got %dms", env.TimeTracking.TotalMs)
	}
	if env.TimeTracking.End == nil || !env.TimeTracking.End.Equal(current) {
		t.Fatalf("expected end stamped, got %+v", env.TimeTracking)
	}
	if env.ConcludedBy == nil || *env.ConcludedBy != "user-1" {
		t.Fatalf("expected concluded_by user-1, got %+v", env.ConcludedBy)
	}
	// user-2 离场后仍留在参与者名册
	if len(env.Participants) != 2 {
		t.Fatalf("expected both participants retained, got %+v", env.Participants)
	}

	// 收尾后的环境拒绝场景与成员变更
	if _, err := f.svc.SetScenarioStatus(ctx, f.storeID, env.ID, f.scenario[0], domain.PlatformMobile, domain.ScenarioPendente); !errors.Is(err, domain.ErrEnvironmentDone) {
		t.Fatalf("expected ErrEnvironmentDone got %v", err)
	}
	if _, err := f.svc.Join(ctx, f.storeID, env.ID, "user-3"); !errors.Is(err, domain.ErrEnvironmentDone) {
		t.Fatalf("expected ErrEnvironmentDone got %v", err)
	}

	// 同状态转移是 no-op，原样返回
	same, err := f.svc.Transition(ctx, f.orgID, f.storeID, env.ID, domain.EnvironmentDone, "user-9")
	if err != nil {
		t.Fatalf("same-status transition: %v", err)
	}
	if same.ConcludedBy == nil || *same.ConcludedBy != "user-1" {
		t.Fatalf("expected no-op to keep concluded_by, got %+v", same.ConcludedBy)
	}

	// 回到 backlog 清空计时
	env, err = f.svc.Transition(ctx, f.orgID, f.storeID, env.ID, domain.EnvironmentBacklog, "user-1")
	if err != nil {
		t.Fatalf("to backlog: %v", err)
	}
	if env.TimeTracking.Start != nil || env.TimeTracking.TotalMs != 0 {
		t.Fatalf("expected tracking reset, got %+v", env.TimeTracking)
	}
}

func TestTransitionInvalidStatus(t *testing.T) {
	f := setupFixture(t)

	if _, err := f.svc.Transition(context.Background(), f.orgID, f.storeID, "whatever", domain.EnvironmentStatus("paused"), ""); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus got %v", err)
	}
}

func TestGetUnknownEnvironment(t *testing.T) {
	f := setupFixture(t)

	_, err := f.svc.Get(context.Background(), f.storeID, "missing")
	if !errors.Is(err, domain.ErrInvalidEnvironment) {
		t.Fatalf("expected ErrInvalidEnvironment got %v", err)
	}
	if domain.ErrorCode(err) != "INVALID_ENVIRONMENT" {
		t.Fatalf("expected coded error, got %q", domain.ErrorCode(err))
	}
}

func TestAddBugMaintainsCounter(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	env, err := f.svc.Create(ctx, CreateInput{
		OrganizationID: f.orgID,
		StoreID:        f.storeID,
		Name:           "Buggy",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	bug, err := f.svc.AddBug(ctx, AddBugInput{
		OrganizationID: f.orgID,
		StoreID:        f.storeID,
		EnvironmentID:  env.ID,
		ScenarioID:     f.scenario[0],
		Title:          "Broken button",
		ReportedBy:     "user-1",
	})
	if err != nil {
		t.Fatalf("add bug: %v", err)
	}
	if bug.Status != domain.BugAberto {
		t.Fatalf("expected new bug aberto, got %s", bug.Status)
	}

	stored, _ := f.svc.Get(ctx, f.storeID, env.ID)
	if stored.Bugs != 1 {
		t.Fatalf("expected bug counter 1, got %d", stored.Bugs)
	}

	bugs := f.svc.ListBugs(ctx, env.ID)
	if len(bugs) != 1 || bugs[0].ID != bug.ID {
		t.Fatalf("expected bug listed, got %+v", bugs)
	}

	if err := f.svc.UpdateBugStatus(ctx, env.ID, bug.ID, domain.BugResolvido); err != nil {
		t.Fatalf("update bug status: %v", err)
	}
	bugs = f.svc.ListBugs(ctx, env.ID)
	if bugs[0].Status != domain.BugResolvido {
		t.Fatalf("expected resolvido, got %s", bugs[0].Status)
	}
}

func TestAddBugUnknownScenario(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	env, err := f.svc.Create(ctx, CreateInput{
		OrganizationID: f.orgID,
		StoreID:        f.storeID,
		Name:           "Strict",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = f.svc.AddBug(ctx, AddBugInput{
		OrganizationID: f.orgID,
		StoreID:        f.storeID,
		EnvironmentID:  env.ID,
		ScenarioID:     "ghost",
		Title:          "Orphan",
	})
	if !errors.Is(err, ErrScenarioNotFound) {
		t.Fatalf("expected ErrScenarioNotFound got %v", err)
	}

	stored, _ := f.svc.Get(ctx, f.storeID, env.ID)
	if stored.Bugs != 0 {
		t.Fatalf("expected counter untouched, got %d", stored.Bugs)
	}
}

func TestListDegradesToEmptyWithoutCache(t *testing.T) {
	f := setupFixture(t)

	envs := f.svc.List(context.Background(), "unknown-store")
	if envs == nil || len(envs) != 0 {
		t.Fatalf("expected empty slice, got %+v", envs)
	}
}
