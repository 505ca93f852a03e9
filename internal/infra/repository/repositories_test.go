package repository

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
	"go.uber.org/zap"
)

func setupRepos(t *testing.T) (*domain.Repositories, *docstore.Store) {
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
	return NewDocumentRepositories(store), store
}

func TestUserRepositoryCreateAndGetByEmail(t *testing.T) {
	repos, _ := setupRepos(t)
	ctx := context.Background()

	user := &domain.User{
		ID:             uuid.NewString(),
		OrganizationID: "org-1",
		Email:          "tester@example.com",
		HashedPassword: "hashed",
		Role:           "admin",
		Status:         "active",
	}
	if err := repos.Users.Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	stored, err := repos.Users.GetByEmail(ctx, "org-1", "tester@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if stored.ID != user.ID {
		t.Fatalf("expected id %s got %s", user.ID, stored.ID)
	}
	if stored.HashedPassword != "hashed" {
		t.Fatalf("expected hashed password restored from document")
	}

	if _, err := repos.Users.GetByEmail(ctx, "other-org", "tester@example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected cross-organization lookup to miss, got %v", err)
	}
}

func TestEnvironmentRepositoryRoundTrip(t *testing.T) {
	repos, _ := setupRepos(t)
	ctx := context.Background()

	env := &domain.Environment{
		ID:      uuid.NewString(),
		StoreID: "store-1",
		Name:    "Sprint 12",
		Status:  domain.EnvironmentBacklog,
		Scenarios: map[string]domain.EnvironmentScenario{
			"sc-1": {Title: "Login", Status: domain.ScenarioPendente},
		},
		TotalCenarios: 1,
	}
	if err := repos.Environments.Create(ctx, env); err != nil {
		t.Fatalf("create environment: %v", err)
	}

	stored, err := repos.Environments.GetByID(ctx, "store-1", env.ID)
	if err != nil {
		t.Fatalf("get environment: %v", err)
	}
	if stored.Name != "Sprint 12" || len(stored.Scenarios) != 1 {
		t.Fatalf("unexpected environment: %+v", stored)
	}

	if _, err := repos.Environments.GetByID(ctx, "other-store", env.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected store scoping, got %v", err)
	}
}

func TestEnvironmentRepositoryDecodesLegacyAliases(t *testing.T) {
	repos, store := setupRepos(t)
	ctx := context.Background()

	envID := uuid.NewString()
	legacyDoc := map[string]any{
		"store_id": "store-1",
		"name":     "Legacy",
		"status":   "in_progress",
		"cenarios": map[string]any{
			"sc-1": map[string]any{"title": "Checkout", "status": "em_andamento"},
		},
		"usersPresent": []any{"user-1", "user-2"},
		"timeTracking": map[string]any{
			"start":   float64(1714566000000),
			"totalMs": float64(90000),
		},
	}
	if err := store.Set(ctx, "environments", envID, legacyDoc); err != nil {
		t.Fatalf("seed legacy doc: %v", err)
	}

	env, err := repos.Environments.GetByID(ctx, "store-1", envID)
	if err != nil {
		t.Fatalf("get environment: %v", err)
	}

	if len(env.Scenarios) != 1 || env.Scenarios["sc-1"].Title != "Checkout" {
		t.Fatalf("expected legacy cenarios alias decoded, got %+v", env.Scenarios)
	}
	if len(env.PresentUsersIDs) != 2 || env.PresentUsersIDs[0] != "user-1" {
		t.Fatalf("expected usersPresent alias decoded, got %+v", env.PresentUsersIDs)
	}
	if env.TimeTracking.Start == nil {
		t.Fatalf("expected epoch millis start decoded")
	}
	if got := env.TimeTracking.Start.UnixMilli(); got != 1714566000000 {
		t.Fatalf("expected start millis preserved, got %d", got)
	}
	if env.TimeTracking.TotalMs != 90000 {
		t.Fatalf("expected totalMs decoded, got %d", env.TimeTracking.TotalMs)
	}
	if env.TotalCenarios != 1 {
		t.Fatalf("expected totalCenarios derived from scenarios, got %d", env.TotalCenarios)
	}
}

func TestEnvironmentRepositoryMutate(t *testing.T) {
	repos, _ := setupRepos(t)
	ctx := context.Background()

	env := &domain.Environment{
		ID:      uuid.NewString(),
		StoreID: "store-1",
		Name:    "Mutable",
		Status:  domain.EnvironmentBacklog,
	}
	if err := repos.Environments.Create(ctx, env); err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := repos.Environments.Mutate(ctx, "store-1", env.ID, func(env *domain.Environment) error {
		env.Bugs++
		env.Participants = append(env.Participants, "user-1")
		return nil
	})
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if updated.Bugs != 1 {
		t.Fatalf("expected bug counter incremented, got %d", updated.Bugs)
	}

	stored, err := repos.Environments.GetByID(ctx, "store-1", env.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Bugs != 1 || len(stored.Participants) != 1 {
		t.Fatalf("expected mutation persisted, got %+v", stored)
	}
}

func TestEnvironmentRepositoryMutateCallbackErrorAborts(t *testing.T) {
	repos, _ := setupRepos(t)
	ctx := context.Background()

	env := &domain.Environment{
		ID:      uuid.NewString(),
		StoreID: "store-1",
		Name:    "Untouched",
		Status:  domain.EnvironmentBacklog,
	}
	if err := repos.Environments.Create(ctx, env); err != nil {
		t.Fatalf("create: %v", err)
	}

	sentinel := errors.New("nope")
	if _, err := repos.Environments.Mutate(ctx, "store-1", env.ID, func(env *domain.Environment) error {
		env.Bugs = 42
		return sentinel
	}); !errors.Is(err, sentinel) {
		t.Fatalf("expected callback error, got %v", err)
	}

	stored, _ := repos.Environments.GetByID(ctx, "store-1", env.ID)
	if stored.Bugs != 0 {
		t.Fatalf("expected mutation discarded, got %d", stored.Bugs)
	}
}

func TestActivityLogRepositoryRecentAndRetention(t *testing.T) {
	repos, _ := setupRepos(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		entry := &domain.ActivityLog{
			ID:             uuid.NewString(),
			OrganizationID: "org-1",
			EntityID:       "env-1",
			EntityType:     "environment",
			Action:         "environment.created",
			CreatedAt:      base.Add(time.Duration(i) * time.Hour),
		}
		if err := repos.ActivityLogs.Append(ctx, entry); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	recent, err := repos.ActivityLogs.ListRecent(ctx, "org-1", 3)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 entries got %d", len(recent))
	}
	if !recent[0].CreatedAt.After(recent[1].CreatedAt) {
		t.Fatalf("expected newest-first ordering")
	}

	removed, err := repos.ActivityLogs.DeleteBefore(ctx, "org-1", base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("delete before: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed got %d", removed)
	}

	remaining, _ := repos.ActivityLogs.ListRecent(ctx, "org-1", 0)
	if len(remaining) != 3 {
		t.Fatalf("expected 3 remaining got %d", len(remaining))
	}
}
