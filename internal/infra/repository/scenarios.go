package repository

import (
	"context"

	"github.com/zacharykka/qa-manager/internal/domain"
	"github.com/zacharykka/qa-manager/internal/infra/docstore"
)

type scenarioRepo struct {
	store *docstore.Store
}

func (r *scenarioRepo) Create(ctx context.Context, scenario *domain.Scenario) error {
	doc, err := toDoc(scenario)
	if err != nil {
		return err
	}
	doc["created_at"] = docstore.ServerTimestamp()
	doc["updated_at"] = docstore.ServerTimestamp()
	return r.store.Set(ctx, collectionScenarios, scenario.ID, doc)
}

func (r *scenarioRepo) GetByID(ctx context.Context, storeID, scenarioID string) (*domain.Scenario, error) {
	snap, err := r.store.Get(ctx, collectionScenarios, scenarioID)
	if err != nil {
		return nil, err
	}
	if !snap.Exists() {
		return nil, domain.ErrNotFound
	}
	scenario, err := fromDoc[domain.Scenario](snap.Data())
	if err != nil {
		return nil, err
	}
	if scenario.StoreID != storeID {
		return nil, domain.ErrNotFound
	}
	return scenario, nil
}

func (r *scenarioRepo) ListByStore(ctx context.Context, storeID string) ([]*domain.Scenario, error) {
	snaps, err := r.store.QueryField(ctx, collectionScenarios, "store_id", storeID)
	if err != nil {
		return nil, err
	}
	scenarios := make([]*domain.Scenario, 0, len(snaps))
	for _, snap := range snaps {
		scenario, err := fromDoc[domain.Scenario](snap.Data())
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, scenario)
	}
	return scenarios, nil
}

func (r *scenarioRepo) Update(ctx context.Context, scenario *domain.Scenario) error {
	doc, err := toDoc(scenario)
	if err != nil {
		return err
	}
	doc["updated_at"] = docstore.ServerTimestamp()
	return r.store.Update(ctx, collectionScenarios, scenario.ID, doc)
}

func (r *scenarioRepo) Delete(ctx context.Context, storeID, scenarioID string) error {
	if _, err := r.GetByID(ctx, storeID, scenarioID); err != nil {
		return err
	}
	return r.store.Delete(ctx, collectionScenarios, scenarioID)
}

type suiteRepo struct {
	store *docstore.Store
}

func (r *suiteRepo) Create(ctx context.Context, suite *domain.Suite) error {
	doc, err := toDoc(suite)
	if err != nil {
		return err
	}
	doc["created_at"] = docstore.ServerTimestamp()
	doc["updated_at"] = docstore.ServerTimestamp()
	return r.store.Set(ctx, collectionSuites, suite.ID, doc)
}

func (r *suiteRepo) GetByID(ctx context.Context, storeID, suiteID string) (*domain.Suite, error) {
	snap, err := r.store.Get(ctx, collectionSuites, suiteID)
	if err != nil {
		return nil, err
	}
	if !snap.Exists() {
		return nil, domain.ErrNotFound
	}
	suite, err := fromDoc[domain.Suite](snap.Data())
	if err != nil {
		return nil, err
	}
	if suite.StoreID != storeID {
		return nil, domain.ErrNotFound
	}
	return suite, nil
}

func (r *suiteRepo) ListByStore(ctx context.Context, storeID string) ([]*domain.Suite, error) {
	snaps, err := r.store.QueryField(ctx, collectionSuites, "store_id", storeID)
	if err != nil {
		return nil, err
	}
	suites := make([]*domain.Suite, 0, len(snaps))
	for _, snap := range snaps {
		suite, err := fromDoc[domain.Suite](snap.Data())
		if err != nil {
			return nil, err
		}
		suites = append(suites, suite)
	}
	return suites, nil
}

func (r *suiteRepo) Update(ctx context.Context, suite *domain.Suite) error {
	doc, err := toDoc(suite)
	if err != nil {
		return err
	}
	doc["updated_at"] = docstore.ServerTimestamp()
	return r.store.Update(ctx, collectionSuites, suite.ID, doc)
}

func (r *suiteRepo) Delete(ctx context.Context, storeID, suiteID string) error {
	if _, err := r.GetByID(ctx, storeID, suiteID); err != nil {
		return err
	}
	return r.store.Delete(ctx, collectionSuites, suiteID)
}
