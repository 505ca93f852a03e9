package repository

import (
	"context"

	"github.com/zacharykka/qa-manager/internal/domain"
	"github.com/zacharykka/qa-manager/internal/infra/docstore"
)

type storeRepo struct {
	store *docstore.Store
}

func (r *storeRepo) Create(ctx context.Context, store *domain.Store) error {
	doc, err := toDoc(store)
	if err != nil {
		return err
	}
	doc["created_at"] = docstore.ServerTimestamp()
	doc["updated_at"] = docstore.ServerTimestamp()
	return r.store.Set(ctx, collectionStores, store.ID, doc)
}

func (r *storeRepo) GetByID(ctx context.Context, orgID, storeID string) (*domain.Store, error) {
	snap, err := r.store.Get(ctx, collectionStores, storeID)
	if err != nil {
		return nil, err
	}
	if !snap.Exists() {
		return nil, domain.ErrNotFound
	}
	store, err := fromDoc[domain.Store](snap.Data())
	if err != nil {
		return nil, err
	}
	if store.OrganizationID != orgID {
		return nil, domain.ErrNotFound
	}
	return store, nil
}

func (r *storeRepo) ListByOrganization(ctx context.Context, orgID string) ([]*domain.Store, error) {
	snaps, err := r.store.QueryField(ctx, collectionStores, "organization_id", orgID)
	if err != nil {
		return nil, err
	}
	stores := make([]*domain.Store, 0, len(snaps))
	for _, snap := range snaps {
		store, err := fromDoc[domain.Store](snap.Data())
		if err != nil {
			return nil, err
		}
		stores = append(stores, store)
	}
	return stores, nil
}

func (r *storeRepo) Update(ctx context.Context, store *domain.Store) error {
	doc, err := toDoc(store)
	if err != nil {
		return err
	}
	doc["updated_at"] = docstore.ServerTimestamp()
	return r.store.Update(ctx, collectionStores, store.ID, doc)
}

func (r *storeRepo) Delete(ctx context.Context, orgID, storeID string) error {
	if _, err := r.GetByID(ctx, orgID, storeID); err != nil {
		return err
	}
	return r.store.Delete(ctx, collectionStores, storeID)
}
