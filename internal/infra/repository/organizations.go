package repository

import (
	"context"

	"github.com/zacharykka/qa-manager/internal/domain"
	"github.com/zacharykka/qa-manager/internal/infra/docstore"
)

type organizationRepo struct {
	store *docstore.Store
}

func (r *organizationRepo) Create(ctx context.Context, org *domain.Organization) error {
	doc, err := toDoc(org)
	if err != nil {
		return err
	}
	doc["created_at"] = docstore.ServerTimestamp()
	doc["updated_at"] = docstore.ServerTimestamp()
	return r.store.Set(ctx, collectionOrganizations, org.ID, doc)
}

func (r *organizationRepo) GetByID(ctx context.Context, orgID string) (*domain.Organization, error) {
	snap, err := r.store.Get(ctx, collectionOrganizations, orgID)
	if err != nil {
		return nil, err
	}
	if !snap.Exists() {
		return nil, domain.ErrNotFound
	}
	return fromDoc[domain.Organization](snap.Data())
}

func (r *organizationRepo) List(ctx context.Context) ([]*domain.Organization, error) {
	snaps, err := r.store.List(ctx, collectionOrganizations)
	if err != nil {
		return nil, err
	}
	orgs := make([]*domain.Organization, 0, len(snaps))
	for _, snap := range snaps {
		org, err := fromDoc[domain.Organization](snap.Data())
		if err != nil {
			return nil, err
		}
		orgs = append(orgs, org)
	}
	return orgs, nil
}
