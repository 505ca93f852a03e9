package repository

import (
	"context"

	"github.com/zacharykka/qa-manager/internal/domain"
	"github.com/zacharykka/qa-manager/internal/infra/docstore"
)

type bugRepo struct {
	store *docstore.Store
}

func (r *bugRepo) Create(ctx context.Context, bug *domain.EnvironmentBug) error {
	doc, err := toDoc(bug)
	if err != nil {
		return err
	}
	doc["created_at"] = docstore.ServerTimestamp()
	doc["updated_at"] = docstore.ServerTimestamp()
	return r.store.Set(ctx, collectionBugs, bug.ID, doc)
}

func (r *bugRepo) GetByID(ctx context.Context, envID, bugID string) (*domain.EnvironmentBug, error) {
	snap, err := r.store.Get(ctx, collectionBugs, bugID)
	if err != nil {
		return nil, err
	}
	if !snap.Exists() {
		return nil, domain.ErrNotFound
	}
	bug, err := fromDoc[domain.EnvironmentBug](snap.Data())
	if err != nil {
		return nil, err
	}
	if bug.EnvironmentID != envID {
		return nil, domain.ErrNotFound
	}
	return bug, nil
}

func (r *bugRepo) ListByEnvironment(ctx context.Context, envID string) ([]*domain.EnvironmentBug, error) {
	snaps, err := r.store.QueryField(ctx, collectionBugs, "environment_id", envID)
	if err != nil {
		return nil, err
	}
	bugs := make([]*domain.EnvironmentBug, 0, len(snaps))
	for _, snap := range snaps {
		bug, err := fromDoc[domain.EnvironmentBug](snap.Data())
		if err != nil {
			return nil, err
		}
		bugs = append(bugs, bug)
	}
	return bugs, nil
}

func (r *bugRepo) UpdateStatus(ctx context.Context, envID, bugID string, status domain.BugStatus) error {
	if _, err := r.GetByID(ctx, envID, bugID); err != nil {
		return err
	}
	return r.store.Update(ctx, collectionBugs, bugID, map[string]any{
		"status":     string(status),
		"updated_at": docstore.ServerTimestamp(),
	})
}
