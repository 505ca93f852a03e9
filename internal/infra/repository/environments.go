package repository

import (
	"context"

	"github.com/zacharykka/qa-manager/internal/domain"
	"github.com/zacharykka/qa-manager/internal/infra/docstore"
)

type environmentRepo struct {
	store *docstore.Store
}

func (r *environmentRepo) Create(ctx context.Context, env *domain.Environment) error {
	doc, err := encodeEnvironment(env)
	if err != nil {
		return err
	}
	doc["created_at"] = docstore.ServerTimestamp()
	doc["updated_at"] = docstore.ServerTimestamp()
	return r.store.Set(ctx, collectionEnvironments, env.ID, doc)
}

func (r *environmentRepo) GetByID(ctx context.Context, storeID, envID string) (*domain.Environment, error) {
	snap, err := r.store.Get(ctx, collectionEnvironments, envID)
	if err != nil {
		return nil, err
	}
	if !snap.Exists() {
		return nil, domain.ErrNotFound
	}
	env, err := decodeEnvironment(snap.ID(), snap.Data())
	if err != nil {
		return nil, err
	}
	if env.StoreID != storeID {
		return nil, domain.ErrNotFound
	}
	return env, nil
}

func (r *environmentRepo) ListByStore(ctx context.Context, storeID string) ([]*domain.Environment, error) {
	snaps, err := r.store.QueryField(ctx, collectionEnvironments, "store_id", storeID)
	if err != nil {
		return nil, err
	}
	envs := make([]*domain.Environment, 0, len(snaps))
	for _, snap := range snaps {
		env, err := decodeEnvironment(snap.ID(), snap.Data())
		if err != nil {
			return nil, err
		}
		envs = append(envs, env)
	}
	return envs, nil
}

// Mutate 在文档事务内对环境做读-改-写，是环境并发修改的唯一路径。
func (r *environmentRepo) Mutate(ctx context.Context, storeID, envID string, fn func(env *domain.Environment) error) (*domain.Environment, error) {
	var result *domain.Environment

	err := r.store.RunTransaction(ctx, func(tx *docstore.Tx) error {
		snap, err := tx.Get(collectionEnvironments, envID)
		if err != nil {
			return err
		}
		if !snap.Exists() {
			return domain.ErrNotFound
		}

		env, err := decodeEnvironment(snap.ID(), snap.Data())
		if err != nil {
			return err
		}
		if env.StoreID != storeID {
			return domain.ErrNotFound
		}

		if err := fn(env); err != nil {
			return err
		}

		doc, err := encodeEnvironment(env)
		if err != nil {
			return err
		}
		doc["updated_at"] = docstore.ServerTimestamp()
		if err := tx.Set(collectionEnvironments, envID, doc); err != nil {
			return err
		}

		result = env
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *environmentRepo) Delete(ctx context.Context, storeID, envID string) error {
	if _, err := r.GetByID(ctx, storeID, envID); err != nil {
		return err
	}
	return r.store.Delete(ctx, collectionEnvironments, envID)
}
