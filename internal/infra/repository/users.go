package repository

import (
	"context"
	"strings"

	"github.com/zacharykka/qa-manager/internal/domain"
	"github.com/zacharykka/qa-manager/internal/infra/docstore"
)

type userRepo struct {
	store *docstore.Store
}

func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	doc, err := toDoc(user)
	if err != nil {
		return err
	}
	// 密码哈希的 json tag 为 "-"，需要显式落库
	doc["hashed_password"] = user.HashedPassword
	doc["created_at"] = docstore.ServerTimestamp()
	doc["updated_at"] = docstore.ServerTimestamp()
	return r.store.Set(ctx, collectionUsers, user.ID, doc)
}

func (r *userRepo) GetByID(ctx context.Context, userID string) (*domain.User, error) {
	snap, err := r.store.Get(ctx, collectionUsers, userID)
	if err != nil {
		return nil, err
	}
	if !snap.Exists() {
		return nil, domain.ErrNotFound
	}
	return decodeUser(snap.Data())
}

func (r *userRepo) GetByEmail(ctx context.Context, orgID, email string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	snaps, err := r.store.QueryField(ctx, collectionUsers, "email", email)
	if err != nil {
		return nil, err
	}
	for _, snap := range snaps {
		user, err := decodeUser(snap.Data())
		if err != nil {
			return nil, err
		}
		if user.OrganizationID == orgID {
			return user, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *userRepo) UpdateLastLogin(ctx context.Context, userID string) error {
	err := r.store.Update(ctx, collectionUsers, userID, map[string]any{
		"last_login_at": docstore.ServerTimestamp(),
		"updated_at":    docstore.ServerTimestamp(),
	})
	return err
}

func decodeUser(data map[string]any) (*domain.User, error) {
	user, err := fromDoc[domain.User](data)
	if err != nil {
		return nil, err
	}
	if hash, ok := data["hashed_password"].(string); ok {
		user.HashedPassword = hash
	}
	return user, nil
}
