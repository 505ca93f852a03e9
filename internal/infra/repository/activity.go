package repository

import (
	"context"
	"sort"
	"time"

	"github.com/zacharykka/qa-manager/internal/domain"
	"github.com/zacharykka/qa-manager/internal/infra/docstore"
)

type activityLogRepo struct {
	store *docstore.Store
}

func (r *activityLogRepo) Append(ctx context.Context, entry *domain.ActivityLog) error {
	doc, err := toDoc(entry)
	if err != nil {
		return err
	}
	if entry.CreatedAt.IsZero() {
		doc["created_at"] = docstore.ServerTimestamp()
	}
	return r.store.Set(ctx, collectionActivityLogs, entry.ID, doc)
}

func (r *activityLogRepo) ListRecent(ctx context.Context, orgID string, limit int) ([]*domain.ActivityLog, error) {
	snaps, err := r.store.QueryField(ctx, collectionActivityLogs, "organization_id", orgID)
	if err != nil {
		return nil, err
	}
	entries := make([]*domain.ActivityLog, 0, len(snaps))
	for _, snap := range snaps {
		entry, err := fromDoc[domain.ActivityLog](snap.Data())
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// DeleteBefore 清理保留期之外的日志；与并发写入不保证原子，保留策略是尽力而为。
func (r *activityLogRepo) DeleteBefore(ctx context.Context, orgID string, cutoff time.Time) (int, error) {
	snaps, err := r.store.QueryField(ctx, collectionActivityLogs, "organization_id", orgID)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, snap := range snaps {
		entry, err := fromDoc[domain.ActivityLog](snap.Data())
		if err != nil {
			continue
		}
		if entry.CreatedAt.Before(cutoff) {
			if err := r.store.Delete(ctx, collectionActivityLogs, snap.ID()); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}
