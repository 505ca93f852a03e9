package activity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	domain "github.com/zacharykka/qa-manager/internal/domain"
	"go.uber.org/zap"
)

// asyncTimeout 限定后台日志写入的最长耗时。
const asyncTimeout = 10 * time.Second

// Service 负责追加式审计日志与保留期清理。
type Service struct {
	repos     *domain.Repositories
	logger    *zap.Logger
	retention time.Duration
	nowFn     func() time.Time
}

// NewService 创建审计日志服务；retention 之外的旧日志在写入时被惰性清理。
func NewService(repos *domain.Repositories, retention time.Duration, logger *zap.Logger) *Service {
	return &Service{
		repos:     repos,
		logger:    logger,
		retention: retention,
		nowFn:     time.Now,
	}
}

// WithClock 注入自定义时间函数，便于测试。
func (s *Service) WithClock(now func() time.Time) {
	if now != nil {
		s.nowFn = now
	}
}

// Entry 描述一条待写入的审计记录。
type Entry struct {
	OrganizationID string
	EntityID       string
	EntityType     string
	Action         string
	Message        string
	ActorID        string
	ActorName      string
}

// Log 先解析操作者、清理过期日志，再追加新记录。
// 清理与追加之间不保证原子：日志只追加，保留策略是尽力而为。
func (s *Service) Log(ctx context.Context, entry Entry) error {
	actorName := entry.ActorName
	var actorID *string
	if entry.ActorID != "" {
		id := entry.ActorID
		actorID = &id
		if actorName == "" {
			if user, err := s.repos.Users.GetByID(ctx, entry.ActorID); err == nil {
				actorName = user.Name
				if actorName == "" {
					actorName = user.Email
				}
			} else if !errors.Is(err, domain.ErrNotFound) {
				s.logger.Warn("activity actor lookup failed",
					zap.String("actor_id", entry.ActorID), zap.Error(err))
			}
		}
	}

	cutoff := s.nowFn().Add(-s.retention)
	if removed, err := s.repos.ActivityLogs.DeleteBefore(ctx, entry.OrganizationID, cutoff); err != nil {
		s.logger.Warn("activity retention sweep failed",
			zap.String("organization_id", entry.OrganizationID), zap.Error(err))
	} else if removed > 0 {
		s.logger.Info("activity retention sweep",
			zap.String("organization_id", entry.OrganizationID), zap.Int("removed", removed))
	}

	record := &domain.ActivityLog{
		ID:             uuid.NewString(),
		OrganizationID: entry.OrganizationID,
		EntityID:       entry.EntityID,
		EntityType:     entry.EntityType,
		Action:         entry.Action,
		Message:        entry.Message,
		ActorID:        actorID,
		ActorName:      actorName,
		CreatedAt:      s.nowFn(),
	}
	return s.repos.ActivityLogs.Append(ctx, record)
}

// LogAsync 以后台任务写入日志：失败只记录，不影响调用方。
func (s *Service) LogAsync(entry Entry) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), asyncTimeout)
		defer cancel()
		if err := s.Log(ctx, entry); err != nil {
			s.logger.Warn("activity log write failed",
				zap.String("action", entry.Action), zap.Error(err))
		}
	}()
}

// Recent 返回组织最近的审计记录；读取失败时降级为空列表。
func (s *Service) Recent(ctx context.Context, orgID string, limit int) []*domain.ActivityLog {
	if limit <= 0 {
		limit = 50
	}
	entries, err := s.repos.ActivityLogs.ListRecent(ctx, orgID, limit)
	if err != nil {
		s.logger.Warn("activity list failed", zap.String("organization_id", orgID), zap.Error(err))
		return []*domain.ActivityLog{}
	}
	return entries
}
