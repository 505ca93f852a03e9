package infra

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"
	"github.com/zacharykka/qa-manager/internal/config"
	"github.com/zacharykka/qa-manager/internal/domain"
	"github.com/zacharykka/qa-manager/internal/infra/bootstrap"
	"github.com/zacharykka/qa-manager/internal/infra/cache"
	"github.com/zacharykka/qa-manager/internal/infra/database"
	"github.com/zacharykka/qa-manager/internal/infra/docstore"
	"github.com/zacharykka/qa-manager/internal/infra/repository"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Container 持有应用依赖资源，负责集中关闭。
type Container struct {
	DB       *sql.DB
	Redis    *redis.Client
	DocStore *docstore.Store
	Repos    *domain.Repositories

	// 按资源划分的缓存实例，显式注入给需要的服务
	StoreListCache *cache.Store[[]*domain.Store]
	EnvListCache   *cache.Store[[]*domain.Environment]
}

// Initialize 构建各类依赖并返回关闭函数。
func Initialize(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, func(context.Context) error, error) {
	container := &Container{}

	db, err := database.New(ctx, cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	container.DB = db

	dialect := database.NewDialect(cfg.Database.Driver)
	if err := database.Migrate(ctx, db, dialect, cfg.Database.MigrationsDir, logger); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	container.DocStore = docstore.New(db, dialect, logger)
	container.Repos = repository.NewDocumentRepositories(container.DocStore)

	if cfg.Redis.Enabled {
		redisClient, err := cache.New(ctx, cfg.Redis, logger)
		if err != nil {
			// 持久层缓存是尽力而为的：连不上只降级，不阻止启动
			logger.Warn("redis unavailable, cache falls back to memory only", zap.Error(err))
		} else {
			container.Redis = redisClient
		}
	}

	container.StoreListCache = cache.NewStore[[]*domain.Store](cache.Options{
		Namespace: "stores",
		Version:   cfg.Cache.Version,
		TTL:       cfg.Cache.StoresTTL,
		Redis:     container.Redis,
		Logger:    logger,
	})
	container.EnvListCache = cache.NewStore[[]*domain.Environment](cache.Options{
		Namespace: "environments",
		Version:   cfg.Cache.Version,
		TTL:       cfg.Cache.EnvironmentsTTL,
		Redis:     container.Redis,
		Logger:    logger,
	})

	if err := bootstrap.EnsureDefaults(ctx, container.Repos, cfg.Bootstrap, logger); err != nil {
		_ = db.Close()
		if container.Redis != nil {
			_ = container.Redis.Close()
		}
		return nil, nil, err
	}

	cleanup := func(ctx context.Context) error {
		var errs error
		if container.DB != nil {
			if err := container.DB.Close(); err != nil {
				errs = multierr.Append(errs, err)
			}
		}
		if container.Redis != nil {
			if err := container.Redis.Close(); err != nil {
				errs = multierr.Append(errs, err)
			}
		}
		return errs
	}

	return container, cleanup, nil
}
