package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// refreshTimeout 限定后台刷新的最长耗时，避免悬挂的取数任务堆积。
const refreshTimeout = 30 * time.Second

// FetchParams 描述一次 cache-aside 读取。
type FetchParams[T any] struct {
	Cache *Store[T]
	Key   string
	// Fetcher 是真实数据源取数函数。
	Fetcher func(ctx context.Context) (T, error)
	// Fallback 在缓存与数据源都不可用时返回。
	Fallback T
	Logger   *zap.Logger
}

// inflight 记录正在后台刷新的 key，避免同一 key 并发重复取数。
var (
	inflightMu sync.Mutex
	inflight   = map[string]bool{}
)

// Fetch 实现 stale-while-revalidate 的 cache-aside 读取：
//   - 新鲜命中：直接返回，不触发取数；
//   - 过期命中：立即返回旧值，并在后台刷新一次，失败时保留旧值；
//   - 未命中：同步取数，失败时返回 Fallback。
func Fetch[T any](ctx context.Context, p FetchParams[T]) T {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	value, found, stale := p.Cache.GetWithStatus(ctx, p.Key)
	if found && !stale {
		return value
	}

	if found {
		refreshInBackground(p, logger)
		return value
	}

	fresh, err := p.Fetcher(ctx)
	if err != nil {
		logger.Warn("cache fetch failed, serving fallback",
			zap.String("key", p.Key), zap.Error(err))
		return p.Fallback
	}
	p.Cache.Set(ctx, p.Key, fresh)
	return fresh
}

// refreshInBackground 触发一次后台刷新；同一 key 已有刷新在途时跳过。
func refreshInBackground[T any](p FetchParams[T], logger *zap.Logger) {
	inflightKey := p.Cache.storageKey(p.Key)

	inflightMu.Lock()
	if inflight[inflightKey] {
		inflightMu.Unlock()
		return
	}
	inflight[inflightKey] = true
	inflightMu.Unlock()

	go func() {
		defer func() {
			inflightMu.Lock()
			delete(inflight, inflightKey)
			inflightMu.Unlock()
		}()

		// 调用方的请求上下文随响应结束，后台刷新用独立上下文
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()

		fresh, err := p.Fetcher(ctx)
		if err != nil {
			// 刷新失败保留旧值，不做逐出
			logger.Warn("cache background refresh failed",
				zap.String("key", p.Key), zap.Error(err))
			return
		}
		p.Cache.Set(ctx, p.Key, fresh)
	}()
}
