package cache

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Entry 是缓存条目信封；Version 不匹配时条目整体作废。
type Entry[T any] struct {
	Value     T      `json:"value"`
	ExpiresAt int64  `json:"expires_at"`
	Version   string `json:"version"`
}

// Options 描述一个缓存实例的构造参数。
type Options struct {
	// Namespace 作为持久层 key 前缀，避免多个实例共享存储时互相覆盖。
	Namespace string
	// Version 变更时全量失效既有条目，用于 schema 升级。
	Version string
	// TTL 是默认有效期，Set 可按次覆盖。
	TTL time.Duration
	// Redis 为 nil 时仅使用内存层，持久层缺席是受支持的配置。
	Redis  *redis.Client
	Logger *zap.Logger
}

// Store 是两层 TTL 缓存：内存优先，Redis 持久层尽力而为。
// 所有操作不向调用方抛错，持久层失败仅记录日志。
type Store[T any] struct {
	namespace string
	version   string
	ttl       time.Duration
	rdb       *redis.Client
	logger    *zap.Logger
	nowFn     func() time.Time

	mu  sync.RWMutex
	mem map[string]Entry[T]
}

// NewStore 创建缓存实例。
func NewStore[T any](opts Options) *Store[T] {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store[T]{
		namespace: opts.Namespace,
		version:   opts.Version,
		ttl:       opts.TTL,
		rdb:       opts.Redis,
		logger:    logger,
		nowFn:     time.Now,
		mem:       map[string]Entry[T]{},
	}
}

// WithClock 注入自定义时间函数，便于测试过期行为。
func (s *Store[T]) WithClock(now func() time.Time) {
	if now != nil {
		s.nowFn = now
	}
}

// Get 返回未过期且版本匹配的值；过期条目被逐出并返回未命中。
func (s *Store[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T
	entry, ok := s.lookup(ctx, key)
	if !ok {
		return zero, false
	}
	if s.expired(entry) {
		s.Remove(ctx, key)
		return zero, false
	}
	return entry.Value, true
}

// GetWithStatus 返回值及其过期标记，不逐出过期条目。
// 调用方可凭此先吐出旧值，再在后台触发刷新。
func (s *Store[T]) GetWithStatus(ctx context.Context, key string) (T, bool, bool) {
	var zero T
	entry, ok := s.lookup(ctx, key)
	if !ok {
		return zero, false, false
	}
	return entry.Value, true, s.expired(entry)
}

// Set 以默认 TTL 写入。
func (s *Store[T]) Set(ctx context.Context, key string, value T) {
	s.SetTTL(ctx, key, value, s.ttl)
}

// SetTTL 以指定 TTL 写入两层缓存。
func (s *Store[T]) SetTTL(ctx context.Context, key string, value T, ttl time.Duration) {
	entry := Entry[T]{
		Value:     value,
		ExpiresAt: s.nowFn().Add(ttl).UnixMilli(),
		Version:   s.version,
	}

	s.mu.Lock()
	s.mem[key] = entry
	s.mu.Unlock()

	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		s.logger.Warn("cache entry encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	// 持久层额外保留一段时间，让过期后的 stale 读取仍有数据可用
	if err := s.rdb.Set(ctx, s.storageKey(key), raw, ttl*4).Err(); err != nil {
		s.logger.Warn("cache persist failed", zap.String("key", key), zap.Error(err))
	}
}

// Remove 点状逐出。
func (s *Store[T]) Remove(ctx context.Context, key string) {
	s.mu.Lock()
	delete(s.mem, key)
	s.mu.Unlock()

	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, s.storageKey(key)).Err(); err != nil {
		s.logger.Warn("cache remove failed", zap.String("key", key), zap.Error(err))
	}
}

// InvalidatePrefix 逐出指定前缀的全部条目。
func (s *Store[T]) InvalidatePrefix(ctx context.Context, prefix string) {
	s.mu.Lock()
	for key := range s.mem {
		if strings.HasPrefix(key, prefix) {
			delete(s.mem, key)
		}
	}
	s.mu.Unlock()

	if s.rdb == nil {
		return
	}
	iter := s.rdb.Scan(ctx, 0, s.storageKey(prefix)+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			s.logger.Warn("cache prefix eviction failed", zap.String("key", iter.Val()), zap.Error(err))
		}
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn("cache prefix scan failed", zap.String("prefix", prefix), zap.Error(err))
	}
}

// lookup 内存优先；内存未命中时回源持久层并回填内存。
func (s *Store[T]) lookup(ctx context.Context, key string) (Entry[T], bool) {
	s.mu.RLock()
	entry, ok := s.mem[key]
	s.mu.RUnlock()
	if ok {
		if entry.Version != s.version {
			s.Remove(ctx, key)
			return Entry[T]{}, false
		}
		return entry, true
	}

	if s.rdb == nil {
		return Entry[T]{}, false
	}

	raw, err := s.rdb.Get(ctx, s.storageKey(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("cache read-through failed", zap.String("key", key), zap.Error(err))
		}
		return Entry[T]{}, false
	}

	if err := json.Unmarshal(raw, &entry); err != nil {
		s.logger.Warn("cache entry decode failed", zap.String("key", key), zap.Error(err))
		s.Remove(ctx, key)
		return Entry[T]{}, false
	}
	if entry.Version != s.version {
		s.Remove(ctx, key)
		return Entry[T]{}, false
	}

	s.mu.Lock()
	s.mem[key] = entry
	s.mu.Unlock()
	return entry, true
}

func (s *Store[T]) expired(entry Entry[T]) bool {
	return s.nowFn().UnixMilli() >= entry.ExpiresAt
}

func (s *Store[T]) storageKey(key string) string {
	return s.namespace + ":" + key
}
