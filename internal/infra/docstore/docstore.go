package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zacharykka/qa-manager/internal/domain"
	"github.com/zacharykka/qa-manager/internal/infra/database"
	"go.uber.org/zap"
)

const (
	// serverTimestampSentinel 写入时被存储层替换为当前时间。
	serverTimestampSentinel = "__server_timestamp__"
	// txMaxAttempts 事务在写冲突时的最大重试次数。
	txMaxAttempts = 3
)

// ServerTimestamp 返回服务端时间戳占位值，落库时解析为具体时间。
func ServerTimestamp() any {
	return serverTimestampSentinel
}

// Snapshot 表示一次文档读取的结果。
type Snapshot struct {
	id   string
	data map[string]any
}

// Exists 判断文档是否存在。
func (s Snapshot) Exists() bool {
	return s.data != nil
}

// ID 返回文档 ID。
func (s Snapshot) ID() string {
	return s.id
}

// Data 返回文档内容；不存在时为 nil。
func (s Snapshot) Data() map[string]any {
	return s.data
}

// Store 是基于 SQL 的文档存储，单文档读-改-写由事务保证可串行化。
type Store struct {
	db      *sql.DB
	dialect database.Dialect
	logger  *zap.Logger
	nowFn   func() time.Time
}

// New 创建文档存储实例。
func New(db *sql.DB, dialect database.Dialect, logger *zap.Logger) *Store {
	return &Store{
		db:      db,
		dialect: dialect,
		logger:  logger,
		nowFn:   time.Now,
	}
}

// WithClock 注入自定义时间函数，便于测试。
func (s *Store) WithClock(now func() time.Time) {
	if now != nil {
		s.nowFn = now
	}
}

// Get 读取单个文档。
func (s *Store) Get(ctx context.Context, collection, id string) (Snapshot, error) {
	return getDoc(ctx, s.db, s.dialect, collection, id)
}

// Add 新增文档并返回分配的 ID。
func (s *Store) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

// Set 覆盖写入文档（不存在则创建）。
func (s *Store) Set(ctx context.Context, collection, id string, data map[string]any) error {
	return setDoc(ctx, s.db, s.dialect, collection, id, s.resolve(data), s.nowFn())
}

// Update 对文档做浅合并更新；文档不存在时返回 domain.ErrNotFound。
func (s *Store) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	return s.RunTransaction(ctx, func(tx *Tx) error {
		return tx.Update(collection, id, patch)
	})
}

// Delete 删除文档；不存在时静默成功，与文档库语义一致。
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	query := fmt.Sprintf("DELETE FROM documents WHERE collection = %s AND id = %s",
		s.dialect.Placeholder(1), s.dialect.Placeholder(2))
	_, err := s.db.ExecContext(ctx, query, collection, id)
	return err
}

// List 返回集合内全部文档，按 ID 排序。
func (s *Store) List(ctx context.Context, collection string) ([]Snapshot, error) {
	query := fmt.Sprintf("SELECT id, data FROM documents WHERE collection = %s ORDER BY id",
		s.dialect.Placeholder(1))
	return querySnapshots(ctx, s.db, query, collection)
}

// QueryField 按顶层 JSON 字段等值过滤集合。
func (s *Store) QueryField(ctx context.Context, collection, field, value string) ([]Snapshot, error) {
	query := fmt.Sprintf("SELECT id, data FROM documents WHERE collection = %s AND %s = %s ORDER BY id",
		s.dialect.Placeholder(1), s.dialect.JSONField("data", field), s.dialect.Placeholder(2))
	return querySnapshots(ctx, s.db, query, collection, value)
}

// Tx 是事务句柄，提供与 Store 相同的文档操作。
type Tx struct {
	ctx     context.Context
	tx      *sql.Tx
	dialect database.Dialect
	resolve func(map[string]any) map[string]any
	now     time.Time
}

// Get 在事务内读取文档。
func (t *Tx) Get(collection, id string) (Snapshot, error) {
	return getDoc(t.ctx, t.tx, t.dialect, collection, id)
}

// Set 在事务内覆盖写入文档。
func (t *Tx) Set(collection, id string, data map[string]any) error {
	return setDoc(t.ctx, t.tx, t.dialect, collection, id, t.resolve(data), t.now)
}

// Update 在事务内做浅合并更新。
func (t *Tx) Update(collection, id string, patch map[string]any) error {
	snap, err := t.Get(collection, id)
	if err != nil {
		return err
	}
	if !snap.Exists() {
		return domain.ErrNotFound
	}
	merged := snap.Data()
	for key, value := range t.resolve(patch) {
		merged[key] = value
	}
	return t.Set(collection, id, merged)
}

// Delete 在事务内删除文档。
func (t *Tx) Delete(collection, id string) error {
	query := fmt.Sprintf("DELETE FROM documents WHERE collection = %s AND id = %s",
		t.dialect.Placeholder(1), t.dialect.Placeholder(2))
	_, err := t.tx.ExecContext(t.ctx, query, collection, id)
	return err
}

// RunTransaction 在事务内执行 fn，写冲突时自动重试。
func (s *Store) RunTransaction(ctx context.Context, fn func(tx *Tx) error) error {
	var lastErr error
	for attempt := 0; attempt < txMaxAttempts; attempt++ {
		err := s.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		lastErr = err
		s.logger.Warn("docstore transaction retry",
			zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return fmt.Errorf("transaction exhausted retries: %w", lastErr)
}

func (s *Store) runOnce(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	tx := &Tx{
		ctx:     ctx,
		tx:      sqlTx,
		dialect: s.dialect,
		resolve: s.resolve,
		now:     s.nowFn(),
	}

	if err := fn(tx); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	return sqlTx.Commit()
}

// Watch 以轮询方式订阅集合，每个周期推送当前完整结果集；ctx 取消后关闭通道。
func (s *Store) Watch(ctx context.Context, collection string, interval time.Duration) <-chan []Snapshot {
	out := make(chan []Snapshot, 1)

	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			snapshots, err := s.List(ctx, collection)
			if err != nil {
				s.logger.Warn("docstore watch list failed",
					zap.String("collection", collection), zap.Error(err))
			} else {
				select {
				case out <- snapshots:
				default:
					// 消费方未跟上时丢弃本轮，下一轮推送最新结果集
					select {
					case <-out:
					default:
					}
					out <- snapshots
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return out
}

// resolve 深拷贝数据并替换服务端时间戳占位值。
func (s *Store) resolve(data map[string]any) map[string]any {
	return resolveTimestamps(data, s.nowFn().UTC())
}

func resolveTimestamps(data map[string]any, now time.Time) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for key, value := range data {
		switch typed := value.(type) {
		case string:
			if typed == serverTimestampSentinel {
				out[key] = now
				continue
			}
			out[key] = typed
		case map[string]any:
			out[key] = resolveTimestamps(typed, now)
		default:
			out[key] = value
		}
	}
	return out
}

// querier 抽象 *sql.DB 与 *sql.Tx 的共同能力。
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func getDoc(ctx context.Context, q querier, dialect database.Dialect, collection, id string) (Snapshot, error) {
	query := fmt.Sprintf("SELECT data FROM documents WHERE collection = %s AND id = %s",
		dialect.Placeholder(1), dialect.Placeholder(2))

	var raw string
	err := q.QueryRowContext(ctx, query, collection, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{id: id}, nil
	}
	if err != nil {
		return Snapshot{}, err
	}

	data := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return Snapshot{}, fmt.Errorf("decode document %s/%s: %w", collection, id, err)
	}
	return Snapshot{id: id, data: data}, nil
}

func setDoc(ctx context.Context, q querier, dialect database.Dialect, collection, id string, data map[string]any, now time.Time) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode document %s/%s: %w", collection, id, err)
	}

	pb := database.NewPlaceholderBuilder(dialect)
	query := fmt.Sprintf(`INSERT INTO documents (collection, id, data, updated_at)
		VALUES (%s, %s, %s, %s)
		ON CONFLICT (collection, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		pb.Next(), pb.Next(), pb.Next(), pb.Next())

	_, err = q.ExecContext(ctx, query, collection, id, string(raw), now.UTC())
	return err
}

func querySnapshots(ctx context.Context, db *sql.DB, query string, args ...any) ([]Snapshot, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		data := map[string]any{}
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", id, err)
		}
		snapshots = append(snapshots, Snapshot{id: id, data: data})
	}
	return snapshots, rows.Err()
}

// retryable 识别写冲突类错误（sqlite busy/locked、postgres 串行化失败）。
func retryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "sqlite_busy") ||
		strings.Contains(msg, "40001") ||
		strings.Contains(msg, "could not serialize")
}
