// Package sqlite 提供基于 SQLite 文件的会话存储
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	_ "modernc.org/sqlite"
)

var tracer = otel.Tracer("sqlite")

// KVStore SQLite 键值存储，表结构与托管行存储一致
type KVStore struct {
	db *sql.DB
}

// NewKVStore 打开或创建数据库文件
func NewKVStore(dbPath string) (*KVStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &KVStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *KVStore) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS user_data (
		session_id TEXT NOT NULL,
		key        TEXT NOT NULL,
		data       TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (session_id, key)
	);
	CREATE INDEX IF NOT EXISTS idx_user_data_updated ON user_data(updated_at);
	`)
	return err
}

// Close 关闭数据库
func (s *KVStore) Close() error {
	return s.db.Close()
}

// Get 读取值
func (s *KVStore) Get(ctx context.Context, sessionID, key string) (string, bool, error) {
	ctx, span := tracer.Start(ctx, "sqlite.KVStore.Get",
		trace.WithAttributes(attribute.String("kv.key", key)))
	defer span.End()

	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM user_data WHERE session_id = ? AND key = ?`, sessionID, key,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		span.RecordError(err)
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return data, true, nil
}

// Set 写入值，(session_id, key) 冲突时覆盖
func (s *KVStore) Set(ctx context.Context, sessionID, key, value string) error {
	ctx, span := tracer.Start(ctx, "sqlite.KVStore.Set",
		trace.WithAttributes(attribute.String("kv.key", key)))
	defer span.End()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_data (session_id, key, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (session_id, key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, sessionID, key, value, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Remove 删除键
func (s *KVStore) Remove(ctx context.Context, sessionID, key string) error {
	ctx, span := tracer.Start(ctx, "sqlite.KVStore.Remove",
		trace.WithAttributes(attribute.String("kv.key", key)))
	defer span.End()

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM user_data WHERE session_id = ? AND key = ?`, sessionID, key); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

// Clear 批量删除
func (s *KVStore) Clear(ctx context.Context, sessionID string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, span := tracer.Start(ctx, "sqlite.KVStore.Clear",
		trace.WithAttributes(attribute.Int("kv.key_count", len(keys))))
	defer span.End()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, 0, len(keys)+1)
	args = append(args, sessionID)
	for _, k := range keys {
		args = append(args, k)
	}

	query := fmt.Sprintf(`DELETE FROM user_data WHERE session_id = ? AND key IN (%s)`, placeholders)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// HealthCheck 健康检查
func (s *KVStore) HealthCheck(ctx context.Context) error {
	var one int
	if err := s.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}
