package redis

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// KVStore 基于 Redis 字符串的会话存储，每次写入刷新过期时间
type KVStore struct {
	client *Client
	ttl    time.Duration
}

// NewKVStore 创建会话存储，ttl 为 0 表示不过期
func NewKVStore(client *Client, ttl time.Duration) *KVStore {
	return &KVStore{client: client, ttl: ttl}
}

// SessionKey 构建会话键
func SessionKey(sessionID, key string) string {
	return fmt.Sprintf("session:%s:%s", sessionID, key)
}

// Get 读取值
func (s *KVStore) Get(ctx context.Context, sessionID, key string) (string, bool, error) {
	ctx, span := tracer.Start(ctx, "redis.KVStore.Get",
		trace.WithAttributes(attribute.String("redis.key", key)))
	defer span.End()

	val, err := s.client.rdb.Get(ctx, SessionKey(sessionID, key)).Result()
	if IsNil(err) {
		return "", false, nil
	}
	if err != nil {
		span.RecordError(err)
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return val, true, nil
}

// Set 写入值
func (s *KVStore) Set(ctx context.Context, sessionID, key, value string) error {
	ctx, span := tracer.Start(ctx, "redis.KVStore.Set",
		trace.WithAttributes(
			attribute.String("redis.key", key),
			attribute.Int64("redis.ttl_ms", s.ttl.Milliseconds()),
		))
	defer span.End()

	if err := s.client.rdb.Set(ctx, SessionKey(sessionID, key), value, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Remove 删除键
func (s *KVStore) Remove(ctx context.Context, sessionID, key string) error {
	return s.Clear(ctx, sessionID, key)
}

// Clear 批量删除
func (s *KVStore) Clear(ctx context.Context, sessionID string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, span := tracer.Start(ctx, "redis.KVStore.Clear",
		trace.WithAttributes(attribute.Int("redis.key_count", len(keys))))
	defer span.End()

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = SessionKey(sessionID, k)
	}
	if err := s.client.rdb.Del(ctx, full...).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}

// HealthCheck 健康检查
func (s *KVStore) HealthCheck(ctx context.Context) error {
	return s.client.HealthCheck(ctx)
}
