package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserData 会话键值行
type UserData struct {
	SessionID string    `gorm:"primaryKey;type:varchar(128)"`
	Key       string    `gorm:"primaryKey;type:varchar(64)"`
	Data      string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (UserData) TableName() string {
	return "user_data"
}

// KVStore 托管行存储实现
type KVStore struct {
	client *Client
}

// NewKVStore 创建会话存储
func NewKVStore(client *Client) *KVStore {
	return &KVStore{client: client}
}

// Get 读取值
func (s *KVStore) Get(ctx context.Context, sessionID, key string) (string, bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.KVStore.Get")
	defer span.End()

	var row UserData
	err := s.client.db.WithContext(ctx).
		Where("session_id = ? AND key = ?", sessionID, key).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		span.RecordError(err)
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return row.Data, true, nil
}

// Set 写入值，(session_id, key) 冲突时更新
func (s *KVStore) Set(ctx context.Context, sessionID, key, value string) error {
	ctx, span := tracer.Start(ctx, "postgres.KVStore.Set")
	defer span.End()

	row := UserData{SessionID: sessionID, Key: key, Data: value, UpdatedAt: time.Now()}
	err := s.client.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to upsert %s: %w", key, err)
	}
	return nil
}

// Remove 删除键
func (s *KVStore) Remove(ctx context.Context, sessionID, key string) error {
	ctx, span := tracer.Start(ctx, "postgres.KVStore.Remove")
	defer span.End()

	err := s.client.db.WithContext(ctx).
		Where("session_id = ? AND key = ?", sessionID, key).
		Delete(&UserData{}).Error
	if err != nil {
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
	ctx, span := tracer.Start(ctx, "postgres.KVStore.Clear")
	defer span.End()

	err := s.client.db.WithContext(ctx).
		Exec(`DELETE FROM user_data WHERE session_id = ? AND key = ANY(?)`, sessionID, pq.Array(keys)).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// HealthCheck 健康检查
func (s *KVStore) HealthCheck(ctx context.Context) error {
	return s.client.HealthCheck(ctx)
}
