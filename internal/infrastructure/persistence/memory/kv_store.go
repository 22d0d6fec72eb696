// Package memory 提供进程内会话存储，用于开发环境与测试
package memory

import (
	"context"
	"sync"
)

type entryKey struct {
	session string
	key     string
}

// KVStore 进程内键值存储
type KVStore struct {
	mu   sync.RWMutex
	data map[entryKey]string
}

// NewKVStore 创建进程内存储
func NewKVStore() *KVStore {
	return &KVStore{data: make(map[entryKey]string)}
}

// Get 读取值
func (s *KVStore) Get(_ context.Context, sessionID, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[entryKey{sessionID, key}]
	return v, ok, nil
}

// Set 写入值
func (s *KVStore) Set(_ context.Context, sessionID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[entryKey{sessionID, key}] = value
	return nil
}

// Remove 删除键
func (s *KVStore) Remove(_ context.Context, sessionID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, entryKey{sessionID, key})
	return nil
}

// Clear 批量删除
func (s *KVStore) Clear(_ context.Context, sessionID string, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, entryKey{sessionID, k})
	}
	return nil
}

// HealthCheck 始终健康
func (s *KVStore) HealthCheck(context.Context) error {
	return nil
}
