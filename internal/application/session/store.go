// Package session 提供按会话隔离的类型化存储访问
package session

import (
	"context"
	"encoding/json"
	"sync"

	"ad-studio-api/internal/domain/entity"
	"ad-studio-api/internal/domain/repository"
	"ad-studio-api/pkg/logger"
	"ad-studio-api/pkg/metrics"
)

// Store 单个会话的存储视图
//
// 后端错误只记录日志并计数，调用方按无操作处理，不保证 set 之后立即可读。
type Store struct {
	id string
	kv repository.KVStore

	busy sync.Mutex
}

// NewStore 创建会话存储视图
func NewStore(id string, kv repository.KVStore) *Store {
	return &Store{id: id, kv: kv}
}

// ID 会话 ID
func (s *Store) ID() string {
	return s.id
}

// TryLock 尝试占用会话的长耗时操作槽位，成功时返回释放函数
func (s *Store) TryLock() (func(), bool) {
	if !s.busy.TryLock() {
		return nil, false
	}
	return s.busy.Unlock, true
}

func (s *Store) get(ctx context.Context, key string) (string, bool) {
	v, ok, err := s.kv.Get(ctx, s.id, key)
	if err != nil {
		metrics.StorageErrors.WithLabelValues("get").Inc()
		logger.Warn(ctx, "session storage get failed", "key", key, "error", err.Error())
		return "", false
	}
	return v, ok
}

func (s *Store) set(ctx context.Context, key, value string) {
	if err := s.kv.Set(ctx, s.id, key, value); err != nil {
		metrics.StorageErrors.WithLabelValues("set").Inc()
		logger.Warn(ctx, "session storage set failed", "key", key, "error", err.Error())
	}
}

func (s *Store) remove(ctx context.Context, key string) {
	if err := s.kv.Remove(ctx, s.id, key); err != nil {
		metrics.StorageErrors.WithLabelValues("remove").Inc()
		logger.Warn(ctx, "session storage remove failed", "key", key, "error", err.Error())
	}
}

// getJSON 读取并反序列化，缺失或数据损坏时返回 def
func getJSON[T any](ctx context.Context, s *Store, key string, def T) T {
	raw, ok := s.get(ctx, key)
	if !ok || raw == "" {
		return def
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		logger.Warn(ctx, "malformed stored value, using default", "key", key, "error", err.Error())
		return def
	}
	return v
}

// setJSON 序列化并写入
func setJSON(ctx context.Context, s *Store, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		metrics.StorageErrors.WithLabelValues("encode").Inc()
		logger.Warn(ctx, "failed to encode session value", "key", key, "error", err.Error())
		return
	}
	s.set(ctx, key, string(raw))
}

// Script 当前脚本
func (s *Store) Script(ctx context.Context) entity.Script {
	return getJSON[entity.Script](ctx, s, repository.KeyScript, nil)
}

// SetScript 保存当前脚本
func (s *Store) SetScript(ctx context.Context, script entity.Script) {
	setJSON(ctx, s, repository.KeyScript, script)
}

// ScriptVersions 脚本版本历史
func (s *Store) ScriptVersions(ctx context.Context) []entity.ScriptVersion {
	return getJSON[[]entity.ScriptVersion](ctx, s, repository.KeyScriptVersions, nil)
}

// SetScriptVersions 保存脚本版本历史
func (s *Store) SetScriptVersions(ctx context.Context, versions []entity.ScriptVersion) {
	setJSON(ctx, s, repository.KeyScriptVersions, versions)
}

// AudioVersions 音频版本历史
func (s *Store) AudioVersions(ctx context.Context) []entity.AudioVersion {
	return getJSON[[]entity.AudioVersion](ctx, s, repository.KeyAudioVersions, nil)
}

// SetAudioVersions 保存音频版本历史
func (s *Store) SetAudioVersions(ctx context.Context, versions []entity.AudioVersion) {
	setJSON(ctx, s, repository.KeyAudioVersions, versions)
}

// FormData 最近一次填写的生成表单
func (s *Store) FormData(ctx context.Context) (entity.AdMetadata, bool) {
	form := getJSON[*entity.AdMetadata](ctx, s, repository.KeyFormData, nil)
	if form == nil {
		return entity.AdMetadata{}, false
	}
	return *form, true
}

// SetFormData 保存生成表单
func (s *Store) SetFormData(ctx context.Context, form entity.AdMetadata) {
	setJSON(ctx, s, repository.KeyFormData, form)
}

// Validation 最近一次未确认的校验结果
func (s *Store) Validation(ctx context.Context) *entity.ValidationMetadata {
	return getJSON[*entity.ValidationMetadata](ctx, s, repository.KeyValidation, nil)
}

// SetValidation 保存校验结果
func (s *Store) SetValidation(ctx context.Context, meta *entity.ValidationMetadata) {
	setJSON(ctx, s, repository.KeyValidation, meta)
}

// ClearValidation 删除校验结果
func (s *Store) ClearValidation(ctx context.Context) {
	s.remove(ctx, repository.KeyValidation)
}

// Selection 当前选中的行
func (s *Store) Selection(ctx context.Context) entity.SelectionSet {
	return getJSON(ctx, s, repository.KeySelection, entity.NewSelectionSet())
}

// SetSelection 保存选中的行
func (s *Store) SetSelection(ctx context.Context, selection entity.SelectionSet) {
	setJSON(ctx, s, repository.KeySelection, selection)
}

// ClearSelection 清空选中的行
func (s *Store) ClearSelection(ctx context.Context) {
	s.remove(ctx, repository.KeySelection)
}

// Reset 删除会话下的全部数据
func (s *Store) Reset(ctx context.Context) {
	if err := s.kv.Clear(ctx, s.id, repository.SessionKeys...); err != nil {
		metrics.StorageErrors.WithLabelValues("clear").Inc()
		logger.Warn(ctx, "session storage clear failed", "error", err.Error())
	}
}
