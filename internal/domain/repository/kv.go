// Package repository 定义数据访问层接口
package repository

import (
	"context"
)

// 会话内的逻辑存储键
const (
	KeyScript         = "generatedScript"
	KeyScriptVersions = "scriptVersionHistory"
	KeyAudioVersions  = "audioVersionHistory"
	KeyFormData       = "scriptGenerationFormData"
	KeyValidation     = "validationData"
	KeySelection      = "selectedSentences"
)

// SessionKeys 会话持久化的全部键
var SessionKeys = []string{
	KeyScript,
	KeyScriptVersions,
	KeyAudioVersions,
	KeyFormData,
	KeyValidation,
	KeySelection,
}

// KVStore 按会话隔离的字符串键值存储
type KVStore interface {
	// Get 读取值，不存在时 ok 为 false
	Get(ctx context.Context, sessionID, key string) (value string, ok bool, err error)
	// Set 写入值
	Set(ctx context.Context, sessionID, key, value string) error
	// Remove 删除键，不存在时不报错
	Remove(ctx context.Context, sessionID, key string) error
	// Clear 批量删除会话下的键
	Clear(ctx context.Context, sessionID string, keys ...string) error
	// HealthCheck 健康检查
	HealthCheck(ctx context.Context) error
}
