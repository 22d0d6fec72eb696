// Package versions 维护脚本的只追加版本历史
package versions

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"

	"ad-studio-api/internal/application/session"
	"ad-studio-api/internal/domain/entity"
	apperrors "ad-studio-api/pkg/errors"
	"ad-studio-api/pkg/logger"
)

// 快照描述
const (
	DescInitialGeneration = "Initial generation"
	DescManualEdit        = "Manual edit"
	DescBeforeRefinement  = "Before refinement"
	restoredPrefix        = "Restored from version "
	refinedPrefix         = "Refined: "
)

// RefinedDescription 精修快照描述
func RefinedDescription(instruction string) string {
	return refinedPrefix + instruction
}

// RestoreOptions 恢复前的未保存修改确认
type RestoreOptions struct {
	HasUnsavedChanges bool
	Confirmed         bool
}

// Options 版本存储选项
type Options struct {
	// MaxHistory 大于 0 时丢弃最旧的版本
	MaxHistory int
	Now        func() time.Time
}

// Store 单个会话的版本历史
type Store struct {
	sess *session.Store
	opts Options
}

// NewStore 创建版本存储
func NewStore(sess *session.Store, opts Options) *Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{sess: sess, opts: opts}
}

func (s *Store) newID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), ulid.DefaultEntropy()).String()
}

// List 返回全部版本，按创建顺序
func (s *Store) List(ctx context.Context) []entity.ScriptVersion {
	return s.sess.ScriptVersions(ctx)
}

// Get 按 ID 查找版本
func (s *Store) Get(ctx context.Context, versionID string) (*entity.ScriptVersion, error) {
	for _, v := range s.List(ctx) {
		if v.ID == versionID {
			v.Script = v.Script.Clone()
			return &v, nil
		}
	}
	return nil, apperrors.ErrVersionNotFound.WithDetail(versionID)
}

// Snapshot 深拷贝脚本并追加一个新版本
func (s *Store) Snapshot(ctx context.Context, script entity.Script, description string) entity.ScriptVersion {
	now := s.opts.Now()
	v := entity.ScriptVersion{
		ID:          s.newID(now),
		Timestamp:   now,
		Script:      script.Clone(),
		Description: description,
	}

	history := append(s.List(ctx), v)
	if s.opts.MaxHistory > 0 && len(history) > s.opts.MaxHistory {
		history = history[len(history)-s.opts.MaxHistory:]
	}
	s.sess.SetScriptVersions(ctx, history)

	logger.Debug(ctx, "script version created", "version_id", v.ID, "description", description)
	return v
}

// Reset 用单个快照替换全部历史
func (s *Store) Reset(ctx context.Context, script entity.Script, description string) entity.ScriptVersion {
	s.sess.SetScriptVersions(ctx, nil)
	return s.Snapshot(ctx, script, description)
}

// EnsureInitial 历史为空且存在当前脚本时，创建初始快照
func (s *Store) EnsureInitial(ctx context.Context, description string) (*entity.ScriptVersion, bool) {
	if len(s.List(ctx)) > 0 {
		return nil, false
	}
	current := s.sess.Script(ctx)
	if len(current) == 0 {
		return nil, false
	}
	v := s.Snapshot(ctx, current, description)
	return &v, true
}

// Restore 恢复到指定版本，写回当前脚本并追加一条恢复记录
//
// 存在未保存修改且未确认时返回 CodeConfirmationRequired。
func (s *Store) Restore(ctx context.Context, versionID string, opts RestoreOptions) (entity.Script, error) {
	if opts.HasUnsavedChanges && !opts.Confirmed {
		return nil, apperrors.ErrConfirmationRequired
	}

	v, err := s.Get(ctx, versionID)
	if err != nil {
		return nil, err
	}

	restored := v.Script.Clone()
	s.sess.SetScript(ctx, restored)
	s.Snapshot(ctx, restored, restoredPrefix+v.Timestamp.Format(time.RFC3339))
	return restored.Clone(), nil
}

// Diff 当前脚本相对版本的逐行差异
func (s *Store) Diff(ctx context.Context, current entity.Script, versionID string) ([]entity.LineDiff, error) {
	v, err := s.Get(ctx, versionID)
	if err != nil {
		return nil, err
	}
	return DiffScripts(current, v.Script), nil
}

// DiffScripts 逐行比较：版本缺少该行为 new，任一字段不同为 modified
func DiffScripts(current, other entity.Script) []entity.LineDiff {
	out := make([]entity.LineDiff, len(current))
	for i, l := range current {
		status := entity.DiffUnchanged
		if o, ok := other.At(i); !ok {
			status = entity.DiffNew
		} else if !l.Equal(o) {
			status = entity.DiffModified
		}
		out[i] = entity.LineDiff{Index: i, Status: status}
	}
	return out
}
