// Package generation 脚本生成与手动编辑
package generation

import (
	"context"
	"strings"

	"ad-studio-api/internal/application/session"
	"ad-studio-api/internal/application/versions"
	"ad-studio-api/internal/domain/entity"
	"ad-studio-api/internal/domain/service"
	apperrors "ad-studio-api/pkg/errors"
	"ad-studio-api/pkg/logger"
	"ad-studio-api/pkg/metrics"
	"ad-studio-api/pkg/tracer"
)

// Service 脚本生成
type Service struct {
	writer      service.Scriptwriter
	versionOpts versions.Options
}

// NewService 创建生成服务
func NewService(writer service.Scriptwriter, versionOpts versions.Options) *Service {
	return &Service{writer: writer, versionOpts: versionOpts}
}

// Generate 根据表单生成新脚本，并以初始快照替换版本历史
func (s *Service) Generate(ctx context.Context, sess *session.Store, form entity.AdMetadata) (script entity.Script, err error) {
	if missing := form.MissingFields(); len(missing) > 0 {
		return nil, apperrors.ErrMissingFormField.WithDetail(strings.Join(missing, ", "))
	}

	release, ok := sess.TryLock()
	if !ok {
		return nil, apperrors.ErrOperationInProgress
	}
	defer release()

	ctx, span := tracer.Start(ctx, "generation.Generate")
	defer func() { tracer.End(span, err) }()

	// 先保存表单，失败后可从表单恢复
	sess.SetFormData(ctx, form)

	script, err = s.writer.GenerateScript(ctx, form)
	if err != nil {
		metrics.ScriptGenerationTotal.WithLabelValues("error").Inc()
		logger.Error(ctx, "script generation failed", err, "product", form.ProductName)
		return nil, err
	}
	if len(script) == 0 {
		metrics.ScriptGenerationTotal.WithLabelValues("error").Inc()
		return nil, apperrors.ErrMalformedResponse.WithDetail("generated script is empty")
	}

	sess.SetScript(ctx, script)
	versions.NewStore(sess, s.versionOpts).Reset(ctx, script, versions.DescInitialGeneration)
	// 校验反馈只在用户关闭或干净的精修后清除
	sess.ClearSelection(ctx)

	metrics.ScriptGenerationTotal.WithLabelValues("success").Inc()
	metrics.ScriptLineCount.Observe(float64(len(script)))
	logger.Info(ctx, "script generated", "lines", len(script), "ad_length", form.AdLength.Seconds())
	return script.Clone(), nil
}

// SaveEdit 保存手动编辑的完整脚本并创建快照
//
// 与精修、生成互斥：进行中的操作会基于旧脚本写回结果。
func (s *Service) SaveEdit(ctx context.Context, sess *session.Store, script entity.Script, description string) (*entity.ScriptVersion, error) {
	if len(script) == 0 {
		return nil, apperrors.ErrEmptyScript
	}
	if strings.TrimSpace(description) == "" {
		description = versions.DescManualEdit
	}

	release, ok := sess.TryLock()
	if !ok {
		return nil, apperrors.ErrOperationInProgress
	}
	defer release()

	store := versions.NewStore(sess, s.versionOpts)
	store.EnsureInitial(ctx, versions.DescInitialGeneration)
	sess.SetScript(ctx, script)
	v := store.Snapshot(ctx, script, description)

	// 行数可能变化，旧的选择不再可信
	sess.ClearSelection(ctx)
	return &v, nil
}

// FormData 上次填写的表单
func (s *Service) FormData(ctx context.Context, sess *session.Store) (entity.AdMetadata, bool) {
	return sess.FormData(ctx)
}
