// Package audio 语音合成与音频版本历史
package audio

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"ad-studio-api/internal/application/session"
	"ad-studio-api/internal/domain/entity"
	"ad-studio-api/internal/domain/service"
	apperrors "ad-studio-api/pkg/errors"
	"ad-studio-api/pkg/logger"
	"ad-studio-api/pkg/metrics"
)

// 语速与音调的允许范围
const (
	MinParam = 0.5
	MaxParam = 2.0
)

// Input 合成参数
type Input struct {
	Speed       float64
	Pitch       float64
	VoiceID     string
	Description string
}

// Service 音频生成
type Service struct {
	synth service.Synthesizer
	now   func() time.Time
}

// NewService 创建音频服务
func NewService(synth service.Synthesizer) *Service {
	return &Service{synth: synth, now: time.Now}
}

// Generate 合成当前脚本并追加音频版本
func (s *Service) Generate(ctx context.Context, sess *session.Store, in Input) (*entity.AudioVersion, error) {
	if err := checkRange("speed", in.Speed); err != nil {
		return nil, err
	}
	if err := checkRange("pitch", in.Pitch); err != nil {
		return nil, err
	}

	release, ok := sess.TryLock()
	if !ok {
		return nil, apperrors.ErrOperationInProgress
	}
	defer release()

	// 持锁后读取，合成的文本与写入历史时的脚本一致
	script := sess.Script(ctx)
	if len(script) == 0 {
		return nil, apperrors.ErrScriptNotFound
	}

	url, err := s.synth.Synthesize(ctx, service.SynthesisRequest{
		Script:  strings.Join(script.Lines(), " "),
		Speed:   in.Speed,
		Pitch:   in.Pitch,
		VoiceID: in.VoiceID,
	})
	if err != nil {
		metrics.AudioGenerationTotal.WithLabelValues("error").Inc()
		logger.Error(ctx, "audio synthesis failed", err)
		return nil, err
	}

	now := s.now()
	desc := in.Description
	if strings.TrimSpace(desc) == "" {
		desc = fmt.Sprintf("Speed %.1fx, pitch %.1f", in.Speed, in.Pitch)
	}
	v := entity.AudioVersion{
		ID:          ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Timestamp:   now,
		AudioURL:    url,
		Speed:       in.Speed,
		Pitch:       in.Pitch,
		VoiceID:     in.VoiceID,
		Description: desc,
	}
	sess.SetAudioVersions(ctx, append(sess.AudioVersions(ctx), v))

	metrics.AudioGenerationTotal.WithLabelValues("success").Inc()
	logger.Info(ctx, "audio generated", "audio_version_id", v.ID, "lines", len(script))
	return &v, nil
}

// List 全部音频版本
func (s *Service) List(ctx context.Context, sess *session.Store) []entity.AudioVersion {
	return sess.AudioVersions(ctx)
}

// Load 按 ID 读取音频版本，不修改历史
func (s *Service) Load(ctx context.Context, sess *session.Store, id string) (*entity.AudioVersion, error) {
	for _, v := range sess.AudioVersions(ctx) {
		if v.ID == id {
			return &v, nil
		}
	}
	return nil, apperrors.ErrAudioNotFound.WithDetail(id)
}

func checkRange(name string, v float64) error {
	if v < MinParam || v > MaxParam {
		return apperrors.ErrAudioParamOutOfRange.WithDetail(fmt.Sprintf("%s=%g", name, v))
	}
	return nil
}
