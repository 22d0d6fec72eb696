// Package tts 语音合成后端
package tts

import (
	"context"

	"ad-studio-api/internal/domain/service"
)

// PlaceholderAudioURL 开发环境使用的占位音频
const PlaceholderAudioURL = "data:audio/mpeg;base64,PLACEHOLDER_FOR_PARLER_TTS_AUDIO"

var _ service.Synthesizer = Placeholder{}

// Placeholder 不调用任何外部服务，总是返回占位音频
type Placeholder struct{}

// Synthesize 返回占位音频
func (Placeholder) Synthesize(ctx context.Context, _ service.SynthesisRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return PlaceholderAudioURL, nil
}
