// Package service 定义应用层依赖的外部服务端口
package service

import (
	"context"

	"ad-studio-api/internal/domain/entity"
)

// Scriptwriter 脚本生成与改写服务
//
// 实现负责把上游各种响应形态规范化为 entity 类型，
// 无法解析的响应返回 CodeMalformedResponse 错误。
type Scriptwriter interface {
	// GenerateScript 根据广告参数生成完整脚本
	GenerateScript(ctx context.Context, meta entity.AdMetadata) (entity.Script, error)
	// RefineScript 改写选中的行
	RefineScript(ctx context.Context, req *entity.RefinementRequest) (*entity.RefinementResponse, error)
	// Ping 检查上游连通性
	Ping(ctx context.Context) error
}

// SynthesisRequest 语音合成请求
type SynthesisRequest struct {
	Script  string  `json:"script"`
	Speed   float64 `json:"speed"`
	Pitch   float64 `json:"pitch"`
	VoiceID string  `json:"voiceId,omitempty"`
}

// Synthesizer 语音合成服务
type Synthesizer interface {
	// Synthesize 返回可播放的音频地址 (URL 或 data URL)
	Synthesize(ctx context.Context, req SynthesisRequest) (string, error)
}
