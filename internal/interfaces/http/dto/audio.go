package dto

import (
	"ad-studio-api/internal/domain/entity"
)

const defaultAudioParam = 1.0

// GenerateAudioRequest 音频生成参数，speed/pitch 缺省为 1.0
type GenerateAudioRequest struct {
	Speed       *float64 `json:"speed"`
	Pitch       *float64 `json:"pitch"`
	VoiceID     string   `json:"voiceId"`
	Description string   `json:"description"`
}

// Params 取出 speed 与 pitch
func (r *GenerateAudioRequest) Params() (speed, pitch float64) {
	speed, pitch = defaultAudioParam, defaultAudioParam
	if r.Speed != nil {
		speed = *r.Speed
	}
	if r.Pitch != nil {
		pitch = *r.Pitch
	}
	return speed, pitch
}

// AudioListResponse 音频历史
type AudioListResponse struct {
	Versions []entity.AudioVersion `json:"versions"`
	Total    int                   `json:"total"`
}

// NewAudioListResponse 构造音频列表响应
func NewAudioListResponse(versions []entity.AudioVersion) *AudioListResponse {
	if versions == nil {
		versions = []entity.AudioVersion{}
	}
	return &AudioListResponse{Versions: versions, Total: len(versions)}
}
