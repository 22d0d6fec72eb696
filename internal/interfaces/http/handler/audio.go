// Package handler 提供 HTTP 请求处理器
package handler

import (
	"ad-studio-api/internal/application/audio"
	"ad-studio-api/internal/interfaces/http/dto"
	apperrors "ad-studio-api/pkg/errors"

	"github.com/gin-gonic/gin"
)

// AudioHandler 音频生成与历史
type AudioHandler struct {
	audio *audio.Service
}

// NewAudioHandler 创建音频处理器
func NewAudioHandler(audio *audio.Service) *AudioHandler {
	return &AudioHandler{audio: audio}
}

// GenerateAudio 为当前脚本合成音频
// @Summary 生成音频
// @Tags Audio
// @Accept json
// @Produce json
// @Param body body dto.GenerateAudioRequest true "合成参数"
// @Success 201 {object} dto.Response[entity.AudioVersion]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/audio [post]
func (h *AudioHandler) GenerateAudio(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}

	var req dto.GenerateAudioRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		dto.AppError(c, apperrors.ErrInvalidParam.WithDetail(err.Error()))
		return
	}

	speed, pitch := req.Params()
	v, err := h.audio.Generate(c.Request.Context(), sess, audio.Input{
		Speed:       speed,
		Pitch:       pitch,
		VoiceID:     req.VoiceID,
		Description: req.Description,
	})
	if err != nil {
		dto.AppError(c, err)
		return
	}
	dto.Created(c, v)
}

// ListAudio 音频历史
func (h *AudioHandler) ListAudio(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	dto.Success(c, dto.NewAudioListResponse(h.audio.List(c.Request.Context(), sess)))
}

// LoadAudio 读取某个历史音频
func (h *AudioHandler) LoadAudio(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	v, err := h.audio.Load(c.Request.Context(), sess, c.Param("aid"))
	if err != nil {
		dto.AppError(c, err)
		return
	}
	dto.Success(c, v)
}
