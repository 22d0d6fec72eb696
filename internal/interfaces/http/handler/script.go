// Package handler 提供 HTTP 请求处理器
package handler

import (
	"fmt"

	"ad-studio-api/internal/application/generation"
	"ad-studio-api/internal/domain/entity"
	"ad-studio-api/internal/interfaces/http/dto"
	apperrors "ad-studio-api/pkg/errors"
	"ad-studio-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ScriptHandler 脚本生成、编辑与选择
type ScriptHandler struct {
	generation *generation.Service
}

// NewScriptHandler 创建脚本处理器
func NewScriptHandler(generation *generation.Service) *ScriptHandler {
	return &ScriptHandler{generation: generation}
}

// GenerateScript 根据表单生成脚本
// @Summary 生成脚本
// @Tags Scripts
// @Accept json
// @Produce json
// @Param body body dto.GenerateScriptRequest true "广告参数"
// @Success 200 {object} dto.Response[dto.ScriptResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /v1/scripts/generate [post]
func (h *ScriptHandler) GenerateScript(c *gin.Context) {
	ctx := c.Request.Context()
	sess, ok := currentSession(c)
	if !ok {
		return
	}

	var req dto.GenerateScriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.AppError(c, apperrors.ErrInvalidParam.WithDetail(err.Error()))
		return
	}

	script, err := h.generation.Generate(ctx, sess, req.ToEntity())
	if err != nil {
		dto.AppError(c, err)
		return
	}

	dto.Success(c, dto.NewScriptResponse(script, nil))
}

// GetFormData 上次填写的表单，用于恢复
func (h *ScriptHandler) GetFormData(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	form, found := h.generation.FormData(c.Request.Context(), sess)
	dto.Success(c, &dto.FormDataResponse{Found: found, Form: form})
}

// GetScript 当前脚本
// @Summary 获取当前脚本
// @Tags Scripts
// @Produce json
// @Success 200 {object} dto.Response[dto.ScriptResponse]
// @Router /v1/script [get]
func (h *ScriptHandler) GetScript(c *gin.Context) {
	ctx := c.Request.Context()
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	dto.Success(c, dto.NewScriptResponse(sess.Script(ctx), sess.Selection(ctx)))
}

// EditScript 保存手动编辑
func (h *ScriptHandler) EditScript(c *gin.Context) {
	ctx := c.Request.Context()
	sess, ok := currentSession(c)
	if !ok {
		return
	}

	var req dto.EditScriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.AppError(c, apperrors.ErrInvalidParam.WithDetail(err.Error()))
		return
	}

	v, err := h.generation.SaveEdit(ctx, sess, req.Script, req.Description)
	if err != nil {
		dto.AppError(c, err)
		return
	}

	logger.Info(ctx, "script edited", "lines", len(req.Script), "version_id", v.ID)
	dto.Success(c, &dto.EditScriptResponse{Script: sess.Script(ctx), Version: v})
}

// SetSelection 保存选中的行
func (h *ScriptHandler) SetSelection(c *gin.Context) {
	ctx := c.Request.Context()
	sess, ok := currentSession(c)
	if !ok {
		return
	}

	var req dto.SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.AppError(c, apperrors.ErrInvalidParam.WithDetail(err.Error()))
		return
	}

	script := sess.Script(ctx)
	if len(script) == 0 {
		dto.AppError(c, apperrors.ErrScriptNotFound)
		return
	}
	selection := entity.NewSelectionSet(req.SelectedSentences...)
	if bad := selection.OutOfRange(len(script)); len(bad) > 0 {
		dto.AppError(c, apperrors.ErrSelectionOutOfRange.WithDetail(fmt.Sprintf("indices %v, script has %d lines", bad, len(script))))
		return
	}

	sess.SetSelection(ctx, selection)
	dto.Success(c, dto.NewScriptResponse(script, selection))
}

// ClearSelection 清空选中的行
func (h *ScriptHandler) ClearSelection(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	sess.ClearSelection(c.Request.Context())
	dto.NoContent(c)
}
