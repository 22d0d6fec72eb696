// Package handler 提供 HTTP 请求处理器
package handler

import (
	"ad-studio-api/internal/application/feedback"
	"ad-studio-api/internal/application/refine"
	"ad-studio-api/internal/interfaces/http/dto"
	apperrors "ad-studio-api/pkg/errors"

	"github.com/gin-gonic/gin"
)

// RefineHandler 精修与校验反馈
type RefineHandler struct {
	refine         *refine.Service
	truncateLength int
}

// NewRefineHandler 创建精修处理器
func NewRefineHandler(refine *refine.Service, truncateLength int) *RefineHandler {
	return &RefineHandler{refine: refine, truncateLength: truncateLength}
}

// Refine 改写选中的行
//
// 越权修改被回滚时仍返回 200，校验结果放在 validation 字段。
//
// @Summary 精修脚本
// @Tags Scripts
// @Accept json
// @Produce json
// @Param body body dto.RefineRequest true "精修指令"
// @Success 200 {object} dto.Response[refine.Output]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Failure 504 {object} dto.ErrorResponse
// @Router /v1/script/refine [post]
func (h *RefineHandler) Refine(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}

	var req dto.RefineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.AppError(c, apperrors.ErrInvalidParam.WithDetail(err.Error()))
		return
	}

	out, err := h.refine.Refine(c.Request.Context(), sess, refine.Input{
		Selection:   req.Selection(),
		Instruction: req.Instruction,
	})
	if err != nil {
		dto.AppError(c, err)
		return
	}

	dto.Success(c, out)
}

// GetValidation 上一次精修的校验反馈，无记录时 data 为空
func (h *RefineHandler) GetValidation(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	dto.Success(c, feedback.NewReporter(sess, h.truncateLength).Report(c.Request.Context()))
}

// DismissValidation 关闭校验反馈
func (h *RefineHandler) DismissValidation(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	feedback.NewReporter(sess, h.truncateLength).Dismiss(c.Request.Context())
	dto.NoContent(c)
}
