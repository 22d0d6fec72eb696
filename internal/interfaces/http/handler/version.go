// Package handler 提供 HTTP 请求处理器
package handler

import (
	"strings"

	"ad-studio-api/internal/application/versions"
	"ad-studio-api/internal/interfaces/http/dto"
	apperrors "ad-studio-api/pkg/errors"
	"ad-studio-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// VersionHandler 脚本版本历史
type VersionHandler struct {
	opts versions.Options
}

// NewVersionHandler 创建版本处理器
func NewVersionHandler(opts versions.Options) *VersionHandler {
	return &VersionHandler{opts: opts}
}

// ListVersions 全部版本，按创建顺序
func (h *VersionHandler) ListVersions(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	dto.Success(c, dto.NewVersionListResponse(versions.NewStore(sess, h.opts).List(c.Request.Context())))
}

// CreateSnapshot 保存当前脚本为新版本
func (h *VersionHandler) CreateSnapshot(c *gin.Context) {
	ctx := c.Request.Context()
	sess, ok := currentSession(c)
	if !ok {
		return
	}

	var req dto.SnapshotRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		dto.AppError(c, apperrors.ErrInvalidParam.WithDetail(err.Error()))
		return
	}

	release, ok := sess.TryLock()
	if !ok {
		dto.AppError(c, apperrors.ErrOperationInProgress)
		return
	}
	defer release()

	script := sess.Script(ctx)
	if len(script) == 0 {
		dto.AppError(c, apperrors.ErrScriptNotFound)
		return
	}
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		desc = versions.DescManualEdit
	}

	v := versions.NewStore(sess, h.opts).Snapshot(ctx, script, desc)
	dto.Created(c, v)
}

// DiffVersion 当前脚本相对指定版本的逐行差异
func (h *VersionHandler) DiffVersion(c *gin.Context) {
	ctx := c.Request.Context()
	sess, ok := currentSession(c)
	if !ok {
		return
	}

	vid := c.Param("vid")
	lines, err := versions.NewStore(sess, h.opts).Diff(ctx, sess.Script(ctx), vid)
	if err != nil {
		dto.AppError(c, err)
		return
	}
	dto.Success(c, &dto.DiffResponse{VersionID: vid, Lines: lines})
}

// RestoreVersion 恢复到指定版本
// @Summary 恢复版本
// @Description 存在未保存修改且未确认时返回 409
// @Tags Versions
// @Accept json
// @Produce json
// @Param vid path string true "版本 ID"
// @Param body body dto.RestoreRequest false "确认信息"
// @Success 200 {object} dto.Response[dto.RestoreResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/script/versions/{vid}/restore [post]
func (h *VersionHandler) RestoreVersion(c *gin.Context) {
	ctx := c.Request.Context()
	sess, ok := currentSession(c)
	if !ok {
		return
	}

	var req dto.RestoreRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		dto.AppError(c, apperrors.ErrInvalidParam.WithDetail(err.Error()))
		return
	}

	release, ok := sess.TryLock()
	if !ok {
		dto.AppError(c, apperrors.ErrOperationInProgress)
		return
	}
	defer release()

	vid := c.Param("vid")
	script, err := versions.NewStore(sess, h.opts).Restore(ctx, vid, versions.RestoreOptions{
		HasUnsavedChanges: req.HasUnsavedChanges,
		Confirmed:         req.Confirmed,
	})
	if err != nil {
		dto.AppError(c, err)
		return
	}

	// 选择集指向旧脚本；校验反馈只在用户关闭或干净的精修后清除
	sess.ClearSelection(ctx)
	logger.Info(ctx, "script version restored", "version_id", vid)
	dto.Success(c, &dto.RestoreResponse{Script: script})
}
