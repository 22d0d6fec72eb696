package dto

import (
	"ad-studio-api/internal/domain/entity"
)

// SnapshotRequest 手动保存版本
type SnapshotRequest struct {
	Description string `json:"description"`
}

// VersionListResponse 版本历史
type VersionListResponse struct {
	Versions []entity.ScriptVersion `json:"versions"`
	Total    int                    `json:"total"`
}

// NewVersionListResponse 构造版本列表响应
func NewVersionListResponse(versions []entity.ScriptVersion) *VersionListResponse {
	if versions == nil {
		versions = []entity.ScriptVersion{}
	}
	return &VersionListResponse{Versions: versions, Total: len(versions)}
}

// DiffResponse 当前脚本相对历史版本的逐行差异
type DiffResponse struct {
	VersionID string            `json:"version_id"`
	Lines     []entity.LineDiff `json:"lines"`
}

// RestoreRequest 恢复版本，存在未保存修改时需要确认
type RestoreRequest struct {
	HasUnsavedChanges bool `json:"has_unsaved_changes"`
	Confirmed         bool `json:"confirmed"`
}

// RestoreResponse 恢复结果
type RestoreResponse struct {
	Script entity.Script `json:"script"`
}
