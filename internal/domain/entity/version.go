package entity

import (
	"time"
)

// ScriptVersion 脚本历史快照
type ScriptVersion struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Script      Script    `json:"script"`
	Description string    `json:"description"`
}

// DiffStatus 行级差异分类
type DiffStatus string

const (
	DiffUnchanged DiffStatus = "unchanged"
	DiffModified  DiffStatus = "modified"
	DiffNew       DiffStatus = "new"
)

// LineDiff 当前脚本某一行相对历史版本的差异
type LineDiff struct {
	Index  int        `json:"index"`
	Status DiffStatus `json:"status"`
}

// AudioVersion 音频历史条目
type AudioVersion struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	AudioURL    string    `json:"audioUrl"`
	Speed       float64   `json:"speed"`
	Pitch       float64   `json:"pitch"`
	VoiceID     string    `json:"voiceId,omitempty"`
	Description string    `json:"description"`
}
