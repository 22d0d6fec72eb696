package dto

import (
	"strings"

	"ad-studio-api/internal/domain/entity"
)

// GenerateScriptRequest 脚本生成表单
type GenerateScriptRequest struct {
	ProductName      string          `json:"product_name"`
	TargetAudience   string          `json:"target_audience"`
	KeySellingPoints string          `json:"key_selling_points"`
	Tone             string          `json:"tone"`
	AdLength         entity.AdLength `json:"ad_length"`
	SpeakerVoice     string          `json:"speaker_voice"`
}

// ToEntity 去除首尾空白后转为领域对象
func (r *GenerateScriptRequest) ToEntity() entity.AdMetadata {
	return entity.AdMetadata{
		ProductName:      strings.TrimSpace(r.ProductName),
		TargetAudience:   strings.TrimSpace(r.TargetAudience),
		KeySellingPoints: strings.TrimSpace(r.KeySellingPoints),
		Tone:             strings.TrimSpace(r.Tone),
		AdLength:         r.AdLength,
		SpeakerVoice:     strings.TrimSpace(r.SpeakerVoice),
	}
}

// FormDataResponse 上次填写的表单
type FormDataResponse struct {
	Found bool              `json:"found"`
	Form  entity.AdMetadata `json:"form"`
}

// ScriptResponse 当前脚本与选中行
type ScriptResponse struct {
	Script            entity.Script `json:"script"`
	SelectedSentences []int         `json:"selected_sentences"`
}

// NewScriptResponse 构造脚本响应，空值输出为空数组
func NewScriptResponse(script entity.Script, selection entity.SelectionSet) *ScriptResponse {
	if script == nil {
		script = entity.Script{}
	}
	return &ScriptResponse{Script: script, SelectedSentences: selection.Sorted()}
}

// EditScriptRequest 手动编辑整份脚本
type EditScriptRequest struct {
	Script      entity.Script `json:"script"`
	Description string        `json:"description"`
}

// EditScriptResponse 手动编辑结果
type EditScriptResponse struct {
	Script  entity.Script         `json:"script"`
	Version *entity.ScriptVersion `json:"version"`
}

// SelectionRequest 设置选中的行
type SelectionRequest struct {
	SelectedSentences []int `json:"selected_sentences"`
}

// RefineRequest 精修请求，selected_sentences 缺省时使用已保存的选择
type RefineRequest struct {
	SelectedSentences *[]int `json:"selected_sentences"`
	Instruction       string `json:"improvement_instruction"`
}

// Selection 转为选择集合，nil 表示使用会话中的选择
func (r *RefineRequest) Selection() entity.SelectionSet {
	if r.SelectedSentences == nil {
		return nil
	}
	return entity.NewSelectionSet(*r.SelectedSentences...)
}
