package entity

// RevertedChange 一次被拦截并回滚的越权修改
type RevertedChange struct {
	Index     int        `json:"index"`
	Original  ScriptLine `json:"original"`
	Attempted ScriptLine `json:"attempted"`
}

// ValidationMetadata 单次精修的校验结果
type ValidationMetadata struct {
	HadUnauthorizedChanges bool             `json:"had_unauthorized_changes"`
	RevertedChanges        []RevertedChange `json:"reverted_changes"`
	HadLengthMismatch      bool             `json:"had_length_mismatch"`
	OriginalLength         int              `json:"original_length"`
	ReceivedLength         int              `json:"received_length"`
	SelectedSentences      []int            `json:"selected_sentences,omitempty"`
}

// Clean 无越权修改且长度一致
func (m *ValidationMetadata) Clean() bool {
	return m == nil || (!m.HadUnauthorizedChanges && !m.HadLengthMismatch)
}

// RefinementRequest 发送给改写服务的请求体
type RefinementRequest struct {
	CurrentScript          [][2]string `json:"current_script"`
	SelectedSentences      []int       `json:"selected_sentences"`
	ImprovementInstruction string      `json:"improvement_instruction"`
	KeySellingPoints       string      `json:"key_selling_points"`
	Tone                   string      `json:"tone"`
	AdLength               int         `json:"ad_length"`
}

// RefinementResponse 规范化后的改写服务响应
//
// Data[i] 声称替换 ModifiedIndices[i]，两个数组必须等长。
// ModifiedIndices 为 nil 且 FullScript 为 true 时，Data 是一份完整候选脚本。
type RefinementResponse struct {
	Data            []ScriptLine        `json:"data"`
	ModifiedIndices []int               `json:"modified_indices"`
	FullScript      bool                `json:"-"`
	Validation      *ValidationMetadata `json:"validation,omitempty"`
}
