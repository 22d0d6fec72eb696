package refine

import (
	"fmt"
	"strings"

	"ad-studio-api/internal/domain/entity"
	apperrors "ad-studio-api/pkg/errors"
)

// BuildRefinementRequest 构造发往改写服务的请求
//
// 前置条件不满足时在本地直接返回输入错误，不发起网络调用。
// current_script 统一使用 [line, artDirection] 二元组，ad_length 使用整数秒。
func BuildRefinementRequest(script entity.Script, selection entity.SelectionSet, instruction string, meta entity.AdMetadata) (*entity.RefinementRequest, error) {
	if selection.Empty() {
		return nil, apperrors.ErrNoSelection
	}
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return nil, apperrors.ErrEmptyInstruction
	}
	if len(script) == 0 {
		return nil, apperrors.ErrEmptyScript
	}
	if bad := selection.OutOfRange(len(script)); len(bad) > 0 {
		return nil, apperrors.ErrSelectionOutOfRange.WithDetail(
			fmt.Sprintf("indices %v are outside a script of %d lines", bad, len(script)))
	}

	return &entity.RefinementRequest{
		CurrentScript:          script.Tuples(),
		SelectedSentences:      selection.Sorted(),
		ImprovementInstruction: instruction,
		KeySellingPoints:       meta.KeySellingPoints,
		Tone:                   meta.Tone,
		AdLength:               meta.AdLength.Seconds(),
	}, nil
}
