// Package refine 实现选择性精修：请求构造、越权校验与流程编排
package refine

import (
	"errors"
	"fmt"

	"ad-studio-api/internal/domain/entity"
)

// ErrMalformedEnvelope 响应无法配对为等长的 (data, modified_indices)
var ErrMalformedEnvelope = errors.New("malformed refinement envelope")

// Result 校验合并结果
type Result struct {
	Script     entity.Script
	Validation *entity.ValidationMetadata
}

// Validate 将改写服务的响应合并到原脚本，只允许选中行发生变化
//
// 信封不合法时返回 ErrMalformedEnvelope，不产生任何修改。
// 越权修改不是错误：被拦截、回滚并记录到 Validation 中。
func Validate(original entity.Script, selection entity.SelectionSet, resp *entity.RefinementResponse) (*Result, error) {
	if resp == nil {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedEnvelope)
	}

	authorized := effectiveSelection(selection, len(original))

	var (
		result   entity.Script
		received int
		reverted []entity.RevertedChange
	)

	if resp.FullScript {
		if len(resp.Data) == 0 {
			return nil, fmt.Errorf("%w: full-script response has no lines", ErrMalformedEnvelope)
		}
		result = fitLength(resp.Data, original)
		received = len(resp.Data)
	} else {
		if len(resp.Data) != len(resp.ModifiedIndices) {
			return nil, fmt.Errorf("%w: data has %d entries, modified_indices has %d",
				ErrMalformedEnvelope, len(resp.Data), len(resp.ModifiedIndices))
		}
		result = original.Clone()
		reverted = applyClaims(result, original, authorized, resp.Data, resp.ModifiedIndices)
		received = len(result)
	}

	reverted = append(reverted, enforceScope(result, original, authorized)...)

	meta := &entity.ValidationMetadata{
		HadUnauthorizedChanges: len(reverted) > 0,
		RevertedChanges:        reverted,
		HadLengthMismatch:      len(original) != received,
		OriginalLength:         len(original),
		ReceivedLength:         received,
		SelectedSentences:      authorized.Sorted(),
	}
	if meta.RevertedChanges == nil {
		meta.RevertedChanges = []entity.RevertedChange{}
	}

	return &Result{Script: result, Validation: meta}, nil
}

// applyClaims 第一遍：逐条核对声明的索引，只应用授权范围内的替换
//
// 授权条件：索引在 [0, len(original)) 内且属于选择集。重复索引后者覆盖前者。
// 未授权的声明一律记录，即使替换内容与原文相同；越界索引的原文为零值。
func applyClaims(result, original entity.Script, authorized entity.SelectionSet, data []entity.ScriptLine, indices []int) []entity.RevertedChange {
	var reverted []entity.RevertedChange
	for i, idx := range indices {
		replacement := data[i]
		orig, inRange := original.At(idx)
		if inRange && authorized.Contains(idx) {
			result[idx] = replacement
			continue
		}
		reverted = append(reverted, entity.RevertedChange{
			Index:     idx,
			Original:  orig,
			Attempted: replacement,
		})
	}
	return reverted
}

// enforceScope 第二遍：逐行比对所有未选中的行，发现差异即记录并回滚
//
// 不依赖第一遍的结论，用于兜住上游已经预先写入的越权内容。
func enforceScope(result, original entity.Script, authorized entity.SelectionSet) []entity.RevertedChange {
	var reverted []entity.RevertedChange
	for i, orig := range original {
		if authorized.Contains(i) {
			continue
		}
		if result[i].Equal(orig) {
			continue
		}
		reverted = append(reverted, entity.RevertedChange{
			Index:     i,
			Original:  orig,
			Attempted: result[i],
		})
		result[i] = orig
	}
	return reverted
}

// fitLength 以候选脚本为基底，截断多余行，缺失行用原文补齐
func fitLength(candidate []entity.ScriptLine, original entity.Script) entity.Script {
	out := make(entity.Script, len(original))
	for i := range original {
		if i < len(candidate) {
			out[i] = candidate[i]
		} else {
			out[i] = original[i]
		}
	}
	return out
}

// effectiveSelection 去掉越界索引后的选择集
func effectiveSelection(selection entity.SelectionSet, n int) entity.SelectionSet {
	out := make(entity.SelectionSet, len(selection))
	for i := range selection {
		if i >= 0 && i < n {
			out[i] = struct{}{}
		}
	}
	return out
}
