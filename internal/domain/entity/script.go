// Package entity 定义领域实体
package entity

import (
	"encoding/json"
	"slices"
)

// ScriptLine 一句台词及其演绎指导，值类型，按字段整体比较
type ScriptLine struct {
	Line         string `json:"line"`
	ArtDirection string `json:"artDirection"`
}

// Equal 结构相等
func (l ScriptLine) Equal(other ScriptLine) bool {
	return l.Line == other.Line && l.ArtDirection == other.ArtDirection
}

// Tuple 转为 [line, artDirection] 二元组
func (l ScriptLine) Tuple() [2]string {
	return [2]string{l.Line, l.ArtDirection}
}

// Script 有序台词序列，顺序即播出顺序
type Script []ScriptLine

// Clone 深拷贝
func (s Script) Clone() Script {
	if s == nil {
		return nil
	}
	out := make(Script, len(s))
	copy(out, s)
	return out
}

// Equal 逐行结构相等
func (s Script) Equal(other Script) bool {
	return slices.EqualFunc(s, other, ScriptLine.Equal)
}

// At 返回索引处的台词，越界返回零值
func (s Script) At(i int) (ScriptLine, bool) {
	if i < 0 || i >= len(s) {
		return ScriptLine{}, false
	}
	return s[i], true
}

// Tuples 转为 [line, artDirection] 二元组数组
func (s Script) Tuples() [][2]string {
	out := make([][2]string, len(s))
	for i, l := range s {
		out[i] = l.Tuple()
	}
	return out
}

// Lines 仅返回台词文本
func (s Script) Lines() []string {
	out := make([]string, len(s))
	for i, l := range s {
		out[i] = l.Line
	}
	return out
}

// SelectionSet 用户选中、允许被改写的行索引集合
type SelectionSet map[int]struct{}

// NewSelectionSet 由索引列表创建选择集，重复索引合并
func NewSelectionSet(indices ...int) SelectionSet {
	s := make(SelectionSet, len(indices))
	for _, i := range indices {
		s[i] = struct{}{}
	}
	return s
}

// Contains 是否包含索引
func (s SelectionSet) Contains(i int) bool {
	_, ok := s[i]
	return ok
}

// Len 元素个数
func (s SelectionSet) Len() int {
	return len(s)
}

// Empty 是否为空
func (s SelectionSet) Empty() bool {
	return len(s) == 0
}

// Sorted 升序索引数组
func (s SelectionSet) Sorted() []int {
	out := make([]int, 0, len(s))
	for i := range s {
		out = append(out, i)
	}
	slices.Sort(out)
	return out
}

// OutOfRange 返回不在 [0, n) 内的索引，升序
func (s SelectionSet) OutOfRange(n int) []int {
	var out []int
	for _, i := range s.Sorted() {
		if i < 0 || i >= n {
			out = append(out, i)
		}
	}
	return out
}

// MarshalJSON 序列化为升序整数数组
func (s SelectionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON 从整数数组反序列化
func (s *SelectionSet) UnmarshalJSON(data []byte) error {
	var indices []int
	if err := json.Unmarshal(data, &indices); err != nil {
		return err
	}
	*s = NewSelectionSet(indices...)
	return nil
}
