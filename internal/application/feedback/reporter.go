// Package feedback 持久化并呈现精修校验结果
package feedback

import (
	"context"
	"sort"

	"ad-studio-api/internal/application/session"
	"ad-studio-api/internal/domain/entity"
)

const ellipsis = "..."

// DefaultTruncateLength 默认截断长度 (字符)
const DefaultTruncateLength = 80

// Attempt 一次被拦截的修改，文本已截断
type Attempt struct {
	AttemptedLine         string `json:"attempted_line"`
	AttemptedArtDirection string `json:"attempted_art_direction"`
	OriginalLine          string `json:"original_line"`
	OriginalArtDirection  string `json:"original_art_direction"`
}

// IndexGroup 同一行上的全部拦截记录
type IndexGroup struct {
	Index    int       `json:"index"`
	Attempts []Attempt `json:"attempts"`
}

// Report 面向用户的校验反馈
type Report struct {
	HadUnauthorizedChanges bool         `json:"had_unauthorized_changes"`
	HadLengthMismatch      bool         `json:"had_length_mismatch"`
	OriginalLength         int          `json:"original_length"`
	ReceivedLength         int          `json:"received_length"`
	AuthorizedIndices      []int        `json:"authorized_indices"`
	Groups                 []IndexGroup `json:"groups"`
}

// Reporter 单个会话的校验反馈
type Reporter struct {
	sess           *session.Store
	truncateLength int
}

// NewReporter 创建反馈器
func NewReporter(sess *session.Store, truncateLength int) *Reporter {
	if truncateLength <= 0 {
		truncateLength = DefaultTruncateLength
	}
	return &Reporter{sess: sess, truncateLength: truncateLength}
}

// Record 保存校验结果，无违规时删除旧记录
func (r *Reporter) Record(ctx context.Context, meta *entity.ValidationMetadata) {
	if meta.Clean() {
		r.sess.ClearValidation(ctx)
		return
	}
	r.sess.SetValidation(ctx, meta)
}

// Dismiss 用户确认后删除记录
func (r *Reporter) Dismiss(ctx context.Context) {
	r.sess.ClearValidation(ctx)
}

// Current 原始记录
func (r *Reporter) Current(ctx context.Context) *entity.ValidationMetadata {
	return r.sess.Validation(ctx)
}

// Report 按行分组的反馈，无记录时返回 nil
func (r *Reporter) Report(ctx context.Context) *Report {
	meta := r.sess.Validation(ctx)
	if meta == nil {
		return nil
	}

	authorized := meta.SelectedSentences
	if authorized == nil {
		authorized = r.sess.Selection(ctx).Sorted()
	}

	return &Report{
		HadUnauthorizedChanges: meta.HadUnauthorizedChanges,
		HadLengthMismatch:      meta.HadLengthMismatch,
		OriginalLength:         meta.OriginalLength,
		ReceivedLength:         meta.ReceivedLength,
		AuthorizedIndices:      authorized,
		Groups:                 group(meta.RevertedChanges, r.truncateLength),
	}
}

func group(changes []entity.RevertedChange, n int) []IndexGroup {
	byIndex := make(map[int][]Attempt)
	for _, c := range changes {
		byIndex[c.Index] = append(byIndex[c.Index], Attempt{
			AttemptedLine:         Truncate(c.Attempted.Line, n),
			AttemptedArtDirection: Truncate(c.Attempted.ArtDirection, n),
			OriginalLine:          Truncate(c.Original.Line, n),
			OriginalArtDirection:  Truncate(c.Original.ArtDirection, n),
		})
	}

	groups := make([]IndexGroup, 0, len(byIndex))
	for idx, attempts := range byIndex {
		groups = append(groups, IndexGroup{Index: idx, Attempts: attempts})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Index < groups[j].Index })
	return groups
}

// Truncate 超过 n 个字符时截断并追加省略号
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + ellipsis
}
