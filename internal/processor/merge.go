package processor

import "github.com/allanpk716/docx_filler/internal/domain"

// FirstRunWins 替换后的全部文本写入第一个 Run，其余 Run 置空。
// 段落内原有的 Run 级格式边界会丢失，整段沿用第一个 Run 的格式。
type FirstRunWins struct{}

// MergeRuns 实现 domain.MergePolicy
func (FirstRunWins) MergeRuns(original []domain.Run, newText string) []domain.Run {
	merged := make([]domain.Run, len(original))
	for i, r := range original {
		merged[i] = domain.Run{Style: r.Style}
	}
	if len(merged) > 0 {
		merged[0].Text = newText
	}
	return merged
}

var _ domain.MergePolicy = FirstRunWins{}
