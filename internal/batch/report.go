package batch

import (
	"fmt"
	"strings"

	"github.com/allanpk716/docx_filler/internal/domain"
)

const noMatchLog = "no keyword matched."

// RowLog 单行替换日志。按模式顺序列出命中的规则，没有命中时返回 no keyword matched.
func RowLog(patterns []domain.CompiledPattern, counts map[domain.RuleKey]int) string {
	var lines []string
	for _, p := range patterns {
		count := counts[p.Key()]
		if count == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("replacement succeeded: %s → %s (%d times)", p.OriginalKeyword, p.Value, count))
	}
	if len(lines) == 0 {
		return noMatchLog
	}
	return strings.Join(lines, "\n")
}

// failureLog 失败行的日志
func failureLog(err error) string {
	return fmt.Sprintf("replacement failed [%s]: %v", domain.Classify(err), err)
}
