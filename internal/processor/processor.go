package processor

import (
	"fmt"

	"github.com/allanpk716/docx_filler/internal/domain"
	"github.com/allanpk716/docx_filler/internal/matcher"
)

// Mutator 文档替换器，把编译好的模式应用到段落/表格树上
type Mutator struct {
	policy domain.MergePolicy
}

// NewMutator 创建替换器，policy 为 nil 时使用 FirstRunWins
func NewMutator(policy domain.MergePolicy) *Mutator {
	if policy == nil {
		policy = FirstRunWins{}
	}
	return &Mutator{policy: policy}
}

// Mutate 在树中所有段落（含表格单元格）上执行替换，直接修改树。
// 返回每条规则命中的段落数：一个段落内命中多次只计一次。
func (m *Mutator) Mutate(tree *domain.DocumentTree, patterns []domain.CompiledPattern) (map[domain.RuleKey]int, error) {
	counts := make(map[domain.RuleKey]int)
	if tree == nil || len(patterns) == 0 {
		return counts, nil
	}

	for i, block := range tree.Paragraphs {
		if err := m.mutateBlock(block, patterns, counts); err != nil {
			return nil, fmt.Errorf("处理第 %d 个段落失败: %w", i+1, err)
		}
	}
	if err := m.mutateTables(tree.Tables, patterns, counts); err != nil {
		return nil, err
	}

	return counts, nil
}

// mutateBlock 处理单个段落。按模式顺序依次替换：在规范化文本中定位搜索键，
// 只改写原始文本中对应的区间，区间外的模板文字和先前填入的值保持原样。
func (m *Mutator) mutateBlock(block *domain.TextBlock, patterns []domain.CompiledPattern, counts map[domain.RuleKey]int) error {
	if block == nil || len(block.Runs) == 0 {
		return nil
	}

	working := block.Text()
	changed := false
	for _, p := range patterns {
		replaced, n := matcher.ReplaceAll(working, p.SearchKey, p.ReplacementText)
		if n == 0 {
			continue
		}
		working = replaced
		counts[p.Key()]++
		changed = true
	}
	if !changed {
		return nil
	}

	original := make([]domain.Run, len(block.Runs))
	for i, r := range block.Runs {
		original[i] = *r
	}

	merged := m.policy.MergeRuns(original, working)
	if len(merged) != len(original) {
		return fmt.Errorf("%w: 合并策略返回 %d 个Run，期望 %d 个", domain.ErrRowProcessing, len(merged), len(original))
	}
	for i := range merged {
		block.Runs[i].Text = merged[i].Text
		block.Runs[i].Style = merged[i].Style
	}
	return nil
}

// matchingPatterns 返回在段落中能定位到搜索键的模式，保持原有顺序
func matchingPatterns(rawText string, patterns []domain.CompiledPattern) []domain.CompiledPattern {
	var matched []domain.CompiledPattern
	for _, p := range patterns {
		if len(matcher.Occurrences(rawText, p.SearchKey)) > 0 {
			matched = append(matched, p)
		}
	}
	return matched
}

// Scan 统计各模式命中的段落数，不修改文档
func Scan(tree *domain.DocumentTree, patterns []domain.CompiledPattern) map[domain.RuleKey]int {
	counts := make(map[domain.RuleKey]int)
	if tree == nil {
		return counts
	}
	for _, block := range tree.Blocks() {
		for _, p := range matchingPatterns(block.Text(), patterns) {
			counts[p.Key()]++
		}
	}
	return counts
}
