package processor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allanpk716/docx_filler/internal/domain"
)

type style string

const (
	plain style = "plain"
	bold  style = "bold"
)

func block(runs ...*domain.Run) *domain.TextBlock {
	return &domain.TextBlock{Runs: runs}
}

func run(text string, s style) *domain.Run {
	return &domain.Run{Text: text, Style: s}
}

func pattern(keyword, field, replacement string) domain.CompiledPattern {
	return domain.CompiledPattern{
		OriginalKeyword: keyword,
		SourceField:     field,
		SearchKey:       keyword,
		ReplacementText: replacement,
		Value:           replacement,
	}
}

func TestMutate_FirstRunWins(t *testing.T) {
	para := block(run("姓名：", plain), run("【姓名】", bold))
	tree := &domain.DocumentTree{Paragraphs: []*domain.TextBlock{para}}

	counts, err := NewMutator(nil).Mutate(tree, []domain.CompiledPattern{pattern("【姓名】", "姓名", "【李四】")})
	require.NoError(t, err)

	require.Len(t, para.Runs, 2)
	assert.Equal(t, "姓名：【李四】", para.Runs[0].Text)
	assert.Equal(t, plain, para.Runs[0].Style)
	assert.Equal(t, "", para.Runs[1].Text)
	assert.Equal(t, "姓名：【李四】", para.Text())
	assert.Equal(t, 1, counts[domain.RuleKey{Keyword: "【姓名】", SourceField: "姓名"}])
}

func TestMutate_NoMatchLeavesBlockUntouched(t *testing.T) {
	para := block(run("合同编号：", plain), run("001", bold))
	tree := &domain.DocumentTree{Paragraphs: []*domain.TextBlock{para}}

	counts, err := NewMutator(nil).Mutate(tree, []domain.CompiledPattern{pattern("【姓名】", "姓名", "张三")})
	require.NoError(t, err)

	assert.Empty(t, counts)
	assert.Equal(t, "合同编号：", para.Runs[0].Text)
	assert.Equal(t, "001", para.Runs[1].Text)
	assert.Equal(t, bold, para.Runs[1].Style)
}

func TestMutate_CountsBlocksNotOccurrences(t *testing.T) {
	tree := &domain.DocumentTree{
		Paragraphs: []*domain.TextBlock{
			block(run("【姓名】与【姓名】", plain)),
			block(run("签字：【姓名】", plain)),
			block(),
		},
	}

	counts, err := NewMutator(nil).Mutate(tree, []domain.CompiledPattern{pattern("【姓名】", "姓名", "张三")})
	require.NoError(t, err)

	assert.Equal(t, 2, counts[domain.RuleKey{Keyword: "【姓名】", SourceField: "姓名"}])
	assert.Equal(t, "张三与张三", tree.Paragraphs[0].Text())
	assert.Equal(t, "签字：张三", tree.Paragraphs[1].Text())
}

func TestMutate_TableCells(t *testing.T) {
	amount := block(run("【金额】", plain))
	date := block(run("日期：", plain), run("【日期】", bold))
	tree := &domain.DocumentTree{
		Tables: []*domain.Table{{
			Rows: [][]*domain.Cell{
				{{Paragraphs: []*domain.TextBlock{block(run("金额", plain))}}, {Paragraphs: []*domain.TextBlock{amount}}},
				{{Paragraphs: []*domain.TextBlock{date}}},
			},
		}},
	}

	patterns := []domain.CompiledPattern{
		pattern("【金额】", "金额", "100.5"),
		pattern("【日期】", "日期", "2024-01-01"),
	}
	counts, err := NewMutator(nil).Mutate(tree, patterns)
	require.NoError(t, err)

	assert.Equal(t, "100.5", amount.Text())
	assert.Equal(t, "日期：2024-01-01", date.Runs[0].Text)
	assert.Equal(t, "", date.Runs[1].Text)
	assert.Len(t, counts, 2)
}

func TestMutate_MatchesAgainstNormalizedText(t *testing.T) {
	para := block(run("日期：【签\u3000署日】 ", plain))
	tree := &domain.DocumentTree{Paragraphs: []*domain.TextBlock{para}}

	counts, err := NewMutator(nil).Mutate(tree, []domain.CompiledPattern{pattern("【签 署日】", "签署日", "2024年")})
	require.NoError(t, err)

	assert.Equal(t, 1, counts[domain.RuleKey{Keyword: "【签 署日】", SourceField: "签署日"}])
	// 只改写命中的区间，全角冒号和末尾空格原样保留
	assert.Equal(t, "日期：2024年 ", para.Text())
}

func TestMutate_KeepsTemplateTextAndInsertedValues(t *testing.T) {
	para := block(run("甲方（盖章）：【公司】 日期：【签\u3000署日】", plain))
	tree := &domain.DocumentTree{Paragraphs: []*domain.TextBlock{para}}

	patterns := []domain.CompiledPattern{
		pattern("【公司】", "公司", "ＡＢＣ（北京）有限公司"),
		pattern("【签 署日】", "签署日", "２０２４年"),
	}
	counts, err := NewMutator(nil).Mutate(tree, patterns)
	require.NoError(t, err)

	assert.Equal(t, "甲方（盖章）：ＡＢＣ（北京）有限公司 日期：２０２４年", para.Text())
	assert.Len(t, counts, 2)
}

func TestMutate_CountsOnlyAppliedPatterns(t *testing.T) {
	para := block(run("乙方：【甲方】", plain))
	tree := &domain.DocumentTree{Paragraphs: []*domain.TextBlock{para}}

	// 第一条替换后 "甲方" 已不在段落中，第二条不应计数
	patterns := []domain.CompiledPattern{
		pattern("【甲方】", "甲方", "A公司"),
		pattern("甲方", "简称", "甲"),
	}
	counts, err := NewMutator(nil).Mutate(tree, patterns)
	require.NoError(t, err)

	assert.Equal(t, "乙方：A公司", para.Text())
	assert.Equal(t, 1, counts[domain.RuleKey{Keyword: "【甲方】", SourceField: "甲方"}])
	assert.NotContains(t, counts, domain.RuleKey{Keyword: "甲方", SourceField: "简称"})
}

func TestMutate_MultiplePatternsInOneBlock(t *testing.T) {
	para := block(run("【甲方】", plain), run("与", plain), run("【乙方】", bold))
	tree := &domain.DocumentTree{Paragraphs: []*domain.TextBlock{para}}

	patterns := []domain.CompiledPattern{
		pattern("【甲方】", "甲方", "A公司"),
		pattern("【乙方】", "乙方", "B公司"),
		pattern("【丙方】", "丙方", "C公司"),
	}
	counts, err := NewMutator(nil).Mutate(tree, patterns)
	require.NoError(t, err)

	assert.Equal(t, "A公司与B公司", para.Runs[0].Text)
	assert.Len(t, counts, 2)
	assert.NotContains(t, counts, domain.RuleKey{Keyword: "【丙方】", SourceField: "丙方"})
}

type keepBoundaries struct {
	calls int
}

func (k *keepBoundaries) MergeRuns(original []domain.Run, newText string) []domain.Run {
	k.calls++
	merged := make([]domain.Run, len(original))
	copy(merged, original)
	merged[len(merged)-1].Text = newText
	for i := 0; i < len(merged)-1; i++ {
		merged[i].Text = ""
	}
	return merged
}

func TestMutate_CustomMergePolicy(t *testing.T) {
	policy := &keepBoundaries{}
	para := block(run("姓名：", plain), run("【姓名】", bold))
	tree := &domain.DocumentTree{Paragraphs: []*domain.TextBlock{para}}

	_, err := NewMutator(policy).Mutate(tree, []domain.CompiledPattern{pattern("【姓名】", "姓名", "李四")})
	require.NoError(t, err)

	assert.Equal(t, 1, policy.calls)
	assert.Equal(t, "", para.Runs[0].Text)
	assert.Equal(t, "姓名：李四", para.Runs[1].Text)
	assert.Equal(t, bold, para.Runs[1].Style)
}

type truncating struct{}

func (truncating) MergeRuns(original []domain.Run, newText string) []domain.Run {
	return []domain.Run{{Text: newText}}
}

func TestMutate_RejectsPolicyChangingRunCount(t *testing.T) {
	tree := &domain.DocumentTree{Paragraphs: []*domain.TextBlock{block(run("a", plain), run("【x】", plain))}}

	_, err := NewMutator(truncating{}).Mutate(tree, []domain.CompiledPattern{pattern("【x】", "x", "1")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRowProcessing))
}

func TestScan_DoesNotModify(t *testing.T) {
	para := block(run("【姓名】", plain))
	tree := &domain.DocumentTree{
		Paragraphs: []*domain.TextBlock{para},
		Tables: []*domain.Table{{Rows: [][]*domain.Cell{{{Paragraphs: []*domain.TextBlock{block(run("【姓名】", plain))}}}}}},
	}

	counts := Scan(tree, []domain.CompiledPattern{pattern("【姓名】", "姓名", "张三")})
	assert.Equal(t, 2, counts[domain.RuleKey{Keyword: "【姓名】", SourceField: "姓名"}])
	assert.Equal(t, "【姓名】", para.Text())
}

func TestFirstRunWins_MergeRuns(t *testing.T) {
	merged := FirstRunWins{}.MergeRuns([]domain.Run{{Text: "a", Style: plain}, {Text: "b", Style: bold}}, "new")
	assert.Equal(t, []domain.Run{{Text: "new", Style: plain}, {Text: "", Style: bold}}, merged)

	assert.Empty(t, FirstRunWins{}.MergeRuns(nil, "x"))
}

func TestCellText(t *testing.T) {
	cell := &domain.Cell{Paragraphs: []*domain.TextBlock{block(run("第一行", plain)), block(run("第二", plain), run("行", bold))}}
	assert.Equal(t, "第一行\n第二行", CellText(cell))
	assert.Equal(t, "", CellText(nil))
}
