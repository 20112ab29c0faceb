package matcher

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/allanpk716/docx_filler/internal/domain"
)

// bracketPair 一组成对的括号
type bracketPair struct {
	Open  string
	Close string
}

// 检查顺序即优先级
var bracketPairs = []bracketPair{
	{Open: "【", Close: "】"},
	{Open: "（", Close: "）"},
	{Open: "(", Close: ")"},
	{Open: "〔", Close: "〕"},
}

// CleanText 清理文本：NFKC 标准化，特殊空格与不可见字符替换为空格，合并连续空白并去除首尾空白
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	text = norm.NFKC.String(text)
	return strings.Join(strings.FieldsFunc(text, isBlank), " ")
}

func isBlank(r rune) bool {
	if unicode.IsSpace(r) {
		return true
	}
	// U+2002..U+200B 各类定宽空格与零宽空格
	return r == '\u00a0' || (r >= '\u2002' && r <= '\u200b')
}

// Compile 根据规则和当前行数据生成查找/替换模式，保持规则顺序。
// 规则引用的列不存在时返回 ErrRule。
func Compile(rules []domain.ReplacementRule, row domain.DataRow, scope domain.ScopeMode) ([]domain.CompiledPattern, error) {
	patterns := make([]domain.CompiledPattern, 0, len(rules))

	for _, rule := range rules {
		value, ok := row.Get(rule.SourceField)
		if !ok {
			return nil, fmt.Errorf("%w: 数据列 %q 不存在（关键词 %s）", domain.ErrRule, rule.SourceField, rule.Keyword)
		}

		keyword := CleanText(rule.Keyword)
		pattern := domain.CompiledPattern{
			OriginalKeyword: rule.Keyword,
			SourceField:     rule.SourceField,
			SearchKey:       keyword,
			ReplacementText: value,
			Value:           value,
		}

		if scope == domain.BracketContentOnly {
			if pair, ok := MatchBracket(keyword); ok {
				pattern.ReplacementText = pair.Open + value + pair.Close
			}
		}

		patterns = append(patterns, pattern)
	}

	return patterns, nil
}

// MatchBracket 返回包裹关键词的括号对
func MatchBracket(keyword string) (bracketPair, bool) {
	for _, pair := range bracketPairs {
		if len(keyword) >= len(pair.Open)+len(pair.Close) &&
			strings.HasPrefix(keyword, pair.Open) && strings.HasSuffix(keyword, pair.Close) {
			return pair, true
		}
	}
	return bracketPair{}, false
}
