package matcher

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Range 原始文本中的字节区间 [Start, End)
type Range struct {
	Start int
	End   int
}

// cleanIndex CleanText 的结果，以及结果中每个字节对应的原始文本区间
type cleanIndex struct {
	text  string
	spans []Range
}

// indexClean 按 CleanText 的规则规范化文本，同时记录每个输出字节来自原始文本的哪一段。
// NFKC 按最小的标准化边界分段处理，一段内的字符共享同一个区间；连续空白合并为一个空格，区间覆盖整串空白。
func indexClean(raw string) cleanIndex {
	var (
		buf     strings.Builder
		spans   []Range
		pending bool
		blank   Range
	)

	for start := 0; start < len(raw); {
		end := start + norm.NFKC.NextBoundaryInString(raw[start:], true)
		if end <= start {
			end = start + 1
		}
		seg := norm.NFKC.String(raw[start:end])

		for _, r := range seg {
			if isBlank(r) {
				if !pending {
					pending = true
					blank = Range{Start: start, End: end}
				} else {
					blank.End = end
				}
				continue
			}
			if pending {
				// 开头的空白直接丢弃
				if buf.Len() > 0 {
					buf.WriteByte(' ')
					spans = append(spans, blank)
				}
				pending = false
			}
			buf.WriteRune(r)
			for i := utf8.RuneLen(r); i > 0; i-- {
				spans = append(spans, Range{Start: start, End: end})
			}
		}
		start = end
	}

	return cleanIndex{text: buf.String(), spans: spans}
}

// Occurrences 在 CleanText(raw) 中查找 key（key 应已是 CleanText 的结果），
// 返回每处不重叠匹配在原始文本中对应的区间。
// 匹配的起止必须落在标准化分段的边界上，否则无法对应到原始文本，跳过。
func Occurrences(raw, key string) []Range {
	if raw == "" || key == "" {
		return nil
	}
	idx := indexClean(raw)

	var found []Range
	for from := 0; from < len(idx.text); {
		i := strings.Index(idx.text[from:], key)
		if i < 0 {
			break
		}
		start, end := from+i, from+i+len(key)
		if idx.aligned(start, end) {
			found = append(found, Range{Start: idx.spans[start].Start, End: idx.spans[end-1].End})
			from = end
		} else {
			from = start + 1
		}
	}
	return found
}

func (c cleanIndex) aligned(start, end int) bool {
	if start > 0 && c.spans[start-1] == c.spans[start] {
		return false
	}
	if end < len(c.spans) && c.spans[end] == c.spans[end-1] {
		return false
	}
	return true
}

// ReplaceAll 把 raw 中规范化后等于 key 的每一处替换为 replacement，返回新文本和替换次数。
// 匹配区间以外的原始文本保持不变。
func ReplaceAll(raw, key, replacement string) (string, int) {
	found := Occurrences(raw, key)
	if len(found) == 0 {
		return raw, 0
	}

	var b strings.Builder
	b.Grow(len(raw) + len(found)*len(replacement))
	last := 0
	for _, r := range found {
		b.WriteString(raw[last:r.Start])
		b.WriteString(replacement)
		last = r.End
	}
	b.WriteString(raw[last:])
	return b.String(), len(found)
}
