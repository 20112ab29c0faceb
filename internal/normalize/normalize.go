// Package normalize 修复数值单元格转为文本时引入的浮点精度问题，
// 例如 0.48729999999999996 -> 0.4873。
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

var (
	integerPattern = regexp.MustCompile(`^[-+]?\d+$`)
	numberPattern  = regexp.MustCompile(`^[-+]?(\d+(\.\d+)?|\.\d+)$`)

	// 合计列名中的关键字，大小写不敏感
	aggregateTokens = []string{"合计", "总计", "total", "sum"}

	// 精度问题的特征：连续 6 个 9 或 0
	artifactRuns = []string{"999999", "000000"}

	tolerance = apd.New(1, -9)
)

// Normalize 返回修复后的文本。column 为空表示未知列名。
// 任何解析失败都退回到原始输入，不会返回错误。
func Normalize(value, column string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if integerPattern.MatchString(trimmed) {
		return trimmed
	}
	if !numberPattern.MatchString(trimmed) {
		return value
	}

	out, err := normalizeDecimal(trimmed, column)
	if err != nil {
		return fallback(trimmed, value)
	}
	return out
}

// NormalizeRow 按列名逐个修复一行的值
func NormalizeRow(columns, values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		column := ""
		if i < len(columns) {
			column = columns[i]
		}
		out[i] = Normalize(v, column)
	}
	return out
}

// IsAggregateColumn 判断列名是否表示合计/总和
func IsAggregateColumn(column string) bool {
	if column == "" {
		return false
	}
	lower := strings.ToLower(column)
	for _, token := range aggregateTokens {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

func normalizeDecimal(s, column string) (string, error) {
	ctx := newContext()

	exact, _, err := apd.NewFromString(s)
	if err != nil {
		return "", err
	}

	var whole apd.Decimal
	if _, err := ctx.Quantize(&whole, exact, 0); err != nil {
		return "", err
	}
	if whole.Cmp(exact) == 0 {
		return integerText(&whole), nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "", err
	}
	floatStr := floatText(f)

	if IsAggregateColumn(column) {
		for places := 2; places <= 6; places++ {
			q, err := quantize(ctx, exact, places)
			if err != nil {
				return "", err
			}
			ok, err := within(ctx, q, exact)
			if err != nil {
				return "", err
			}
			if ok {
				return trimFraction(q.Text('f')), nil
			}
		}
	}

	if artifactIndex(floatStr) < 0 {
		return s, nil
	}

	if places := significantPlaces(s); places > 0 {
		q, err := quantize(ctx, exact, places)
		if err != nil {
			return "", err
		}
		return trimFraction(q.Text('f')), nil
	}

	for places := 1; places <= 9; places++ {
		formatted := strconv.FormatFloat(f, 'f', places, 64)
		back, err := strconv.ParseFloat(formatted, 64)
		if err != nil {
			continue
		}
		if math.Abs(back-f) < 1e-9 {
			return trimFraction(formatted), nil
		}
	}
	return s, nil
}

func fallback(trimmed, original string) string {
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return original
	}
	return trimFraction(strconv.FormatFloat(f, 'f', 6, 64))
}

func newContext() *apd.Context {
	ctx := apd.BaseContext.WithPrecision(64)
	ctx.Rounding = apd.RoundHalfUp
	return ctx
}

func quantize(ctx *apd.Context, d *apd.Decimal, places int) (*apd.Decimal, error) {
	q := new(apd.Decimal)
	if _, err := ctx.Quantize(q, d, int32(-places)); err != nil {
		return nil, err
	}
	return q, nil
}

func within(ctx *apd.Context, a, b *apd.Decimal) (bool, error) {
	diff := new(apd.Decimal)
	if _, err := ctx.Sub(diff, a, b); err != nil {
		return false, err
	}
	diff.Abs(diff)
	return diff.Cmp(tolerance) < 0, nil
}

func integerText(d *apd.Decimal) string {
	if d.IsZero() {
		return "0"
	}
	return d.Text('f')
}

// floatText 按浮点数的最短往返形式输出，极大或极小值使用科学计数法
func floatText(f float64) string {
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// significantPlaces 计算原始输入的有效小数位数。
// 小数部分出现精度特征时只计到特征之前，否则去掉末尾的 0 后计数。
func significantPlaces(s string) int {
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return 0
	}
	frac := s[dot+1:]
	if i := artifactIndex(frac); i >= 0 {
		return i
	}
	return len(strings.TrimRight(frac, "0"))
}

func artifactIndex(s string) int {
	idx := -1
	for _, run := range artifactRuns {
		if i := strings.Index(s, run); i >= 0 && (idx < 0 || i < idx) {
			idx = i
		}
	}
	return idx
}

func trimFraction(s string) string {
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimRight(s, ".")
	}
	if s == "-0" || s == "" {
		return "0"
	}
	return s
}
