package domain

import "fmt"

// ScopeMode 替换范围，一次批处理内对所有规则统一生效
type ScopeMode int

const (
	// FullKeyword 替换完整关键词
	FullKeyword ScopeMode = iota
	// BracketContentOnly 仅替换括号内内容，保留括号本身
	BracketContentOnly
)

// String 返回配置文件中使用的名称
func (s ScopeMode) String() string {
	switch s {
	case BracketContentOnly:
		return "bracket_content_only"
	default:
		return "full_keyword"
	}
}

// ParseScopeMode 解析替换范围名称，空字符串视为 FullKeyword
func ParseScopeMode(name string) (ScopeMode, error) {
	switch name {
	case "", "full_keyword":
		return FullKeyword, nil
	case "bracket_content_only":
		return BracketContentOnly, nil
	default:
		return FullKeyword, fmt.Errorf("%w: 未知的替换范围 %q", ErrInvalidConfig, name)
	}
}

// ReplacementRule 替换规则：模板中的关键词 -> 数据列
type ReplacementRule struct {
	Keyword     string `json:"keyword" yaml:"keyword"`
	SourceField string `json:"source_field" yaml:"source_field"`
}

// Key 返回规则在统计表中的键
func (r ReplacementRule) Key() RuleKey {
	return RuleKey{Keyword: r.Keyword, SourceField: r.SourceField}
}

// RuleKey 用于匹配计数，(keyword, sourceField) 唯一
type RuleKey struct {
	Keyword     string
	SourceField string
}

// RuleSet 有序且不含重复项的规则列表
type RuleSet []ReplacementRule

// Contains 检查规则是否已存在
func (rs RuleSet) Contains(rule ReplacementRule) bool {
	for _, r := range rs {
		if r == rule {
			return true
		}
	}
	return false
}

// Add 追加规则，已存在时返回 false
func (rs *RuleSet) Add(rule ReplacementRule) bool {
	if rs.Contains(rule) {
		return false
	}
	*rs = append(*rs, rule)
	return true
}

// Remove 删除指定下标的规则
func (rs *RuleSet) Remove(index int) bool {
	if index < 0 || index >= len(*rs) {
		return false
	}
	*rs = append((*rs)[:index], (*rs)[index+1:]...)
	return true
}

// Clear 清空所有规则
func (rs *RuleSet) Clear() {
	*rs = (*rs)[:0]
}

// Dedup 去重并保持原有顺序
func Dedup(rules []ReplacementRule) RuleSet {
	out := make(RuleSet, 0, len(rules))
	for _, r := range rules {
		out.Add(r)
	}
	return out
}

// CompiledPattern 针对某一行数据计算出的查找/替换对，每行重新计算
type CompiledPattern struct {
	OriginalKeyword string
	SourceField     string
	SearchKey       string
	ReplacementText string
	// Value 数据列的原始取值，用于日志
	Value string
}

// Key 返回模式对应规则的键
func (p CompiledPattern) Key() RuleKey {
	return RuleKey{Keyword: p.OriginalKeyword, SourceField: p.SourceField}
}

// DataRow 一行数据：列名 -> 文本值，列顺序与数据集一致
type DataRow struct {
	Columns []string
	Values  []string
}

// NewDataRow 创建数据行，值的数量不足时补空字符串
func NewDataRow(columns, values []string) DataRow {
	vals := make([]string, len(columns))
	copy(vals, values)
	return DataRow{Columns: columns, Values: vals}
}

// Get 按列名取值
func (r DataRow) Get(column string) (string, bool) {
	for i, c := range r.Columns {
		if c == column {
			if i < len(r.Values) {
				return r.Values[i], true
			}
			return "", true
		}
	}
	return "", false
}

// Map 返回列名到值的映射
func (r DataRow) Map() map[string]string {
	m := make(map[string]string, len(r.Columns))
	for i, c := range r.Columns {
		if i < len(r.Values) {
			m[c] = r.Values[i]
		} else {
			m[c] = ""
		}
	}
	return m
}

// NamingConfig 输出文件命名配置
type NamingConfig struct {
	Column     string `json:"column,omitempty" yaml:"column,omitempty"`
	Prefix     string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Suffix     string `json:"suffix,omitempty" yaml:"suffix,omitempty"`
	Expression string `json:"expression,omitempty" yaml:"expression,omitempty"`
}

// OutputArtifact 单行数据生成的结果文件
type OutputArtifact struct {
	Filename       string
	Payload        []byte
	SourceRowIndex int
	Log            string
	Failed         bool
}
