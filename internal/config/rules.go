package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/allanpk716/docx_filler/internal/domain"
)

// Format 规则/配置文件格式
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

func (f Format) String() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "json"
}

// FormatFromPath 按扩展名判断格式
func FormatFromPath(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return FormatJSON, fmt.Errorf("%w: 文件必须是 JSON 或 YAML 格式，当前文件: %s", domain.ErrInvalidConfig, ext)
	}
}

// ruleRecord 交换格式中的一条规则。excel_column 是旧版导出文件使用的字段名
type ruleRecord struct {
	Keyword     string `json:"keyword" yaml:"keyword"`
	SourceField string `json:"source_field,omitempty" yaml:"source_field,omitempty"`
	ExcelColumn string `json:"excel_column,omitempty" yaml:"excel_column,omitempty"`
}

// MigrationHandler 把旧版记录迁移为当前格式
type MigrationHandler func(*ruleRecord)

// 按顺序执行的迁移
var migrationHandlers = []MigrationHandler{
	migrateExcelColumn,
}

// migrateExcelColumn excel_column -> source_field
func migrateExcelColumn(rec *ruleRecord) {
	if rec.SourceField == "" && rec.ExcelColumn != "" {
		rec.SourceField = rec.ExcelColumn
	}
	rec.ExcelColumn = ""
}

// ImportRules 读取规则列表，迁移旧字段，去除重复项并保持顺序
func ImportRules(r io.Reader, format Format) (domain.RuleSet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("读取规则失败: %w", err)
	}

	var records []ruleRecord
	if len(bytes.TrimSpace(data)) > 0 {
		switch format {
		case FormatYAML:
			err = yaml.Unmarshal(data, &records)
		default:
			err = json.Unmarshal(data, &records)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: 解析规则失败: %v", domain.ErrInvalidConfig, err)
		}
	}

	rules := make([]domain.ReplacementRule, 0, len(records))
	for i := range records {
		rec := &records[i]
		for _, migrate := range migrationHandlers {
			migrate(rec)
		}
		if strings.TrimSpace(rec.Keyword) == "" || strings.TrimSpace(rec.SourceField) == "" {
			return nil, fmt.Errorf("%w: 第 %d 条规则缺少 keyword 或 source_field", domain.ErrInvalidConfig, i+1)
		}
		rules = append(rules, domain.ReplacementRule{Keyword: rec.Keyword, SourceField: rec.SourceField})
	}

	return domain.Dedup(rules), nil
}

// ExportRules 写出规则列表。JSON 带缩进且保留中文原文
func ExportRules(w io.Writer, rules []domain.ReplacementRule, format Format) error {
	if rules == nil {
		rules = []domain.ReplacementRule{}
	}

	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rules); err != nil {
			return fmt.Errorf("序列化规则失败: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(rules); err != nil {
			return fmt.Errorf("序列化规则失败: %w", err)
		}
		return nil
	}
}

// LoadRulesFile 从文件导入规则
func LoadRulesFile(path string) (domain.RuleSet, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开规则文件失败: %w", err)
	}
	defer f.Close()

	return ImportRules(f, format)
}

// SaveRulesFile 导出规则到文件，目标文件已存在时先创建备份
func SaveRulesFile(path string, rules []domain.ReplacementRule) (backup string, err error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := ExportRules(&buf, rules, format); err != nil {
		return "", err
	}

	backup, err = createBackup(path)
	if err != nil {
		return "", err
	}

	// 确保目录存在
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("创建目录失败: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("写入规则文件失败: %w", err)
	}
	return backup, nil
}

// createBackup 创建文件备份，文件不存在时返回空路径
func createBackup(filePath string) (string, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return "", nil
	}

	dir := filepath.Dir(filePath)
	base := filepath.Base(filePath)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	timestamp := time.Now().Format("20060102_150405")
	backupPath := filepath.Join(dir, fmt.Sprintf("%s_backup_%s%s", name, timestamp, ext))

	src, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("读取原文件失败: %w", err)
	}
	if err := os.WriteFile(backupPath, src, 0644); err != nil {
		return "", fmt.Errorf("写入备份文件失败: %w", err)
	}
	return backupPath, nil
}
