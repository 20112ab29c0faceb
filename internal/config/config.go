package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/allanpk716/docx_filler/internal/domain"
)

// OutputConfig 输出配置
type OutputConfig struct {
	Dir     string `json:"dir,omitempty" yaml:"dir,omitempty"`
	Archive bool   `json:"archive,omitempty" yaml:"archive,omitempty"`
}

// LogConfig 日志配置
type LogConfig struct {
	File    string `json:"file,omitempty" yaml:"file,omitempty"`
	Verbose bool   `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	JSON    bool   `json:"json,omitempty" yaml:"json,omitempty"`
}

// Config 表示一次批处理任务的配置文件
type Config struct {
	ProjectName string                   `json:"project_name" yaml:"project_name"`
	Template    string                   `json:"template" yaml:"template"`
	Data        string                   `json:"data" yaml:"data"`
	Sheet       string                   `json:"sheet,omitempty" yaml:"sheet,omitempty"`
	RulesFile   string                   `json:"rules_file,omitempty" yaml:"rules_file,omitempty"`
	Rules       []domain.ReplacementRule `json:"rules,omitempty" yaml:"rules,omitempty"`
	Scope       string                   `json:"scope,omitempty" yaml:"scope,omitempty"`
	StartRow    int                      `json:"start_row,omitempty" yaml:"start_row,omitempty"`
	EndRow      int                      `json:"end_row,omitempty" yaml:"end_row,omitempty"`
	Naming      domain.NamingConfig      `json:"naming,omitempty" yaml:"naming,omitempty"`
	Output      OutputConfig             `json:"output,omitempty" yaml:"output,omitempty"`
	Workers     int                      `json:"workers,omitempty" yaml:"workers,omitempty"`
	CacheTTL    string                   `json:"cache_ttl,omitempty" yaml:"cache_ttl,omitempty"`
	Log         LogConfig                `json:"log,omitempty" yaml:"log,omitempty"`
}

// ConfigManager 配置管理接口
type ConfigManager interface {
	LoadConfig(filePath string) (*Config, error)
	ValidateConfig(config *Config) error
	LoadRules(config *Config) (domain.RuleSet, error)
}

// configManager 配置管理器实现
type configManager struct{}

// NewConfigManager 创建新的配置管理器
func NewConfigManager() ConfigManager {
	return &configManager{}
}

// Default 返回填好默认值的空配置
func Default() *Config {
	cfg := &Config{}
	setDefaultValues(cfg)
	return cfg
}

// LoadConfig 从 JSON 或 YAML 文件加载配置。
// 文件中的相对路径按配置文件所在目录解析；命令行参数可能还要覆盖部分字段，所以这里不做校验。
func (cm *configManager) LoadConfig(filePath string) (*Config, error) {
	if filePath == "" {
		return nil, fmt.Errorf("%w: 配置文件路径不能为空", domain.ErrInvalidConfig)
	}

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: 配置文件不存在: %s", domain.ErrInvalidConfig, filePath)
	}

	format, err := FormatFromPath(filePath)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var config Config
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &config)
	default:
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: 解析配置文件失败: %v", domain.ErrInvalidConfig, err)
	}

	setDefaultValues(&config)
	config.resolvePaths(filepath.Dir(filePath))
	return &config, nil
}

// ValidateConfig 验证配置的有效性
func (cm *configManager) ValidateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("%w: 配置不能为空", domain.ErrInvalidConfig)
	}

	if config.ProjectName == "" {
		return fmt.Errorf("%w: 项目名称不能为空", domain.ErrInvalidConfig)
	}
	if config.Template == "" {
		return fmt.Errorf("%w: 模板文件不能为空", domain.ErrInvalidConfig)
	}
	if config.Data == "" {
		return fmt.Errorf("%w: 数据文件不能为空", domain.ErrInvalidConfig)
	}

	// 检查规则重复
	seen := make(map[domain.RuleKey]bool)
	for i, rule := range config.Rules {
		if strings.TrimSpace(rule.Keyword) == "" {
			return fmt.Errorf("%w: 第 %d 条规则的 keyword 不能为空", domain.ErrInvalidConfig, i+1)
		}
		if strings.TrimSpace(rule.SourceField) == "" {
			return fmt.Errorf("%w: 第 %d 条规则的 source_field 不能为空", domain.ErrInvalidConfig, i+1)
		}
		if seen[rule.Key()] {
			return fmt.Errorf("%w: 规则重复: %s -> %s", domain.ErrInvalidConfig, rule.Keyword, rule.SourceField)
		}
		seen[rule.Key()] = true
	}

	if _, err := domain.ParseScopeMode(config.Scope); err != nil {
		return err
	}
	if config.StartRow < 1 {
		return fmt.Errorf("%w: 起始行必须大于等于 1", domain.ErrInvalidConfig)
	}
	if config.EndRow != 0 && config.EndRow < config.StartRow {
		return fmt.Errorf("%w: 结束行 %d 小于起始行 %d", domain.ErrInvalidConfig, config.EndRow, config.StartRow)
	}
	if config.Workers < 0 {
		return fmt.Errorf("%w: workers 不能为负数", domain.ErrInvalidConfig)
	}
	if _, err := config.CacheDuration(); err != nil {
		return err
	}

	return nil
}

// LoadRules 合并规则文件与配置内联的规则，去重并保持顺序
func (cm *configManager) LoadRules(config *Config) (domain.RuleSet, error) {
	var rules []domain.ReplacementRule
	if config.RulesFile != "" {
		fileRules, err := LoadRulesFile(config.RulesFile)
		if err != nil {
			return nil, err
		}
		rules = append(rules, fileRules...)
	}
	rules = append(rules, config.Rules...)

	set := domain.Dedup(rules)
	if len(set) == 0 {
		return nil, fmt.Errorf("%w: 配置和规则文件中都没有替换规则", domain.ErrEmptyRules)
	}
	return set, nil
}

// ScopeMode 返回解析后的替换范围
func (c *Config) ScopeMode() domain.ScopeMode {
	mode, _ := domain.ParseScopeMode(c.Scope)
	return mode
}

// CacheDuration 解析 cache_ttl，为空时返回 0（使用默认值）
func (c *Config) CacheDuration() (time.Duration, error) {
	if c.CacheTTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil {
		return 0, fmt.Errorf("%w: cache_ttl 格式错误: %v", domain.ErrInvalidConfig, err)
	}
	return d, nil
}

// setDefaultValues 设置默认值
func setDefaultValues(config *Config) {
	if config.Scope == "" {
		config.Scope = domain.FullKeyword.String()
	}
	if config.StartRow == 0 {
		config.StartRow = 1
	}
	if config.Output.Dir == "" {
		config.Output.Dir = "output"
	}
}

func (c *Config) resolvePaths(baseDir string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}
	c.Template = resolve(c.Template)
	c.Data = resolve(c.Data)
	c.RulesFile = resolve(c.RulesFile)
	c.Output.Dir = resolve(c.Output.Dir)
	c.Log.File = resolve(c.Log.File)
}
