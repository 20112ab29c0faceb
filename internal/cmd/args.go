package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/allanpk716/docx_filler/internal/config"
)

// RunArgs run 命令的参数，设置过的参数覆盖配置文件
type RunArgs struct {
	ConfigFile string
	Project    string
	Template   string
	Data       string
	Sheet      string
	RulesFile  string
	Scope      string
	StartRow   int
	EndRow     int
	NameColumn string
	Prefix     string
	Suffix     string
	Expression string
	OutputDir  string
	Archive    bool
	Workers    int
}

// bindFlags 注册 run 命令的参数
func (a *RunArgs) bindFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&a.ConfigFile, "config", "c", "", "配置文件路径（JSON 或 YAML）")
	flags.StringVar(&a.Project, "project", "", "项目名称")
	flags.StringVarP(&a.Template, "template", "t", "", "DOCX 模板路径")
	flags.StringVarP(&a.Data, "data", "d", "", "数据文件路径（.xlsx/.csv）")
	flags.StringVar(&a.Sheet, "sheet", "", "工作表名称，默认第一个")
	flags.StringVarP(&a.RulesFile, "rules", "r", "", "规则文件路径（JSON 或 YAML）")
	flags.StringVar(&a.Scope, "scope", "", "替换范围: full_keyword | bracket_content_only")
	flags.IntVar(&a.StartRow, "start", 0, "起始行（从 1 开始）")
	flags.IntVar(&a.EndRow, "end", 0, "结束行（0 表示最后一行）")
	flags.StringVar(&a.NameColumn, "name-column", "", "用于文件名的数据列")
	flags.StringVar(&a.Prefix, "prefix", "", "文件名前缀")
	flags.StringVar(&a.Suffix, "suffix", "", "文件名后缀")
	flags.StringVar(&a.Expression, "name-expr", "", "文件名表达式")
	flags.StringVarP(&a.OutputDir, "output", "o", "", "输出目录")
	flags.BoolVar(&a.Archive, "archive", false, "打包为一个 ZIP 文件")
	flags.IntVarP(&a.Workers, "workers", "w", 0, "并行处理的行数（0 表示 CPU 数）")
}

// BuildConfig 读取配置文件（可选）并用命令行参数覆盖，最后校验
func (a *RunArgs) BuildConfig(cmd *cobra.Command, manager config.ConfigManager) (*config.Config, error) {
	cfg := config.Default()
	if a.ConfigFile != "" {
		loaded, err := manager.LoadConfig(a.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("加载配置文件失败: %w", err)
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	setString := func(name string, dst *string, value string) {
		if changed(name) {
			*dst = value
		}
	}
	setString("project", &cfg.ProjectName, a.Project)
	setString("template", &cfg.Template, a.Template)
	setString("data", &cfg.Data, a.Data)
	setString("sheet", &cfg.Sheet, a.Sheet)
	setString("rules", &cfg.RulesFile, a.RulesFile)
	setString("scope", &cfg.Scope, a.Scope)
	setString("name-column", &cfg.Naming.Column, a.NameColumn)
	setString("prefix", &cfg.Naming.Prefix, a.Prefix)
	setString("suffix", &cfg.Naming.Suffix, a.Suffix)
	setString("name-expr", &cfg.Naming.Expression, a.Expression)
	setString("output", &cfg.Output.Dir, a.OutputDir)
	if changed("start") {
		cfg.StartRow = a.StartRow
	}
	if changed("end") {
		cfg.EndRow = a.EndRow
	}
	if changed("archive") {
		cfg.Output.Archive = a.Archive
	}
	if changed("workers") {
		cfg.Workers = a.Workers
	}

	// 没有配置文件时用模板文件名作为项目名称
	if cfg.ProjectName == "" && cfg.Template != "" {
		cfg.ProjectName = cfg.Template
	}

	if err := manager.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}
	return cfg, nil
}
