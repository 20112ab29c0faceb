package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/allanpk716/docx_filler/internal/config"
)

// NewRulesCommand 创建 rules 命令组
func NewRulesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "管理替换规则文件",
	}
	cmd.AddCommand(newRulesConvertCommand(rootOpts))
	return cmd
}

func newRulesConvertCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <input> <output>",
		Short: "在 JSON 与 YAML 之间转换规则文件",
		Long: `读取规则文件（自动迁移旧版 excel_column 字段并去除重复规则），按输出文件扩展名写出。
输出文件已存在时会先创建备份。`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := rootOpts.Logger(config.LogConfig{})
			defer func() { _ = log.Sync() }()

			rules, err := config.LoadRulesFile(args[0])
			if err != nil {
				return fmt.Errorf("导入规则失败: %w", err)
			}

			backup, err := config.SaveRulesFile(args[1], rules)
			if err != nil {
				return fmt.Errorf("导出规则失败: %w", err)
			}
			if backup != "" {
				log.Info(module, "已备份原规则文件", map[string]interface{}{"backup": backup})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "已转换 %d 条规则: %s -> %s\n", len(rules), args[0], args[1])
			return nil
		},
	}
}
