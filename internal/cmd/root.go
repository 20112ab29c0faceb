package cmd

import (
	"github.com/spf13/cobra"

	"github.com/allanpk716/docx_filler/internal/config"
	"github.com/allanpk716/docx_filler/internal/logger"
)

// 通过 -ldflags "-X" 覆盖
var (
	AppName    = "docx-filler"
	AppVersion = "1.0.0"
)

// RootOptions 所有子命令共享的全局参数
type RootOptions struct {
	Verbose bool
	LogFile string
	LogJSON bool
}

// NewRootCommand 创建根命令
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   AppName,
		Short: "用表格数据批量填充 Word 模板",
		Long: `docx-filler 读取一个 DOCX 模板和一份 Excel/CSV 数据，
按替换规则为每一行数据生成一份文档，保留模板原有格式。`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "详细输出")
	cmd.PersistentFlags().StringVar(&opts.LogFile, "log-file", "", "日志文件路径")
	cmd.PersistentFlags().BoolVar(&opts.LogJSON, "log-json", false, "控制台日志使用 JSON 格式")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewRulesCommand(opts))
	cmd.AddCommand(NewNormalizeCommand(opts))
	cmd.AddCommand(NewPreviewCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))

	return cmd
}

// Logger 按全局参数创建日志器，命令行参数优先于配置文件
func (o *RootOptions) Logger(cfg config.LogConfig) *logger.ZapLogger {
	opts := logger.Options{
		File:    cfg.File,
		Verbose: cfg.Verbose || o.Verbose,
		JSON:    cfg.JSON || o.LogJSON,
	}
	if o.LogFile != "" {
		opts.File = o.LogFile
	}
	return logger.NewZapLogger(opts)
}
