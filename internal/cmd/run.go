package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/allanpk716/docx_filler/internal/config"
)

const module = "cmd"

// NewRunCommand 创建 run 命令
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	args := &RunArgs{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "按数据行批量生成文档",
		Long: `读取配置文件（或命令行参数）中的模板、数据和替换规则，为每一行数据生成一份文档。
结果写入输出目录，汇总日志写入 batch_log.txt。按 Ctrl+C 会停止启动新的行，已开始的行会完成。`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBatch(cmd, rootOpts, args)
		},
	}
	args.bindFlags(cmd)

	return cmd
}

func runBatch(cmd *cobra.Command, rootOpts *RootOptions, args *RunArgs) error {
	manager := config.NewConfigManager()
	cfg, err := args.BuildConfig(cmd, manager)
	if err != nil {
		return err
	}

	log := rootOpts.Logger(cfg.Log)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	result, written, err := ExecuteBatch(ctx, cfg, manager, log)
	if err != nil {
		log.Error(module, "批处理失败", map[string]interface{}{"error": err})
		return err
	}

	w := cmd.OutOrStdout()
	for _, path := range written {
		fmt.Fprintf(w, "已写入: %s\n", path)
	}

	summary := color.New(color.FgGreen)
	if result.Failed > 0 || result.Skipped > 0 {
		summary = color.New(color.FgYellow)
	}
	summary.Fprintf(w, "%s\n", result.Summary())

	if rows := failedRows(result.Artifacts); len(rows) > 0 {
		color.New(color.FgRed).Fprintf(w, "失败的行: %v\n", rows)
	}
	return nil
}
