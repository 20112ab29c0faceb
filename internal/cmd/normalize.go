package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/allanpk716/docx_filler/internal/normalize"
)

// NewNormalizeCommand 创建 normalize 命令，用于查看数值修复的结果
func NewNormalizeCommand(_ *RootOptions) *cobra.Command {
	var column string

	cmd := &cobra.Command{
		Use:   "normalize <value>...",
		Short: "显示单元格文本经过数值精度修复后的结果",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, value := range args {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", value, normalize.Normalize(value, column))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&column, "column", "", "列名（用于识别合计列）")

	return cmd
}
