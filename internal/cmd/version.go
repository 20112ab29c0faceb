package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewVersionCommand 创建 version 命令
func NewVersionCommand(_ *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "显示版本信息",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s v%s\n", AppName, AppVersion)
		},
	}
}
