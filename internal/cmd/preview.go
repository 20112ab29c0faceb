package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/allanpk716/docx_filler/internal/config"
	"github.com/allanpk716/docx_filler/internal/domain"
	"github.com/allanpk716/docx_filler/internal/matcher"
	"github.com/allanpk716/docx_filler/internal/processor"
	"github.com/allanpk716/docx_filler/pkg/docx"
)

// NewPreviewCommand 创建 preview 命令：显示模板文本，并统计每条规则在模板中命中的段落数
func NewPreviewCommand(_ *RootOptions) *cobra.Command {
	var (
		rulesFile  string
		showTables bool
	)

	cmd := &cobra.Command{
		Use:   "preview <template>",
		Short: "预览模板文本与规则命中情况",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			template, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("读取模板文件失败: %w", err)
			}

			text, err := docx.ExtractText(template)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, text)

			if showTables {
				fmt.Fprintln(w)
				if err := printTables(w, template); err != nil {
					return err
				}
			}

			if rulesFile == "" {
				return nil
			}

			rules, err := config.LoadRulesFile(rulesFile)
			if err != nil {
				return err
			}
			counts, err := scanRules(template, rules)
			if err != nil {
				return err
			}

			fmt.Fprintln(w)
			for _, rule := range rules {
				fmt.Fprintf(w, "%s (%s): %d\n", rule.Keyword, rule.SourceField, counts[rule.Key()])
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&rulesFile, "rules", "r", "", "规则文件路径")
	cmd.Flags().BoolVar(&showTables, "tables", false, "逐个单元格显示表格内容")

	return cmd
}

// scanRules 统计每条规则在模板中命中的段落数，不修改模板
func scanRules(template []byte, rules []domain.ReplacementRule) (map[domain.RuleKey]int, error) {
	doc, err := docx.Open(template)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	// 只需要搜索键，用规则引用的列构造一行空数据
	columns := make([]string, 0, len(rules))
	for _, r := range rules {
		columns = append(columns, r.SourceField)
	}
	patterns, err := matcher.Compile(rules, domain.NewDataRow(columns, nil), domain.FullKeyword)
	if err != nil {
		return nil, err
	}

	return processor.Scan(doc.Tree(), patterns), nil
}

// printTables 按 表格/行/列 输出每个单元格的文本
func printTables(w io.Writer, template []byte) error {
	doc, err := docx.Open(template)
	if err != nil {
		return err
	}
	defer doc.Close()

	for t, table := range doc.Tree().Tables {
		for r, row := range table.Rows {
			for c, cell := range row {
				fmt.Fprintf(w, "[表格 %d 行 %d 列 %d] %s\n", t+1, r+1, c+1, processor.CellText(cell))
			}
		}
	}
	return nil
}
