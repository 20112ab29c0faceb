package processor

import (
	"fmt"

	"github.com/allanpk716/docx_filler/internal/domain"
)

// mutateTables 依次处理每个表格的每个单元格中的段落
func (m *Mutator) mutateTables(tables []*domain.Table, patterns []domain.CompiledPattern, counts map[domain.RuleKey]int) error {
	for ti, table := range tables {
		if table == nil {
			continue
		}
		for ri, row := range table.Rows {
			for ci, cell := range row {
				if cell == nil {
					continue
				}
				for _, block := range cell.Paragraphs {
					if err := m.mutateBlock(block, patterns, counts); err != nil {
						return fmt.Errorf("处理表格 %d 第 %d 行第 %d 列失败: %w", ti+1, ri+1, ci+1, err)
					}
				}
			}
		}
	}
	return nil
}

// CellText 返回单元格中所有段落的文本，按换行拼接
func CellText(cell *domain.Cell) string {
	if cell == nil {
		return ""
	}
	var text string
	for i, block := range cell.Paragraphs {
		if i > 0 {
			text += "\n"
		}
		text += block.Text()
	}
	return text
}
