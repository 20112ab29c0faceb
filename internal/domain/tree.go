package domain

// Run 段落中共享同一格式的最小文本片段。
// Style 由文档实现持有，引擎只做复制或丢弃。
type Run struct {
	Text  string
	Style interface{}
}

// TextBlock 段落，由有序的 Run 组成
type TextBlock struct {
	Runs []*Run
}

// Text 拼接所有 Run 的文本
func (b *TextBlock) Text() string {
	if len(b.Runs) == 1 {
		return b.Runs[0].Text
	}
	var n int
	for _, r := range b.Runs {
		n += len(r.Text)
	}
	buf := make([]byte, 0, n)
	for _, r := range b.Runs {
		buf = append(buf, r.Text...)
	}
	return string(buf)
}

// Cell 表格单元格
type Cell struct {
	Paragraphs []*TextBlock
}

// Table 表格：有序的行，每行为有序的单元格
type Table struct {
	Rows [][]*Cell
}

// DocumentTree 文档的段落/表格抽象
type DocumentTree struct {
	Paragraphs []*TextBlock
	Tables     []*Table
}

// Blocks 返回树中所有可达的段落：正文段落在前，随后是各表格单元格中的段落
func (t *DocumentTree) Blocks() []*TextBlock {
	blocks := make([]*TextBlock, 0, len(t.Paragraphs))
	blocks = append(blocks, t.Paragraphs...)
	for _, table := range t.Tables {
		for _, row := range table.Rows {
			for _, cell := range row {
				blocks = append(blocks, cell.Paragraphs...)
			}
		}
	}
	return blocks
}

// Document 一次解析得到的文档，可取出树并序列化回字节
type Document interface {
	Tree() *DocumentTree
	Bytes() ([]byte, error)
	Close() error
}

// DocumentCodec 模板字节到文档的解析器
type DocumentCodec interface {
	Parse(template []byte) (Document, error)
}

// MergePolicy 决定替换后的文本如何写回原有的 Run。
// 返回的切片长度必须与 original 相同。
type MergePolicy interface {
	MergeRuns(original []Run, newText string) []Run
}
