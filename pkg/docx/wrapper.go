package docx

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/nguyenthenguyen/docx"

	"github.com/allanpk716/docx_filler/internal/domain"
)

// Codec 基于内存的 DOCX 解析器，每次 Parse 返回独立的文档
type Codec struct{}

// NewCodec 创建解析器
func NewCodec() *Codec {
	return &Codec{}
}

// Parse 解析模板字节，返回可修改的文档
func (c *Codec) Parse(template []byte) (domain.Document, error) {
	dw, err := Open(template)
	if err != nil {
		return nil, err
	}
	return dw, nil
}

// DocxWrapper 包装 nguyenthenguyen/docx，持有 word/document.xml 及其段落树
type DocxWrapper struct {
	original []byte
	reader   *docx.ReplaceDocx
	editable *docx.Docx
	content  string
	tree     *domain.DocumentTree
	bindings []*runBinding
}

// Open 从内存打开DOCX文档
func Open(template []byte) (*DocxWrapper, error) {
	if len(template) == 0 {
		return nil, fmt.Errorf("%w: 模板内容为空", domain.ErrParse)
	}

	reader, err := docx.ReadDocxFromMemory(bytes.NewReader(template), int64(len(template)))
	if err != nil {
		return nil, fmt.Errorf("%w: 打开文档失败: %v", domain.ErrParse, err)
	}

	editable := reader.Editable()
	content := editable.GetContent()

	tree, bindings, err := scanDocument(content)
	if err != nil {
		reader.Close()
		return nil, fmt.Errorf("%w: 解析document.xml失败: %v", domain.ErrParse, err)
	}

	return &DocxWrapper{
		original: template,
		reader:   reader,
		editable: editable,
		content:  content,
		tree:     tree,
		bindings: bindings,
	}, nil
}

// Tree 返回段落/表格树，修改其中 Run 的文本会在 Bytes 中生效
func (dw *DocxWrapper) Tree() *domain.DocumentTree {
	return dw.tree
}

// IsModified 检查文档是否已修改
func (dw *DocxWrapper) IsModified() bool {
	for _, b := range dw.bindings {
		if b.run.Text != b.original {
			return true
		}
	}
	return false
}

// Bytes 序列化文档。没有修改时直接返回原始模板字节
func (dw *DocxWrapper) Bytes() ([]byte, error) {
	if !dw.IsModified() {
		out := make([]byte, len(dw.original))
		copy(out, dw.original)
		return out, nil
	}

	updated, _ := splice(dw.content, dw.bindings)

	dw.editable.SetContent(updated)

	var buf bytes.Buffer
	if err := dw.editable.Write(&buf); err != nil {
		return nil, fmt.Errorf("%w: 保存文档失败: %v", domain.ErrRowProcessing, err)
	}
	return buf.Bytes(), nil
}

// Close 关闭文档
func (dw *DocxWrapper) Close() error {
	if dw.reader != nil {
		return dw.reader.Close()
	}
	return nil
}

// ExtractText 提取模板中所有非空段落的文本（正文在前，表格在后），用于预览
func ExtractText(template []byte) (string, error) {
	dw, err := Open(template)
	if err != nil {
		return "", err
	}
	defer dw.Close()

	var lines []string
	for _, block := range dw.tree.Blocks() {
		if text := block.Text(); strings.TrimSpace(text) != "" {
			lines = append(lines, text)
		}
	}
	return strings.Join(lines, "\n"), nil
}
