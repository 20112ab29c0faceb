package docx

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/allanpk716/docx_filler/internal/domain"
)

// RunStyle Run 的格式，保存原始 <w:rPr> 片段，不做解释
type RunStyle struct {
	Properties string
}

// textSpan <w:t> 元素在 document.xml 中的字节区间
type textSpan struct {
	start int
	end   int
}

// runBinding 记录 Run 与 document.xml 中 <w:t> 元素的对应关系
type runBinding struct {
	run      *domain.Run
	original string
	spans    []textSpan
}

type runState struct {
	binding  *runBinding
	text     strings.Builder
	rPrStart int
}

// scanDocument 扫描 document.xml，建立段落/表格树。
// 只有包含 <w:t> 的 Run 才进入树；嵌套表格的段落归入外层单元格。
func scanDocument(content string) (*domain.DocumentTree, []*runBinding, error) {
	dec := xml.NewDecoder(strings.NewReader(content))

	tree := &domain.DocumentTree{}
	var (
		bindings   []*runBinding
		names      []string
		paras      []*domain.TextBlock
		runs       []*runState
		tableDepth int
		table      *domain.Table
		cell       *domain.Cell
		inText     bool
		textStart  int
		textBuf    strings.Builder
	)

	parent := func() string {
		if len(names) == 0 {
			return ""
		}
		return names[len(names)-1]
	}

	for {
		start := int(dec.InputOffset())
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		end := int(dec.InputOffset())

		switch t := tok.(type) {
		case xml.StartElement:
			name := qualified(t.Name)
			switch name {
			case "w:tbl":
				tableDepth++
				if tableDepth == 1 {
					table = &domain.Table{}
					tree.Tables = append(tree.Tables, table)
				}
			case "w:tr":
				if tableDepth == 1 {
					table.Rows = append(table.Rows, nil)
				}
			case "w:tc":
				if tableDepth == 1 {
					if len(table.Rows) == 0 {
						table.Rows = append(table.Rows, nil)
					}
					cell = &domain.Cell{}
					last := len(table.Rows) - 1
					table.Rows[last] = append(table.Rows[last], cell)
				}
			case "w:p":
				block := &domain.TextBlock{}
				paras = append(paras, block)
				if tableDepth > 0 && cell != nil {
					cell.Paragraphs = append(cell.Paragraphs, block)
				} else {
					tree.Paragraphs = append(tree.Paragraphs, block)
				}
			case "w:r":
				runs = append(runs, &runState{
					binding:  &runBinding{run: &domain.Run{Style: RunStyle{}}},
					rPrStart: -1,
				})
			case "w:rPr":
				if parent() == "w:r" && len(runs) > 0 {
					runs[len(runs)-1].rPrStart = start
				}
			case "w:t":
				if parent() == "w:r" && len(runs) > 0 {
					inText = true
					textStart = start
					textBuf.Reset()
				}
			}
			names = append(names, name)

		case xml.EndElement:
			name := qualified(t.Name)
			if len(names) == 0 || names[len(names)-1] != name {
				return nil, nil, fmt.Errorf("元素不匹配: </%s>", name)
			}
			names = names[:len(names)-1]

			switch name {
			case "w:t":
				if inText {
					rs := runs[len(runs)-1]
					rs.binding.spans = append(rs.binding.spans, textSpan{start: textStart, end: end})
					rs.text.WriteString(textBuf.String())
					inText = false
				}
			case "w:rPr":
				if parent() == "w:r" && len(runs) > 0 {
					rs := runs[len(runs)-1]
					if rs.rPrStart >= 0 {
						rs.binding.run.Style = RunStyle{Properties: content[rs.rPrStart:end]}
					}
				}
			case "w:r":
				if len(runs) == 0 {
					break
				}
				rs := runs[len(runs)-1]
				runs = runs[:len(runs)-1]
				if len(rs.binding.spans) == 0 || len(paras) == 0 {
					break
				}
				text := rs.text.String()
				rs.binding.run.Text = text
				rs.binding.original = text
				block := paras[len(paras)-1]
				block.Runs = append(block.Runs, rs.binding.run)
				bindings = append(bindings, rs.binding)
			case "w:p":
				if len(paras) > 0 {
					paras = paras[:len(paras)-1]
				}
			case "w:tc":
				if tableDepth == 1 {
					cell = nil
				}
			case "w:tbl":
				tableDepth--
				if tableDepth == 0 {
					table = nil
					cell = nil
				}
			}

		case xml.CharData:
			if inText {
				textBuf.Write(t)
			}
		}
	}

	if len(names) != 0 {
		return nil, nil, fmt.Errorf("元素未闭合: <%s>", names[len(names)-1])
	}
	return tree, bindings, nil
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

type edit struct {
	start       int
	end         int
	replacement string
}

// splice 将修改过的 Run 写回 document.xml：第一个 <w:t> 承载全部文本，其余 <w:t> 删除。
// 没有任何修改时返回原内容和 false。
func splice(content string, bindings []*runBinding) (string, bool) {
	var edits []edit
	for _, b := range bindings {
		if b.run.Text == b.original {
			continue
		}
		for i, span := range b.spans {
			replacement := ""
			if i == 0 {
				replacement = textElement(b.run.Text)
			}
			edits = append(edits, edit{start: span.start, end: span.end, replacement: replacement})
		}
	}
	if len(edits) == 0 {
		return content, false
	}

	sort.Slice(edits, func(i, j int) bool {
		return edits[i].start < edits[j].start
	})

	var buf strings.Builder
	buf.Grow(len(content))
	pos := 0
	for _, e := range edits {
		buf.WriteString(content[pos:e.start])
		buf.WriteString(e.replacement)
		pos = e.end
	}
	buf.WriteString(content[pos:])
	return buf.String(), true
}

func textElement(text string) string {
	var buf strings.Builder
	buf.WriteString(`<w:t xml:space="preserve">`)
	_ = xml.EscapeText(&buf, []byte(text))
	buf.WriteString(`</w:t>`)
	return buf.String()
}
