// Package testutil 测试用的 DOCX/XLSX 构造工具
package testutil

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/xuri/excelize/v2"
)

const documentHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`

const documentFooter = `</w:body></w:document>`

// BuildDocx 生成只包含正文的最小 DOCX，body 为 <w:body> 内的 XML
func BuildDocx(t testing.TB, body string) []byte {
	t.Helper()

	files := []struct {
		name    string
		content string
	}{
		{"[Content_Types].xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`},
		{"_rels/.rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`},
		{"word/_rels/document.xml.rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`},
		{"word/document.xml", documentHeader + body + documentFooter},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f.name)
		if err != nil {
			t.Fatalf("创建 %s 失败: %v", f.name, err)
		}
		if _, err := w.Write([]byte(f.content)); err != nil {
			t.Fatalf("写入 %s 失败: %v", f.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("关闭ZIP失败: %v", err)
	}
	return buf.Bytes()
}

// Para 生成一个段落，每个参数为一个 Run 的文本
func Para(runs ...string) string {
	out := "<w:p>"
	for _, r := range runs {
		out += "<w:r><w:t>" + r + "</w:t></w:r>"
	}
	return out + "</w:p>"
}

// BoldRun 生成一个加粗的 Run
func BoldRun(text string) string {
	return "<w:r><w:rPr><w:b/></w:rPr><w:t>" + text + "</w:t></w:r>"
}

// PlainRun 生成一个无格式的 Run
func PlainRun(text string) string {
	return "<w:r><w:t>" + text + "</w:t></w:r>"
}

// Table 生成一个表格，cells 按行给出单元格文本
func Table(cells [][]string) string {
	out := "<w:tbl>"
	for _, row := range cells {
		out += "<w:tr>"
		for _, c := range row {
			out += "<w:tc>" + Para(c) + "</w:tc>"
		}
		out += "</w:tr>"
	}
	return out + "</w:tbl>"
}

// DocumentXML 读取 DOCX 中的 word/document.xml
func DocumentXML(t testing.TB, data []byte) string {
	t.Helper()
	return ZipEntry(t, data, "word/document.xml")
}

// ZipEntry 读取 ZIP 中指定文件的内容
func ZipEntry(t testing.TB, data []byte, name string) string {
	t.Helper()

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("打开ZIP失败: %v", err)
	}
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("打开 %s 失败: %v", name, err)
		}
		defer rc.Close()
		content, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("读取 %s 失败: %v", name, err)
		}
		return string(content)
	}
	t.Fatalf("未找到 %s", name)
	return ""
}

// BuildXLSX 生成单工作表的 XLSX，第一行为表头
func BuildXLSX(t testing.TB, sheet string, rows [][]interface{}) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			t.Fatalf("重命名工作表失败: %v", err)
		}
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("计算单元格失败: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("写入第 %d 行失败: %v", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("保存XLSX失败: %v", err)
	}
	return buf.Bytes()
}

// ZipNames 返回 ZIP 中的文件名，保持条目顺序
func ZipNames(t testing.TB, data []byte) []string {
	t.Helper()

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("打开ZIP失败: %v", err)
	}
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}
