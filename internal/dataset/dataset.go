package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/allanpk716/docx_filler/internal/domain"
)

// Dataset 表格数据：列名与按顺序排列的数据行，所有值均为文本
type Dataset struct {
	Sheet   string
	Columns []string
	Rows    []domain.DataRow
}

// Len 数据行数（不含表头）
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Load 按扩展名读取数据文件（.xlsx/.xlsm 或 .csv）
func Load(path, sheet string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: 读取数据文件失败: %v", domain.ErrDataset, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSV(data)
	case ".xlsx", ".xlsm":
		return LoadXLSX(data, sheet)
	default:
		return nil, fmt.Errorf("%w: 不支持的数据文件类型: %s", domain.ErrDataset, filepath.Ext(path))
	}
}

// LoadXLSX 读取工作簿，sheet 为空时使用第一个工作表。
// 单元格一律按原始文本读取，不做数字格式化。
func LoadXLSX(data []byte, sheet string) (*Dataset, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: 打开工作簿失败: %v", domain.ErrDataset, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: 工作簿中没有工作表", domain.ErrDataset)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: 读取工作表 %s 失败: %v", domain.ErrDataset, sheet, err)
	}

	ds, err := build(rows)
	if err != nil {
		return nil, err
	}
	ds.Sheet = sheet
	return ds, nil
}

// LoadCSV 读取 UTF-8 CSV，允许带 BOM
func LoadCSV(data []byte) (*Dataset, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: 解析CSV失败: %v", domain.ErrDataset, err)
		}
		rows = append(rows, record)
	}

	return build(rows)
}

func build(rows [][]string) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: 数据为空，缺少表头", domain.ErrDataset)
	}

	columns := headerNames(rows[0])
	ds := &Dataset{Columns: columns, Rows: make([]domain.DataRow, 0, len(rows)-1)}
	for _, raw := range rows[1:] {
		values := make([]string, len(columns))
		for i := range values {
			if i < len(raw) {
				values[i] = strings.TrimSpace(raw[i])
			}
		}
		ds.Rows = append(ds.Rows, domain.NewDataRow(columns, values))
	}
	return ds, nil
}

// headerNames 清理表头：空表头命名为 Unnamed: <i>，重复列名依次追加 .1、.2
func headerNames(header []string) []string {
	// 去掉表头末尾的空单元格
	n := len(header)
	for n > 0 && strings.TrimSpace(header[n-1]) == "" {
		n--
	}

	names := make([]string, n)
	seen := make(map[string]int, n)
	for i := 0; i < n; i++ {
		name := strings.TrimSpace(header[i])
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if count, ok := seen[name]; ok {
			seen[name] = count + 1
			name = name + "." + strconv.Itoa(count+1)
		}
		seen[name] = 0
		names[i] = name
	}
	return names
}
