package export

import (
	"bytes"
	"fmt"

	"geo-forecast/internal/domain"

	"github.com/xuri/excelize/v2"
)

const (
	RockGradeSheet = "设计围岩"
	GeologySheet   = "设计地质"
)

// RockGradeHeader 设计围岩导出表头
var RockGradeHeader = []string{
	"序号",
	"起始里程",
	"结束里程",
	"长度(m)",
	"围岩等级",
	"修改说明",
	"填写人",
	"创建时间",
}

// GeologyHeader 设计地质导出表头
var GeologyHeader = []string{
	"序号",
	"起始里程",
	"结束里程",
	"长度(m)",
	"预报方法",
	"风险等级",
}

var (
	rockGradeWidths = []float64{8, 16, 16, 10, 10, 30, 12, 20}
	geologyWidths   = []float64{8, 16, 16, 10, 16, 10}
)

// sheet 一个工作表的内容
type sheet struct {
	name    string
	headers []string
	widths  []float64
	rows    [][]any
}

// Workbook 生成设计围岩和设计地质两个工作表的 Excel 文件
// 记录为空时只生成表头
func Workbook(rockGrades []domain.RockGradeRecord, geology []domain.GeologyRecord) ([]byte, error) {
	rg := sheet{name: RockGradeSheet, headers: RockGradeHeader, widths: rockGradeWidths}
	for i, r := range rockGrades {
		rg.rows = append(rg.rows, []any{
			i + 1,
			r.Start,
			r.End,
			r.Mileage.Length,
			r.GradeLabel,
			r.Revise,
			r.Username,
			r.CreatedAt,
		})
	}

	geo := sheet{name: GeologySheet, headers: GeologyHeader, widths: geologyWidths}
	for i, r := range geology {
		geo.rows = append(geo.rows, []any{
			i + 1,
			r.Start,
			r.End,
			r.Mileage.Length,
			r.MethodLabel,
			r.SeverityLabel,
		})
	}

	return render([]sheet{rg, geo})
}

func render(sheets []sheet) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo 之前不能关闭

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for _, s := range sheets {
		if _, err := f.NewSheet(s.name); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create sheet %s: %w", s.name, err)
		}
		if err := writeSheet(f, s, headerStyle); err != nil {
			f.Close()
			return nil, err
		}
	}

	// 删除默认的 Sheet1
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	if index, err := f.GetSheetIndex(sheets[0].name); err == nil {
		f.SetActiveSheet(index)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, s sheet, headerStyle int) error {
	for col, header := range s.headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(s.name, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(s.name, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
	}

	for i, w := range s.widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(s.name, col, col, w); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for rowIdx, values := range s.rows {
		row := rowIdx + 2 // 第1行是表头
		for colIdx, v := range values {
			if v == nil || v == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(colIdx+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(s.name, cell, v); err != nil {
				return fmt.Errorf("failed to set cell value at row %d, col %d: %w", row, colIdx+1, err)
			}
		}
	}

	// 冻结表头
	if err := f.SetPanes(s.name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze panes: %w", err)
	}
	return nil
}
