package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExcelExporter renders Dataset records into a styled xlsx workbook.
type ExcelExporter struct{}

// NewExcelExporter builds an Excel exporter.
func NewExcelExporter() *ExcelExporter {
	return &ExcelExporter{}
}

// Render produces a single-sheet workbook with a merged title row, a styled
// header row and one row per dataset record.
func (e *ExcelExporter) Render(data Dataset, title, subtitle string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one header")
	}

	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck
	const sheet = "Report"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	lastCol, err := excelize.ColumnNumberToName(len(data.Headers))
	if err != nil {
		return nil, fmt.Errorf("resolve last column: %w", err)
	}

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("title style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4F81BD"}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorder(),
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	cellStyle, err := f.NewStyle(&excelize.Style{Border: thinBorder()})
	if err != nil {
		return nil, fmt.Errorf("cell style: %w", err)
	}

	if title != "" {
		if err := f.MergeCell(sheet, "A1", lastCol+"1"); err != nil {
			return nil, fmt.Errorf("merge title: %w", err)
		}
		_ = f.SetCellValue(sheet, "A1", title)
		_ = f.SetCellStyle(sheet, "A1", lastCol+"1", titleStyle)
	}
	if subtitle != "" {
		if err := f.MergeCell(sheet, "A2", lastCol+"2"); err != nil {
			return nil, fmt.Errorf("merge subtitle: %w", err)
		}
		_ = f.SetCellValue(sheet, "A2", subtitle)
	}

	const headerRow = 4
	for i, header := range data.Headers {
		cell, err := excelize.CoordinatesToCellName(i+1, headerRow)
		if err != nil {
			return nil, fmt.Errorf("header cell: %w", err)
		}
		_ = f.SetCellValue(sheet, cell, header)
	}
	_ = f.SetCellStyle(sheet, "A4", lastCol+"4", headerStyle)

	for r, row := range data.Rows {
		for c, header := range data.Headers {
			cell, err := excelize.CoordinatesToCellName(c+1, headerRow+1+r)
			if err != nil {
				return nil, fmt.Errorf("data cell: %w", err)
			}
			_ = f.SetCellValue(sheet, cell, row[header])
		}
	}
	if len(data.Rows) > 0 {
		lastRow := fmt.Sprintf("%s%d", lastCol, headerRow+len(data.Rows))
		_ = f.SetCellStyle(sheet, "A5", lastRow, cellStyle)
	}

	_ = f.SetColWidth(sheet, "A", "A", 6)
	_ = f.SetColWidth(sheet, "B", "B", 35)
	if len(data.Headers) > 2 {
		third, _ := excelize.ColumnNumberToName(3)
		_ = f.SetColWidth(sheet, third, lastCol, 15)
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func thinBorder() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Style: 1, Color: "000000"},
		{Type: "right", Style: 1, Color: "000000"},
		{Type: "top", Style: 1, Color: "000000"},
		{Type: "bottom", Style: 1, Color: "000000"},
	}
}
