package export

import (
	"github.com/xuri/excelize/v2"

	"github.com/matheus-rech/clinical-study-extraction/internal/review"
)

// Workbook sheet names
const (
	SheetMain  = "Main Data"
	SheetTrace = "Trace Data"
)

// Workbook renders the main and trace tables as two sheets of one XLSX file
func Workbook(schema *review.Schema, completed []review.ArticleProgress) ([]byte, error) {
	mainRows, err := MainRows(schema, completed)
	if err != nil {
		return nil, err
	}
	traceRows, err := TraceRows(completed)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetMain); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(SheetTrace); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#E0E0E0"}},
	})
	if err != nil {
		return nil, err
	}

	if err := writeSheet(f, SheetMain, MainHeader(schema), mainRows, headerStyle); err != nil {
		return nil, err
	}
	if err := writeSheet(f, SheetTrace, TraceHeader(), traceRows, headerStyle); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]string, style int) error {
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func setRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return f.SetSheetRow(sheet, cell, &out)
}
