package table

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"unicode/utf16"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet written by WriteFile.
const SheetName = "Sheet1"

// ErrCellTooLong is returned for a text value longer than a worksheet cell
// can hold. excelize would otherwise truncate it silently.
var ErrCellTooLong = errors.New("cell text exceeds the worksheet limit")

// WriteFile writes the table to path as a single-sheet workbook with a bold
// header row, replacing any existing file.
func WriteFile(t *Table, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if len(t.Columns) > 0 {
		if err := writeHeader(f, t.Columns); err != nil {
			return err
		}
	}

	for r, row := range t.Rows {
		for c, cell := range row {
			if cell.IsNull() {
				continue
			}
			ref, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := writeCell(f, ref, cell); err != nil {
				return fmt.Errorf("write %s: %w", ref, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return err
	}

	slog.Debug("workbook written", "path", path, "columns", len(t.Columns), "rows", t.Len())
	return nil
}

func writeHeader(f *excelize.File, columns []string) error {
	style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	for i, name := range columns {
		ref, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(SheetName, ref, name); err != nil {
			return err
		}
	}

	last, err := excelize.CoordinatesToCellName(len(columns), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(SheetName, "A1", last, style)
}

func writeCell(f *excelize.File, ref string, cell Cell) error {
	if n := utf16Len(cell.Value); n > excelize.TotalCellChars {
		return fmt.Errorf("%w: %d characters, limit %d", ErrCellTooLong, n, excelize.TotalCellChars)
	}

	switch cell.Kind {
	case KindNumber:
		if n, err := strconv.ParseFloat(cell.Value, 64); err == nil {
			return f.SetCellValue(SheetName, ref, n)
		}
		return f.SetCellStr(SheetName, ref, cell.Value)
	case KindBool:
		return f.SetCellBool(SheetName, ref, cell.Value == "TRUE")
	default:
		return f.SetCellStr(SheetName, ref, cell.Value)
	}
}

// utf16Len counts UTF-16 code units, the unit the cell limit is measured in.
func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
