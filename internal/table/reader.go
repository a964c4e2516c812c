package table

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrNoSheets is returned for a workbook without any worksheet.
var ErrNoSheets = errors.New("workbook has no worksheets")

// ReadFile loads the first worksheet of an .xlsx workbook. The first row is
// the header; blank header cells are named "Unnamed: <index>".
//
// Errors opening the file are returned as-is so callers can tell a missing
// file (fs.ErrNotExist) from an unparseable one.
func ReadFile(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}
	sheet := sheets[0]

	formatted, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	if len(formatted) == 0 {
		slog.Debug("worksheet is empty", "path", path, "sheet", sheet)
		return New(), nil
	}

	t := New(headerNames(formatted[0], rowWidth(formatted))...)
	for r := 1; r < len(formatted); r++ {
		row := make([]Cell, len(t.Columns))
		for c := 0; c < len(formatted[r]); c++ {
			rawVal := formatted[r][c]
			if r < len(raw) && c < len(raw[r]) {
				rawVal = raw[r][c]
			}
			cell, err := readCell(f, sheet, c+1, r+1, formatted[r][c], rawVal)
			if err != nil {
				return nil, err
			}
			row[c] = cell
		}
		t.Rows = append(t.Rows, row)
	}

	slog.Debug("worksheet read",
		"path", path,
		"sheet", sheet,
		"columns", len(t.Columns),
		"rows", t.Len(),
	)
	return t, nil
}

// rowWidth is the longest row length. GetRows drops trailing empty cells, so
// the header row alone undercounts columns whose header cell is blank.
func rowWidth(rows [][]string) int {
	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	return width
}

// headerNames trims header labels and names blank ones by position, padding
// the header out to width columns.
func headerNames(header []string, width int) []string {
	names := make([]string, max(width, len(header)))
	for i := range names {
		var h string
		if i < len(header) {
			h = strings.TrimSpace(header[i])
		}
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		names[i] = h
	}
	return names
}

// readCell converts one worksheet cell. col and row are 1-based.
func readCell(f *excelize.File, sheet string, col, row int, formatted, raw string) (Cell, error) {
	if formatted == "" && raw == "" {
		return Null, nil
	}

	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return Null, err
	}

	typ, err := f.GetCellType(sheet, ref)
	if err != nil {
		return Null, fmt.Errorf("cell %s: %w", ref, err)
	}

	switch typ {
	case excelize.CellTypeBool:
		return Bool(raw == "1" || strings.EqualFold(raw, "true")), nil
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		if _, err := strconv.ParseFloat(raw, 64); err != nil {
			return Text(formatted), nil
		}
		if isDateFormatted(f, sheet, ref) {
			return Text(formatted), nil
		}
		return Number(raw), nil
	default:
		return Text(formatted), nil
	}
}

// isDateFormatted reports whether the cell's number format renders a date or time.
func isDateFormatted(f *excelize.File, sheet, ref string) bool {
	styleID, err := f.GetCellStyle(sheet, ref)
	if err != nil || styleID == 0 {
		return false
	}
	style, err := f.GetStyle(styleID)
	if err != nil || style == nil {
		return false
	}
	if style.CustomNumFmt != nil {
		return customFormatIsDate(*style.CustomNumFmt)
	}
	switch {
	case style.NumFmt >= 14 && style.NumFmt <= 22,
		style.NumFmt >= 27 && style.NumFmt <= 36,
		style.NumFmt >= 45 && style.NumFmt <= 47,
		style.NumFmt >= 50 && style.NumFmt <= 58:
		return true
	}
	return false
}

// customFormatIsDate looks for date/time tokens outside quoted literals and
// bracketed sections.
func customFormatIsDate(format string) bool {
	inQuote, inBracket := false, false
	for _, r := range strings.ToLower(format) {
		switch {
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			inBracket = true
		case r == ']':
			inBracket = false
		case inBracket:
		case r == 'y' || r == 'd' || r == 'h' || r == 's':
			return true
		}
	}
	return false
}
