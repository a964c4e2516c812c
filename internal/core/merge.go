package core

import (
	"fmt"

	"github.com/JonMunkholm/flexgen/internal/configfiles"
	"github.com/JonMunkholm/flexgen/internal/table"
)

// Reference table schema.
const (
	JoinKey            = "DESCRIPTIVE_FLEXFIELD_NAME"
	EndUserColumnName  = "END_USER_COLUMN_NAME"
	FormLeftPrompt     = "FORM_LEFT_PROMPT"
	XMLProcessedColumn = "XML_PROCESSED"
)

// ReferenceColumns is the header of a synthesized empty reference table.
var ReferenceColumns = []string{JoinKey, EndUserColumnName, FormLeftPrompt}

// Suffixes applied to non-key columns present in both joined tables.
const (
	leftSuffix  = "_x"
	rightSuffix = "_y"
)

// Merge builds the result table: primary left-joined with reference on
// DESCRIPTIVE_FLEXFIELD_NAME (skipped when reference is empty), then one
// CONFIG_<name> column per config entry in name order, then XML_PROCESSED
// when xml is set. The inputs are not modified.
func Merge(primary *table.Table, configs configfiles.Map, reference *table.Table, xml bool) (*table.Table, error) {
	result := primary.Clone()

	if reference != nil && !reference.Empty() {
		joined, err := leftJoin(result, reference, JoinKey)
		if err != nil {
			return nil, err
		}
		result = joined
	}

	for _, name := range configs.Names() {
		result.SetColumn(configfiles.ColumnName(name), table.Text(configs[name]))
	}

	if xml {
		result.SetColumn(XMLProcessedColumn, table.Text("Yes"))
	}

	return result, nil
}

// leftJoin keeps every left row in order. A left row with n matching right
// rows is emitted n times (right order); with none it is emitted once with
// null right columns. Null keys never match.
func leftJoin(left, right *table.Table, key string) (*table.Table, error) {
	li := left.ColumnIndex(key)
	if li < 0 {
		return nil, fmt.Errorf("%w %q in primary table", ErrMissingJoinKey, key)
	}
	ri := right.ColumnIndex(key)
	if ri < 0 {
		return nil, fmt.Errorf("%w %q in reference table", ErrMissingJoinKey, key)
	}

	var rightCols []int
	for i := range right.Columns {
		if i != ri {
			rightCols = append(rightCols, i)
		}
	}

	columns := joinedColumns(left.Columns, right.Columns, li, rightCols)
	out := table.New(columns...)

	matches := make(map[table.Cell][]int, right.Len())
	for i, row := range right.Rows {
		if k := row[ri]; !k.IsNull() {
			matches[k] = append(matches[k], i)
		}
	}

	for _, row := range left.Rows {
		var hits []int
		if k := row[li]; !k.IsNull() {
			hits = matches[k]
		}

		if len(hits) == 0 {
			out.Rows = append(out.Rows, joinRow(row, nil, rightCols))
			continue
		}
		for _, h := range hits {
			out.Rows = append(out.Rows, joinRow(row, right.Rows[h], rightCols))
		}
	}

	return out, nil
}

// joinedColumns names the output columns, suffixing non-key names that
// appear on both sides.
func joinedColumns(left, right []string, keyIdx int, rightCols []int) []string {
	rightNames := make(map[string]bool, len(rightCols))
	for _, i := range rightCols {
		rightNames[right[i]] = true
	}
	leftNames := make(map[string]bool, len(left))
	for i, name := range left {
		if i != keyIdx {
			leftNames[name] = true
		}
	}

	columns := make([]string, 0, len(left)+len(rightCols))
	for i, name := range left {
		if i != keyIdx && rightNames[name] {
			name += leftSuffix
		}
		columns = append(columns, name)
	}
	for _, i := range rightCols {
		name := right[i]
		if leftNames[name] {
			name += rightSuffix
		}
		columns = append(columns, name)
	}
	return columns
}

func joinRow(left, right []table.Cell, rightCols []int) []table.Cell {
	row := make([]table.Cell, len(left), len(left)+len(rightCols))
	copy(row, left)
	for _, i := range rightCols {
		if right == nil {
			row = append(row, table.Null)
			continue
		}
		row = append(row, right[i])
	}
	return row
}
