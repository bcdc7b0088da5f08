package sheets

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Range is a parsed A1 range. Rows are 1-based; a zero row bound means the
// range is open in that direction (as in "Kunder!A:I").
type Range struct {
	Sheet    string
	StartCol int
	EndCol   int
	StartRow int
	EndRow   int
}

// A1 builds a range string for sheet and cells, quoting the sheet name.
func A1(sheet, cells string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'!" + cells
}

// ParseRange parses "Sheet!A:I", "'Company Details'!A2:L2" or "Sheet!A1".
func ParseRange(a1 string) (Range, error) {
	idx := strings.LastIndex(a1, "!")
	if idx <= 0 {
		return Range{}, fmt.Errorf("%w: %q has no sheet name", ErrInvalidRange, a1)
	}

	sheet := a1[:idx]
	if len(sheet) >= 2 && strings.HasPrefix(sheet, "'") && strings.HasSuffix(sheet, "'") {
		sheet = strings.ReplaceAll(sheet[1:len(sheet)-1], "''", "'")
	}

	cells := a1[idx+1:]
	from, to, found := strings.Cut(cells, ":")
	if !found {
		to = from
	}

	r := Range{Sheet: sheet}
	var err error
	if r.StartCol, r.StartRow, err = parseCell(from); err != nil {
		return Range{}, fmt.Errorf("%w: %q: %v", ErrInvalidRange, a1, err)
	}
	if r.EndCol, r.EndRow, err = parseCell(to); err != nil {
		return Range{}, fmt.Errorf("%w: %q: %v", ErrInvalidRange, a1, err)
	}
	if r.EndCol < r.StartCol || (r.EndRow > 0 && r.EndRow < r.StartRow) {
		return Range{}, fmt.Errorf("%w: %q ends before it starts", ErrInvalidRange, a1)
	}
	return r, nil
}

// Width is the number of columns in the range.
func (r Range) Width() int {
	return r.EndCol - r.StartCol + 1
}

// FirstRow is the first row the range addresses.
func (r Range) FirstRow() int {
	if r.StartRow == 0 {
		return 1
	}
	return r.StartRow
}

// parseCell accepts "A", "A2" and returns column number and row (0 when absent).
func parseCell(cell string) (col, row int, err error) {
	cell = strings.TrimSpace(strings.ReplaceAll(cell, "$", ""))
	if cell == "" {
		return 0, 0, fmt.Errorf("empty cell reference")
	}
	if isLetters(cell) {
		col, err = excelize.ColumnNameToNumber(cell)
		return col, 0, err
	}
	name, row, err := excelize.SplitCellName(cell)
	if err != nil {
		return 0, 0, err
	}
	col, err = excelize.ColumnNameToNumber(name)
	return col, row, err
}

func isLetters(s string) bool {
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}

// clip cuts rows to the columns and rows of r and pads each row to the range
// width with empty strings. Trailing empty rows are dropped, matching the
// values API which omits them.
func (r Range) clip(all [][]string) [][]string {
	first := r.FirstRow()
	last := len(all)
	if r.EndRow > 0 && r.EndRow < last {
		last = r.EndRow
	}

	var out [][]string
	for i := first; i <= last; i++ {
		src := all[i-1]
		row := make([]string, r.Width())
		for c := r.StartCol; c <= r.EndCol; c++ {
			if c-1 < len(src) {
				row[c-r.StartCol] = src[c-1]
			}
		}
		out = append(out, row)
	}

	for len(out) > 0 && isBlank(out[len(out)-1]) {
		out = out[:len(out)-1]
	}
	return out
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func columnName(n int) (string, error) {
	return excelize.ColumnNumberToName(n)
}
