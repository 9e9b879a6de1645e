package address

import "fmt"

// Range is a rectangular span of cells on a single sheet, TopLeft <=
// BottomRight componentwise. A single-cell range is permitted.
type Range struct {
	TopLeft     Cell
	BottomRight Cell
}

// ParseRange parses "A1:B2" (optionally with a sheet prefix and/or "$"
// markers) into a Range. A bare "A1" (no colon) is accepted and expands to
// a single-cell range.
func ParseRange(s string) (Range, error) {
	sheet, rest, err := splitSheetPrefix(s)
	if err != nil {
		return Range{}, err
	}

	colonIdx := -1
	for i, r := range rest {
		if r == ':' {
			colonIdx = i
			break
		}
	}
	if colonIdx < 0 {
		row, col, err := parseCellRef(rest)
		if err != nil {
			return Range{}, &ParseError{Input: s, Reason: err.Error()}
		}
		c := Cell{Sheet: sheet, Row: row, Col: col}
		return Range{TopLeft: c, BottomRight: c}, nil
	}

	leftRow, leftCol, err := parseCellRef(rest[:colonIdx])
	if err != nil {
		return Range{}, &ParseError{Input: s, Reason: err.Error()}
	}
	rightRow, rightCol, err := parseCellRef(rest[colonIdx+1:])
	if err != nil {
		return Range{}, &ParseError{Input: s, Reason: err.Error()}
	}

	tl := Cell{Sheet: sheet, Row: leftRow, Col: leftCol}
	br := Cell{Sheet: sheet, Row: rightRow, Col: rightCol}
	if br.Row < tl.Row || br.Col < tl.Col {
		// normalize: ranges may be given in either corner order.
		tl, br = Cell{Sheet: sheet, Row: min32(leftRow, rightRow), Col: min32(leftCol, rightCol)},
			Cell{Sheet: sheet, Row: max32(leftRow, rightRow), Col: max32(leftCol, rightCol)}
	}
	return Range{TopLeft: tl, BottomRight: br}, nil
}

func min32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

// String renders the range in canonical "Sheet!A1:B2" form, or plain
// "Sheet!A1" when the range is a single cell.
func (r Range) String() string {
	if r.TopLeft == r.BottomRight {
		return r.TopLeft.String()
	}
	return fmt.Sprintf("%s!%s:%s",
		quoteSheetIfNeeded(r.TopLeft.Sheet),
		colToLetters(r.TopLeft.Col)+rowToDigits(r.TopLeft.Row),
		colToLetters(r.BottomRight.Col)+rowToDigits(r.BottomRight.Row))
}

// CellCount returns the number of cells the range spans.
func (r Range) CellCount() int {
	rows := int(r.BottomRight.Row) - int(r.TopLeft.Row) + 1
	cols := int(r.BottomRight.Col) - int(r.TopLeft.Col) + 1
	return rows * cols
}

// Contains reports whether c falls within the range (same sheet, row/col
// bounds inclusive).
func (r Range) Contains(c Cell) bool {
	return c.Sheet == r.TopLeft.Sheet &&
		c.Row >= r.TopLeft.Row && c.Row <= r.BottomRight.Row &&
		c.Col >= r.TopLeft.Col && c.Col <= r.BottomRight.Col
}

// Expand yields every address in the range in row-major order. It is a
// finite, eagerly-computed sequence — callers needing to cap fan-out for
// very large ranges should check CellCount before calling Expand.
func (r Range) Expand() []Cell {
	out := make([]Cell, 0, r.CellCount())
	for row := r.TopLeft.Row; row <= r.BottomRight.Row; row++ {
		for col := r.TopLeft.Col; col <= r.BottomRight.Col; col++ {
			out = append(out, Cell{Sheet: r.TopLeft.Sheet, Row: row, Col: col})
		}
	}
	return out
}
