// Package address implements the canonical cell-address model: A1 string
// parsing and emission, base-26 column conversion, and range expansion.
package address

import (
	"fmt"
	"strings"
)

// MaxRow and MaxCol mirror the limits of a modern spreadsheet grid; inputs
// outside these bounds are rejected at parse time.
const (
	MaxRow = 1_048_576
	MaxCol = 16_384
)

// Cell is a canonical, immutable cell address. Equality and ordering are by
// the (Sheet, Row, Col) tuple, so Cell is safe to use as a map key directly.
type Cell struct {
	Sheet string
	Row   uint32 // 1-based
	Col   uint32 // 1-based
}

// ParseError reports why an address or range string could not be parsed. It
// is returned, never panicked, per the address model's contract.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("address: invalid %q: %s", e.Input, e.Reason)
}

// Less orders two cells by (Sheet, Row, Col), matching the tuple ordering
// spec.md requires for CellAddress.
func (c Cell) Less(other Cell) bool {
	if c.Sheet != other.Sheet {
		return c.Sheet < other.Sheet
	}
	if c.Row != other.Row {
		return c.Row < other.Row
	}
	return c.Col < other.Col
}

// String renders the canonical A1 form, e.g. "Sheet1!A1" or, for sheet names
// with characters outside [A-Za-z_][A-Za-z0-9_ ]*, "'Sales-2024'!A1".
func (c Cell) String() string {
	return fmt.Sprintf("%s!%s", quoteSheetIfNeeded(c.Sheet), colToLetters(c.Col)+rowToDigits(c.Row))
}

// BareA1 renders only the column/row portion, e.g. "A1", with no sheet
// prefix or quoting. Used to key lookups against lexer-produced token text,
// which never carries sheet quoting of its own.
func (c Cell) BareA1() string {
	return colToLetters(c.Col) + rowToDigits(c.Row)
}

// needsQuoting reports whether a sheet name must be wrapped in single quotes
// on output, per spec.md's [A-Za-z_][A-Za-z0-9_ ]* pattern.
func needsQuoting(sheet string) bool {
	if sheet == "" {
		return true
	}
	for i, r := range sheet {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r == '_':
			continue
		case r >= '0' && r <= '9', r == ' ':
			if i == 0 && (r >= '0' && r <= '9') {
				return true
			}
			continue
		default:
			return true
		}
	}
	return false
}

func quoteSheetIfNeeded(sheet string) string {
	if !needsQuoting(sheet) {
		return sheet
	}
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}

// colToLetters converts a 1-based column number to its base-26 letters:
// 1=A, 26=Z, 27=AA, ... Symmetric with LettersToCol.
func colToLetters(col uint32) string {
	var buf []byte
	for col > 0 {
		col--
		buf = append(buf, byte('A'+col%26))
		col /= 26
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf)
}

// lettersToCol converts base-26 column letters back to a 1-based column
// number. Symmetric with colToLetters.
func lettersToCol(letters string) (uint32, error) {
	if letters == "" {
		return 0, fmt.Errorf("empty column")
	}
	var col uint32
	for _, r := range letters {
		switch {
		case r >= 'A' && r <= 'Z':
			col = col*26 + uint32(r-'A'+1)
		case r >= 'a' && r <= 'z':
			col = col*26 + uint32(r-'a'+1)
		default:
			return 0, fmt.Errorf("invalid column letter %q", r)
		}
		if col > MaxCol*26 {
			return 0, fmt.Errorf("column out of range")
		}
	}
	return col, nil
}

func rowToDigits(row uint32) string {
	return fmt.Sprintf("%d", row)
}

// ParseA1 parses a canonical or quoted-sheet A1 reference ("Sheet!A1" or
// "'Sheet Name'!A1") into a Cell. Returns a *ParseError for empty input,
// invalid characters, zero row/column, or out-of-bounds row/column.
func ParseA1(s string) (Cell, error) {
	sheet, rest, err := splitSheetPrefix(s)
	if err != nil {
		return Cell{}, err
	}
	row, col, err := parseCellRef(rest)
	if err != nil {
		return Cell{}, &ParseError{Input: s, Reason: err.Error()}
	}
	return Cell{Sheet: sheet, Row: row, Col: col}, nil
}

// splitSheetPrefix splits "Sheet!A1" / "'Sheet Name'!A1" into (sheet, "A1").
// If there is no "!" the whole string is treated as a bare cell reference
// with an empty sheet (callers supply the home sheet themselves).
func splitSheetPrefix(s string) (sheet, rest string, err error) {
	if s == "" {
		return "", "", &ParseError{Input: s, Reason: "empty input"}
	}
	if strings.HasPrefix(s, "'") {
		end := strings.Index(s[1:], "'")
		for end >= 0 && len(s) > end+2 && s[end+2] == '\'' {
			next := strings.Index(s[end+3:], "'")
			if next < 0 {
				end = -1
				break
			}
			end = end + 2 + next
		}
		if end < 0 {
			return "", "", &ParseError{Input: s, Reason: "unterminated quoted sheet name"}
		}
		sheet = strings.ReplaceAll(s[1:end+1], "''", "'")
		rest = s[end+2:]
		rest = strings.TrimPrefix(rest, "!")
		return sheet, rest, nil
	}
	if i := strings.LastIndex(s, "!"); i >= 0 {
		return s[:i], s[i+1:], nil
	}
	return "", s, nil
}

// parseCellRef parses "$A$1", "A$1", "$A1", or "A1" into (row, col). The
// absolute/relative markers are accepted but dropped: addresses are always
// treated as absolute for graph purposes per spec.md §4.1.
func parseCellRef(s string) (row, col uint32, err error) {
	i := 0
	if i < len(s) && s[i] == '$' {
		i++
	}
	letterStart := i
	for i < len(s) && ((s[i] >= 'A' && s[i] <= 'Z') || (s[i] >= 'a' && s[i] <= 'z')) {
		i++
	}
	if i == letterStart {
		return 0, 0, fmt.Errorf("missing column letters")
	}
	letters := s[letterStart:i]
	if i < len(s) && s[i] == '$' {
		i++
	}
	digitStart := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == digitStart {
		return 0, 0, fmt.Errorf("missing row digits")
	}
	if i != len(s) {
		return 0, 0, fmt.Errorf("unexpected trailing characters %q", s[i:])
	}

	col, err = lettersToCol(letters)
	if err != nil {
		return 0, 0, err
	}
	if col == 0 || col > MaxCol {
		return 0, 0, fmt.Errorf("column %d out of range [1,%d]", col, MaxCol)
	}

	var rowVal uint64
	for _, d := range s[digitStart:i] {
		rowVal = rowVal*10 + uint64(d-'0')
		if rowVal > MaxRow*10 {
			return 0, 0, fmt.Errorf("row out of range")
		}
	}
	if rowVal == 0 || rowVal > MaxRow {
		return 0, 0, fmt.Errorf("row %d out of range [1,%d]", rowVal, MaxRow)
	}
	return uint32(rowVal), col, nil
}

// ToA1 renders a Cell in canonical form. Equivalent to Cell.String.
func ToA1(c Cell) string {
	return c.String()
}
