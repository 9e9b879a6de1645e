package reference

import (
	"strconv"
	"strings"

	"github.com/cellgraph/sheetgraph/internal/address"
	"github.com/cellgraph/sheetgraph/internal/lex"
)

// ResolverOptions tunes the dynamic resolver. FoldStringConcat controls
// whether literal string-concatenation ("&") inside INDIRECT's argument is
// constant-folded before attempting resolution; off by default per the
// engine's documented scenario behavior.
type ResolverOptions struct {
	FoldStringConcat bool
}

// DynamicResult is the outcome of attempting to resolve one dynamic
// (INDIRECT/OFFSET/INDEX) call found in a formula's argument list.
type DynamicResult struct {
	Resolved  *Reference
	Unresolved bool
}

// ResolveDynamic scans toks for calls to INDIRECT, OFFSET, and INDEX whose
// arguments are statically resolvable, and returns one DynamicResult per
// call site found. literalValues supplies the known constant value of any
// cell a call's arguments reference (e.g. "S!B2" -> "5"); cells absent from
// the map are treated as non-literal.
func ResolveDynamic(toks []lex.Token, homeSheet string, literalValues map[string]string, opts ResolverOptions) []DynamicResult {
	var out []DynamicResult
	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		if tok.Type != lex.FUNC {
			continue
		}
		name := tok.Value
		if name != "INDIRECT" && name != "OFFSET" && name != "INDEX" {
			continue
		}
		args, end, ok := splitArgs(toks, i+1)
		if !ok {
			continue
		}
		i = end

		var result DynamicResult
		switch name {
		case "INDIRECT":
			result = resolveIndirect(args, homeSheet, literalValues, opts)
		case "OFFSET":
			result = resolveOffset(args, homeSheet, literalValues)
		case "INDEX":
			result = resolveIndex(args, homeSheet, literalValues)
		}
		out = append(out, result)
	}
	return out
}

// splitArgs expects toks[start] to be the LPAREN following a FUNC token and
// returns the top-level comma-separated argument token slices, plus the
// index of the matching RPAREN.
func splitArgs(toks []lex.Token, start int) ([][]lex.Token, int, bool) {
	if start >= len(toks) || toks[start].Type != lex.LPAREN {
		return nil, start, false
	}
	depth := 1
	var args [][]lex.Token
	var cur []lex.Token
	i := start + 1
	for ; i < len(toks); i++ {
		t := toks[i]
		switch t.Type {
		case lex.LPAREN:
			depth++
			cur = append(cur, t)
		case lex.RPAREN:
			depth--
			if depth == 0 {
				args = append(args, cur)
				return args, i, true
			}
			cur = append(cur, t)
		case lex.COMMA:
			if depth == 1 {
				args = append(args, cur)
				cur = nil
			} else {
				cur = append(cur, t)
			}
		default:
			cur = append(cur, t)
		}
	}
	return nil, i, false
}

// literalString resolves an argument token slice to a constant string, if
// possible: a bare STRING token, a "&"-chain of STRING/CELL_REF tokens (only
// when FoldStringConcat is enabled), or a CELL_REF whose value is known.
func literalString(arg []lex.Token, homeSheet string, literalValues map[string]string, fold bool) (string, bool) {
	if len(arg) == 1 {
		return literalAtomString(arg[0], homeSheet, literalValues)
	}
	if !fold {
		return "", false
	}
	var sb strings.Builder
	i := 0
	for i < len(arg) {
		part, ok := literalAtomString(arg[i], homeSheet, literalValues)
		if !ok {
			return "", false
		}
		sb.WriteString(part)
		i++
		if i >= len(arg) {
			break
		}
		if arg[i].Type != lex.OP || arg[i].Value != "&" {
			return "", false
		}
		i++
	}
	return sb.String(), true
}

func literalAtomString(tok lex.Token, homeSheet string, literalValues map[string]string) (string, bool) {
	switch tok.Type {
	case lex.STRING:
		return tok.Value, true
	case lex.CELL_REF:
		sheet, body := splitSheetQualifier(tok.Value)
		if sheet == "" {
			sheet = homeSheet
		}
		if v, ok := literalValues[sheet+"!"+body]; ok {
			return v, true
		}
	}
	return "", false
}

func literalInt(arg []lex.Token) (int64, bool) {
	if len(arg) == 1 && arg[0].Type == lex.NUMBER {
		n, err := strconv.ParseFloat(arg[0].Value, 64)
		if err != nil {
			return 0, false
		}
		return int64(n), true
	}
	if len(arg) == 2 && arg[0].Type == lex.OP && arg[0].Value == "-" && arg[1].Type == lex.NUMBER {
		n, err := strconv.ParseFloat(arg[1].Value, 64)
		if err != nil {
			return 0, false
		}
		return -int64(n), true
	}
	return 0, false
}

func resolveIndirect(args [][]lex.Token, homeSheet string, literalValues map[string]string, opts ResolverOptions) DynamicResult {
	if len(args) != 1 {
		return DynamicResult{Unresolved: true}
	}
	s, ok := literalString(args[0], homeSheet, literalValues, opts.FoldStringConcat)
	if !ok {
		return DynamicResult{Unresolved: true}
	}
	if r, err := address.ParseRange(s); err == nil {
		if r.TopLeft == r.BottomRight {
			ref := Reference{Kind: Dynamic, Address: r.TopLeft, EnclosingFunc: "INDIRECT"}
			return DynamicResult{Resolved: &ref}
		}
		ref := Reference{Kind: Dynamic, IsRange: true, Range: r, EnclosingFunc: "INDIRECT"}
		return DynamicResult{Resolved: &ref}
	}
	return DynamicResult{Unresolved: true}
}

func resolveOffset(args [][]lex.Token, homeSheet string, literalValues map[string]string) DynamicResult {
	if len(args) < 3 {
		return DynamicResult{Unresolved: true}
	}
	baseTok, ok := baseReference(args[0], homeSheet)
	if !ok {
		return DynamicResult{Unresolved: true}
	}
	rows, ok := literalInt(args[1])
	if !ok {
		return DynamicResult{Unresolved: true}
	}
	cols, ok := literalInt(args[2])
	if !ok {
		return DynamicResult{Unresolved: true}
	}

	baseTL := baseTok.TopLeft
	baseBR := baseTok.BottomRight
	height := int64(baseBR.Row-baseTL.Row) + 1
	width := int64(baseBR.Col-baseTL.Col) + 1
	if len(args) >= 4 {
		if h, ok := literalInt(args[3]); ok {
			height = h
		}
	}
	if len(args) >= 5 {
		if w, ok := literalInt(args[4]); ok {
			width = w
		}
	}

	newRow := int64(baseTL.Row) + rows
	newCol := int64(baseTL.Col) + cols
	if newRow < 1 || newCol < 1 || height < 1 || width < 1 {
		return DynamicResult{Unresolved: true}
	}
	newBR := address.Cell{Sheet: baseTL.Sheet, Row: uint32(newRow + height - 1), Col: uint32(newCol + width - 1)}
	if newBR.Row > address.MaxRow || newBR.Col > address.MaxCol {
		return DynamicResult{Unresolved: true}
	}
	newTL := address.Cell{Sheet: baseTL.Sheet, Row: uint32(newRow), Col: uint32(newCol)}

	if height == 1 && width == 1 {
		ref := Reference{Kind: Dynamic, Address: newTL, EnclosingFunc: "OFFSET"}
		return DynamicResult{Resolved: &ref}
	}
	ref := Reference{Kind: Dynamic, IsRange: true, Range: address.Range{TopLeft: newTL, BottomRight: newBR}, EnclosingFunc: "OFFSET"}
	return DynamicResult{Resolved: &ref}
}

func resolveIndex(args [][]lex.Token, homeSheet string, literalValues map[string]string) DynamicResult {
	if len(args) < 3 {
		return DynamicResult{Unresolved: true}
	}
	base, ok := baseReference(args[0], homeSheet)
	if !ok {
		return DynamicResult{Unresolved: true}
	}
	row, ok := literalInt(args[1])
	if !ok {
		return DynamicResult{Unresolved: true}
	}
	col, ok := literalInt(args[2])
	if !ok {
		return DynamicResult{Unresolved: true}
	}
	if row < 1 || col < 1 {
		return DynamicResult{Unresolved: true}
	}
	target := address.Cell{
		Sheet: base.TopLeft.Sheet,
		Row:   base.TopLeft.Row + uint32(row) - 1,
		Col:   base.TopLeft.Col + uint32(col) - 1,
	}
	if target.Row > base.BottomRight.Row || target.Col > base.BottomRight.Col {
		return DynamicResult{Unresolved: true}
	}
	ref := Reference{Kind: Dynamic, Address: target, EnclosingFunc: "INDEX"}
	return DynamicResult{Resolved: &ref}
}

// baseReference resolves a bare CELL_REF or RANGE_REF argument token slice
// into an address.Range (a single cell collapses to a one-cell range).
func baseReference(arg []lex.Token, homeSheet string) (address.Range, bool) {
	if len(arg) != 1 {
		return address.Range{}, false
	}
	switch arg[0].Type {
	case lex.CELL_REF:
		sheet, body := splitSheetQualifier(arg[0].Value)
		if sheet == "" {
			sheet = homeSheet
		}
		c, err := address.ParseA1(sheet + "!" + body)
		if err != nil {
			return address.Range{}, false
		}
		return address.Range{TopLeft: c, BottomRight: c}, true
	case lex.RANGE_REF:
		sheet, body := splitSheetQualifier(arg[0].Value)
		if sheet == "" {
			sheet = homeSheet
		}
		r, err := address.ParseRange(sheet + "!" + body)
		if err != nil {
			return address.Range{}, false
		}
		return r, true
	}
	return address.Range{}, false
}
