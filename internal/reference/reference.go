// Package reference walks a tokenized formula and extracts the references
// it makes to other cells, ranges, and named ranges.
package reference

import (
	"strings"

	"github.com/cellgraph/sheetgraph/internal/address"
	"github.com/cellgraph/sheetgraph/internal/lex"
)

// Kind classifies how a Reference was discovered.
type Kind int

const (
	Direct Kind = iota
	Dynamic
	RangeMember
	Named
)

func (k Kind) String() string {
	switch k {
	case Direct:
		return "direct"
	case Dynamic:
		return "dynamic"
	case RangeMember:
		return "range_member"
	case Named:
		return "named"
	default:
		return "unknown"
	}
}

// Reference is one reference extracted from a formula's token stream. Exactly
// one of Address or Range or Name is populated, keyed by Kind and whether
// IsRange is set.
type Reference struct {
	Kind       Kind
	IsRange    bool
	Address    address.Cell
	Range      address.Range
	Name       string
	EnclosingFunc string // uppercased FUNC name this reference's token sat under, "" if none
}

// HasError reports whether the token text matches one of the canonical
// spreadsheet error literals.
func HasError(value string) bool {
	switch value {
	case "#REF!", "#NAME?", "#DIV/0!", "#VALUE!", "#N/A", "#NULL!", "#NUM!":
		return true
	}
	return false
}

// ExtractResult is the output of walking one formula's token stream.
type ExtractResult struct {
	References  []Reference
	HasErrorTok bool // an ERROR_TOKEN was present anywhere in the stream
	BrokenRefs  []Reference // not filled by Extract; error-literal targets are found by the anomaly pass on the graph
}

// Extract walks toks (the tokenized body of a formula, with the leading "="
// already stripped) and collects every reference it makes. homeSheet is used
// for CELL_REF/RANGE_REF tokens with no sheet qualifier.
func Extract(toks []lex.Token, homeSheet string) ExtractResult {
	var res ExtractResult
	var funcStack []string
	var funcDepths []int // paren depth inside each open FUNC's argument list
	depth := 0

	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		switch tok.Type {
		case lex.FUNC:
			funcStack = append(funcStack, tok.Value)
			funcDepths = append(funcDepths, depth+1)
		case lex.LPAREN:
			depth++
		case lex.RPAREN:
			if n := len(funcDepths); n > 0 && funcDepths[n-1] == depth {
				funcStack = funcStack[:n-1]
				funcDepths = funcDepths[:n-1]
			}
			if depth > 0 {
				depth--
			}
		case lex.ERROR_TOKEN:
			res.HasErrorTok = true
		case lex.ERROR:
			// a bare error literal used as a value; not itself a reference.
		case lex.CELL_REF:
			ref, ok := cellRefToReference(tok.Value, homeSheet, enclosing(funcStack))
			if ok {
				res.References = append(res.References, ref)
			}
		case lex.RANGE_REF:
			ref, ok := rangeRefToReference(tok.Value, homeSheet, enclosing(funcStack))
			if ok {
				res.References = append(res.References, ref)
			}
		case lex.NAME:
			res.References = append(res.References, Reference{
				Kind:          Named,
				Name:          tok.Value,
				EnclosingFunc: enclosing(funcStack),
			})
		}
	}
	return res
}

func enclosing(stack []string) string {
	if len(stack) == 0 {
		return ""
	}
	return stack[len(stack)-1]
}

func cellRefToReference(value, homeSheet, fn string) (Reference, bool) {
	sheet, body := splitSheetQualifier(value)
	if sheet == "" {
		sheet = homeSheet
	}
	c, err := address.ParseA1(sheet + "!" + body)
	if err != nil {
		return Reference{}, false
	}
	return Reference{Kind: Direct, Address: c, EnclosingFunc: fn}, true
}

func rangeRefToReference(value, homeSheet, fn string) (Reference, bool) {
	sheet, body := splitSheetQualifier(value)
	if sheet == "" {
		sheet = homeSheet
	}
	r, err := address.ParseRange(sheet + "!" + body)
	if err != nil {
		return Reference{}, false
	}
	return Reference{Kind: RangeMember, IsRange: true, Range: r, EnclosingFunc: fn}, true
}

// splitSheetQualifier splits a lexer-produced CELL_REF/RANGE_REF value of
// the form "Sheet!A1" (sheet already unquoted by the lexer) into its sheet
// and body. A value with no "!" returns an empty sheet.
func splitSheetQualifier(value string) (sheet, body string) {
	if i := strings.LastIndex(value, "!"); i >= 0 {
		return value[:i], value[i+1:]
	}
	return "", value
}
