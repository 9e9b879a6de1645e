package reference

import (
	"fmt"
	"strings"

	"github.com/cellgraph/sheetgraph/internal/address"
)

// MaxResolutionDepth bounds how deep a chain of named-range definitions may
// be followed before giving up, per the bounded-depth design note.
const MaxResolutionDepth = 32

// NamedRangeTable interns a workbook's defined names, keyed case-insensitively
// while preserving the original casing for output.
type NamedRangeTable struct {
	byLower map[string]namedRangeEntry
}

type namedRangeEntry struct {
	originalName string
	isRange      bool
	rangeTarget  address.Range
	formula      string
	homeSheet    string
}

// NewNamedRangeTable builds a table from (name, definition) pairs as
// produced by a WorkbookReader's named_ranges(). A definition is treated as
// a range if it parses as one; otherwise it is kept as a formula body.
func NewNamedRangeTable(defs [][2]string, defaultSheet string) *NamedRangeTable {
	t := &NamedRangeTable{byLower: make(map[string]namedRangeEntry, len(defs))}
	for _, d := range defs {
		name, def := d[0], d[1]
		entry := namedRangeEntry{originalName: name, homeSheet: defaultSheet}
		body := strings.TrimPrefix(def, "=")
		if r, err := address.ParseRange(body); err == nil {
			entry.isRange = true
			entry.rangeTarget = r
		} else if r, err := address.ParseRange(defaultSheet + "!" + body); err == nil {
			entry.isRange = true
			entry.rangeTarget = r
		} else {
			entry.formula = body
		}
		t.byLower[strings.ToLower(name)] = entry
	}
	return t
}

// Lookup resolves a name case-insensitively, returning ok=false if undefined.
func (t *NamedRangeTable) Lookup(name string) (namedRangeEntry, bool) {
	e, ok := t.byLower[strings.ToLower(name)]
	return e, ok
}

// ResolveError reports that a named-range chain could not be fully resolved.
type ResolveError struct {
	Name   string
	Reason string
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("reference: cannot resolve named range %q: %s", e.Name, e.Reason)
}

// Resolved is the outcome of following a named-range reference to its
// concrete target(s).
type Resolved struct {
	Ranges []address.Range
	// FormulaRefs holds the non-range, non-name references found in a named
	// range that targets a formula body rather than a literal range, as
	// returned by the extractFn passed to Resolve (at any nesting depth).
	FormulaRefs []Reference
}

// Resolve follows name through the table up to MaxResolutionDepth hops,
// detecting cycles along the current resolution path. extractFn is invoked
// to turn a named range's formula body into further references (so the
// caller controls tokenization without this package importing lex
// unnecessarily beyond Extract's own signature); pass nil if the table is
// known to contain no formula-backed names.
func (t *NamedRangeTable) Resolve(name string, extractFn func(formula, homeSheet string) ExtractResult) (Resolved, error) {
	visited := map[string]bool{}
	return t.resolve(name, visited, 0, extractFn)
}

func (t *NamedRangeTable) resolve(name string, visited map[string]bool, depth int, extractFn func(string, string) ExtractResult) (Resolved, error) {
	lower := strings.ToLower(name)
	if visited[lower] {
		return Resolved{}, &ResolveError{Name: name, Reason: "cyclic named-range definition"}
	}
	if depth >= MaxResolutionDepth {
		return Resolved{}, &ResolveError{Name: name, Reason: "exceeded maximum named-range resolution depth"}
	}
	entry, ok := t.byLower[lower]
	if !ok {
		return Resolved{}, &ResolveError{Name: name, Reason: "undefined name"}
	}
	visited[lower] = true
	defer delete(visited, lower)

	if entry.isRange {
		return Resolved{Ranges: []address.Range{entry.rangeTarget}}, nil
	}

	if extractFn == nil {
		return Resolved{}, &ResolveError{Name: name, Reason: "formula-backed name with no extractor supplied"}
	}
	extracted := extractFn(entry.formula, entry.homeSheet)
	var out Resolved
	for _, ref := range extracted.References {
		switch ref.Kind {
		case Named:
			sub, err := t.resolve(ref.Name, visited, depth+1, extractFn)
			if err != nil {
				return Resolved{}, err
			}
			out.Ranges = append(out.Ranges, sub.Ranges...)
			out.FormulaRefs = append(out.FormulaRefs, sub.FormulaRefs...)
		case RangeMember:
			out.Ranges = append(out.Ranges, ref.Range)
		default:
			out.FormulaRefs = append(out.FormulaRefs, ref)
		}
	}
	return out, nil
}
