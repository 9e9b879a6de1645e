// Package anomaly scans a finalized dependency graph and its per-cell
// attributes for the seven structural defect types the engine recognizes.
package anomaly

import (
	"fmt"
	"sort"

	"github.com/cellgraph/sheetgraph/internal/address"
	"github.com/cellgraph/sheetgraph/internal/depgraph"
)

// Type is one of the seven closed anomaly categories.
type Type string

const (
	CircularReference Type = "circular_reference"
	BrokenReference    Type = "broken_reference"
	MissingDependency  Type = "missing_dependency"
	HardCodedOverwrite Type = "hard_coded_overwrite"
	UnusedFormula      Type = "unused_formula"
	HighComplexity     Type = "high_complexity"
	DynamicUnresolved  Type = "dynamic_unresolved"
)

// Severity ranks an anomaly for sorting and presentation.
type Severity string

const (
	High   Severity = "high"
	Medium Severity = "medium"
	Low    Severity = "low"
)

func severityRank(s Severity) int {
	switch s {
	case High:
		return 0
	case Medium:
		return 1
	case Low:
		return 2
	default:
		return 3
	}
}

// Anomaly is one detected structural defect.
type Anomaly struct {
	Type        Type
	CellAddress address.Cell
	Sheet       string
	Severity    Severity
	Description string
	Suggestion  string
	Metadata    map[string]any
}

// ComplexityOperators is the exact operator set the complexity count scans
// for, codified once per the engine's design note that the source re-derived
// this count inconsistently at multiple call sites.
var ComplexityOperators = map[byte]bool{
	'+': true, '-': true, '*': true, '/': true, '^': true,
	'(': true, ')': true, ',': true, ':': true,
}

// ComplexityCount counts occurrences of ComplexityOperators in a formula's
// raw text.
func ComplexityCount(formula string) int {
	n := 0
	for i := 0; i < len(formula); i++ {
		if ComplexityOperators[formula[i]] {
			n++
		}
	}
	return n
}

// DynamicUnresolvedHints maps a cell address to true if its formula
// contained an INDIRECT/OFFSET/INDEX call the dynamic resolver could not
// reduce. Supplied by the orchestrator after running the resolver.
type DynamicUnresolvedHints map[address.Cell]bool

// ErrorTokenCells is the set of cell addresses whose formula contained an
// ERROR_TOKEN during tokenization.
type ErrorTokenCells map[address.Cell]bool

// Detect runs every anomaly rule over g and returns the deterministically
// sorted anomaly list.
func Detect(g *depgraph.Graph, dynamicHints DynamicUnresolvedHints, errorTokenCells ErrorTokenCells) []Anomaly {
	var out []Anomaly

	sccs := depgraph.TarjanSCC(g)
	for _, scc := range sccs {
		if !scc.Cycle(g) {
			continue
		}
		order := depgraph.CycleOrder(g, scc)
		strs := make([]string, len(order))
		for i, c := range order {
			strs[i] = c.String()
		}
		for _, c := range order {
			out = append(out, Anomaly{
				Type:        CircularReference,
				CellAddress: c,
				Sheet:       c.Sheet,
				Severity:    High,
				Description: fmt.Sprintf("cell participates in a circular reference of %d cell(s)", len(order)),
				Metadata:    map[string]any{"cycle": strs},
			})
		}
	}

	for _, addr := range g.SortedNodes() {
		cell := g.Nodes[addr]

		if errorTokenCells[addr] {
			out = append(out, Anomaly{
				Type: BrokenReference, CellAddress: addr, Sheet: addr.Sheet, Severity: High,
				Description: "formula could not be fully tokenized",
			})
		}

		if g.ImplicitNodes[addr] {
			// This address is itself a never-populated target; anomalies
			// for broken/missing dependencies are raised on the *source*
			// cells that reference it, below.
			continue
		}

		if cell.Flags.Has(depgraph.HasFormula) {
			if inDegreeZero(g, addr) && len(g.OutEdges(addr)) == 0 {
				out = append(out, Anomaly{
					Type: UnusedFormula, CellAddress: addr, Sheet: addr.Sheet, Severity: Low,
					Description: "formula has no dependents and references nothing",
				})
			}
			if n := ComplexityCount(cell.Formula); n > 5 {
				out = append(out, Anomaly{
					Type: HighComplexity, CellAddress: addr, Sheet: addr.Sheet, Severity: Medium,
					Description: fmt.Sprintf("formula has %d complexity operators", n),
					Metadata:    map[string]any{"operator_count": n},
				})
			}
			if dynamicHints[addr] {
				out = append(out, Anomaly{
					Type: DynamicUnresolved, CellAddress: addr, Sheet: addr.Sheet, Severity: Low,
					Description: "INDIRECT/OFFSET/INDEX argument could not be statically resolved",
				})
			}
		}

		for _, e := range g.OutEdges(addr) {
			if target, ok := g.Nodes[e.Target]; ok && !g.ImplicitNodes[e.Target] && target.Flags.Has(depgraph.HasError) {
				out = append(out, Anomaly{
					Type: BrokenReference, CellAddress: addr, Sheet: addr.Sheet, Severity: High,
					Description: fmt.Sprintf("references cell %s which holds an error literal", e.Target),
					Metadata:    map[string]any{"target": e.Target.String()},
				})
				continue
			}
			if !g.ImplicitNodes[e.Target] {
				continue
			}
			if cell.Flags.Has(depgraph.HasError) {
				out = append(out, Anomaly{
					Type: BrokenReference, CellAddress: addr, Sheet: addr.Sheet, Severity: High,
					Description: fmt.Sprintf("references never-populated cell %s while itself holding an error value", e.Target),
					Metadata:    map[string]any{"target": e.Target.String()},
				})
			} else {
				out = append(out, Anomaly{
					Type: MissingDependency, CellAddress: addr, Sheet: addr.Sheet, Severity: High,
					Description: fmt.Sprintf("references never-populated cell %s", e.Target),
					Metadata:    map[string]any{"target": e.Target.String()},
				})
			}
		}
	}

	out = append(out, detectHardCodedOverwrites(g)...)

	sort.SliceStable(out, func(i, j int) bool {
		if severityRank(out[i].Severity) != severityRank(out[j].Severity) {
			return severityRank(out[i].Severity) < severityRank(out[j].Severity)
		}
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].CellAddress.Less(out[j].CellAddress)
	})
	return out
}

func inDegreeZero(g *depgraph.Graph, addr address.Cell) bool {
	return len(g.InEdges(addr)) == 0
}
