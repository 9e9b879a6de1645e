package anomaly

import (
	"fmt"

	"github.com/cellgraph/sheetgraph/internal/address"
	"github.com/cellgraph/sheetgraph/internal/depgraph"
)

// neighborWindow is the ±N row/column span hard_coded_overwrite considers
// when measuring how formula-heavy a cell's peers are.
const neighborWindow = 5

// overwriteThreshold is the fraction of row/column peers that must be
// formulas for a literal cell among them to be flagged.
const overwriteThreshold = 0.6

// detectHardCodedOverwrites flags literal cells sitting among a dense
// formula neighborhood on both their row and column.
func detectHardCodedOverwrites(g *depgraph.Graph) []Anomaly {
	bySheet := make(map[string][]address.Cell)
	for _, addr := range g.SortedNodes() {
		if g.ImplicitNodes[addr] {
			continue
		}
		bySheet[addr.Sheet] = append(bySheet[addr.Sheet], addr)
	}

	var out []Anomaly
	for sheet, cells := range bySheet {
		byRow := make(map[uint32][]address.Cell)
		byCol := make(map[uint32][]address.Cell)
		for _, c := range cells {
			byRow[c.Row] = append(byRow[c.Row], c)
			byCol[c.Col] = append(byCol[c.Col], c)
		}
		for _, c := range cells {
			cell := g.Nodes[c]
			if cell.Flags.Has(depgraph.HasFormula) {
				continue
			}
			if !isLiteral(cell) {
				continue
			}
			rowFrac := formulaFraction(g, byRow[c.Row], c, func(other address.Cell) bool {
				return withinWindow(other.Col, c.Col)
			})
			colFrac := formulaFraction(g, byCol[c.Col], c, func(other address.Cell) bool {
				return withinWindow(other.Row, c.Row)
			})
			if rowFrac >= overwriteThreshold && colFrac >= overwriteThreshold {
				out = append(out, Anomaly{
					Type: HardCodedOverwrite, CellAddress: c, Sheet: sheet, Severity: Medium,
					Description: fmt.Sprintf("literal value surrounded by formulas (%.0f%% of row peers, %.0f%% of column peers)", rowFrac*100, colFrac*100),
				})
			}
		}
	}
	return out
}

func isLiteral(c *depgraph.Cell) bool {
	return !c.Flags.Has(depgraph.HasFormula) && c.RawValue != ""
}

func withinWindow(a, b uint32) bool {
	var diff uint32
	if a > b {
		diff = a - b
	} else {
		diff = b - a
	}
	return diff <= neighborWindow && diff > 0
}

func formulaFraction(g *depgraph.Graph, peers []address.Cell, self address.Cell, within func(address.Cell) bool) float64 {
	total := 0
	formulaCount := 0
	for _, p := range peers {
		if p == self || !within(p) {
			continue
		}
		total++
		if g.Nodes[p].Flags.Has(depgraph.HasFormula) {
			formulaCount++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(formulaCount) / float64(total)
}
