// Package depgraph builds the cell dependency graph: nodes, coalesced
// edges, cycle detection via Tarjan's algorithm, and condensation-DAG depth.
package depgraph

import (
	"sort"

	"github.com/cellgraph/sheetgraph/internal/address"
	"github.com/cellgraph/sheetgraph/internal/reference"
)

// CellFlags is a bitset over a cell's structural properties.
type CellFlags uint8

const (
	HasFormula CellFlags = 1 << iota
	IsInput
	IsOutput
	HasError
)

func (f CellFlags) Has(bit CellFlags) bool { return f&bit != 0 }

// Cell is one node of the dependency graph.
type Cell struct {
	Address  address.Cell
	RawValue string // empty string means no literal value
	Formula  string // empty string means no formula
	Flags    CellFlags
}

// EdgeKind mirrors reference.Kind with the coalescing strength order
// direct > dynamic > range_member > named.
type EdgeKind int

const (
	EdgeDirect EdgeKind = iota
	EdgeDynamic
	EdgeRangeMember
	EdgeNamed
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeDirect:
		return "direct"
	case EdgeDynamic:
		return "dynamic"
	case EdgeRangeMember:
		return "range_member"
	case EdgeNamed:
		return "named"
	default:
		return "unknown"
	}
}

// strength returns a smaller value for a stronger kind, so coalescing can
// keep min(strength).
func (k EdgeKind) strength() int {
	switch k {
	case EdgeDirect:
		return 0
	case EdgeDynamic:
		return 1
	case EdgeRangeMember:
		return 2
	case EdgeNamed:
		return 3
	default:
		return 99
	}
}

func edgeKindFromReferenceKind(k reference.Kind) EdgeKind {
	switch k {
	case reference.Direct:
		return EdgeDirect
	case reference.Dynamic:
		return EdgeDynamic
	case reference.RangeMember:
		return EdgeRangeMember
	case reference.Named:
		return EdgeNamed
	default:
		return EdgeDirect
	}
}

// Edge is a coalesced directed dependency: Source's formula reads Target.
type Edge struct {
	Source        address.Cell
	Target        address.Cell
	Kind          EdgeKind
	RangeSummary  bool // true if this edge stands in for a >4096-cell range
	SummaryCount  int  // populated only when RangeSummary is true
}

// Metrics summarizes the finalized graph.
type Metrics struct {
	NodeCount int
	EdgeCount int
	MaxDepth  int
}

// Graph is the finalized, immutable dependency graph.
type Graph struct {
	Nodes   map[address.Cell]*Cell
	Edges   []Edge
	Metrics Metrics

	// ImplicitNodes are addresses that appear as an edge target but were
	// never reported as a populated cell by the reader.
	ImplicitNodes map[address.Cell]bool

	// outAdj/inAdj index Edges for traversal; built once by Build.
	outAdj map[address.Cell][]Edge
	inAdj  map[address.Cell][]Edge
}

// OutEdges returns the coalesced outbound edges of c in deterministic order.
func (g *Graph) OutEdges(c address.Cell) []Edge { return g.outAdj[c] }

// InEdges returns the coalesced inbound edges of c in deterministic order.
func (g *Graph) InEdges(c address.Cell) []Edge { return g.inAdj[c] }

// SortedNodes returns every node address in (sheet, row, col) order.
func (g *Graph) SortedNodes() []address.Cell {
	out := make([]address.Cell, 0, len(g.Nodes))
	for a := range g.Nodes {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
