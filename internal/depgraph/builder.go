package depgraph

import (
	"fmt"
	"sort"

	"github.com/cellgraph/sheetgraph/internal/address"
	"github.com/cellgraph/sheetgraph/internal/reference"
)

// RangeFanOutCap is the maximum number of individual range_member edges
// emitted for one range reference before it is collapsed into a single
// summary edge.
const RangeFanOutCap = 4096

// CellInput is one populated cell as reported by the WorkbookReader,
// already tokenized and reference-extracted by earlier pipeline stages.
type CellInput struct {
	Address    address.Cell
	RawValue   string
	HasRaw     bool
	Formula    string
	HasFormula bool
	References []reference.Reference // post dynamic-resolution
}

// InternalInvariantError indicates a post-condition the builder itself
// guarantees was violated — a bug, not a data problem.
type InternalInvariantError struct {
	Message string
}

func (e *InternalInvariantError) Error() string {
	return fmt.Sprintf("depgraph: internal invariant violated: %s", e.Message)
}

// Build runs the two-phase DAG construction of cell nodes and dependency
// edges described by the engine's DAG-builder component.
func Build(inputs []CellInput) (*Graph, error) {
	g := &Graph{
		Nodes:         make(map[address.Cell]*Cell, len(inputs)),
		ImplicitNodes: make(map[address.Cell]bool),
	}

	// Phase 1 — node set.
	for _, in := range inputs {
		flags := CellFlags(0)
		if in.HasFormula {
			flags |= HasFormula
		}
		if !in.HasFormula && in.HasRaw {
			flags |= IsInput
		}
		if in.HasRaw && reference.HasError(in.RawValue) {
			flags |= HasError
		}
		g.Nodes[in.Address] = &Cell{
			Address:  in.Address,
			RawValue: in.RawValue,
			Formula:  in.Formula,
			Flags:    flags,
		}
	}

	// Phase 2 — edges.
	type rawEdge struct {
		edge Edge
	}
	var raw []rawEdge

	for _, in := range inputs {
		if !in.HasFormula {
			continue
		}
		src := in.Address
		for _, ref := range in.References {
			switch {
			case !ref.IsRange && (ref.Kind == reference.Direct || ref.Kind == reference.Dynamic):
				tgt := ref.Address
				g.ensureNode(tgt)
				raw = append(raw, rawEdge{Edge{Source: src, Target: tgt, Kind: edgeKindFromReferenceKind(ref.Kind)}})
			case ref.IsRange && (ref.Kind == reference.RangeMember || ref.Kind == reference.Dynamic):
				cells := ref.Range.Expand()
				if len(cells) > RangeFanOutCap {
					// collapse to a single summary edge targeting the
					// range's top-left cell; SummaryCount records the
					// range's size, and the other members get no node or
					// edge, so later passes do not see them.
					tgt := ref.Range.TopLeft
					g.ensureNode(tgt)
					raw = append(raw, rawEdge{Edge{
						Source: src, Target: tgt, Kind: EdgeRangeMember,
						RangeSummary: true, SummaryCount: len(cells),
					}})
					continue
				}
				for _, c := range cells {
					g.ensureNode(c)
					raw = append(raw, rawEdge{Edge{Source: src, Target: c, Kind: EdgeRangeMember}})
				}
			case ref.Kind == reference.Named:
				// Named references reach the builder already resolved by
				// the caller (see analysis.resolveNamedReferences) to a
				// concrete cell or range; one still carrying only a Name
				// has no target and yields no edge.
				targets := []address.Cell{ref.Address}
				if ref.IsRange {
					targets = ref.Range.Expand()
				} else if ref.Name != "" {
					continue
				}
				for _, c := range targets {
					g.ensureNode(c)
					raw = append(raw, rawEdge{Edge{Source: src, Target: c, Kind: EdgeNamed}})
				}
			}
		}
	}

	// Edge coalescing: keep the strongest kind per (source,target) pair.
	type key struct {
		src, tgt address.Cell
	}
	best := make(map[key]Edge, len(raw))
	for _, re := range raw {
		k := key{re.edge.Source, re.edge.Target}
		if existing, ok := best[k]; !ok || re.edge.Kind.strength() < existing.Kind.strength() {
			best[k] = re.edge
		}
	}

	edges := make([]Edge, 0, len(best))
	inDeg := make(map[address.Cell]int)
	for _, e := range best {
		edges = append(edges, e)
		inDeg[e.Target]++
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source.Less(edges[j].Source)
		}
		if edges[i].Target != edges[j].Target {
			return edges[i].Target.Less(edges[j].Target)
		}
		return edges[i].Kind < edges[j].Kind
	})
	g.Edges = edges

	// is_output: has_formula and no cell depends on it (no edge targets it).
	for addr, cell := range g.Nodes {
		if cell.Flags.Has(HasFormula) && inDeg[addr] == 0 {
			cell.Flags |= IsOutput
		}
	}

	g.buildAdjacency()

	for _, e := range g.Edges {
		if _, ok := g.Nodes[e.Source]; !ok {
			return nil, &InternalInvariantError{Message: fmt.Sprintf("edge source %s not in node set", e.Source)}
		}
		if _, ok := g.Nodes[e.Target]; !ok {
			return nil, &InternalInvariantError{Message: fmt.Sprintf("edge target %s not in node set", e.Target)}
		}
	}

	g.Metrics.NodeCount = len(g.Nodes)
	g.Metrics.EdgeCount = len(g.Edges)
	return g, nil
}

func (g *Graph) ensureNode(addr address.Cell) {
	if _, ok := g.Nodes[addr]; ok {
		return
	}
	g.Nodes[addr] = &Cell{Address: addr}
	g.ImplicitNodes[addr] = true
}

func (g *Graph) buildAdjacency() {
	g.outAdj = make(map[address.Cell][]Edge, len(g.Nodes))
	g.inAdj = make(map[address.Cell][]Edge, len(g.Nodes))
	for _, e := range g.Edges {
		g.outAdj[e.Source] = append(g.outAdj[e.Source], e)
		g.inAdj[e.Target] = append(g.inAdj[e.Target], e)
	}
}
