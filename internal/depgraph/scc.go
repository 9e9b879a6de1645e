package depgraph

import (
	"sort"

	"github.com/cellgraph/sheetgraph/internal/address"
)

// SCC is one strongly connected component, in Tarjan discovery order.
type SCC struct {
	Members []address.Cell
}

// Cycle reports whether the component is an actual cycle: size >= 2, or a
// single node with a self-loop.
func (s SCC) Cycle(g *Graph) bool {
	if len(s.Members) >= 2 {
		return true
	}
	if len(s.Members) == 1 {
		for _, e := range g.OutEdges(s.Members[0]) {
			if e.Target == s.Members[0] {
				return true
			}
		}
	}
	return false
}

// TarjanSCC computes the graph's strongly connected components using
// Tarjan's algorithm, visiting nodes in sorted order so that the result is
// deterministic across runs.
func TarjanSCC(g *Graph) []SCC {
	t := &tarjanState{
		index:   make(map[address.Cell]int),
		lowlink: make(map[address.Cell]int),
		onStack: make(map[address.Cell]bool),
		g:       g,
	}
	for _, n := range g.SortedNodes() {
		if _, visited := t.index[n]; !visited {
			t.strongConnect(n)
		}
	}
	return t.sccs
}

type tarjanState struct {
	g       *Graph
	counter int
	index   map[address.Cell]int
	lowlink map[address.Cell]int
	onStack map[address.Cell]bool
	stack   []address.Cell
	sccs    []SCC
}

func (t *tarjanState) strongConnect(v address.Cell) {
	t.index[v] = t.counter
	t.lowlink[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	edges := t.g.OutEdges(v)
	sorted := make([]address.Cell, len(edges))
	for i, e := range edges {
		sorted[i] = e.Target
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	for _, w := range sorted {
		if _, visited := t.index[w]; !visited {
			t.strongConnect(w)
			if t.lowlink[w] < t.lowlink[v] {
				t.lowlink[v] = t.lowlink[w]
			}
		} else if t.onStack[w] {
			if t.index[w] < t.lowlink[v] {
				t.lowlink[v] = t.index[w]
			}
		}
	}

	if t.lowlink[v] == t.index[v] {
		var members []address.Cell
		for {
			n := len(t.stack) - 1
			w := t.stack[n]
			t.stack = t.stack[:n]
			t.onStack[w] = false
			members = append(members, w)
			if w == v {
				break
			}
		}
		sort.Slice(members, func(i, j int) bool { return members[i].Less(members[j]) })
		t.sccs = append(t.sccs, SCC{Members: members})
	}
}

// CycleOrder returns the SCC's members in deterministic traversal order,
// starting from the lexicographically smallest address and following
// within-component edges depth-first (sorted target order at each step),
// per the circular_reference anomaly's metadata contract.
func CycleOrder(g *Graph, scc SCC) []address.Cell {
	if len(scc.Members) == 0 {
		return nil
	}
	inSCC := make(map[address.Cell]bool, len(scc.Members))
	for _, m := range scc.Members {
		inSCC[m] = true
	}
	start := scc.Members[0] // already sorted ascending
	visited := make(map[address.Cell]bool, len(scc.Members))
	var order []address.Cell
	var walk func(v address.Cell)
	walk = func(v address.Cell) {
		if visited[v] {
			return
		}
		visited[v] = true
		order = append(order, v)
		edges := g.OutEdges(v)
		targets := make([]address.Cell, 0, len(edges))
		for _, e := range edges {
			if inSCC[e.Target] && !visited[e.Target] {
				targets = append(targets, e.Target)
			}
		}
		sort.Slice(targets, func(i, j int) bool { return targets[i].Less(targets[j]) })
		for _, tgt := range targets {
			walk(tgt)
		}
	}
	walk(start)
	// Defensive: Tarjan guarantees strong connectivity, so every member is
	// reachable from start within the component; if somehow not (e.g. a
	// caller passed an inconsistent SCC), append the rest in sorted order.
	for _, m := range scc.Members {
		if !visited[m] {
			visited[m] = true
			order = append(order, m)
		}
	}
	return order
}
