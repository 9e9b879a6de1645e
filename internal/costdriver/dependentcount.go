package costdriver

import (
	"fmt"

	"github.com/cellgraph/sheetgraph/internal/address"
	"github.com/cellgraph/sheetgraph/internal/depgraph"
)

// dependentCounts computes, for every node, the size of the transitive
// closure of reverse-reachability (how many cells ultimately depend on it)
// by walking inbound edges breadth-first from each node. Above
// dependentCountSampleThreshold nodes it switches to a seeded sample. It
// also returns, per node, the set of distinct sheets among its dependents
// for driver descriptions.
func dependentCounts(g *depgraph.Graph, nodes []address.Cell) (map[address.Cell]int, map[address.Cell]map[string]bool) {
	n := len(nodes)
	targets := nodes
	if n > dependentCountSampleThreshold {
		k := n / 4
		if k > betweennessSampleCap {
			k = betweennessSampleCap
		}
		if k < 1 {
			k = 1
		}
		targets = sampleNodes(nodes, k, Seed)
	}

	counts := make(map[address.Cell]int, n)
	sheets := make(map[address.Cell]map[string]bool, n)
	for _, v := range targets {
		dependents := dependentsOf(g, v)
		counts[v] = len(dependents)
		sh := make(map[string]bool, len(dependents))
		for _, c := range dependents {
			sh[c.Sheet] = true
		}
		sheets[v] = sh
	}
	return counts, sheets
}

// dependentsOf returns every address reachable from v by following inbound
// edges — the set of cells that transitively depend on v.
func dependentsOf(g *depgraph.Graph, v address.Cell) []address.Cell {
	visited := map[address.Cell]bool{v: true}
	var out []address.Cell
	queue := []address.Cell{v}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range g.InEdges(cur) {
			if visited[e.Source] {
				continue
			}
			visited[e.Source] = true
			out = append(out, e.Source)
			queue = append(queue, e.Source)
		}
	}
	return out
}

func describeDriver(dependentCount int, sheets map[string]bool) string {
	return fmt.Sprintf("Affects %d cells across %d sheet(s)", dependentCount, len(sheets))
}
