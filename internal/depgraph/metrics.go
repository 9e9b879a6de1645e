package depgraph

import "github.com/cellgraph/sheetgraph/internal/address"

// MaxDepth computes the longest path, in condensation-DAG terms, from any
// input-adjacent node to any output node, per the engine's max_depth
// definition: each SCC collapses to a single node of weight = its size,
// and the computation runs as topological-order dynamic programming.
func MaxDepth(g *Graph, sccs []SCC) int {
	sccOf := make(map[address.Cell]int, len(g.Nodes))
	for i, scc := range sccs {
		for _, m := range scc.Members {
			sccOf[m] = i
		}
	}

	// Build condensation adjacency: componentAdj[i] -> set of j reachable
	// by a direct edge from a member of i to a member of j, i != j.
	condAdjSet := make([]map[int]bool, len(sccs))
	condIndeg := make([]int, len(sccs))
	for i := range condAdjSet {
		condAdjSet[i] = make(map[int]bool)
	}
	for _, e := range g.Edges {
		si, ti := sccOf[e.Source], sccOf[e.Target]
		if si == ti {
			continue
		}
		if !condAdjSet[si][ti] {
			condAdjSet[si][ti] = true
			condIndeg[ti]++
		}
	}

	order := topoOrder(condAdjSet, condIndeg)

	// weight[i] is the number of cells an SCC collapses, so a path through
	// it contributes that many hops. best[i] accumulates the longest
	// weighted path ending at component i, pushed forward in topo order.
	weight := make([]int, len(sccs))
	for i, scc := range sccs {
		weight[i] = len(scc.Members)
	}
	best := make([]int, len(sccs))
	for i, w := range weight {
		best[i] = w - 1
	}
	for _, i := range order {
		for j := range condAdjSet[i] {
			candidate := best[i] + weight[j]
			if candidate > best[j] {
				best[j] = candidate
			}
		}
	}

	max := 0
	for _, d := range best {
		if d > max {
			max = d
		}
	}
	return max
}

// topoOrder returns a topological order of condensation components given
// their adjacency and in-degree (Kahn's algorithm); components are
// processed in ascending index order when multiple are ready, for
// determinism.
func topoOrder(adj []map[int]bool, indeg []int) []int {
	indegCopy := make([]int, len(indeg))
	copy(indegCopy, indeg)
	var queue []int
	for i, d := range indegCopy {
		if d == 0 {
			queue = append(queue, i)
		}
	}
	var order []int
	for len(queue) > 0 {
		// pop smallest index for determinism
		minIdx := 0
		for i := 1; i < len(queue); i++ {
			if queue[i] < queue[minIdx] {
				minIdx = i
			}
		}
		n := queue[minIdx]
		queue = append(queue[:minIdx], queue[minIdx+1:]...)
		order = append(order, n)
		for j := range adj[n] {
			indegCopy[j]--
			if indegCopy[j] == 0 {
				queue = append(queue, j)
			}
		}
	}
	return order
}
