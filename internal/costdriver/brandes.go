package costdriver

import (
	"math/rand/v2"

	"github.com/cellgraph/sheetgraph/internal/address"
	"github.com/cellgraph/sheetgraph/internal/depgraph"
)

// betweennessCentrality computes Brandes' algorithm over the graph treated
// as unweighted and directed (shortest paths follow edge direction), using
// every node as a source when N <= betweennessSampleThreshold, or a fixed
// seeded sample of min(500, N/4) sources otherwise. Scores are normalized
// by the undirected normalizer (N-1)(N-2)/2 and clamped to [0,1].
func betweennessCentrality(g *depgraph.Graph, nodes []address.Cell) map[address.Cell]float64 {
	n := len(nodes)
	scores := make(map[address.Cell]float64, n)
	for _, a := range nodes {
		scores[a] = 0
	}
	if n < 3 {
		return scores
	}

	sources := nodes
	if n > betweennessSampleThreshold {
		k := n / 4
		if k > betweennessSampleCap {
			k = betweennessSampleCap
		}
		sources = sampleNodes(nodes, k, Seed)
	}

	for _, s := range sources {
		brandesSingleSource(g, nodes, s, scores)
	}

	normalizer := float64(n-1) * float64(n-2) / 2
	if normalizer <= 0 {
		return scores
	}
	for a, v := range scores {
		scores[a] = clamp01(v / normalizer)
	}
	return scores
}

// brandesSingleSource runs one BFS-based Brandes accumulation pass from s,
// adding dependency credit to scores in place.
func brandesSingleSource(g *depgraph.Graph, nodes []address.Cell, s address.Cell, scores map[address.Cell]float64) {
	sigma := make(map[address.Cell]float64, len(nodes))
	dist := make(map[address.Cell]int, len(nodes))
	preds := make(map[address.Cell][]address.Cell, len(nodes))
	for _, a := range nodes {
		dist[a] = -1
	}
	sigma[s] = 1
	dist[s] = 0

	var order []address.Cell
	queue := []address.Cell{s}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		order = append(order, v)
		for _, e := range g.OutEdges(v) {
			w := e.Target
			if dist[w] < 0 {
				dist[w] = dist[v] + 1
				queue = append(queue, w)
			}
			if dist[w] == dist[v]+1 {
				sigma[w] += sigma[v]
				preds[w] = append(preds[w], v)
			}
		}
	}

	delta := make(map[address.Cell]float64, len(nodes))
	for i := len(order) - 1; i >= 0; i-- {
		w := order[i]
		for _, v := range preds[w] {
			if sigma[w] == 0 {
				continue
			}
			delta[v] += (sigma[v] / sigma[w]) * (1 + delta[w])
		}
		if w != s {
			scores[w] += delta[w]
		}
	}
}

// sampleNodes deterministically selects k distinct nodes from nodes using a
// seeded PCG source, so repeated runs over the same graph pick the same
// sample.
func sampleNodes(nodes []address.Cell, k int, seed uint64) []address.Cell {
	if k >= len(nodes) {
		return nodes
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	shuffled := make([]address.Cell, len(nodes))
	copy(shuffled, nodes)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	return shuffled[:k]
}
