package graph

import (
	"math"
	"sort"
)

// Graph is an in-memory directed page graph. Hierarchy edges drive depth
// and child counts, hierarchy and link edges together drive centrality.
type Graph struct {
	nodes    []string
	index    map[string]int
	children map[string]map[string]struct{}
	out      map[string]map[string]struct{}
	isChild  map[string]bool
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		index:    map[string]int{},
		children: map[string]map[string]struct{}{},
		out:      map[string]map[string]struct{}{},
		isChild:  map[string]bool{},
	}
}

func (g *Graph) addNode(id string) {
	if _, ok := g.index[id]; ok {
		return
	}
	g.index[id] = len(g.nodes)
	g.nodes = append(g.nodes, id)
}

func (g *Graph) addOut(source, target string) {
	if g.out[source] == nil {
		g.out[source] = map[string]struct{}{}
	}
	g.out[source][target] = struct{}{}
}

// AddParentOf adds a hierarchy edge. Duplicate pairs are counted once.
func (g *Graph) AddParentOf(parent, child string) {
	g.addNode(parent)
	g.addNode(child)
	if g.children[parent] == nil {
		g.children[parent] = map[string]struct{}{}
	}
	g.children[parent][child] = struct{}{}
	g.isChild[child] = true
	g.addOut(parent, child)
}

// AddLink adds an associative edge that only takes part in centrality.
func (g *Graph) AddLink(source, target string) {
	g.addNode(source)
	g.addNode(target)
	g.addOut(source, target)
}

// Nodes returns all node ids in insertion order.
func (g *Graph) Nodes() []string {
	return append([]string(nil), g.nodes...)
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Roots returns the nodes that never appear as a child, in insertion order.
// Nodes only connected by links are roots as well.
func (g *Graph) Roots() []string {
	var roots []string
	for _, id := range g.nodes {
		if !g.isChild[id] {
			roots = append(roots, id)
		}
	}
	return roots
}

// Children returns the sorted direct children of a node.
func (g *Graph) Children(id string) []string {
	children := make([]string, 0, len(g.children[id]))
	for child := range g.children[id] {
		children = append(children, child)
	}
	sort.Strings(children)
	return children
}

// HierarchyDepths returns for every node the maximum over all roots of the
// shortest hierarchy distance from that root. Nodes no root reaches, for
// example members of a parent cycle, keep depth 0.
func HierarchyDepths(g *Graph) map[string]int {
	depths := make(map[string]int, len(g.nodes))
	for _, id := range g.nodes {
		depths[id] = 0
	}

	for _, root := range g.Roots() {
		visited := map[string]bool{root: true}
		queue := []string{root}
		distance := map[string]int{root: 0}

		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]

			if distance[current] > depths[current] {
				depths[current] = distance[current]
			}

			for child := range g.children[current] {
				if visited[child] {
					continue
				}
				visited[child] = true
				distance[child] = distance[current] + 1
				queue = append(queue, child)
			}
		}
	}

	return depths
}

// ChildCounts returns the number of distinct hierarchy successors per node.
func ChildCounts(g *Graph) map[string]int {
	counts := make(map[string]int, len(g.nodes))
	for _, id := range g.nodes {
		counts[id] = len(g.children[id])
	}
	return counts
}

// PageRank computes centrality by power iteration. Rank of nodes without
// outgoing edges is spread evenly over all nodes, so scores sum to one.
// Iteration stops once the L1 change drops below n*tolerance or after
// maxIterations rounds.
func PageRank(g *Graph, damping float64, maxIterations int, tolerance float64) map[string]float64 {
	n := len(g.nodes)
	ranks := make(map[string]float64, n)
	if n == 0 {
		return ranks
	}

	current := make([]float64, n)
	for i := range current {
		current[i] = 1.0 / float64(n)
	}

	outDegree := make([]int, n)
	incoming := make([][]int, n)
	for source, targets := range g.out {
		s := g.index[source]
		outDegree[s] = len(targets)
		for target := range targets {
			t := g.index[target]
			incoming[t] = append(incoming[t], s)
		}
	}

	next := make([]float64, n)
	for iteration := 0; iteration < maxIterations; iteration++ {
		dangling := 0.0
		for i, rank := range current {
			if outDegree[i] == 0 {
				dangling += rank
			}
		}

		base := (1-damping)/float64(n) + damping*dangling/float64(n)
		delta := 0.0
		for i := range next {
			sum := 0.0
			for _, s := range incoming[i] {
				sum += current[s] / float64(outDegree[s])
			}
			next[i] = base + damping*sum
			delta += math.Abs(next[i] - current[i])
		}

		current, next = next, current
		if delta < float64(n)*tolerance {
			break
		}
	}

	for i, id := range g.nodes {
		ranks[id] = current[i]
	}
	return ranks
}
