// Package graph detects circular dependencies among scanned files.
package graph

import (
	"strings"

	"github.com/sprite-ai/repolens/internal/model"
)

// Graph is a directed graph over file paths. Nodes keep first-appearance
// order from the edge list and successor lists keep edge order, so every
// traversal is reproducible for a fixed input.
type Graph struct {
	nodes []string
	index map[string]int
	succ  [][]int
}

// New builds a graph from dependency edges. Duplicate edges are collapsed;
// self-edges are kept.
func New(edges []model.DependencyEdge) *Graph {
	g := &Graph{index: make(map[string]int)}
	seen := make(map[[2]int]bool, len(edges))

	for _, e := range edges {
		from := g.add(e.From)
		to := g.add(e.To)
		key := [2]int{from, to}
		if seen[key] {
			continue
		}
		seen[key] = true
		g.succ[from] = append(g.succ[from], to)
	}

	return g
}

func (g *Graph) add(path string) int {
	if i, ok := g.index[path]; ok {
		return i
	}
	i := len(g.nodes)
	g.index[path] = i
	g.nodes = append(g.nodes, path)
	g.succ = append(g.succ, nil)
	return i
}

// Nodes returns every path that appears in at least one edge.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Successors returns the direct dependencies of path.
func (g *Graph) Successors(path string) []string {
	i, ok := g.index[path]
	if !ok {
		return nil
	}
	out := make([]string, len(g.succ[i]))
	for j, s := range g.succ[i] {
		out[j] = g.nodes[s]
	}
	return out
}

// HasEdge reports whether from depends directly on to.
func (g *Graph) HasEdge(from, to string) bool {
	fi, ok := g.index[from]
	if !ok {
		return false
	}
	ti, ok := g.index[to]
	if !ok {
		return false
	}
	for _, s := range g.succ[fi] {
		if s == ti {
			return true
		}
	}
	return false
}

const (
	white = iota // not visited
	gray         // on the DFS stack
	black        // finished
)

type frame struct {
	node int
	next int // index into succ[node] of the next edge to follow
}

// Cycles runs a depth-first traversal from every unvisited node and reports
// one cycle per back-edge, sliced from the DFS stack in stack order. A cycle
// that runs contiguously inside a longer reported cycle is dropped. The
// traversal uses an explicit stack, so depth is bounded by heap, not the
// goroutine stack.
func (g *Graph) Cycles() [][]string {
	n := len(g.nodes)
	color := make([]uint8, n)
	pos := make([]int, n) // position on stack while gray
	seen := make(map[string]bool)
	var cycles [][]string

	for start := 0; start < n; start++ {
		if color[start] != white {
			continue
		}

		stack := []frame{{node: start}}
		color[start] = gray
		pos[start] = 0

		for len(stack) > 0 {
			top := len(stack) - 1
			cur := stack[top].node

			if stack[top].next >= len(g.succ[cur]) {
				color[cur] = black
				stack = stack[:top]
				continue
			}

			nxt := g.succ[cur][stack[top].next]
			stack[top].next++

			switch color[nxt] {
			case white:
				color[nxt] = gray
				pos[nxt] = len(stack)
				stack = append(stack, frame{node: nxt})
			case gray:
				cycle := make([]string, 0, len(stack)-pos[nxt])
				for _, f := range stack[pos[nxt]:] {
					cycle = append(cycle, g.nodes[f.node])
				}
				key := cycleKey(cycle)
				if !seen[key] {
					seen[key] = true
					cycles = append(cycles, cycle)
				}
			}
		}
	}

	return dropContained(cycles)
}

// dropContained removes every cycle whose nodes appear as a contiguous run,
// wrapping around, of a longer cycle. Order of the survivors is kept.
func dropContained(cycles [][]string) [][]string {
	if len(cycles) < 2 {
		return cycles
	}
	out := cycles[:0:0]
	for i, c := range cycles {
		contained := false
		for j, d := range cycles {
			if i != j && len(d) > len(c) && runOf(c, d) {
				contained = true
				break
			}
		}
		if !contained {
			out = append(out, c)
		}
	}
	return out
}

// runOf reports whether some rotation of c occurs contiguously in the
// cyclic sequence d. Nodes within one cycle are distinct.
func runOf(c, d []string) bool {
	at := make(map[string]int, len(c))
	for i, p := range c {
		at[p] = i
	}
	for s := range d {
		r, ok := at[d[s]]
		if !ok {
			continue
		}
		match := true
		for k := 1; k < len(c); k++ {
			if d[(s+k)%len(d)] != c[(r+k)%len(c)] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// cycleKey identifies a cycle independent of its starting node.
func cycleKey(cycle []string) string {
	min := 0
	for i, p := range cycle {
		if p < cycle[min] {
			min = i
		}
	}
	rotated := make([]string, 0, len(cycle))
	rotated = append(rotated, cycle[min:]...)
	rotated = append(rotated, cycle[:min]...)
	return strings.Join(rotated, "\x00")
}

// FindCycles returns the circular dependency groups in edges.
func FindCycles(edges []model.DependencyEdge) [][]string {
	return New(edges).Cycles()
}
