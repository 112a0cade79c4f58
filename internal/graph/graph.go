// Package graph validates and orders the step-dependency DAG produced by a
// decomposition plan, using Kahn's algorithm.
package graph

import (
	"fmt"
	"sort"
)

// Node is the minimal shape a plan task needs to expose for validation: a
// synthetic id and the ids it depends on.
type Node struct {
	ID        string
	DependsOn []string
}

// DependencyGraph is a validated, acyclic view over a set of nodes. It is
// built once per decomposition attempt and is a pure function of its input
// nodes (§8 "Determinism of validation").
type DependencyGraph struct {
	nodes      map[string]Node
	inDegree   map[string]int
	dependents map[string][]string
	order      []string // topological order, populated at construction
}

// New builds a DependencyGraph from nodes, validating that the depends_on
// relation is acyclic (I1). A cycle is reported as an error naming how many
// nodes could not be ordered, mirroring the Kahn's-algorithm termination
// check: if fewer nodes were processed than exist, a cycle remains.
func New(nodes []Node) (*DependencyGraph, error) {
	g := &DependencyGraph{
		nodes:      make(map[string]Node, len(nodes)),
		inDegree:   make(map[string]int, len(nodes)),
		dependents: make(map[string][]string, len(nodes)),
	}
	for _, n := range nodes {
		g.nodes[n.ID] = n
		if _, ok := g.inDegree[n.ID]; !ok {
			g.inDegree[n.ID] = 0
		}
	}
	for _, n := range nodes {
		for _, dep := range n.DependsOn {
			g.inDegree[n.ID]++
			g.dependents[dep] = append(g.dependents[dep], n.ID)
		}
	}
	if err := g.detectCyclesAndOrder(); err != nil {
		return nil, err
	}
	return g, nil
}

// detectCyclesAndOrder runs Kahn's algorithm: seed a queue with every
// zero-in-degree node, repeatedly pop a node, record it as processed, and
// decrement each dependent's in-degree, enqueuing any that reach zero. If
// the processed count is less than the total node count when the queue
// drains, a cycle exists among the unprocessed nodes.
func (g *DependencyGraph) detectCyclesAndOrder() error {
	inDegree := make(map[string]int, len(g.inDegree))
	for k, v := range g.inDegree {
		inDegree[k] = v
	}

	var ids []string
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids) // deterministic seeding order

	var queue []string
	for _, id := range ids {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	processed := 0
	order := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		processed++

		deps := append([]string(nil), g.dependents[id]...)
		sort.Strings(deps)
		for _, dep := range deps {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if processed < len(g.nodes) {
		return fmt.Errorf("circular dependency detected: %d tasks could not be ordered", len(g.nodes)-processed)
	}
	g.order = order
	return nil
}

// TopologicalOrder returns node ids in a valid dependency-respecting order.
func (g *DependencyGraph) TopologicalOrder() []string {
	return append([]string(nil), g.order...)
}

// ReadyNodes returns the ids of every node with no unsatisfied dependency
// among completed, i.e. zero total in-degree. Used for the initial wave.
func (g *DependencyGraph) ReadyNodes() []string {
	var ready []string
	for id, deg := range g.inDegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)
	return ready
}

// Node looks up a node by id.
func (g *DependencyGraph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Size returns the number of nodes in the graph.
func (g *DependencyGraph) Size() int {
	return len(g.nodes)
}
