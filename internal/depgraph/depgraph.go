// Package depgraph adapts the generic string/int dependency graph from
// pkg/toposort to this module's two uses of it: asserting the six-pass
// dependency graph is acyclic and ordering pass teardown (spec §4.6), and
// recording a source file's include graph (spec §4.2). The Loader detects
// include cycles with its own include stack, not through this graph.
package depgraph

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/mm-tools/mmcore/pkg/toposort"
)

// ErrCycle is returned when a graph is not a DAG. The offending cycle, in
// node-name form, is embedded in the error message for diagnostics.
var ErrCycle = errors.New("depgraph: cycle detected")

// Graph is a directed graph over named nodes, used both for the fixed
// six-pass dependency graph and for per-parse include graphs.
type Graph struct {
	g     *toposort.Graph
	names []string
	seen  map[string]bool
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{g: toposort.NewGraph(), seen: make(map[string]bool)}
}

// AddNode registers name as a node, a no-op if it already exists.
func (g *Graph) AddNode(name string) {
	g.g.AddNode(name)
	g.remember(name)
}

// AddEdge records that from depends on to (from requires to to run first).
func (g *Graph) AddEdge(from, to string) {
	g.g.AddEdge(from, to)
	g.remember(from)
	g.remember(to)
}

func (g *Graph) remember(name string) {
	if !g.seen[name] {
		g.seen[name] = true
		g.names = append(g.names, name)
	}
}

// TopoOrder returns the nodes in dependency order (a node appears only
// after everything it depends on) or ErrCycle if the graph is not a DAG.
func (g *Graph) TopoOrder() ([]string, error) {
	order, ok := g.g.Toposort()
	if !ok {
		return nil, g.cycleError()
	}

	// pkg/toposort lists an edge's source before its target; AddEdge's source
	// is the dependent, so reverse to put dependencies first.
	slices.Reverse(order)

	return order, nil
}

// ReverseTopoOrder returns TopoOrder reversed, the order spec §4.6 requires
// for pass-slot teardown (verify before scope before name before segments).
func (g *Graph) ReverseTopoOrder() ([]string, error) {
	order, err := g.TopoOrder()
	if err != nil {
		return nil, err
	}

	reversed := make([]string, len(order))
	for i, name := range order {
		reversed[len(order)-1-i] = name
	}

	return reversed, nil
}

// FindCycle reports the cycle containing seed, if any.
func (g *Graph) FindCycle(seed string) []string {
	return g.g.FindCycle(seed)
}

func (g *Graph) cycleError() error {
	for _, n := range g.names {
		if cyc := g.g.FindCycle(n); len(cyc) > 0 {
			return fmt.Errorf("%w: %s", ErrCycle, strings.Join(cyc, " -> "))
		}
	}

	return ErrCycle
}
