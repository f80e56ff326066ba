// Package plan renders the execution plan of a uow.Builder as a directed
// graph.
//
// Each unit becomes a node and consecutive units are joined by an edge. A
// unit created by Subscribe for a nested *uow.Builder, or for a Delegator, is
// followed by the nested builder's own units: its pre units after the start
// unit, the rest after the commit unit. The resulting graph is a single path
// in the order the units run.
package plan

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/fortressi/uow"
	"github.com/fortressi/uow/set"
)

// ErrCycle is returned when nested builders subscribe to each other.
var ErrCycle = errors.New("nested builders form a cycle")

// Delegator is implemented by collaborators that run on a builder of their
// own.
type Delegator interface {
	UnitOfWork() *uow.Builder
}

// Graph is the plan of a builder.
type Graph struct {
	*simple.DirectedGraph

	graphAttrs encoding.Attributes
	nodeAttrs  encoding.Attributes
	edgeAttrs  encoding.Attributes
}

func newGraph() *Graph {
	g := &Graph{DirectedGraph: simple.NewDirectedGraph()}
	g.graphAttrs.SetAttribute(encoding.Attribute{Key: "rankdir", Value: "LR"})
	g.nodeAttrs.SetAttribute(encoding.Attribute{Key: "shape", Value: "box"})
	return g
}

// DOTAttributers implements dot.Attributers.
func (g *Graph) DOTAttributers() (graph, node, edge encoding.Attributer) {
	return &g.graphAttrs, &g.nodeAttrs, &g.edgeAttrs
}

// Node is a unit in the plan.
type Node struct {
	graph.Node
	unit  *uow.Unit
	depth int
	attrs encoding.Attributes
}

// Unit returns the unit the node stands for.
func (n *Node) Unit() *uow.Unit { return n.unit }

// Depth returns how many builders deep the unit is nested. Units of the
// builder passed to Build have depth 0.
func (n *Node) Depth() int { return n.depth }

func (n *Node) Attributes() []encoding.Attribute {
	return n.attrs.Attributes()
}

func (n *Node) SetAttribute(attr encoding.Attribute) error {
	return n.attrs.SetAttribute(attr)
}

type edge struct {
	graph.Edge
	attrs encoding.Attributes
}

func (e *edge) Attributes() []encoding.Attribute {
	return e.attrs.Attributes()
}

func (e *edge) SetAttribute(attr encoding.Attribute) error {
	return e.attrs.SetAttribute(attr)
}

// Build creates the plan of b from its units in effective order.
func Build(b *uow.Builder) (*Graph, error) {
	w := &walker{g: newGraph()}
	if err := w.expand(b, b.Units(), 0); err != nil {
		return nil, err
	}
	return w.g, nil
}

type walker struct {
	g        *Graph
	prev     *Node
	calls    bool
	visiting set.Set[uuid.UUID]
}

func (w *walker) expand(b *uow.Builder, units []*uow.Unit, depth int) error {
	if !w.visiting.Add(b.ID()) {
		return fmt.Errorf("builder %s: %w", b.ID(), ErrCycle)
	}
	defer w.visiting.Remove(b.ID())

	for _, u := range units {
		n := w.add(u, depth)

		nested := nestedBuilder(u.Collaborator())
		if nested == nil {
			continue
		}
		n.SetAttribute(encoding.Attribute{Key: "shape", Value: "component"})

		// Start runs the nested pre phase, Commit runs everything else.
		var sub []*uow.Unit
		for _, nu := range nested.Units() {
			if (nu.Phase() == uow.PhasePre) == (u.Phase() == uow.PhasePre) {
				sub = append(sub, nu)
			}
		}
		w.calls = true
		if err := w.expand(nested, sub, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func nestedBuilder(c uow.Transactional) *uow.Builder {
	switch c := c.(type) {
	case *uow.Builder:
		return c
	case Delegator:
		return c.UnitOfWork()
	}
	return nil
}

func (w *walker) add(u *uow.Unit, depth int) *Node {
	n := &Node{Node: w.g.NewNode(), unit: u, depth: depth}
	n.SetAttribute(encoding.Attribute{Key: "label", Value: u.String()})
	switch u.Status() {
	case uow.StatusRollbackFailed:
		n.SetAttribute(encoding.Attribute{Key: "color", Value: "red"})
	case uow.StatusRolledBack:
		n.SetAttribute(encoding.Attribute{Key: "color", Value: "orange"})
	case uow.StatusCanceled:
		n.SetAttribute(encoding.Attribute{Key: "style", Value: "dashed"})
	}
	w.g.AddNode(n)

	if w.prev != nil {
		e := &edge{Edge: w.g.NewEdge(w.prev, n)}
		if w.calls {
			e.SetAttribute(encoding.Attribute{Key: "style", Value: "dotted"})
		}
		w.g.SetEdge(e)
	}
	w.prev = n
	w.calls = false
	return n
}

// Order returns the units of the plan in the order they run.
func (g *Graph) Order() ([]*uow.Unit, error) {
	sorted, err := topo.Sort(g)
	if err != nil {
		return nil, fmt.Errorf("sort plan: %w", err)
	}
	units := make([]*uow.Unit, len(sorted))
	for i, n := range sorted {
		units[i] = n.(*Node).unit
	}
	return units, nil
}

// ExportToDot exports the plan to Graphviz .dot format.
func (g *Graph) ExportToDot(name string) (string, error) {
	data, err := dot.Marshal(g, name, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to export plan to DOT format: %w", err)
	}
	return string(data), nil
}
