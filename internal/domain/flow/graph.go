// Package flow models the screen flow graph: nodes bound to screens and
// event-named transitions between them, optionally guarded by conditions.
package flow

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/younwookim/stagecraft/internal/domain/screen"
)

// ErrNodeNotFound is returned when a transition or lookup names an unknown node.
var ErrNodeNotFound = errors.New("flow node not found")

// ErrDuplicateNode is returned when two nodes share a GUID.
var ErrDuplicateNode = errors.New("duplicate flow node")

// Node is a graph vertex bound to one screen.
type Node struct {
	ID     uuid.UUID
	Name   string
	Screen *screen.Screen
}

// Condition guards a transition. An error counts as false.
type Condition interface {
	Evaluate() (bool, error)
}

// ConditionFunc adapts a plain predicate to Condition.
type ConditionFunc func() bool

// Evaluate calls f.
func (f ConditionFunc) Evaluate() (bool, error) {
	return f(), nil
}

// Transition moves the flow from one node to another when Event fires.
type Transition struct {
	From      uuid.UUID
	To        uuid.UUID
	Event     string
	Mode      screen.TransitionKind
	Condition Condition
}

// Graph is an immutable set of nodes and transitions.
type Graph struct {
	start       uuid.UUID
	nodes       map[uuid.UUID]*Node
	byName      map[string]*Node
	transitions []Transition
}

// NewGraph validates nodes and transitions. The first node is the start node.
func NewGraph(nodes []*Node, transitions []Transition) (*Graph, error) {
	g := &Graph{
		nodes:  make(map[uuid.UUID]*Node, len(nodes)),
		byName: make(map[string]*Node, len(nodes)),
	}
	for i, n := range nodes {
		if n == nil {
			return nil, fmt.Errorf("flow node %d is nil", i)
		}
		if n.ID == uuid.Nil {
			n.ID = uuid.New()
		}
		if _, ok := g.nodes[n.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
		}
		g.nodes[n.ID] = n
		if n.Name != "" {
			g.byName[n.Name] = n
		}
		if i == 0 {
			g.start = n.ID
		}
	}
	for _, t := range transitions {
		if _, ok := g.nodes[t.From]; !ok {
			return nil, fmt.Errorf("%w: transition %q from %s", ErrNodeNotFound, t.Event, t.From)
		}
		if _, ok := g.nodes[t.To]; !ok {
			return nil, fmt.Errorf("%w: transition %q to %s", ErrNodeNotFound, t.Event, t.To)
		}
	}
	g.transitions = append([]Transition(nil), transitions...)
	return g, nil
}

// Start returns the first declared node.
func (g *Graph) Start() *Node {
	return g.nodes[g.start]
}

// Node returns the node with the given GUID.
func (g *Graph) Node(id uuid.UUID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// NodeByName returns the node with the given name.
func (g *Graph) NodeByName(name string) (*Node, bool) {
	n, ok := g.byName[name]
	return n, ok
}

// Transitions returns the transitions in declaration order.
func (g *Graph) Transitions() []Transition {
	return g.transitions
}

// Len returns the node count.
func (g *Graph) Len() int {
	return len(g.nodes)
}
