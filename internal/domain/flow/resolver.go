package flow

import (
	"github.com/google/uuid"
)

type transitionKey struct {
	from  uuid.UUID
	event string
}

// Resolver answers "which node comes next" for a graph. It holds no mutable state.
type Resolver struct {
	graph *Graph
	index map[transitionKey][]Transition
}

// NewResolver indexes g's transitions by (from, event), keeping declaration order.
func NewResolver(g *Graph) *Resolver {
	r := &Resolver{
		graph: g,
		index: make(map[transitionKey][]Transition),
	}
	for _, t := range g.Transitions() {
		k := transitionKey{from: t.From, event: t.Event}
		r.index[k] = append(r.index[k], t)
	}
	return r
}

// Graph returns the resolved graph.
func (r *Resolver) Graph() *Graph {
	return r.graph
}

// TryResolve returns the first transition out of current on event whose
// condition holds. Conditions that fail or panic count as false.
func (r *Resolver) TryResolve(current uuid.UUID, event string) (Transition, *Node, bool) {
	for _, t := range r.index[transitionKey{from: current, event: event}] {
		if !holds(t.Condition) {
			continue
		}
		next, ok := r.graph.Node(t.To)
		if !ok {
			continue
		}
		return t, next, true
	}
	return Transition{}, nil, false
}

// Candidates returns how many transitions are declared for (current, event).
func (r *Resolver) Candidates(current uuid.UUID, event string) int {
	return len(r.index[transitionKey{from: current, event: event}])
}

func holds(c Condition) (ok bool) {
	if c == nil {
		return true
	}
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	v, err := c.Evaluate()
	if err != nil {
		return false
	}
	return v
}
