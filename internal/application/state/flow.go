// Package state holds the logical position of the screen flow and persists it.
package state

import (
	"sync"

	"github.com/google/uuid"
	"github.com/younwookim/stagecraft/internal/domain/screen"
)

// DefaultHistory is the history capacity used when none is configured.
const DefaultHistory = 32

// Step is one recorded flow transition.
type Step struct {
	From  uuid.UUID
	To    uuid.UUID
	Event string
}

// Flow is the logical position of the screen flow: the current and previous
// node, the last event, and a bounded history of steps. It also tracks the
// navigation path, the nodes whose screens form the base, the pushed stack and
// the override, so the screen layout can be rebuilt after a restore.
type Flow struct {
	mu        sync.Mutex
	current   uuid.UUID
	previous  uuid.UUID
	lastEvent string
	history   []Step
	head      int
	size      int
	path      []uuid.UUID // base first
	override  uuid.UUID
}

// NewFlow creates a flow at start with room for capacity history steps.
func NewFlow(start uuid.UUID, capacity int) *Flow {
	if capacity < 1 {
		capacity = DefaultHistory
	}
	return &Flow{
		current: start,
		history: make([]Step, capacity),
		path:    []uuid.UUID{start},
	}
}

// Current returns the current node.
func (f *Flow) Current() uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Previous returns the node before the last step, or uuid.Nil.
func (f *Flow) Previous() uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.previous
}

// LastEvent returns the event of the last step.
func (f *Flow) LastEvent() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastEvent
}

// Advance moves the flow to node to as a plain enter and records the step.
func (f *Flow) Advance(to uuid.UUID, event string) {
	f.AdvanceWith(to, event, screen.TransitionEnter)
}

// AdvanceWith moves the flow to node to, reached with mode, and records the
// step.
func (f *Flow) AdvanceWith(to uuid.UUID, event string, mode screen.TransitionKind) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushLocked(Step{From: f.current, To: to, Event: event})
	f.previous = f.current
	f.current = to
	f.lastEvent = event

	switch mode {
	case screen.TransitionPush:
		f.path = append(f.path, to)
	case screen.TransitionPop:
		if n := len(f.path); n > 1 {
			f.path = f.path[:n-1]
		}
		f.path[len(f.path)-1] = to
	case screen.TransitionPushOverride:
		f.override = to
	case screen.TransitionPopOverride:
		f.override = uuid.Nil
	default:
		f.path = []uuid.UUID{to}
		f.override = uuid.Nil
	}
}

// Path returns the nodes of the base screen and the pushed stack, base first.
func (f *Flow) Path() []uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uuid.UUID(nil), f.path...)
}

// Override returns the node shown as override, or uuid.Nil.
func (f *Flow) Override() uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.override
}

func (f *Flow) pushLocked(s Step) {
	f.history[f.head] = s
	f.head = (f.head + 1) % len(f.history)
	if f.size < len(f.history) {
		f.size++
	}
}

// History returns the recorded steps, oldest first.
func (f *Flow) History() []Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Step, 0, f.size)
	start := (f.head - f.size + len(f.history)) % len(f.history)
	for i := 0; i < f.size; i++ {
		out = append(out, f.history[(start+i)%len(f.history)])
	}
	return out
}

// Reset moves the flow back to start and forgets the history.
func (f *Flow) Reset(start uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = start
	f.previous = uuid.Nil
	f.lastEvent = ""
	f.head, f.size = 0, 0
	clear(f.history)
	f.path = []uuid.UUID{start}
	f.override = uuid.Nil
}

// Snapshot is the persisted form of a Flow.
type Snapshot struct {
	Current   string         `yaml:"current"`
	Previous  string         `yaml:"previous,omitempty"`
	LastEvent string         `yaml:"last_event,omitempty"`
	History   []StepSnapshot `yaml:"history,omitempty"`
	Path      []string       `yaml:"path,omitempty"`
	Override  string         `yaml:"override,omitempty"`
}

// StepSnapshot is the persisted form of a Step.
type StepSnapshot struct {
	From  string `yaml:"from"`
	To    string `yaml:"to"`
	Event string `yaml:"event"`
}

// Snapshot captures the flow.
func (f *Flow) Snapshot() Snapshot {
	steps := f.History()
	f.mu.Lock()
	defer f.mu.Unlock()
	s := Snapshot{
		Current:   f.current.String(),
		LastEvent: f.lastEvent,
	}
	if f.previous != uuid.Nil {
		s.Previous = f.previous.String()
	}
	for _, st := range steps {
		s.History = append(s.History, StepSnapshot{
			From:  st.From.String(),
			To:    st.To.String(),
			Event: st.Event,
		})
	}
	for _, id := range f.path {
		s.Path = append(s.Path, id.String())
	}
	if f.override != uuid.Nil {
		s.Override = f.override.String()
	}
	return s
}

// Restore replaces the flow with s. History beyond the capacity keeps the
// newest steps. A snapshot without a path restores the current node as the
// only base.
func (f *Flow) Restore(s Snapshot) error {
	current, err := uuid.Parse(s.Current)
	if err != nil {
		return err
	}
	previous := uuid.Nil
	if s.Previous != "" {
		if previous, err = uuid.Parse(s.Previous); err != nil {
			return err
		}
	}
	steps := make([]Step, 0, len(s.History))
	for _, st := range s.History {
		from, err := uuid.Parse(st.From)
		if err != nil {
			return err
		}
		to, err := uuid.Parse(st.To)
		if err != nil {
			return err
		}
		steps = append(steps, Step{From: from, To: to, Event: st.Event})
	}
	path := make([]uuid.UUID, 0, len(s.Path))
	for _, raw := range s.Path {
		id, err := uuid.Parse(raw)
		if err != nil {
			return err
		}
		path = append(path, id)
	}
	if len(path) == 0 {
		path = append(path, current)
	}
	override := uuid.Nil
	if s.Override != "" {
		if override, err = uuid.Parse(s.Override); err != nil {
			return err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.current, f.previous, f.lastEvent = current, previous, s.LastEvent
	f.path, f.override = path, override
	f.head, f.size = 0, 0
	clear(f.history)
	for _, st := range steps {
		f.pushLocked(st)
	}
	return nil
}
