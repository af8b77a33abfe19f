// Package screens drives top-level navigation between screens.
//
// Navigation state is a base screen, a stack whose bottom is the base, and a
// single override slot that shadows the stack while set. At most one
// transition runs at a time; a call made while another is in flight is
// rejected rather than queued.
package screens

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/younwookim/stagecraft/internal/application/scene"
	"github.com/younwookim/stagecraft/internal/domain/screen"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// ErrGuard is wrapped by every guard rejection.
var ErrGuard = errors.New("navigation rejected")

var (
	ErrNilScreen      = fmt.Errorf("%w: nil screen", ErrGuard)
	ErrOverrideActive = fmt.Errorf("%w: override active", ErrGuard)
	ErrAlreadyCurrent = fmt.Errorf("%w: target is already current", ErrGuard)
	ErrNothingToPop   = fmt.Errorf("%w: nothing to pop back to", ErrGuard)
	ErrNoOverride     = fmt.Errorf("%w: no override active", ErrGuard)
)

// LoadingScreen is the loading UI shown while a screen loads.
type LoadingScreen interface {
	Show(ctx context.Context) error
	Hide(ctx context.Context) error
	SetProgress(fraction float64)
}

// Hooks are notified around every transition. Nil hooks are skipped.
type Hooks struct {
	PreExit   func(s *screen.Screen)
	PostExit  func(s *screen.Screen)
	PreEnter  func(s *screen.Screen)
	PostEnter func(s *screen.Screen)
}

type listener struct {
	id int
	fn func(screen.Completion)
}

// Manager is the screen navigation state machine.
type Manager struct {
	mu      sync.Mutex
	busy    atomic.Bool
	scenes  *scene.Cache
	loading LoadingScreen
	log     *zap.Logger

	// guarded by mu
	tasks     map[string]PreloadTask
	base      *screen.Screen
	stack     []*screen.Screen
	override  *screen.Screen
	previous  *screen.Screen
	listeners []listener
	nextID    int

	Hooks Hooks
}

// NewManager creates a manager with no screen. loading may be nil.
func NewManager(scenes *scene.Cache, loading LoadingScreen, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		scenes:  scenes,
		loading: loading,
		log:     log.Named("screen"),
		tasks:   make(map[string]PreloadTask),
	}
}

// Bootstrap records s as the base screen without loading anything. It is for
// the screen whose scenes are already present at startup.
func (m *Manager) Bootstrap(s *screen.Screen) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.base = s
}

// RegisterTask makes a preload task available to screens by name.
func (m *Manager) RegisterTask(name string, task PreloadTask) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[name] = task
}

// AddCompletedListener registers fn for every completed transition and
// returns a function that removes it.
func (m *Manager) AddCompletedListener(fn func(screen.Completion)) (remove func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.listeners = append(m.listeners, listener{id: id, fn: fn})
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, l := range m.listeners {
			if l.id == id {
				m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
				return
			}
		}
	}
}

// Current returns the effective screen: the override, else the stack top,
// else the base.
func (m *Manager) Current() *screen.Screen {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentLocked()
}

// Base returns the screen set by the last Enter or Bootstrap.
func (m *Manager) Base() *screen.Screen {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.base
}

// Previous returns the effective screen before the last completed transition.
func (m *Manager) Previous() *screen.Screen {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.previous
}

// Override returns the override screen, or nil.
func (m *Manager) Override() *screen.Screen {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.override
}

// Stack returns a copy of the stack, bottom first.
func (m *Manager) Stack() []*screen.Screen {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*screen.Screen(nil), m.stack...)
}

// StackDepth returns the number of stacked screens.
func (m *Manager) StackDepth() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stack)
}

// IsTransitioning reports whether a transition is in flight.
func (m *Manager) IsTransitioning() bool {
	return m.busy.Load()
}

func (m *Manager) currentLocked() *screen.Screen {
	if m.override != nil {
		return m.override
	}
	if n := len(m.stack); n > 0 {
		return m.stack[n-1]
	}
	return m.base
}

// run executes one transition under the busy flag. The flag is cleared
// before listeners are told, so a listener may start the next transition.
func (m *Manager) run(kind screen.TransitionKind, target *screen.Screen, fn func() (screen.Completion, error)) (screen.Result, error) {
	if !m.busy.CompareAndSwap(false, true) {
		m.log.Warn("transition rejected, another is in flight",
			zap.Stringer("kind", kind),
			zap.Stringer("target", target))
		return screen.RejectedBusy, nil
	}

	c, err := func() (screen.Completion, error) {
		defer m.busy.Store(false)
		return fn()
	}()
	switch {
	case errors.Is(err, ErrGuard):
		m.log.Warn("transition rejected",
			zap.Stringer("kind", kind),
			zap.Stringer("target", target),
			zap.Error(err))
		return screen.RejectedGuard, err
	case err != nil:
		m.log.Error("transition failed",
			zap.Stringer("kind", kind),
			zap.Stringer("target", target),
			zap.Error(err))
		return screen.Failed, err
	}

	m.log.Info("transition completed",
		zap.Stringer("kind", kind),
		zap.Stringer("from", c.From),
		zap.Stringer("to", c.To),
		zap.String("source", c.Context.Source))
	m.emit(c)
	return screen.Completed, nil
}

func (m *Manager) emit(c screen.Completion) {
	m.mu.Lock()
	ls := append([]listener(nil), m.listeners...)
	m.mu.Unlock()
	for _, l := range ls {
		l.fn(c)
	}
}

func call(hook func(*screen.Screen), s *screen.Screen) {
	if hook != nil && s != nil {
		hook(s)
	}
}
