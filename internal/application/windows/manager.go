// Package windows manages a stack of overlay windows above the current screen.
//
// Every mutating operation passes through a single-permit gate. Opening a
// window holds the gate while the window is registered and played in, then
// releases it and waits on the window's close token; the close itself runs
// under the gate again. Many windows can therefore sit open at once while
// their structural changes never interleave.
package windows

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/younwookim/stagecraft/internal/application/pool"
	"github.com/younwookim/stagecraft/internal/domain/resource"
	"github.com/younwookim/stagecraft/internal/domain/window"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

var (
	// ErrNotTemplate is returned when a window asset is not a pool template.
	ErrNotTemplate = errors.New("window asset is not a template")
	// ErrNotView is returned when a spawned instance does not implement View.
	ErrNotView = errors.New("window instance is not a view")
	// ErrSpawnFailed is returned when the pool host refuses to spawn.
	ErrSpawnFailed = errors.New("window spawn refused")
)

// View is the contract a window instance fulfils.
type View interface {
	pool.Object
	window.Animatable
	SetSortingOrder(order int)
	// Bind hands the view a closer it may call to close itself.
	Bind(c Closer)
	// RequestClose asks the view to close itself through its closer.
	RequestClose()
	OnShown()
	OnHidden()
}

// Defaulter is implemented by views that declare their own defaults.
type Defaulter interface {
	Defaults() window.Defaults
}

// Closer closes one window with a result payload.
type Closer interface {
	Close(result any)
}

// PoolHost spawns and returns window instances.
type PoolHost interface {
	Spawn(tmpl pool.Template, parent any) pool.Object
	Despawn(obj pool.Object)
}

// InputBlocker blocks input while a window animates.
type InputBlocker interface {
	Block(key string)
	Unblock(key string)
}

// Spec is the static configuration of a window type.
type Spec struct {
	// Asset is the template's asset key; the type name is used when empty.
	Asset string
	// Options override the view's own defaults for this type. Unset fields
	// fall through to the view.
	Options window.Options
}

type entry struct {
	id    uint64
	typ   string
	view  View
	opts  window.Resolved
	order int
	token *token
	// guarded by Manager.mu
	forceCleaned bool
}

// Manager owns the window stack.
type Manager struct {
	gate        *semaphore.Weighted
	assets      resource.AssetLoader
	host        PoolHost
	input       InputBlocker
	transitions window.TransitionFactory
	sorting     window.Sorting
	log         *zap.Logger

	mu        sync.Mutex
	specs     map[string]Spec
	templates map[string]pool.Template
	list      []*entry
	byView    map[View]*entry
	nextID    uint64

	// Parent is passed to the pool host for every spawn.
	Parent any

	OnWindowOpened func(v View)
	OnWindowClosed func(v View)
}

// NewManager creates a window manager. input and transitions may be nil.
func NewManager(
	assets resource.AssetLoader,
	host PoolHost,
	input InputBlocker,
	transitions window.TransitionFactory,
	sorting window.Sorting,
	log *zap.Logger,
) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		gate:        semaphore.NewWeighted(1),
		assets:      assets,
		host:        host,
		input:       input,
		transitions: transitions,
		sorting:     sorting,
		log:         log.Named("window"),
		specs:       make(map[string]Spec),
		templates:   make(map[string]pool.Template),
		byView:      make(map[View]*entry),
	}
}

// Register declares a window type.
func (m *Manager) Register(typ string, spec Spec) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.specs[typ] = spec
}

// Open shows a window of type typ and waits until it is closed. It returns
// the close payload only for a normal close; bulk and forced closes yield the
// zero value. Cancelling ctx force-closes the window.
func Open[T any](ctx context.Context, m *Manager, typ string, opts window.Options) (T, error) {
	var zero T
	e, err := m.open(ctx, typ, opts)
	if err != nil {
		return zero, err
	}

	res, err := m.await(ctx, e)
	if err != nil || res == nil {
		return zero, err
	}
	v, ok := res.(T)
	if !ok {
		m.log.Warn("window result type mismatch",
			zap.String("type", typ),
			zap.String("want", fmt.Sprintf("%T", zero)),
			zap.String("got", fmt.Sprintf("%T", res)))
		return zero, nil
	}
	return v, nil
}

func (m *Manager) open(ctx context.Context, typ string, opts window.Options) (*entry, error) {
	if err := m.gate.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer m.gate.Release(1)

	tmpl, spec, err := m.template(ctx, typ)
	if err != nil {
		m.log.Error("failed to resolve window template", zap.String("type", typ), zap.Error(err))
		return nil, err
	}

	obj := m.host.Spawn(tmpl, m.Parent)
	if obj == nil {
		m.log.Error("failed to spawn window", zap.String("type", typ))
		return nil, fmt.Errorf("%w: %s", ErrSpawnFailed, typ)
	}
	view, ok := obj.(View)
	if !ok {
		m.host.Despawn(obj)
		m.log.Error("spawned window is not a view", zap.String("type", typ))
		return nil, fmt.Errorf("%w: %s", ErrNotView, typ)
	}

	var defaults window.Defaults
	if d, ok := view.(Defaulter); ok {
		defaults = d.Defaults()
	}

	m.mu.Lock()
	m.nextID++
	e := &entry{
		id:    m.nextID,
		typ:   typ,
		view:  view,
		opts:  opts.Or(spec.Options).Resolve(defaults),
		token: newToken(),
	}
	m.list = append(m.list, e)
	m.byView[view] = e
	e.order = m.sorting.Order(e.opts.Kind, len(m.list))
	m.mu.Unlock()

	view.SetSortingOrder(e.order)
	view.Bind(closer{e.token})
	m.play(ctx, e, e.opts.TransitionIn, true)
	view.OnShown()

	m.log.Debug("window opened",
		zap.String("type", typ),
		zap.Stringer("kind", e.opts.Kind),
		zap.Int("order", e.order))
	if m.OnWindowOpened != nil {
		m.OnWindowOpened(view)
	}
	return e, nil
}

func (m *Manager) await(ctx context.Context, e *entry) (any, error) {
	var cancelled error
	select {
	case <-e.token.done:
	case <-ctx.Done():
		if e.token.resolve(window.CloseForce, true, nil) {
			cancelled = ctx.Err()
		}
	}

	ctx = context.WithoutCancel(ctx)
	// cannot fail: ctx is never cancelled
	_ = m.gate.Acquire(ctx, 1)
	defer m.gate.Release(1)

	m.mu.Lock()
	cleaned := e.forceCleaned
	m.mu.Unlock()
	if cleaned {
		return nil, cancelled
	}

	reason, immediate, result := e.token.outcome()
	if !immediate {
		m.play(ctx, e, e.opts.TransitionOut, false)
	}
	m.remove(e)
	m.teardown(e, reason)

	if reason != window.CloseNormal {
		return nil, cancelled
	}
	return result, nil
}

// play runs a transition with input blocked around it when requested.
// Transition faults are logged and the window proceeds without animation.
func (m *Manager) play(ctx context.Context, e *entry, d window.Descriptor, in bool) {
	if d.IsZero() || m.transitions == nil {
		return
	}
	tr, err := m.transitions.Create(d)
	if err != nil {
		m.log.Warn("failed to create window transition", zap.String("type", e.typ), zap.Error(err))
		return
	}

	if e.opts.BlockInput && m.input != nil {
		key := fmt.Sprintf("window:%s:%d", e.typ, e.id)
		m.input.Block(key)
		defer m.input.Unblock(key)
	}

	if in {
		err = tr.In(ctx, e.view)
	} else {
		err = tr.Out(ctx, e.view)
	}
	if err != nil {
		m.log.Warn("window transition interrupted", zap.String("type", e.typ), zap.Error(err))
	}
}

func (m *Manager) teardown(e *entry, reason window.CloseReason) {
	e.view.OnHidden()
	m.host.Despawn(e.view)
	m.log.Debug("window closed", zap.String("type", e.typ), zap.Stringer("reason", reason))
	if m.OnWindowClosed != nil {
		m.OnWindowClosed(e.view)
	}
}

func (m *Manager) remove(e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, x := range m.list {
		if x == e {
			m.list = append(m.list[:i], m.list[i+1:]...)
			break
		}
	}
	if m.byView[e.view] == e {
		delete(m.byView, e.view)
	}
}

// template returns the cached template for typ, loading it on first use,
// along with the registered spec. Callers hold the gate.
func (m *Manager) template(ctx context.Context, typ string) (pool.Template, Spec, error) {
	m.mu.Lock()
	spec := m.specs[typ]
	tmpl, ok := m.templates[typ]
	m.mu.Unlock()
	if ok {
		return tmpl, spec, nil
	}

	key := spec.Asset
	if key == "" {
		key = typ
	}
	asset, err := m.assets.LoadAsset(ctx, key)
	if err != nil {
		return nil, spec, fmt.Errorf("failed to load window template %s: %w", key, err)
	}
	if asset == nil {
		return nil, spec, fmt.Errorf("failed to load window template %s: %w", key, resource.ErrEmpty)
	}
	tmpl, ok = asset.(pool.Template)
	if !ok {
		return nil, spec, fmt.Errorf("%w: %s is %T", ErrNotTemplate, key, asset)
	}

	m.mu.Lock()
	m.templates[typ] = tmpl
	m.mu.Unlock()
	return tmpl, spec, nil
}

// Close closes view with a result. An untracked view is asked to close itself.
func (m *Manager) Close(ctx context.Context, view View, result any) error {
	if view == nil {
		return nil
	}
	if err := m.gate.Acquire(ctx, 1); err != nil {
		return err
	}
	m.mu.Lock()
	e, ok := m.byView[view]
	m.mu.Unlock()
	if ok {
		e.token.resolve(window.CloseNormal, false, result)
	}
	m.gate.Release(1)

	if !ok {
		m.log.Debug("closing untracked window through the view")
		view.RequestClose()
	}
	return nil
}

// CloseTop closes the top window. It reports false when no window is open.
func (m *Manager) CloseTop(ctx context.Context, result any) (bool, error) {
	if err := m.gate.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer m.gate.Release(1)

	e := m.top()
	if e == nil {
		return false, nil
	}
	e.token.resolve(window.CloseNormal, false, result)
	return true, nil
}

// CloseAll closes every window. With immediate, transitions out are skipped.
// With forceCleanup, every window is torn down before CloseAll returns.
func (m *Manager) CloseAll(ctx context.Context, immediate, forceCleanup bool) error {
	if err := m.gate.Acquire(ctx, 1); err != nil {
		return err
	}
	defer m.gate.Release(1)

	m.mu.Lock()
	snapshot := append([]*entry(nil), m.list...)
	m.mu.Unlock()

	for _, e := range snapshot {
		e.token.resolve(window.CloseAllReason, immediate, nil)
	}
	if !forceCleanup {
		return nil
	}

	for i := len(snapshot) - 1; i >= 0; i-- {
		e := snapshot[i]
		m.mu.Lock()
		e.forceCleaned = true
		m.mu.Unlock()
		m.teardown(e, window.CloseAllReason)
	}

	m.mu.Lock()
	m.list = nil
	m.byView = make(map[View]*entry)
	m.mu.Unlock()
	return nil
}

// HandleBack routes a back press to the top window. It reports whether the
// press was consumed; a window that disallows back-close swallows it.
// It never blocks and is safe to call from the host loop.
func (m *Manager) HandleBack() bool {
	e := m.top()
	if e == nil {
		return false
	}
	if !e.opts.CloseOnBack {
		m.log.Debug("back press swallowed", zap.String("type", e.typ))
		return true
	}
	e.token.resolve(window.CloseNormal, false, nil)
	return true
}

func (m *Manager) top() *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.list) == 0 {
		return nil
	}
	return m.list[len(m.list)-1]
}

// Top returns the top window, or nil.
func (m *Manager) Top() View {
	if e := m.top(); e != nil {
		return e.view
	}
	return nil
}

// Stack returns the open windows, top first.
func (m *Manager) Stack() []View {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]View, 0, len(m.list))
	for i := len(m.list) - 1; i >= 0; i-- {
		out = append(out, m.list[i].view)
	}
	return out
}

// List returns the open windows in insertion order.
func (m *Manager) List() []View {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]View, 0, len(m.list))
	for _, e := range m.list {
		out = append(out, e.view)
	}
	return out
}

// DrawOrder returns the open windows sorted by sorting order, lowest first.
func (m *Manager) DrawOrder() []View {
	m.mu.Lock()
	entries := append([]*entry(nil), m.list...)
	m.mu.Unlock()
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].order < entries[j].order
	})
	out := make([]View, len(entries))
	for i, e := range entries {
		out[i] = e.view
	}
	return out
}

// Count returns the number of open windows.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.list)
}
