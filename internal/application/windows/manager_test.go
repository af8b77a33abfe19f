package windows

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/younwookim/stagecraft/internal/application/pool"
	"github.com/younwookim/stagecraft/internal/domain/resource"
	"github.com/younwookim/stagecraft/internal/domain/window"
	"github.com/younwookim/stagecraft/internal/infrastructure/assets"
	"go.uber.org/atomic"
)

// mockView is a test double for View
type mockView struct {
	mu        sync.Mutex
	active    bool
	order     int
	closer    Closer
	shown     int
	hidden    int
	requested int
	alpha     float64
}

func (v *mockView) SetActive(active bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.active = active
}
func (v *mockView) SetPose(pool.Pose, any) {}
func (v *mockView) Destroy()               {}
func (v *mockView) SetAlpha(alpha float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.alpha = alpha
}
func (v *mockView) SetOffset(dx, dy float64) {}
func (v *mockView) SetSortingOrder(order int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.order = order
}
func (v *mockView) Bind(c Closer) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closer = c
}
func (v *mockView) RequestClose() {
	v.mu.Lock()
	v.requested++
	c := v.closer
	v.mu.Unlock()
	if c != nil {
		c.Close(nil)
	}
}
func (v *mockView) OnShown() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.shown++
}
func (v *mockView) OnHidden() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.hidden++
}
func (v *mockView) Order() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.order
}

type defaultedView struct {
	*mockView
	defaults window.Defaults
}

func (v *defaultedView) Defaults() window.Defaults { return v.defaults }

// viewTemplate is a test double for pool.Template
type viewTemplate struct {
	id       int64
	defaults *window.Defaults
	mu       sync.Mutex
	created  int
}

func (t *viewTemplate) TemplateID() int64 { return t.id }
func (t *viewTemplate) Name() string      { return "view" }
func (t *viewTemplate) Instantiate() pool.Object {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.created++
	if t.defaults != nil {
		return &defaultedView{mockView: &mockView{}, defaults: *t.defaults}
	}
	return &mockView{}
}

type mockBlocker struct {
	mu    sync.Mutex
	count map[string]int
	calls []string
}

func (b *mockBlocker) Block(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count[key]++
	b.calls = append(b.calls, "block")
}

func (b *mockBlocker) Unblock(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count[key]--
	b.calls = append(b.calls, "unblock")
}

func (b *mockBlocker) blocked() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.count {
		n += c
	}
	return n
}

type mockTransition struct {
	factory *mockFactory
}

func (t mockTransition) In(ctx context.Context, target window.Animatable) error {
	f := t.factory
	f.mu.Lock()
	f.ins++
	hold := f.holdIn
	if f.inStarted != nil && f.ins == 1 {
		close(f.inStarted)
	}
	f.mu.Unlock()
	if f.blocker != nil {
		f.blockedDuringIn.Store(int64(f.blocker.blocked()))
	}
	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	target.SetAlpha(1)
	return nil
}

func (t mockTransition) Out(ctx context.Context, target window.Animatable) error {
	t.factory.mu.Lock()
	t.factory.outs++
	t.factory.mu.Unlock()
	target.SetAlpha(0)
	return nil
}

func (t mockTransition) Duration() time.Duration { return 0 }

type mockFactory struct {
	mu              sync.Mutex
	ins, outs       int
	holdIn          chan struct{}
	inStarted       chan struct{}
	blocker         *mockBlocker
	blockedDuringIn atomic.Int64
}

func (f *mockFactory) Create(d window.Descriptor) (window.Transition, error) {
	if d.Preset == "broken" {
		return nil, assert.AnError
	}
	return mockTransition{factory: f}, nil
}

type fixture struct {
	m       *Manager
	pools   *pool.Manager
	loader  *assets.Loader
	tmpl    *viewTemplate
	factory *mockFactory
	blocker *mockBlocker
	opened  chan View
	closed  *atomic.Int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		pools:   pool.NewManager(nil, pool.DefaultConfig()),
		loader:  assets.NewLoader(nil),
		tmpl:    &viewTemplate{id: 1},
		blocker: &mockBlocker{count: make(map[string]int)},
		opened:  make(chan View, 8),
		closed:  atomic.NewInt64(0),
	}
	f.factory = &mockFactory{blocker: f.blocker}
	f.loader.AddAsset("confirm", f.tmpl)
	f.loader.AddAsset("notice", &viewTemplate{id: 2, defaults: &window.Defaults{Kind: window.KindSystem}})
	f.loader.AddAsset("bogus", "not a template")

	f.m = NewManager(f.loader, f.pools.Host(), f.blocker, f.factory, window.DefaultSorting(), nil)
	f.m.OnWindowOpened = func(v View) { f.opened <- v }
	f.m.OnWindowClosed = func(View) { f.closed.Inc() }
	return f
}

type result[T any] struct {
	v   T
	err error
}

func openAsync[T any](ctx context.Context, m *Manager, typ string, opts window.Options) <-chan result[T] {
	ch := make(chan result[T], 1)
	go func() {
		v, err := Open[T](ctx, m, typ, opts)
		ch <- result[T]{v, err}
	}()
	return ch
}

func TestOpen_NormalCloseReturnsPayload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	done := openAsync[string](ctx, f.m, "confirm", window.Options{})
	v := <-f.opened
	assert.Equal(t, 1, f.m.Count())
	assert.Equal(t, v, f.m.Top())

	require.NoError(t, f.m.Close(ctx, v, "yes"))
	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, "yes", r.v)

	assert.Equal(t, 0, f.m.Count())
	assert.Equal(t, int64(1), f.closed.Load())
	assert.False(t, f.pools.IsActive(v), "window is returned to the pool")
	mv := v.(*mockView)
	assert.Equal(t, 1, mv.shown)
	assert.Equal(t, 1, mv.hidden)
}

func TestOpen_ResultDependsOnCloseReason(t *testing.T) {
	tests := []struct {
		name     string
		reason   window.CloseReason
		expected int
	}{
		{"normal", window.CloseNormal, 7},
		{"close all", window.CloseAllReason, 0},
		{"force", window.CloseForce, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			done := openAsync[int](context.Background(), f.m, "confirm", window.Options{})
			<-f.opened

			f.m.top().token.resolve(tt.reason, true, 7)
			r := <-done
			require.NoError(t, r.err)
			assert.Equal(t, tt.expected, r.v)
			assert.Equal(t, 0, f.m.Count())
		})
	}
}

func TestOpen_ViewClosesItself(t *testing.T) {
	f := newFixture(t)
	done := openAsync[int](context.Background(), f.m, "confirm", window.Options{})
	v := (<-f.opened).(*mockView)

	v.closer.Close(42)
	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, 42, r.v)
}

func TestOpen_ResultTypeMismatchYieldsZero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	done := openAsync[int](ctx, f.m, "confirm", window.Options{})
	v := <-f.opened

	require.NoError(t, f.m.Close(ctx, v, "not an int"))
	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, 0, r.v)
}

func TestCloseAll_ForceCleanup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	popup := window.Options{Kind: window.Ptr(window.KindPopup)}

	done := openAsync[string](ctx, f.m, "confirm", popup)
	<-f.opened

	require.NoError(t, f.m.CloseAll(ctx, true, true))
	assert.Equal(t, 0, f.m.Count(), "cleanup is synchronous")

	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, "", r.v)
	assert.Equal(t, int64(1), f.closed.Load(), "closed event fires exactly once")

	again := openAsync[string](ctx, f.m, "confirm", popup)
	v := <-f.opened
	assert.Equal(t, 1, f.m.Count())
	require.NoError(t, f.m.Close(ctx, v, "ok"))
	r = <-again
	require.NoError(t, r.err)
	assert.Equal(t, "ok", r.v)

	assert.Equal(t, 1, f.tmpl.created, "pooled instance is reused")
	assert.Equal(t, 1, f.loader.Loads("confirm"), "template is cached by type")
}

func TestCloseAll_WithoutCleanupLetsEachOpenFinish(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := openAsync[string](ctx, f.m, "confirm", window.Options{})
	<-f.opened
	second := openAsync[string](ctx, f.m, "confirm", window.Options{})
	<-f.opened
	require.Equal(t, 2, f.m.Count())

	require.NoError(t, f.m.CloseAll(ctx, false, false))
	assert.Equal(t, "", (<-first).v)
	assert.Equal(t, "", (<-second).v)
	assert.Equal(t, 0, f.m.Count())
	assert.Equal(t, int64(2), f.closed.Load())
}

func TestOpen_SortingOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	openAsync[any](ctx, f.m, "confirm", window.Options{})
	first := (<-f.opened).(*mockView)
	openAsync[any](ctx, f.m, "confirm", window.Options{Kind: window.Ptr(window.KindPopup)})
	second := (<-f.opened).(*mockView)
	openAsync[any](ctx, f.m, "notice", window.Options{})
	third := (<-f.opened).(*defaultedView)

	assert.Equal(t, 100, first.Order())
	assert.Equal(t, 210, second.Order())
	assert.Equal(t, 420, third.Order(), "view defaults apply to unregistered types")

	assert.Equal(t, []View{third, second, first}, f.m.Stack())
	assert.Equal(t, []View{first, second, third}, f.m.List())
	assert.Equal(t, []View{first, second, third}, f.m.DrawOrder())

	require.NoError(t, f.m.CloseAll(ctx, true, true))
}

func TestOpen_RegisteredDefaultsAndOverrides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.m.Register("settings", Spec{
		Asset:   "confirm",
		Options: window.Options{Kind: window.Ptr(window.KindOverlay), CloseOnBack: window.Ptr(true)},
	})

	done := openAsync[any](ctx, f.m, "settings", window.Options{CloseOnBack: window.Ptr(false)})
	v := (<-f.opened).(*mockView)
	assert.Equal(t, 300, v.Order())

	assert.True(t, f.m.HandleBack(), "press is swallowed")
	assert.Equal(t, 1, f.m.Count())

	require.NoError(t, f.m.CloseAll(ctx, true, false))
	<-done
}

func TestOpen_RegisteredOptionsLayerOverViewDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.m.Register("alert", Spec{
		Asset:   "notice",
		Options: window.Options{CloseOnBack: window.Ptr(true)},
	})

	done := openAsync[any](ctx, f.m, "alert", window.Options{})
	v := (<-f.opened).(*defaultedView)
	assert.Equal(t, 400, v.Order(), "kind comes from the view's own defaults")

	assert.True(t, f.m.HandleBack(), "close on back comes from the registered options")
	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, 0, f.m.Count())
}

func TestHandleBack(t *testing.T) {
	f := newFixture(t)
	assert.False(t, f.m.HandleBack(), "nothing to close")

	done := openAsync[string](context.Background(), f.m, "confirm", window.Options{CloseOnBack: window.Ptr(true)})
	<-f.opened

	assert.True(t, f.m.HandleBack())
	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, "", r.v)
	assert.Equal(t, 0, f.m.Count())
}

func TestCloseTop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	closed, err := f.m.CloseTop(ctx, nil)
	require.NoError(t, err)
	assert.False(t, closed)

	done := openAsync[int](ctx, f.m, "confirm", window.Options{})
	<-f.opened
	closed, err = f.m.CloseTop(ctx, 3)
	require.NoError(t, err)
	assert.True(t, closed)
	assert.Equal(t, 3, (<-done).v)
}

func TestClose_UntrackedViewClosesItself(t *testing.T) {
	f := newFixture(t)
	v := &mockView{}

	require.NoError(t, f.m.Close(context.Background(), v, nil))
	assert.Equal(t, 1, v.requested)
}

func TestOpen_InputBlockedOnlyDuringTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	opts := window.Options{
		BlockInput:    window.Ptr(true),
		TransitionIn:  &window.Descriptor{Preset: "fade"},
		TransitionOut: &window.Descriptor{Preset: "fade"},
	}

	done := openAsync[any](ctx, f.m, "confirm", opts)
	v := <-f.opened
	assert.Equal(t, int64(1), f.factory.blockedDuringIn.Load())
	assert.Equal(t, 0, f.blocker.blocked(), "input is released once the window is shown")

	require.NoError(t, f.m.Close(ctx, v, nil))
	<-done
	assert.Equal(t, []string{"block", "unblock", "block", "unblock"}, f.blocker.calls)
	assert.Equal(t, 1, f.factory.ins)
	assert.Equal(t, 1, f.factory.outs)
}

func TestOpen_ImmediateCloseSkipsTransitionOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	opts := window.Options{
		TransitionIn:  &window.Descriptor{Preset: "fade"},
		TransitionOut: &window.Descriptor{Preset: "fade"},
	}

	done := openAsync[any](ctx, f.m, "confirm", opts)
	<-f.opened
	require.NoError(t, f.m.CloseAll(ctx, true, false))
	<-done
	assert.Equal(t, 1, f.factory.ins)
	assert.Equal(t, 0, f.factory.outs)
}

func TestOpen_BrokenTransitionStillOpens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	done := openAsync[int](ctx, f.m, "confirm", window.Options{TransitionIn: &window.Descriptor{Preset: "broken"}})
	v := <-f.opened
	require.NoError(t, f.m.Close(ctx, v, 1))
	assert.Equal(t, 1, (<-done).v)
}

func TestOpen_GateSerializesOpenAndCloseAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.factory.holdIn = make(chan struct{})
	f.factory.inStarted = make(chan struct{})
	var released atomic.Bool

	done := openAsync[string](ctx, f.m, "confirm", window.Options{TransitionIn: &window.Descriptor{Preset: "fade"}})
	<-f.factory.inStarted
	closeAllDone := make(chan bool, 1)
	go func() {
		_ = f.m.CloseAll(ctx, true, false)
		closeAllDone <- released.Load()
	}()

	released.Store(true)
	close(f.factory.holdIn)

	<-f.opened
	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, "", r.v)
	assert.True(t, <-closeAllDone)
}

func TestOpen_CancelForceCloses(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := openAsync[string](ctx, f.m, "confirm", window.Options{})
	v := <-f.opened
	cancel()

	r := <-done
	assert.ErrorIs(t, r.err, context.Canceled)
	assert.Equal(t, "", r.v)
	assert.Equal(t, 0, f.m.Count())
	assert.False(t, f.pools.IsActive(v))
	assert.Equal(t, int64(1), f.closed.Load())
}

func TestOpen_TemplateFaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := Open[any](ctx, f.m, "missing", window.Options{})
	assert.ErrorIs(t, err, resource.ErrNotFound)

	_, err = Open[any](ctx, f.m, "bogus", window.Options{})
	assert.ErrorIs(t, err, ErrNotTemplate)

	assert.Equal(t, 0, f.m.Count())
	assert.Equal(t, int64(0), f.closed.Load())
}
