package screenflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/younwookim/stagecraft/internal/application/scene"
	"github.com/younwookim/stagecraft/internal/application/screens"
	"github.com/younwookim/stagecraft/internal/application/state"
	"github.com/younwookim/stagecraft/internal/domain/flow"
	"github.com/younwookim/stagecraft/internal/domain/screen"
	"github.com/younwookim/stagecraft/internal/infrastructure/assets"
)

type fixture struct {
	loader  *assets.Loader
	screens *screens.Manager
	actor   *Actor
	a, b, c *flow.Node
}

func newFixture(t *testing.T, extra ...flow.Transition) *fixture {
	t.Helper()
	loader := assets.NewLoader(nil)
	for _, key := range []string{"a", "b", "c"} {
		loader.AddScene(key, assets.SceneSpec{})
	}
	f := &fixture{
		loader:  loader,
		screens: screens.NewManager(scene.NewCache(loader, nil), nil, nil),
		a:       &flow.Node{Name: "A", Screen: &screen.Screen{ID: "A", MainScene: "a"}},
		b:       &flow.Node{Name: "B", Screen: &screen.Screen{ID: "B", MainScene: "b"}},
		c:       &flow.Node{Name: "C", Screen: &screen.Screen{ID: "C", MainScene: "c"}},
	}
	for _, n := range []*flow.Node{f.a, f.b, f.c} {
		n.ID = uuid.New()
	}
	transitions := append([]flow.Transition{
		{From: f.a.ID, To: f.b.ID, Event: "next"},
		{From: f.b.ID, To: f.c.ID, Event: "next"},
		{From: f.a.ID, To: f.c.ID, Event: "skip"},
	}, extra...)
	g, err := flow.NewGraph([]*flow.Node{f.a, f.b, f.c}, transitions)
	require.NoError(t, err)

	f.actor = NewActor(context.Background(), f.screens, flow.NewResolver(g), state.NewFlow(f.a.ID, 8), nil)
	t.Cleanup(f.actor.Close)
	return f
}

// addTransitions rebuilds the fixture's actor over the default graph plus
// extra, keeping the flow state.
func (f *fixture) addTransitions(t *testing.T, extra ...flow.Transition) {
	t.Helper()
	g, err := flow.NewGraph([]*flow.Node{f.a, f.b, f.c}, append([]flow.Transition{
		{From: f.a.ID, To: f.b.ID, Event: "next"},
	}, extra...))
	require.NoError(t, err)
	st := f.actor.State()
	f.actor.Close()
	f.actor = NewActor(context.Background(), f.screens, flow.NewResolver(g), st, nil)
	t.Cleanup(f.actor.Close)
}

func TestTriggerResult_String(t *testing.T) {
	tests := []struct {
		result   TriggerResult
		expected string
	}{
		{Deferred, "Deferred"},
		{NoTransition, "NoTransition"},
		{Navigated, "Navigated"},
		{TriggerResult(99), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.result.String())
		})
	}
}

func TestActor_StartEntersStartNode(t *testing.T) {
	f := newFixture(t)

	res, err := f.actor.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, screen.Completed, res)
	assert.Equal(t, f.a.Screen, f.screens.Current())
	assert.Equal(t, f.a, f.actor.Current())
}

func TestActor_TriggerNavigates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.actor.Start(ctx)
	require.NoError(t, err)

	var completions []screen.Completion
	f.screens.AddCompletedListener(func(c screen.Completion) { completions = append(completions, c) })

	out, err := f.actor.Trigger(ctx, "next")
	require.NoError(t, err)
	assert.Equal(t, Navigated, out.Trigger)
	assert.Equal(t, screen.Completed, out.Nav)
	assert.Equal(t, f.a, out.From)
	assert.Equal(t, f.b, out.To)

	assert.Equal(t, f.b.Screen, f.screens.Current())
	assert.Equal(t, f.b.ID, f.actor.State().Current())
	assert.Equal(t, "next", f.actor.State().LastEvent())
	require.Len(t, completions, 1)
	assert.Equal(t, screen.TransitionContext{Source: Source, Reason: "next"}, completions[0].Context)
}

func TestActor_NoTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.actor.Start(ctx)
	require.NoError(t, err)

	out, err := f.actor.Trigger(ctx, "unknown")
	require.NoError(t, err)
	assert.Equal(t, NoTransition, out.Trigger)
	assert.Equal(t, f.a.ID, f.actor.State().Current())
	assert.Equal(t, f.a.Screen, f.screens.Current())
}

func TestActor_DeferredEventReplaysAfterCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	hold := f.loader.Hold("a")
	started := make(chan screen.Result, 1)
	go func() {
		res, _ := f.actor.Start(ctx)
		started <- res
	}()
	<-hold.Started
	require.True(t, f.screens.IsTransitioning())

	out, err := f.actor.Trigger(ctx, "next")
	require.NoError(t, err)
	assert.Equal(t, Deferred, out.Trigger)
	assert.Equal(t, f.a.ID, f.actor.State().Current(), "parked events do not move the flow")
	event, ok := f.actor.Pending()
	assert.True(t, ok)
	assert.Equal(t, "next", event)

	hold.Release()
	assert.Equal(t, screen.Completed, <-started)

	assert.Equal(t, f.b.ID, f.actor.State().Current())
	assert.Equal(t, f.b.Screen, f.screens.Current())
	_, ok = f.actor.Pending()
	assert.False(t, ok)
}

func TestActor_PendingSlotIsLastWriteWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	hold := f.loader.Hold("a")
	started := make(chan struct{})
	go func() {
		f.actor.Start(ctx)
		close(started)
	}()
	<-hold.Started

	var triggered []string
	f.actor.OnTriggered = func(e string) { triggered = append(triggered, e) }

	_, err := f.actor.Trigger(ctx, "next")
	require.NoError(t, err)
	_, err = f.actor.Trigger(ctx, "skip")
	require.NoError(t, err)

	hold.Release()
	<-started

	assert.Equal(t, f.c.ID, f.actor.State().Current(), "only the newest event is replayed")
	assert.Equal(t, f.c.Screen, f.screens.Current())
	assert.Len(t, f.actor.State().History(), 1)
	assert.Equal(t, []string{"next", "skip"}, triggered, "replays are not reported as new triggers")
}

// fakeNavigator records which verb the actor used.
type fakeNavigator struct {
	busy   bool
	result screen.Result
	calls  []screen.TransitionKind
}

func (n *fakeNavigator) IsTransitioning() bool { return n.busy }
func (n *fakeNavigator) AddCompletedListener(func(screen.Completion)) func() {
	return func() {}
}
func (n *fakeNavigator) record(k screen.TransitionKind) (screen.Result, error) {
	n.calls = append(n.calls, k)
	return n.result, nil
}
func (n *fakeNavigator) EnterWith(context.Context, *screen.Screen, screen.TransitionContext) (screen.Result, error) {
	return n.record(screen.TransitionEnter)
}
func (n *fakeNavigator) PushWith(context.Context, *screen.Screen, screen.TransitionContext) (screen.Result, error) {
	return n.record(screen.TransitionPush)
}
func (n *fakeNavigator) PopWith(context.Context, screen.TransitionContext) (screen.Result, error) {
	return n.record(screen.TransitionPop)
}
func (n *fakeNavigator) PushOverrideWith(context.Context, *screen.Screen, screen.TransitionContext) (screen.Result, error) {
	return n.record(screen.TransitionPushOverride)
}
func (n *fakeNavigator) PopOverrideWith(context.Context, screen.TransitionContext) (screen.Result, error) {
	return n.record(screen.TransitionPopOverride)
}

func TestActor_ModeSelectsVerb(t *testing.T) {
	modes := []screen.TransitionKind{
		screen.TransitionEnter,
		screen.TransitionPush,
		screen.TransitionPop,
		screen.TransitionPushOverride,
		screen.TransitionPopOverride,
	}

	for _, mode := range modes {
		t.Run(mode.String(), func(t *testing.T) {
			a := &flow.Node{ID: uuid.New(), Name: "A", Screen: &screen.Screen{ID: "A", MainScene: "a"}}
			b := &flow.Node{ID: uuid.New(), Name: "B", Screen: &screen.Screen{ID: "B", MainScene: "b"}}
			g, err := flow.NewGraph([]*flow.Node{a, b}, []flow.Transition{
				{From: a.ID, To: b.ID, Event: "go", Mode: mode},
			})
			require.NoError(t, err)

			nav := &fakeNavigator{result: screen.Completed}
			actor := NewActor(context.Background(), nav, flow.NewResolver(g), state.NewFlow(a.ID, 4), nil)

			out, err := actor.Trigger(context.Background(), "go")
			require.NoError(t, err)
			assert.Equal(t, Navigated, out.Trigger)
			assert.Equal(t, []screen.TransitionKind{mode}, nav.calls)
		})
	}
}

func TestActor_AdvancesOptimistically(t *testing.T) {
	a := &flow.Node{ID: uuid.New(), Name: "A", Screen: &screen.Screen{ID: "A", MainScene: "a"}}
	b := &flow.Node{ID: uuid.New(), Name: "B", Screen: &screen.Screen{ID: "B", MainScene: "b"}}
	g, err := flow.NewGraph([]*flow.Node{a, b}, []flow.Transition{{From: a.ID, To: b.ID, Event: "go"}})
	require.NoError(t, err)

	nav := &fakeNavigator{result: screen.RejectedBusy}
	actor := NewActor(context.Background(), nav, flow.NewResolver(g), state.NewFlow(a.ID, 4), nil)
	var advanced []string
	actor.OnAdvanced = func(from, to *flow.Node, event string) {
		advanced = append(advanced, from.Name+"->"+to.Name)
	}

	out, err := actor.Trigger(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, Navigated, out.Trigger)
	assert.Equal(t, screen.RejectedBusy, out.Nav)
	assert.Equal(t, b.ID, actor.State().Current(), "state is not rolled back")
	assert.Equal(t, []string{"A->B"}, advanced)
}

func TestActor_NodeWithoutScreen(t *testing.T) {
	a := &flow.Node{ID: uuid.New(), Name: "A", Screen: &screen.Screen{ID: "A", MainScene: "a"}}
	b := &flow.Node{ID: uuid.New(), Name: "B"}
	g, err := flow.NewGraph([]*flow.Node{a, b}, []flow.Transition{{From: a.ID, To: b.ID, Event: "go"}})
	require.NoError(t, err)

	nav := &fakeNavigator{result: screen.Completed}
	actor := NewActor(context.Background(), nav, flow.NewResolver(g), state.NewFlow(a.ID, 4), nil)

	_, err = actor.Trigger(context.Background(), "go")
	assert.ErrorIs(t, err, ErrNoScreen)
	assert.Empty(t, nav.calls)
}

func TestActor_ResumeEntersRestoredNode(t *testing.T) {
	f := newFixture(t)
	f.actor.State().Advance(f.b.ID, "next")

	res, err := f.actor.Resume(context.Background())
	require.NoError(t, err)
	assert.Equal(t, screen.Completed, res)
	assert.Equal(t, f.b.Screen, f.screens.Current())
	assert.Equal(t, f.b.ID, f.actor.State().Current(), "resume keeps the flow position")
	assert.Equal(t, "next", f.actor.State().LastEvent())
}

func TestActor_ResumeRebuildsStackThenPops(t *testing.T) {
	f := newFixture(t)
	f.addTransitions(t,
		flow.Transition{From: f.a.ID, To: f.b.ID, Event: "open", Mode: screen.TransitionPush},
		flow.Transition{From: f.b.ID, To: f.a.ID, Event: "back", Mode: screen.TransitionPop},
	)
	f.actor.State().AdvanceWith(f.b.ID, "open", screen.TransitionPush)

	res, err := f.actor.Resume(context.Background())
	require.NoError(t, err)
	assert.Equal(t, screen.Completed, res)
	assert.Equal(t, f.b.Screen, f.screens.Current())

	out, err := f.actor.Trigger(context.Background(), "back")
	require.NoError(t, err)
	assert.Equal(t, Navigated, out.Trigger)
	assert.Equal(t, screen.Completed, out.Nav)
	assert.Equal(t, f.a.Screen, f.screens.Current())
	assert.Equal(t, f.a.ID, f.actor.State().Current())
}

func TestActor_ResumeRestoresOverride(t *testing.T) {
	f := newFixture(t)
	f.addTransitions(t,
		flow.Transition{From: f.a.ID, To: f.c.ID, Event: "pause", Mode: screen.TransitionPushOverride},
		flow.Transition{From: f.c.ID, To: f.a.ID, Event: "resume", Mode: screen.TransitionPopOverride},
	)
	f.actor.State().AdvanceWith(f.c.ID, "pause", screen.TransitionPushOverride)

	_, err := f.actor.Resume(context.Background())
	require.NoError(t, err)
	assert.Equal(t, f.c.Screen, f.screens.Current())

	out, err := f.actor.Trigger(context.Background(), "resume")
	require.NoError(t, err)
	assert.Equal(t, screen.Completed, out.Nav)
	assert.Equal(t, f.a.Screen, f.screens.Current())
}

func TestActor_ResumeUnknownNodeStartsOver(t *testing.T) {
	f := newFixture(t)
	f.actor.State().Advance(uuid.New(), "lost")

	res, err := f.actor.Resume(context.Background())
	require.NoError(t, err)
	assert.Equal(t, screen.Completed, res)
	assert.Equal(t, f.a.ID, f.actor.State().Current())
	assert.Equal(t, f.a.Screen, f.screens.Current())
}

func TestActor_ConcurrentEventsAreSerialized(t *testing.T) {
	a := &flow.Node{ID: uuid.New(), Name: "A", Screen: &screen.Screen{ID: "A", MainScene: "a"}}
	b := &flow.Node{ID: uuid.New(), Name: "B", Screen: &screen.Screen{ID: "B", MainScene: "b"}}
	c := &flow.Node{ID: uuid.New(), Name: "C", Screen: &screen.Screen{ID: "C", MainScene: "c"}}
	evaluating := make(chan struct{})
	release := make(chan struct{})
	slow := flow.ConditionFunc(func() bool {
		close(evaluating)
		<-release
		return true
	})
	g, err := flow.NewGraph([]*flow.Node{a, b, c}, []flow.Transition{
		{From: a.ID, To: b.ID, Event: "x", Condition: slow},
		{From: a.ID, To: c.ID, Event: "y"},
	})
	require.NoError(t, err)

	nav := &fakeNavigator{result: screen.Completed}
	actor := NewActor(context.Background(), nav, flow.NewResolver(g), state.NewFlow(a.ID, 4), nil)

	done := make(chan Outcome, 1)
	go func() {
		out, _ := actor.Trigger(context.Background(), "x")
		done <- out
	}()
	<-evaluating

	out, err := actor.Trigger(context.Background(), "y")
	require.NoError(t, err)
	assert.Equal(t, Deferred, out.Trigger, "y waits for x to finish")

	close(release)
	assert.Equal(t, Navigated, (<-done).Trigger)

	assert.Equal(t, b.ID, actor.State().Current())
	assert.Equal(t, []state.Step{{From: a.ID, To: b.ID, Event: "x"}}, actor.State().History(),
		"y is replayed from B, where it has no edge")
	_, ok := actor.Pending()
	assert.False(t, ok)
	assert.Equal(t, []screen.TransitionKind{screen.TransitionEnter}, nav.calls)
}

// finishingNavigator reports a transition in flight on the first check and
// completes it on another goroutine right after answering.
type finishingNavigator struct {
	fakeNavigator
	mu       sync.Mutex
	checks   int
	listener func(screen.Completion)
	entered  chan struct{}
}

func (n *finishingNavigator) AddCompletedListener(fn func(screen.Completion)) func() {
	n.listener = fn
	return func() {}
}

func (n *finishingNavigator) IsTransitioning() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.checks++
	if n.checks > 1 {
		return false
	}
	go n.listener(screen.Completion{})
	return true
}

func (n *finishingNavigator) EnterWith(context.Context, *screen.Screen, screen.TransitionContext) (screen.Result, error) {
	close(n.entered)
	return screen.Completed, nil
}

func TestActor_EventParkedAsTransitionFinishesIsReplayed(t *testing.T) {
	a := &flow.Node{ID: uuid.New(), Name: "A", Screen: &screen.Screen{ID: "A", MainScene: "a"}}
	b := &flow.Node{ID: uuid.New(), Name: "B", Screen: &screen.Screen{ID: "B", MainScene: "b"}}
	g, err := flow.NewGraph([]*flow.Node{a, b}, []flow.Transition{{From: a.ID, To: b.ID, Event: "next"}})
	require.NoError(t, err)

	nav := &finishingNavigator{entered: make(chan struct{})}
	actor := NewActor(context.Background(), nav, flow.NewResolver(g), state.NewFlow(a.ID, 4), nil)

	out, err := actor.Trigger(context.Background(), "next")
	require.NoError(t, err)
	assert.Equal(t, Deferred, out.Trigger)

	select {
	case <-nav.entered:
	case <-time.After(time.Second):
		t.Fatal("parked event was never replayed")
	}
	assert.Equal(t, b.ID, actor.State().Current())
	assert.Eventually(t, func() bool {
		_, ok := actor.Pending()
		return !ok
	}, time.Second, time.Millisecond)
}
