// Package screenflow drives screen navigation from named events over a flow
// graph.
//
// Events are handled one at a time. An event fired while the screen manager is
// mid-transition, or while another event is being handled, is parked in a
// single pending slot; a newer event replaces an older unconsumed one. The
// slot is replayed once the actor and the screen manager are both idle. Flow
// state advances as soon as an event resolves, before the navigation call
// returns.
package screenflow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/younwookim/stagecraft/internal/application/state"
	"github.com/younwookim/stagecraft/internal/domain/flow"
	"github.com/younwookim/stagecraft/internal/domain/screen"
	"go.uber.org/zap"
)

// ErrNoScreen is returned when a resolved node has no screen to show.
var ErrNoScreen = errors.New("flow node has no screen")

// Source tags completions caused by the flow.
const Source = "screenflow"

// Navigator is the part of the screen manager the actor drives.
type Navigator interface {
	IsTransitioning() bool
	AddCompletedListener(fn func(screen.Completion)) (remove func())
	EnterWith(ctx context.Context, s *screen.Screen, tc screen.TransitionContext) (screen.Result, error)
	PushWith(ctx context.Context, s *screen.Screen, tc screen.TransitionContext) (screen.Result, error)
	PopWith(ctx context.Context, tc screen.TransitionContext) (screen.Result, error)
	PushOverrideWith(ctx context.Context, s *screen.Screen, tc screen.TransitionContext) (screen.Result, error)
	PopOverrideWith(ctx context.Context, tc screen.TransitionContext) (screen.Result, error)
}

// TriggerResult says what Trigger did with an event.
type TriggerResult int

const (
	// Deferred means the event was parked until the current transition or
	// event completes.
	Deferred TriggerResult = iota
	// NoTransition means no transition matched the event from the current node.
	NoTransition
	// Navigated means the flow advanced and a navigation call was issued.
	Navigated
)

// String returns the string representation of the trigger result
func (r TriggerResult) String() string {
	switch r {
	case Deferred:
		return "Deferred"
	case NoTransition:
		return "NoTransition"
	case Navigated:
		return "Navigated"
	default:
		return "Unknown"
	}
}

// Outcome is the result of one Trigger.
type Outcome struct {
	Trigger TriggerResult
	// Nav is the screen manager's verdict; only meaningful when Navigated.
	Nav  screen.Result
	From *flow.Node
	To   *flow.Node
}

// Actor turns events into navigation.
type Actor struct {
	ctx      context.Context
	nav      Navigator
	resolver *flow.Resolver
	flow     *state.Flow
	log      *zap.Logger
	remove   func()

	mu         sync.Mutex
	pending    string
	hasPending bool
	running    bool // an event, Start or Resume is being handled

	// OnTriggered is called for every event handed to Trigger, before it is
	// resolved or parked.
	OnTriggered func(event string)
	// OnAdvanced is called after the flow state moves.
	OnAdvanced func(from, to *flow.Node, event string)
}

// NewActor wires an actor to nav. ctx is used for navigation issued by
// replayed events.
func NewActor(ctx context.Context, nav Navigator, resolver *flow.Resolver, st *state.Flow, log *zap.Logger) *Actor {
	if log == nil {
		log = zap.NewNop()
	}
	a := &Actor{
		ctx:      ctx,
		nav:      nav,
		resolver: resolver,
		flow:     st,
		log:      log.Named("flow"),
	}
	a.remove = nav.AddCompletedListener(a.onCompleted)
	return a
}

// Close detaches the actor from the navigator.
func (a *Actor) Close() {
	if a.remove != nil {
		a.remove()
		a.remove = nil
	}
}

// State returns the flow state the actor advances.
func (a *Actor) State() *state.Flow {
	return a.flow
}

// Current returns the node the flow is at.
func (a *Actor) Current() *flow.Node {
	n, _ := a.resolver.Graph().Node(a.flow.Current())
	return n
}

// Pending returns the parked event, if any.
func (a *Actor) Pending() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending, a.hasPending
}

// Start resets the flow to the graph's start node and enters its screen.
// Start and Resume are meant for boot; events fired meanwhile are parked.
func (a *Actor) Start(ctx context.Context) (screen.Result, error) {
	start := a.resolver.Graph().Start()
	if start == nil {
		return screen.Failed, fmt.Errorf("%w: empty graph", flow.ErrNodeNotFound)
	}
	if start.Screen == nil {
		return screen.Failed, fmt.Errorf("%w: %s", ErrNoScreen, start.Name)
	}
	a.acquire()
	defer a.drain()
	a.flow.Reset(start.ID)
	return a.nav.EnterWith(ctx, start.Screen, screen.TransitionContext{Source: Source, Reason: "start"})
}

// Resume rebuilds the screen layout the flow was at, typically after the flow
// was restored from storage: it enters the base node's screen, pushes the
// stacked ones and shows the override. An unknown node falls back to Start.
func (a *Actor) Resume(ctx context.Context) (screen.Result, error) {
	ids := a.flow.Path()
	override := a.flow.Override()
	if override != uuid.Nil {
		ids = append(ids, override)
	}
	nodes := make([]*flow.Node, 0, len(ids))
	for _, id := range ids {
		n, ok := a.resolver.Graph().Node(id)
		if !ok {
			a.log.Warn("restored flow node unknown, starting over", zap.Stringer("node", id))
			return a.Start(ctx)
		}
		if n.Screen == nil {
			return screen.Failed, fmt.Errorf("%w: %s", ErrNoScreen, n.Name)
		}
		nodes = append(nodes, n)
	}

	a.acquire()
	defer a.drain()
	tc := screen.TransitionContext{Source: Source, Reason: "resume"}
	res, err := a.nav.EnterWith(ctx, nodes[0].Screen, tc)
	for i, n := range nodes[1:] {
		if res != screen.Completed {
			return res, err
		}
		if override != uuid.Nil && i == len(nodes)-2 {
			res, err = a.nav.PushOverrideWith(ctx, n.Screen, tc)
		} else {
			res, err = a.nav.PushWith(ctx, n.Screen, tc)
		}
	}
	return res, err
}

// acquire claims the actor for a boot navigation and drops any parked event.
func (a *Actor) acquire() {
	a.mu.Lock()
	a.pending, a.hasPending = "", false
	a.running = true
	a.mu.Unlock()
}

// Trigger fires event. While the navigator is busy or another event is being
// handled the event is parked and Deferred is returned. Trigger is safe for
// concurrent use.
func (a *Actor) Trigger(ctx context.Context, event string) (Outcome, error) {
	if a.OnTriggered != nil {
		a.OnTriggered(event)
	}
	return a.fire(ctx, event)
}

// fire handles event now when the actor and the navigator are idle and parks
// it otherwise. The busy check and the park happen under a.mu, the same lock
// onCompleted takes, so a transition finishing in between still finds the
// parked event.
func (a *Actor) fire(ctx context.Context, event string) (Outcome, error) {
	a.mu.Lock()
	if a.running || a.nav.IsTransitioning() {
		if a.hasPending {
			a.log.Debug("pending event replaced",
				zap.String("dropped", a.pending),
				zap.String("event", event))
		}
		a.pending, a.hasPending = event, true
		a.mu.Unlock()
		return Outcome{Trigger: Deferred}, nil
	}
	a.running = true
	a.mu.Unlock()

	defer a.drain()
	return a.resolve(ctx, event)
}

// drain replays the parked event while the navigator is idle, then releases
// the actor. A parked event left behind a foreign transition is replayed by
// onCompleted when that transition finishes.
func (a *Actor) drain() {
	for {
		a.mu.Lock()
		event, ok := a.pending, a.hasPending
		if !ok || a.nav.IsTransitioning() {
			a.running = false
			a.mu.Unlock()
			return
		}
		a.pending, a.hasPending = "", false
		a.mu.Unlock()

		a.log.Debug("replaying pending event", zap.String("event", event))
		if _, err := a.resolve(a.ctx, event); err != nil {
			a.log.Error("pending event failed", zap.String("event", event), zap.Error(err))
		}
	}
}

func (a *Actor) resolve(ctx context.Context, event string) (Outcome, error) {
	from := a.Current()
	tr, to, ok := a.resolver.TryResolve(a.flow.Current(), event)
	if !ok {
		a.log.Debug("no transition for event",
			zap.String("event", event),
			zap.Stringer("node", a.flow.Current()))
		return Outcome{Trigger: NoTransition, From: from}, nil
	}

	a.flow.AdvanceWith(to.ID, event, tr.Mode)
	if a.OnAdvanced != nil {
		a.OnAdvanced(from, to, event)
	}

	res, err := a.navigate(ctx, tr.Mode, to, screen.TransitionContext{Source: Source, Reason: event})
	if res == screen.RejectedBusy {
		a.log.Warn("flow advanced but navigation was rejected",
			zap.String("event", event),
			zap.String("node", to.Name))
	}
	return Outcome{Trigger: Navigated, Nav: res, From: from, To: to}, err
}

func (a *Actor) navigate(ctx context.Context, mode screen.TransitionKind, to *flow.Node, tc screen.TransitionContext) (screen.Result, error) {
	switch mode {
	case screen.TransitionPop:
		return a.nav.PopWith(ctx, tc)
	case screen.TransitionPopOverride:
		return a.nav.PopOverrideWith(ctx, tc)
	}

	if to.Screen == nil {
		return screen.Failed, fmt.Errorf("%w: %s", ErrNoScreen, to.Name)
	}
	switch mode {
	case screen.TransitionPush:
		return a.nav.PushWith(ctx, to.Screen, tc)
	case screen.TransitionPushOverride:
		return a.nav.PushOverrideWith(ctx, to.Screen, tc)
	default:
		return a.nav.EnterWith(ctx, to.Screen, tc)
	}
}

// onCompleted replays the parked event. While the actor is handling an event
// the handler drains the slot itself once its navigation returns.
func (a *Actor) onCompleted(screen.Completion) {
	a.mu.Lock()
	if a.running || !a.hasPending {
		a.mu.Unlock()
		return
	}
	a.running = true
	a.mu.Unlock()
	a.drain()
}
