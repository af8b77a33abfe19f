// Package game hosts the toolkit inside the ebiten loop.
//
// Update never blocks: flow events are handed to background goroutines that
// drive navigation, while the frame only ticks the pool clock, routes the
// back button, and collects input for replay.
package game

import (
	"context"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/younwookim/stagecraft/internal/application/pool"
	"github.com/younwookim/stagecraft/internal/application/replay"
	"github.com/younwookim/stagecraft/internal/application/scene"
	"github.com/younwookim/stagecraft/internal/application/screenflow"
	"github.com/younwookim/stagecraft/internal/application/windows"
	"github.com/younwookim/stagecraft/internal/infrastructure/input"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BackEvent is triggered on the flow when a back press is not consumed by a
// window.
const BackEvent = "back"

// Drawable is anything the host draws.
type Drawable interface {
	Draw(screen *ebiten.Image)
}

// Flow receives flow events. *screenflow.Actor satisfies it.
type Flow interface {
	Trigger(ctx context.Context, event string) (screenflow.Outcome, error)
}

// Blocker reports whether input is currently blocked.
type Blocker interface {
	Blocked() bool
}

// Options are the collaborators of a Game. Only Flow is required.
type Options struct {
	ScreenWidth  int
	ScreenHeight int
	TPS          int

	Pools    *pool.Manager
	Scenes   *scene.Cache
	Windows  *windows.Manager
	Flow     Flow
	Back     input.BackSource
	Blocker  Blocker
	Loading  Drawable
	Replayer *replay.Replayer
	Recorder *replay.Recorder
	Log      *zap.Logger

	// StopAfterReplay ends the game once the replay is done and its events
	// have been handled.
	StopAfterReplay bool
}

// Game implements ebiten.Game.
type Game struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   Options
	log    *zap.Logger
	dt     float64
	frame  int
	tasks  errgroup.Group

	mu     sync.Mutex
	queued []string

	// OnUpdate runs at the end of every Update, for demo logic.
	OnUpdate func(dt float64)
	// Overlays are drawn above the scenes and below the windows.
	Overlays func() []Drawable
}

// New creates a Game. ctx bounds every navigation the game starts.
func New(ctx context.Context, opts Options) *Game {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	tps := opts.TPS
	if tps <= 0 {
		tps = 60
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Game{
		ctx:    ctx,
		cancel: cancel,
		opts:   opts,
		log:    log.Named("game"),
		dt:     1.0 / float64(tps),
	}
}

// Trigger queues a flow event for the next Update.
func (g *Game) Trigger(event string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queued = append(g.queued, event)
}

// Update ticks the toolkit.
// Implements ebiten.Game interface.
func (g *Game) Update() error {
	if g.opts.StopAfterReplay && g.ReplayDone() {
		if err := g.tasks.Wait(); err != nil {
			return err
		}
		g.log.Info("replay finished", zap.Int("frames", g.frame))
		return ebiten.Termination
	}
	if g.opts.Pools != nil {
		g.opts.Pools.Update(g.dt)
	}

	f := g.collect()
	if g.opts.Recorder != nil {
		g.opts.Recorder.RecordFrame(f)
	}
	g.frame++

	if f.Back && !g.routeBack() {
		f.Events = append([]string{BackEvent}, f.Events...)
	}
	for _, event := range f.Events {
		g.dispatch(event)
	}

	if g.OnUpdate != nil {
		g.OnUpdate(g.dt)
	}
	return nil
}

// collect returns this frame's input: the replay when one is playing,
// otherwise queued events plus the back button.
func (g *Game) collect() replay.Frame {
	g.mu.Lock()
	queued := g.queued
	g.queued = nil
	g.mu.Unlock()

	if r := g.opts.Replayer; r != nil {
		f, _ := r.Next()
		return f
	}

	f := replay.Frame{Events: queued}
	if g.opts.Back != nil && g.opts.Back.BackPressed() {
		if g.opts.Blocker != nil && g.opts.Blocker.Blocked() {
			g.log.Debug("back press ignored, input blocked")
		} else {
			f.Back = true
		}
	}
	return f
}

// routeBack offers a back press to the window stack first.
func (g *Game) routeBack() bool {
	if g.opts.Windows == nil {
		return false
	}
	return g.opts.Windows.HandleBack()
}

// dispatch hands event to the flow off the update loop. The flow serializes
// events itself, so concurrent dispatches park rather than interleave.
func (g *Game) dispatch(event string) {
	if g.opts.Flow == nil {
		return
	}
	g.tasks.Go(func() error {
		out, err := g.opts.Flow.Trigger(g.ctx, event)
		if err != nil {
			g.log.Error("flow event failed", zap.String("event", event), zap.Error(err))
			return nil
		}
		g.log.Debug("flow event",
			zap.String("event", event),
			zap.Stringer("trigger", out.Trigger),
			zap.Stringer("result", out.Nav))
		return nil
	})
}

// Draw renders active scenes in load order, overlays, windows by sorting
// order, then the loading screen.
// Implements ebiten.Game interface.
func (g *Game) Draw(screen *ebiten.Image) {
	for _, d := range g.Drawables() {
		d.Draw(screen)
	}
}

// Drawables returns everything Draw would draw, bottom first.
func (g *Game) Drawables() []Drawable {
	var out []Drawable
	if g.opts.Scenes != nil {
		for _, h := range g.opts.Scenes.ActiveHandles() {
			if d, ok := h.(Drawable); ok {
				out = append(out, d)
			}
		}
	}
	if g.Overlays != nil {
		out = append(out, g.Overlays()...)
	}
	if g.opts.Windows != nil {
		for _, v := range g.opts.Windows.DrawOrder() {
			if d, ok := v.(Drawable); ok {
				out = append(out, d)
			}
		}
	}
	if g.opts.Loading != nil {
		out = append(out, g.opts.Loading)
	}
	return out
}

// Layout returns the game's logical screen dimensions.
// Implements ebiten.Game interface.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.opts.ScreenWidth, g.opts.ScreenHeight
}

// Frame returns the number of updates run.
func (g *Game) Frame() int {
	return g.frame
}

// ReplayDone reports whether a replay is attached and finished.
func (g *Game) ReplayDone() bool {
	return g.opts.Replayer != nil && g.opts.Replayer.Done()
}

// Wait blocks until every dispatched event has been handled.
func (g *Game) Wait() error {
	return g.tasks.Wait()
}

// Close cancels in-flight navigation and waits for it.
func (g *Game) Close() error {
	g.cancel()
	return g.tasks.Wait()
}

// SetDT sets the delta time used for updates.
// Useful for testing or custom frame rates.
func (g *Game) SetDT(dt float64) {
	g.dt = dt
}
