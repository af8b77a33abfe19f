package main

import (
	"context"
	"math/rand/v2"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/younwookim/stagecraft/internal/application/game"
	"github.com/younwookim/stagecraft/internal/application/pool"
	"github.com/younwookim/stagecraft/internal/application/screens"
	"github.com/younwookim/stagecraft/internal/application/windows"
	"github.com/younwookim/stagecraft/internal/domain/window"
	"github.com/younwookim/stagecraft/internal/infrastructure/config"
	"github.com/younwookim/stagecraft/internal/infrastructure/ui"
	"go.uber.org/zap"
)

// keyEvents maps demo keys to flow events.
var keyEvents = map[ebiten.Key]string{
	ebiten.KeyEnter: "start",
	ebiten.KeyP:     "play",
	ebiten.KeyS:     "shop",
	ebiten.KeyTab:   "pause",
	ebiten.KeyR:     "resume",
	ebiten.KeyQ:     "quit",
	ebiten.KeyF:     "finish",
}

const (
	sparkInterval = 0.1
	sparkLifetime = 2.0
	sparkScreen   = "game"
)

// sparks spawns pooled sparks while the game screen is current.
type sparks struct {
	pools   *pool.Manager
	screens *screens.Manager
	width   float64
	tmpl    pool.Template
	timer   float64
	live    []*ui.Spark
}

func newSparks(pools *pool.Manager, sm *screens.Manager, tmpl pool.Template, d config.DisplaySettings) *sparks {
	return &sparks{
		pools:   pools,
		screens: sm,
		width:   float64(d.ScreenWidth),
		tmpl:    tmpl,
	}
}

func (s *sparks) update(dt float64) {
	kept := s.live[:0]
	for _, sp := range s.live {
		if sp.Active() {
			sp.Step(dt)
			kept = append(kept, sp)
		}
	}
	s.live = kept

	cur := s.screens.Current()
	if cur == nil || cur.ID != sparkScreen || s.screens.Override() != nil {
		s.timer = 0
		return
	}
	s.timer += dt
	for s.timer >= sparkInterval {
		s.timer -= sparkInterval
		obj := s.pools.Spawn(s.tmpl, pool.Pose{X: rand.Float64() * s.width, Y: 16}, nil,
			pool.WithCategory("effects"),
			pool.WithAutoRecycle(sparkLifetime))
		if sp, ok := obj.(*ui.Spark); ok {
			s.live = append(s.live, sp)
		}
	}
}

func (s *sparks) drawables() []game.Drawable {
	out := make([]game.Drawable, 0, len(s.live))
	for _, sp := range s.live {
		out = append(out, sp)
	}
	return out
}

// pollKeys turns demo key presses into flow events and window opens.
func (a *App) pollKeys(ctx context.Context) {
	for key, event := range keyEvents {
		if inpututil.IsKeyJustPressed(key) {
			a.game.Trigger(event)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyT) {
		if err := a.engine.Set("tutorial_done", true); err != nil {
			a.log.Warn("failed to set flag", zap.Error(err))
		}
		a.log.Info("tutorial marked done")
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyC) {
		go a.openConfirm(ctx)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyN) {
		go a.openWindow(ctx, "notice")
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyO) {
		go a.openWindow(ctx, "settings")
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyX) {
		go func() {
			if err := a.windows.CloseAll(ctx, false, false); err != nil {
				a.log.Warn("close all failed", zap.Error(err))
			}
		}()
	}
}

func (a *App) openConfirm(ctx context.Context) {
	ok, err := windows.Open[bool](ctx, a.windows, "confirm", window.Options{})
	if err != nil {
		a.log.Warn("confirm failed", zap.Error(err))
		return
	}
	a.log.Info("confirm closed", zap.Bool("result", ok))
}

func (a *App) openWindow(ctx context.Context, typ string) {
	if _, err := windows.Open[any](ctx, a.windows, typ, window.Options{}); err != nil {
		a.log.Warn("window failed", zap.String("type", typ), zap.Error(err))
	}
}
