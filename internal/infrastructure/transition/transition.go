// Package transition plays window transitions. Presets are named settings;
// a descriptor may also carry settings directly.
package transition

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/younwookim/stagecraft/internal/domain/window"
)

// ErrUnknownPreset is returned for a preset name nothing was registered under.
var ErrUnknownPreset = errors.New("unknown transition preset")

// ErrUnsupportedSettings is returned for settings of a type the factory cannot play.
var ErrUnsupportedSettings = errors.New("unsupported transition settings")

// DefaultStep is the animation tick, one frame at 60 TPS.
const DefaultStep = time.Second / 60

// None shows or hides instantly.
type None struct{}

// Fade animates alpha.
type Fade struct {
	Duration time.Duration
}

// Slide animates the offset from (DX, DY) to rest, fading alongside.
type Slide struct {
	Duration time.Duration
	DX, DY   float64
}

// Factory builds transitions. It satisfies window.TransitionFactory.
type Factory struct {
	mu      sync.RWMutex
	presets map[string]any
	step    time.Duration
}

// NewFactory creates a factory with the none, fade, and slide presets.
func NewFactory() *Factory {
	return &Factory{
		presets: map[string]any{
			"none":  None{},
			"fade":  Fade{Duration: 200 * time.Millisecond},
			"slide": Slide{Duration: 250 * time.Millisecond, DY: 24},
		},
		step: DefaultStep,
	}
}

// SetStep changes the animation tick.
func (f *Factory) SetStep(step time.Duration) {
	if step <= 0 {
		step = DefaultStep
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.step = step
}

// Register adds or replaces a preset.
func (f *Factory) Register(name string, settings any) error {
	if _, err := build(settings, 0); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presets[name] = settings
	return nil
}

// Create returns the transition d selects.
func (f *Factory) Create(d window.Descriptor) (window.Transition, error) {
	f.mu.RLock()
	step := f.step
	settings := d.Settings
	if settings == nil {
		var ok bool
		settings, ok = f.presets[d.Preset]
		if !ok {
			f.mu.RUnlock()
			return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, d.Preset)
		}
	}
	f.mu.RUnlock()
	return build(settings, step)
}

func build(settings any, step time.Duration) (window.Transition, error) {
	switch s := settings.(type) {
	case None, *None:
		return none{}, nil
	case Fade:
		return &fade{d: s.Duration, step: step}, nil
	case *Fade:
		return &fade{d: s.Duration, step: step}, nil
	case Slide:
		return &slide{s: s, step: step}, nil
	case *Slide:
		return &slide{s: *s, step: step}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedSettings, settings)
	}
}

type none struct{}

func (none) In(_ context.Context, t window.Animatable) error {
	t.SetOffset(0, 0)
	t.SetAlpha(1)
	return nil
}

func (none) Out(_ context.Context, t window.Animatable) error {
	t.SetAlpha(0)
	return nil
}

func (none) Duration() time.Duration { return 0 }

type fade struct {
	d    time.Duration
	step time.Duration
}

func (f *fade) In(ctx context.Context, t window.Animatable) error {
	t.SetOffset(0, 0)
	return animate(ctx, f.d, f.step, func(p float64) { t.SetAlpha(p) })
}

func (f *fade) Out(ctx context.Context, t window.Animatable) error {
	return animate(ctx, f.d, f.step, func(p float64) { t.SetAlpha(1 - p) })
}

func (f *fade) Duration() time.Duration { return f.d }

type slide struct {
	s    Slide
	step time.Duration
}

func (s *slide) In(ctx context.Context, t window.Animatable) error {
	return animate(ctx, s.s.Duration, s.step, func(p float64) {
		t.SetAlpha(p)
		t.SetOffset(s.s.DX*(1-p), s.s.DY*(1-p))
	})
}

func (s *slide) Out(ctx context.Context, t window.Animatable) error {
	return animate(ctx, s.s.Duration, s.step, func(p float64) {
		t.SetAlpha(1 - p)
		t.SetOffset(s.s.DX*p, s.s.DY*p)
	})
}

func (s *slide) Duration() time.Duration { return s.s.Duration }

// animate calls apply with linear progress from 0 to 1 once per step. On
// cancellation the target is snapped to the end state and ctx.Err is
// returned.
func animate(ctx context.Context, d, step time.Duration, apply func(p float64)) error {
	if d <= 0 {
		apply(1)
		return nil
	}
	if step <= 0 {
		step = DefaultStep
	}
	apply(0)

	ticker := time.NewTicker(step)
	defer ticker.Stop()
	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			apply(1)
			return ctx.Err()
		case now := <-ticker.C:
			p := float64(now.Sub(start)) / float64(d)
			if p >= 1 {
				apply(1)
				return nil
			}
			apply(p)
		}
	}
}
