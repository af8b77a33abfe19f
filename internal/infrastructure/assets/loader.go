// Package assets is an in-memory resource loader. Scenes are colored layers
// drawn with ebiten; assets are whatever values were registered. Latency,
// faults, and held loads can be configured per key, which makes the loader
// usable both by the demo and by tests that need a transition parked mid-load.
package assets

import (
	"context"
	"fmt"
	"image/color"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/younwookim/stagecraft/internal/domain/resource"
	"go.uber.org/zap"
)

// SceneSpec describes how to draw a scene.
type SceneSpec struct {
	Color color.RGBA
	// Band draws a horizontal strip at Y with height H instead of filling the screen.
	Band bool
	Y, H float64
}

// Scene is the handle returned by LoadScene.
type Scene struct {
	key string
	mu  sync.Mutex
	// guarded by mu
	loaded bool
	active bool
	spec   SceneSpec
}

// Key returns the resource key.
func (s *Scene) Key() string { return s.key }

// Valid reports whether the scene is still loaded.
func (s *Scene) Valid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// SetActive toggles the scene roots.
func (s *Scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

// Active reports whether the scene roots are shown.
func (s *Scene) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Draw renders the scene layer.
func (s *Scene) Draw(screen *ebiten.Image) {
	s.mu.Lock()
	spec, active := s.spec, s.active
	s.mu.Unlock()
	if !active {
		return
	}
	if !spec.Band {
		screen.Fill(spec.Color)
		return
	}
	w := screen.Bounds().Dx()
	ebitenutil.DrawRect(screen, 0, spec.Y, float64(w), spec.H, spec.Color)
	ebitenutil.DebugPrintAt(screen, s.key, 4, int(spec.Y)+2)
}

// Hold parks loads of one key until Release is called.
type Hold struct {
	Started chan struct{}
	release chan struct{}
	once    sync.Once
}

// Release lets the held load finish.
func (h *Hold) Release() {
	h.once.Do(func() { close(h.release) })
}

// Loader is an in-memory resource.Loader.
type Loader struct {
	mu      sync.Mutex
	log     *zap.Logger
	scenes  map[string]SceneSpec
	assets  map[string]any
	live    map[string]*Scene
	faults  map[string]error
	holds   map[string]*Hold
	loads   map[string]int
	unloads map[string]int

	// Latency is added to every load.
	Latency time.Duration
}

// NewLoader creates an empty loader.
func NewLoader(log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{
		log:     log.Named("assets"),
		scenes:  make(map[string]SceneSpec),
		assets:  make(map[string]any),
		live:    make(map[string]*Scene),
		faults:  make(map[string]error),
		holds:   make(map[string]*Hold),
		loads:   make(map[string]int),
		unloads: make(map[string]int),
	}
}

// AddScene registers a loadable scene.
func (l *Loader) AddScene(key string, spec SceneSpec) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.scenes[key] = spec
}

// AddAsset registers a loadable asset.
func (l *Loader) AddAsset(key string, v any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.assets[key] = v
}

// Fail makes every later load of key fail with err. A nil err clears the fault.
func (l *Loader) Fail(key string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err == nil {
		delete(l.faults, key)
		return
	}
	l.faults[key] = err
}

// Hold makes the next load of key block until the returned hold is released.
func (l *Loader) Hold(key string) *Hold {
	l.mu.Lock()
	defer l.mu.Unlock()
	h := &Hold{Started: make(chan struct{}), release: make(chan struct{})}
	l.holds[key] = h
	return h
}

// LoadScene loads key additively. Loading an already loaded key returns the
// live handle.
func (l *Loader) LoadScene(ctx context.Context, key string) (resource.SceneHandle, error) {
	if err := l.wait(ctx, key); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads[key]++
	if err, ok := l.faults[key]; ok {
		return nil, err
	}
	if s, ok := l.live[key]; ok && s.Valid() {
		return s, nil
	}
	spec, ok := l.scenes[key]
	if !ok {
		return nil, fmt.Errorf("scene %s: %w", key, resource.ErrNotFound)
	}
	s := &Scene{key: key, loaded: true, spec: spec}
	l.live[key] = s
	return s, nil
}

// UnloadScene unloads the scene behind h.
func (l *Loader) UnloadScene(ctx context.Context, h resource.SceneHandle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s, ok := h.(*Scene)
	if !ok {
		return fmt.Errorf("unload scene %s: foreign handle", h.Key())
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unloads[s.key]++
	if l.live[s.key] == s {
		delete(l.live, s.key)
	}
	s.mu.Lock()
	s.loaded = false
	s.active = false
	s.mu.Unlock()
	return nil
}

// LoadAsset returns the value registered under key.
func (l *Loader) LoadAsset(ctx context.Context, key string) (any, error) {
	if err := l.wait(ctx, key); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads[key]++
	if err, ok := l.faults[key]; ok {
		return nil, err
	}
	v, ok := l.assets[key]
	if !ok {
		return nil, fmt.Errorf("asset %s: %w", key, resource.ErrNotFound)
	}
	return v, nil
}

// Loads returns how many times key was requested.
func (l *Loader) Loads(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads[key]
}

// Unloads returns how many times key was unloaded.
func (l *Loader) Unloads(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.unloads[key]
}

// Live returns the loaded scene for key, if any.
func (l *Loader) Live(key string) (*Scene, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.live[key]
	return s, ok
}

func (l *Loader) wait(ctx context.Context, key string) error {
	l.mu.Lock()
	h, held := l.holds[key]
	if held {
		delete(l.holds, key)
	}
	latency := l.Latency
	l.mu.Unlock()

	if held {
		close(h.Started)
		select {
		case <-h.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if latency > 0 {
		t := time.NewTimer(latency)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
