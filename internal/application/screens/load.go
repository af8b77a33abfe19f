package screens

import (
	"context"
	"errors"
	"fmt"

	"github.com/younwookim/stagecraft/internal/domain/screen"
	"go.uber.org/zap"
)

// PreloadTask is asynchronous work that runs after a screen's scenes load and
// counts towards the loading progress.
type PreloadTask interface {
	// Units is the weight of the task in progress units.
	Units() int
	// Run performs the task. report is called with the number of units
	// completed so far.
	Run(ctx context.Context, report func(done int)) error
}

// TaskFunc adapts a plain function into a one-unit PreloadTask.
type TaskFunc func(ctx context.Context) error

// Units returns 1.
func (f TaskFunc) Units() int { return 1 }

// Run calls f.
func (f TaskFunc) Run(ctx context.Context, report func(int)) error {
	if err := f(ctx); err != nil {
		return err
	}
	report(1)
	return nil
}

type progress struct {
	loading LoadingScreen
	log     *zap.Logger
	total   int
	done    int
}

// beginLoading shows the loading UI when s asks for it. The returned progress
// is never nil; without a loading UI it only counts.
func (m *Manager) beginLoading(ctx context.Context, s *screen.Screen) *progress {
	p := &progress{log: m.log, total: len(s.SceneKeys())}
	m.mu.Lock()
	for _, name := range s.PreloadTasks {
		p.total += unitsOf(m.tasks[name])
	}
	m.mu.Unlock()

	if !s.ShowLoadingScreen || m.loading == nil {
		return p
	}
	if err := m.loading.Show(ctx); err != nil {
		m.log.Warn("failed to show loading screen", zap.Error(err))
		return p
	}
	p.loading = m.loading
	p.loading.SetProgress(0)
	return p
}

func unitsOf(t PreloadTask) int {
	if t == nil || t.Units() < 1 {
		return 1
	}
	return t.Units()
}

func (p *progress) set(done int) {
	if done > p.total {
		done = p.total
	}
	if done <= p.done {
		return
	}
	p.done = done
	if p.loading != nil && p.total > 0 {
		p.loading.SetProgress(float64(p.done) / float64(p.total))
	}
}

func (p *progress) finish(ctx context.Context) {
	if p.loading == nil {
		return
	}
	p.loading.SetProgress(1)
	if err := p.loading.Hide(ctx); err != nil {
		p.log.Warn("failed to hide loading screen", zap.Error(err))
	}
	p.loading = nil
}

// loadScreen loads every scene of s, activating them, then runs its preload
// tasks. A failing task is logged and its units are counted as done.
func (m *Manager) loadScreen(ctx context.Context, s *screen.Screen, p *progress) error {
	for _, key := range s.SceneKeys() {
		if err := m.scenes.Load(ctx, key); err != nil {
			return fmt.Errorf("failed to load screen %s: %w", s.ID, err)
		}
		p.set(p.done + 1)
	}

	for _, name := range s.PreloadTasks {
		m.mu.Lock()
		task := m.tasks[name]
		m.mu.Unlock()

		start := p.done
		units := unitsOf(task)
		if task == nil {
			m.log.Error("preload task not registered",
				zap.Stringer("screen", s),
				zap.String("task", name))
			p.set(start + units)
			continue
		}
		err := runTask(ctx, task, func(done int) {
			if done > units {
				done = units
			}
			p.set(start + done)
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("failed to load screen %s: %w", s.ID, err)
			}
			m.log.Error("preload task failed",
				zap.Stringer("screen", s),
				zap.String("task", name),
				zap.Error(err))
		}
		p.set(start + units)
	}
	return nil
}

func runTask(ctx context.Context, task PreloadTask, report func(int)) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("preload task panicked: %v", r)
		}
	}()
	return task.Run(ctx, report)
}

// showScreen activates every scene of s that is still loaded.
func (m *Manager) showScreen(s *screen.Screen) {
	for _, key := range s.SceneKeys() {
		m.scenes.Activate(key)
	}
}

// reloadScreen makes every scene of s loaded and active again, loading any
// that were unloaded while s was covered.
func (m *Manager) reloadScreen(ctx context.Context, s *screen.Screen) error {
	for _, key := range s.SceneKeys() {
		if err := m.scenes.Load(ctx, key); err != nil {
			return fmt.Errorf("failed to show screen %s: %w", s.ID, err)
		}
	}
	return nil
}

// hideScreen deactivates the scenes of s that next does not use.
func (m *Manager) hideScreen(s, next *screen.Screen) {
	if s == nil {
		return
	}
	for _, key := range s.SceneKeys() {
		if !next.References(key) {
			m.scenes.Deactivate(key)
		}
	}
}

// unloadScreen releases the scenes of s. Scenes that next references are kept
// as they are. A soft-cached screen is only deactivated, and additive scenes
// without UnloadOnClose stay loaded but hidden.
func (m *Manager) unloadScreen(ctx context.Context, s, next *screen.Screen) error {
	if s == nil {
		return nil
	}
	if s.SoftCache {
		m.hideScreen(s, next)
		m.log.Debug("screen soft cached", zap.Stringer("screen", s))
		return nil
	}

	var errs []error
	release := func(key string, unload bool) {
		if next.References(key) {
			m.log.Debug("scene kept for next screen",
				zap.Stringer("screen", s),
				zap.String("scene", key))
			return
		}
		if !unload {
			m.scenes.Deactivate(key)
			return
		}
		if err := m.scenes.Unload(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}

	release(s.MainScene, true)
	for _, a := range s.Additive {
		release(a.Key, a.UnloadOnClose)
	}
	return errors.Join(errs...)
}

func (m *Manager) unloadLogged(ctx context.Context, s, next *screen.Screen) {
	if err := m.unloadScreen(ctx, s, next); err != nil {
		m.log.Error("failed to unload screen", zap.Stringer("screen", s), zap.Error(err))
	}
}

// restore brings s back after a failed transition. Failures are logged only.
func (m *Manager) restore(ctx context.Context, s *screen.Screen) {
	if s == nil {
		return
	}
	if err := m.reloadScreen(context.WithoutCancel(ctx), s); err != nil {
		m.log.Error("failed to restore screen", zap.Stringer("screen", s), zap.Error(err))
	}
}
