package screens

import (
	"context"

	"github.com/younwookim/stagecraft/internal/domain/screen"
)

// Enter starts a new navigation flow with s as the only stacked screen.
func (m *Manager) Enter(ctx context.Context, s *screen.Screen) (screen.Result, error) {
	return m.EnterWith(ctx, s, screen.TransitionContext{})
}

// EnterWith is Enter with completion metadata.
func (m *Manager) EnterWith(ctx context.Context, s *screen.Screen, tc screen.TransitionContext) (screen.Result, error) {
	return m.run(screen.TransitionEnter, s, func() (screen.Completion, error) {
		if s == nil {
			return screen.Completion{}, ErrNilScreen
		}

		m.mu.Lock()
		from := m.currentLocked()
		base := m.base
		stack := append([]*screen.Screen(nil), m.stack...)
		override := m.override
		previous := m.previous
		m.mu.Unlock()

		call(m.Hooks.PreExit, from)
		p := m.beginLoading(ctx, s)

		if override != nil {
			m.unloadLogged(ctx, override, s)
		}
		for i := len(stack) - 1; i >= 0; i-- {
			m.unloadLogged(ctx, stack[i], s)
		}
		if base != nil && !contains(stack, base) {
			m.unloadLogged(ctx, base, s)
		}
		m.mu.Lock()
		m.override = nil
		m.stack = nil
		m.mu.Unlock()
		call(m.Hooks.PostExit, from)

		call(m.Hooks.PreEnter, s)
		if err := m.loadScreen(ctx, s, p); err != nil {
			m.unloadLogged(ctx, s, from)
			m.mu.Lock()
			m.base, m.stack, m.override, m.previous = base, stack, override, previous
			m.mu.Unlock()
			m.restore(ctx, from)
			p.finish(ctx)
			return screen.Completion{}, err
		}
		m.showScreen(s)

		m.mu.Lock()
		m.base = s
		m.stack = []*screen.Screen{s}
		m.previous = from
		m.mu.Unlock()

		call(m.Hooks.PostEnter, s)
		p.finish(ctx)
		return screen.Completion{Kind: screen.TransitionEnter, From: from, To: s, Context: tc}, nil
	})
}

// Push stacks s on top of the current screen.
func (m *Manager) Push(ctx context.Context, s *screen.Screen) (screen.Result, error) {
	return m.PushWith(ctx, s, screen.TransitionContext{})
}

// PushWith is Push with completion metadata.
func (m *Manager) PushWith(ctx context.Context, s *screen.Screen, tc screen.TransitionContext) (screen.Result, error) {
	return m.run(screen.TransitionPush, s, func() (screen.Completion, error) {
		if s == nil {
			return screen.Completion{}, ErrNilScreen
		}

		m.mu.Lock()
		if m.override != nil {
			m.mu.Unlock()
			return screen.Completion{}, ErrOverrideActive
		}
		from := m.currentLocked()
		if from == s {
			m.mu.Unlock()
			return screen.Completion{}, ErrAlreadyCurrent
		}
		m.stack = append(m.stack, s)
		m.mu.Unlock()

		call(m.Hooks.PreExit, from)
		m.hideScreen(from, s)
		call(m.Hooks.PreEnter, s)

		p := m.beginLoading(ctx, s)
		if err := m.loadScreen(ctx, s, p); err != nil {
			m.mu.Lock()
			m.stack = m.stack[:len(m.stack)-1]
			m.mu.Unlock()
			m.unloadLogged(ctx, s, from)
			m.restore(ctx, from)
			p.finish(ctx)
			return screen.Completion{}, err
		}
		m.showScreen(s)

		m.mu.Lock()
		m.previous = from
		m.mu.Unlock()

		call(m.Hooks.PostExit, from)
		call(m.Hooks.PostEnter, s)
		p.finish(ctx)
		return screen.Completion{Kind: screen.TransitionPush, From: from, To: s, Context: tc}, nil
	})
}

// Pop removes the top screen and shows the one below it.
func (m *Manager) Pop(ctx context.Context) (screen.Result, error) {
	return m.PopWith(ctx, screen.TransitionContext{})
}

// PopWith is Pop with completion metadata.
func (m *Manager) PopWith(ctx context.Context, tc screen.TransitionContext) (screen.Result, error) {
	return m.run(screen.TransitionPop, nil, func() (screen.Completion, error) {
		m.mu.Lock()
		if m.override != nil {
			m.mu.Unlock()
			return screen.Completion{}, ErrOverrideActive
		}
		n := len(m.stack)
		if n <= 1 {
			m.mu.Unlock()
			return screen.Completion{}, ErrNothingToPop
		}
		popped := m.stack[n-1]
		next := m.stack[n-2]
		m.stack = m.stack[:n-1]
		m.mu.Unlock()

		call(m.Hooks.PreExit, popped)
		call(m.Hooks.PreEnter, next)

		err := m.unloadScreen(ctx, popped, next)
		if err == nil {
			err = m.reloadScreen(ctx, next)
		}
		if err != nil {
			m.mu.Lock()
			m.stack = append(m.stack, popped)
			m.mu.Unlock()
			m.restore(ctx, popped)
			return screen.Completion{}, err
		}

		m.mu.Lock()
		m.previous = popped
		m.mu.Unlock()

		call(m.Hooks.PostExit, popped)
		call(m.Hooks.PostEnter, next)
		return screen.Completion{Kind: screen.TransitionPop, From: popped, To: next, Context: tc}, nil
	})
}

// PushOverride shows s in the override slot, shadowing the stack without
// changing it.
func (m *Manager) PushOverride(ctx context.Context, s *screen.Screen) (screen.Result, error) {
	return m.PushOverrideWith(ctx, s, screen.TransitionContext{})
}

// PushOverrideWith is PushOverride with completion metadata.
func (m *Manager) PushOverrideWith(ctx context.Context, s *screen.Screen, tc screen.TransitionContext) (screen.Result, error) {
	return m.run(screen.TransitionPushOverride, s, func() (screen.Completion, error) {
		if s == nil {
			return screen.Completion{}, ErrNilScreen
		}

		m.mu.Lock()
		from := m.currentLocked()
		if from == s {
			m.mu.Unlock()
			return screen.Completion{}, ErrAlreadyCurrent
		}
		prior := m.override
		m.override = s
		m.mu.Unlock()

		call(m.Hooks.PreExit, from)
		if prior != nil {
			m.unloadLogged(ctx, prior, s)
		} else {
			m.hideScreen(from, s)
		}
		call(m.Hooks.PreEnter, s)

		p := m.beginLoading(ctx, s)
		if err := m.loadScreen(ctx, s, p); err != nil {
			m.mu.Lock()
			m.override = prior
			m.mu.Unlock()
			m.unloadLogged(ctx, s, from)
			m.restore(ctx, from)
			p.finish(ctx)
			return screen.Completion{}, err
		}
		m.showScreen(s)

		m.mu.Lock()
		m.previous = from
		m.mu.Unlock()

		call(m.Hooks.PostExit, from)
		call(m.Hooks.PostEnter, s)
		p.finish(ctx)
		return screen.Completion{Kind: screen.TransitionPushOverride, From: from, To: s, Context: tc}, nil
	})
}

// PopOverride clears the override slot and shows the stack again.
func (m *Manager) PopOverride(ctx context.Context) (screen.Result, error) {
	return m.PopOverrideWith(ctx, screen.TransitionContext{})
}

// PopOverrideWith is PopOverride with completion metadata.
func (m *Manager) PopOverrideWith(ctx context.Context, tc screen.TransitionContext) (screen.Result, error) {
	return m.run(screen.TransitionPopOverride, nil, func() (screen.Completion, error) {
		m.mu.Lock()
		ov := m.override
		if ov == nil {
			m.mu.Unlock()
			return screen.Completion{}, ErrNoOverride
		}
		m.override = nil
		next := m.currentLocked()
		m.mu.Unlock()

		call(m.Hooks.PreExit, ov)
		call(m.Hooks.PreEnter, next)

		err := m.unloadScreen(ctx, ov, next)
		if err == nil && next != nil {
			err = m.reloadScreen(ctx, next)
		}
		if err != nil {
			m.mu.Lock()
			m.override = ov
			m.mu.Unlock()
			m.restore(ctx, ov)
			return screen.Completion{}, err
		}

		m.mu.Lock()
		m.previous = ov
		m.mu.Unlock()

		call(m.Hooks.PostExit, ov)
		call(m.Hooks.PostEnter, next)
		return screen.Completion{Kind: screen.TransitionPopOverride, From: ov, To: next, Context: tc}, nil
	})
}

func contains(list []*screen.Screen, s *screen.Screen) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
