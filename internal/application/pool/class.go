package pool

import (
	"reflect"

	"go.uber.org/zap"
)

type classEntry struct {
	free  []any // LIFO, top is most recently returned
	out   int   // handed out and not yet returned
	stats counters
}

func (m *Manager) classLocked(typ reflect.Type) *classEntry {
	c, ok := m.classes[typ]
	if !ok {
		c = &classEntry{}
		m.classes[typ] = c
	}
	return c
}

// SpawnClass returns a reused *T when one is free, otherwise a new zero *T.
func SpawnClass[T any](m *Manager) *T {
	typ := reflect.TypeFor[T]()

	m.mu.Lock()
	c := m.classLocked(typ)
	var v *T
	if n := len(c.free); n > 0 {
		v = c.free[n-1].(*T)
		c.free[n-1] = nil
		c.free = c.free[:n-1]
		c.stats.hits.Inc()
		m.global.hits.Inc()
	} else {
		v = new(T)
		c.stats.misses.Inc()
		c.stats.created.Inc()
		m.global.misses.Inc()
		m.global.created.Inc()
	}
	c.out++
	c.stats.spawns.Inc()
	m.global.spawns.Inc()
	m.mu.Unlock()

	if s, ok := any(v).(Spawnable); ok {
		s.OnSpawn()
	}
	return v
}

// DespawnClass returns v to its type's pool. Values beyond the default idle
// limit are dropped for the garbage collector. A value returned while nothing
// of its type is handed out is still pooled but not counted as a despawn.
func DespawnClass[T any](m *Manager, v *T) {
	if v == nil {
		return
	}
	if d, ok := any(v).(Despawnable); ok {
		d.OnDespawn()
	}
	if r, ok := any(v).(Resetter); ok {
		r.Reset()
	}

	typ := reflect.TypeFor[T]()
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.classLocked(typ)
	if c.out > 0 {
		c.out--
		c.stats.despawns.Inc()
		m.global.despawns.Inc()
	} else {
		m.log.Warn("class despawn without matching spawn", zap.Stringer("type", typ))
	}
	if m.defaults.MaxIdle > 0 && len(c.free) >= m.defaults.MaxIdle {
		c.stats.destroyed.Inc()
		m.global.destroyed.Inc()
		return
	}
	c.free = append(c.free, v)
}

// ClassStats returns analytics for T's class pool.
func ClassStats[T any](m *Manager) Stats {
	typ := reflect.TypeFor[T]()
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.classes[typ]
	if !ok {
		return Stats{}
	}
	s := c.stats.snapshot()
	s.Idle = len(c.free)
	s.Active = c.out
	return s
}
