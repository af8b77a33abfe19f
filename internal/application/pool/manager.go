package pool

import (
	"reflect"
	"sync"

	"go.uber.org/zap"
)

type tracked struct {
	pool   *entry
	active bool
	gen    uint64
}

type entry struct {
	tmpl       Template
	cfg        Config
	category   string
	idle       []Object // FIFO, front is least recently returned
	active     []Object // spawn order, front is oldest
	lastAccess float64
	stats      counters
}

type scheduled struct {
	obj Object
	gen uint64
	at  float64
}

// effects run after the manager lock is released so that object hooks may
// call back into the manager.
type effects []func()

func (fx *effects) add(f func()) {
	*fx = append(*fx, f)
}

func (fx effects) run() {
	for _, f := range fx {
		f()
	}
}

// Manager owns every pool. The mutex guards bookkeeping only; object hooks run
// outside it, so a Manager expects one logical flow of calls at a time.
type Manager struct {
	mu         sync.Mutex
	log        *zap.Logger
	defaults   Config
	pools      map[int64]*entry
	owners     map[Object]*tracked
	categories map[string]map[int64]struct{}
	scheduled  []scheduled
	classes    map[reflect.Type]*classEntry
	now        float64
	gen        uint64
	global     counters

	// Callbacks
	OnSpawn    func(obj Object)
	OnDespawn  func(obj Object)
	OnOverflow func(tmpl Template)
}

// NewManager creates an empty manager. Lazily created pools use defaults.
func NewManager(log *zap.Logger, defaults Config) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		log:        log.Named("pool"),
		defaults:   defaults,
		pools:      make(map[int64]*entry),
		owners:     make(map[Object]*tracked),
		categories: make(map[string]map[int64]struct{}),
		classes:    make(map[reflect.Type]*classEntry),
	}
}

// Register creates or reconfigures the pool for tmpl and preloads idle instances.
func (m *Manager) Register(tmpl Template, cfg Config, category string) {
	if tmpl == nil {
		m.log.Error("register failed", zap.Error(ErrNilTemplate))
		return
	}
	var fx effects
	m.mu.Lock()
	e := m.poolLocked(tmpl)
	e.cfg = cfg
	if category != "" {
		m.tagLocked(e, category)
	}
	for len(e.idle)+len(e.active) < cfg.Preload {
		obj := m.createLocked(e)
		if obj == nil {
			break
		}
		e.idle = append(e.idle, obj)
		fx.add(func() { obj.SetActive(false) })
	}
	m.mu.Unlock()
	fx.run()
	m.log.Debug("pool registered",
		zap.String("template", tmpl.Name()),
		zap.Int("preload", cfg.Preload),
		zap.Int("max_size", cfg.MaxSize),
		zap.Stringer("overflow", cfg.Overflow))
}

// Spawn returns an active instance of tmpl, or nil when the template is nil,
// instantiation fails, or the pool refuses under ReturnNull.
func (m *Manager) Spawn(tmpl Template, pose Pose, parent any, opts ...SpawnOption) Object {
	if tmpl == nil {
		m.log.Error("spawn failed", zap.Error(ErrNilTemplate))
		return nil
	}
	var o spawnOptions
	for _, opt := range opts {
		opt(&o)
	}

	var fx effects
	m.mu.Lock()
	obj := m.spawnLocked(tmpl, o, &fx)
	if obj != nil {
		fx.add(func() {
			obj.SetPose(pose, parent)
			obj.SetActive(true)
			if s, ok := obj.(Spawnable); ok {
				s.OnSpawn()
			}
			if m.OnSpawn != nil {
				m.OnSpawn(obj)
			}
		})
	}
	m.mu.Unlock()
	fx.run()
	return obj
}

func (m *Manager) spawnLocked(tmpl Template, o spawnOptions, fx *effects) Object {
	e := m.poolLocked(tmpl)
	switch {
	case o.category != "":
		m.tagLocked(e, o.category)
	case o.fallback != "" && e.category == "":
		m.tagLocked(e, o.fallback)
	}
	e.lastAccess = m.now

	var obj Object
	if len(e.idle) > 0 {
		obj = e.idle[0]
		e.idle[0] = nil
		e.idle = e.idle[1:]
		e.stats.hits.Inc()
		m.global.hits.Inc()
	} else if e.cfg.MaxSize > 0 && len(e.active) >= e.cfg.MaxSize {
		e.stats.overflows.Inc()
		m.global.overflows.Inc()
		switch e.cfg.Overflow {
		case ReturnNull:
			m.log.Debug("pool exhausted",
				zap.String("template", tmpl.Name()),
				zap.Int("max_size", e.cfg.MaxSize))
			if m.OnOverflow != nil {
				fx.add(func() { m.OnOverflow(tmpl) })
			}
			return nil
		case RecycleOldest:
			oldest := e.active[0]
			m.despawnLocked(oldest, fx)
			if n := len(e.idle); n > 0 {
				obj = e.idle[n-1]
				e.idle[n-1] = nil
				e.idle = e.idle[:n-1]
			}
		}
	}

	if obj == nil {
		obj = m.createLocked(e)
		if obj == nil {
			return nil
		}
		e.stats.misses.Inc()
		m.global.misses.Inc()
	}

	t := m.owners[obj]
	t.active = true
	m.gen++
	t.gen = m.gen
	e.active = append(e.active, obj)
	e.stats.spawns.Inc()
	m.global.spawns.Inc()

	if o.autoRecycle > 0 {
		m.scheduled = append(m.scheduled, scheduled{obj: obj, gen: t.gen, at: m.now + o.autoRecycle})
	}
	return obj
}

// Despawn returns obj to its pool, immediately or after delaySeconds of host
// time. A nil obj is ignored; an obj no pool knows about is destroyed.
func (m *Manager) Despawn(obj Object, delaySeconds float64) {
	if obj == nil {
		return
	}
	var fx effects
	m.mu.Lock()
	if t, ok := m.owners[obj]; ok && t.active && delaySeconds > 0 {
		m.scheduled = append(m.scheduled, scheduled{obj: obj, gen: t.gen, at: m.now + delaySeconds})
		m.mu.Unlock()
		return
	}
	m.despawnLocked(obj, &fx)
	m.mu.Unlock()
	fx.run()
}

func (m *Manager) despawnLocked(obj Object, fx *effects) {
	t, ok := m.owners[obj]
	if !ok {
		m.log.Warn("despawn of untracked instance, destroying it")
		fx.add(obj.Destroy)
		return
	}
	if !t.active {
		m.log.Warn("despawn of idle instance ignored", zap.String("template", t.pool.tmpl.Name()))
		return
	}

	e := t.pool
	t.active = false
	e.active = removeObject(e.active, obj)
	e.idle = append(e.idle, obj)
	e.lastAccess = m.now
	e.stats.despawns.Inc()
	m.global.despawns.Inc()

	fx.add(func() {
		if d, ok := obj.(Despawnable); ok {
			d.OnDespawn()
		}
		obj.SetActive(false)
		if m.OnDespawn != nil {
			m.OnDespawn(obj)
		}
	})

	if e.cfg.MaxIdle > 0 && len(e.idle) > e.cfg.MaxIdle {
		evicted := e.idle[0]
		e.idle[0] = nil
		e.idle = e.idle[1:]
		m.destroyLocked(e, evicted, fx)
	}
}

// Update advances the manager clock by dt seconds and runs due despawns.
func (m *Manager) Update(dt float64) {
	var fx effects
	m.mu.Lock()
	m.now += dt
	pending := m.scheduled[:0]
	var due []scheduled
	for _, s := range m.scheduled {
		if s.at <= m.now {
			due = append(due, s)
		} else {
			pending = append(pending, s)
		}
	}
	for i := len(pending); i < len(m.scheduled); i++ {
		m.scheduled[i] = scheduled{}
	}
	m.scheduled = pending
	for _, s := range due {
		// A recycled object carries a new generation; its old schedule is stale.
		if t, ok := m.owners[s.obj]; ok && t.active && t.gen == s.gen {
			m.despawnLocked(s.obj, &fx)
		}
	}
	m.mu.Unlock()
	fx.run()
}

// DespawnCategory despawns every active instance of every pool tagged category.
func (m *Manager) DespawnCategory(category string) int {
	var fx effects
	m.mu.Lock()
	n := 0
	for id := range m.categories[category] {
		e := m.pools[id]
		for _, obj := range append([]Object(nil), e.active...) {
			m.despawnLocked(obj, &fx)
			n++
		}
	}
	m.mu.Unlock()
	fx.run()
	return n
}

// ClearCategory despawns and destroys every instance of the category's pools
// and removes the pools.
func (m *Manager) ClearCategory(category string) int {
	var fx effects
	m.mu.Lock()
	ids := m.categories[category]
	n := 0
	for id := range ids {
		n += m.clearPoolLocked(m.pools[id], &fx)
	}
	delete(m.categories, category)
	m.mu.Unlock()
	fx.run()
	return n
}

// TrimExcess destroys idle instances until each pool keeps at most keepMinimum.
func (m *Manager) TrimExcess(keepMinimum int) int {
	if keepMinimum < 0 {
		keepMinimum = 0
	}
	var fx effects
	m.mu.Lock()
	n := 0
	for _, e := range m.pools {
		for len(e.idle) > keepMinimum {
			obj := e.idle[0]
			e.idle[0] = nil
			e.idle = e.idle[1:]
			m.destroyLocked(e, obj, &fx)
			n++
		}
	}
	m.mu.Unlock()
	fx.run()
	return n
}

// CleanupUnused removes pools that have had no active instance and no access
// for longer than idleSeconds.
func (m *Manager) CleanupUnused(idleSeconds float64) int {
	var fx effects
	m.mu.Lock()
	n := 0
	for _, e := range m.pools {
		if len(e.active) == 0 && m.now-e.lastAccess > idleSeconds {
			m.clearPoolLocked(e, &fx)
			n++
		}
	}
	m.mu.Unlock()
	fx.run()
	if n > 0 {
		m.log.Debug("unused pools removed", zap.Int("count", n))
	}
	return n
}

// ClearAllPools destroys every instance, drops every pool and class pool,
// and cancels scheduled despawns.
func (m *Manager) ClearAllPools() {
	var fx effects
	m.mu.Lock()
	for _, e := range m.pools {
		m.clearPoolLocked(e, &fx)
	}
	for _, c := range m.classes {
		c.stats.destroyed.Add(int64(len(c.free)))
		m.global.destroyed.Add(int64(len(c.free)))
	}
	m.pools = make(map[int64]*entry)
	m.owners = make(map[Object]*tracked)
	m.categories = make(map[string]map[int64]struct{})
	m.classes = make(map[reflect.Type]*classEntry)
	m.scheduled = nil
	m.mu.Unlock()
	fx.run()
}

// Stats returns analytics for tmpl's pool.
func (m *Manager) Stats(tmpl Template) (Stats, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.pools[tmpl.TemplateID()]
	if !ok {
		return Stats{}, false
	}
	s := e.stats.snapshot()
	s.Active = len(e.active)
	s.Idle = len(e.idle)
	return s, true
}

// GlobalStats returns analytics aggregated over every pool.
func (m *Manager) GlobalStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.global.snapshot()
	for _, e := range m.pools {
		s.Active += len(e.active)
		s.Idle += len(e.idle)
	}
	return s
}

// IsActive reports whether obj is currently spawned from some pool.
func (m *Manager) IsActive(obj Object) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.owners[obj]
	return ok && t.active
}

// Tracks reports whether any pool owns obj, active or idle.
func (m *Manager) Tracks(obj Object) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.owners[obj]
	return ok
}

// PoolCount returns the number of template pools.
func (m *Manager) PoolCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pools)
}

// Scheduled returns the number of pending delayed despawns.
func (m *Manager) Scheduled() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.scheduled)
}

// Now returns the manager clock in seconds.
func (m *Manager) Now() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manager) poolLocked(tmpl Template) *entry {
	id := tmpl.TemplateID()
	e, ok := m.pools[id]
	if !ok {
		e = &entry{tmpl: tmpl, cfg: m.defaults, lastAccess: m.now}
		m.pools[id] = e
	}
	return e
}

func (m *Manager) tagLocked(e *entry, category string) {
	if e.category == category {
		return
	}
	if e.category != "" {
		delete(m.categories[e.category], e.tmpl.TemplateID())
	}
	e.category = category
	set, ok := m.categories[category]
	if !ok {
		set = make(map[int64]struct{})
		m.categories[category] = set
	}
	set[e.tmpl.TemplateID()] = struct{}{}
}

func (m *Manager) createLocked(e *entry) Object {
	obj := e.tmpl.Instantiate()
	if obj == nil {
		m.log.Error("instantiate returned nil", zap.String("template", e.tmpl.Name()))
		return nil
	}
	m.owners[obj] = &tracked{pool: e}
	e.stats.created.Inc()
	m.global.created.Inc()
	return obj
}

func (m *Manager) destroyLocked(e *entry, obj Object, fx *effects) {
	delete(m.owners, obj)
	e.stats.destroyed.Inc()
	m.global.destroyed.Inc()
	fx.add(obj.Destroy)
}

func (m *Manager) clearPoolLocked(e *entry, fx *effects) int {
	n := 0
	for _, obj := range append([]Object(nil), e.active...) {
		m.despawnLocked(obj, fx)
	}
	for _, obj := range e.idle {
		m.destroyLocked(e, obj, fx)
		n++
	}
	e.idle = nil
	id := e.tmpl.TemplateID()
	delete(m.pools, id)
	if e.category != "" {
		delete(m.categories[e.category], id)
	}
	return n
}

func removeObject(list []Object, obj Object) []Object {
	for i, o := range list {
		if o == obj {
			copy(list[i:], list[i+1:])
			list[len(list)-1] = nil
			return list[:len(list)-1]
		}
	}
	return list
}
