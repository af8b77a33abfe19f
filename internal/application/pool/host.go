package pool

// Host narrows a Manager to the spawn/despawn pair the window manager needs.
type Host struct {
	m *Manager
}

// Host returns the manager's window-facing adapter.
func (m *Manager) Host() Host {
	return Host{m: m}
}

// Spawn spawns tmpl at the origin under parent. Pools registered without a
// category are tagged CategoryWindows.
func (h Host) Spawn(tmpl Template, parent any) Object {
	return h.m.Spawn(tmpl, Pose{}, parent, WithDefaultCategory(CategoryWindows))
}

// Despawn returns obj immediately.
func (h Host) Despawn(obj Object) {
	h.m.Despawn(obj, 0)
}

// CategoryWindows tags untagged pools spawned through a Host.
const CategoryWindows = "windows"
