// Package scene caches loaded scenes by resource key and tracks whether each is
// active, inactive, or unloaded.
//
// A repeated Load of a scene that is still valid only reactivates its roots.
// Activate refuses keys that were never loaded, so a soft-cached scene can be
// shown again but an unloaded one cannot be resurrected by accident.
package scene

import (
	"context"
	"fmt"
	"sync"

	"github.com/younwookim/stagecraft/internal/domain/resource"
	"go.uber.org/zap"
)

// State is the lifecycle of one scene.
type State int

const (
	Unloaded State = iota
	Active
	Inactive
)

// String returns the string representation of the scene state
func (s State) String() string {
	switch s {
	case Unloaded:
		return "Unloaded"
	case Active:
		return "Active"
	case Inactive:
		return "Inactive"
	default:
		return "Unknown"
	}
}

type entry struct {
	handle resource.SceneHandle
	state  State
}

// Cache owns every scene handle returned by its loader.
type Cache struct {
	mu      sync.Mutex
	loader  resource.SceneLoader
	log     *zap.Logger
	entries map[string]*entry
	order   []string
}

// NewCache creates an empty cache over loader.
func NewCache(loader resource.SceneLoader, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{
		loader:  loader,
		log:     log.Named("scene"),
		entries: make(map[string]*entry),
	}
}

// Load makes key loaded and active. A cached valid handle is reactivated
// instead of being loaded again.
func (c *Cache) Load(ctx context.Context, key string) error {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		if e.handle.Valid() {
			if e.state != Active {
				e.handle.SetActive(true)
				e.state = Active
			}
			c.mu.Unlock()
			return nil
		}
		c.removeLocked(key)
	}
	c.mu.Unlock()

	h, err := c.loader.LoadScene(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to load scene %s: %w", key, err)
	}
	if h == nil || !h.Valid() {
		return fmt.Errorf("failed to load scene %s: %w", key, resource.ErrEmpty)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &entry{handle: h, state: Active}
	c.order = append(c.order, key)
	h.SetActive(true)
	c.log.Debug("scene loaded", zap.String("key", key))
	return nil
}

// Unload releases key through the loader. Unknown keys are ignored.
func (c *Cache) Unload(ctx context.Context, key string) error {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		c.removeLocked(key)
	}
	c.mu.Unlock()
	if !ok {
		return nil
	}

	if err := c.loader.UnloadScene(ctx, e.handle); err != nil {
		return fmt.Errorf("failed to unload scene %s: %w", key, err)
	}
	c.log.Debug("scene unloaded", zap.String("key", key))
	return nil
}

// Activate shows a loaded scene. It returns false for unloaded keys.
func (c *Cache) Activate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !e.handle.Valid() {
		return false
	}
	if e.state != Active {
		e.handle.SetActive(true)
		e.state = Active
	}
	return true
}

// Deactivate hides a loaded scene without unloading it.
func (c *Cache) Deactivate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return false
	}
	if e.state == Active {
		e.handle.SetActive(false)
		e.state = Inactive
	}
	return true
}

// State returns the lifecycle state of key.
func (c *Cache) State(key string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e.state
	}
	return Unloaded
}

// ActiveHandles returns the active scenes in load order.
func (c *Cache) ActiveHandles() []resource.SceneHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]resource.SceneHandle, 0, len(c.order))
	for _, key := range c.order {
		if e := c.entries[key]; e.state == Active {
			out = append(out, e.handle)
		}
	}
	return out
}

// Len returns the number of loaded scenes, active or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) removeLocked(key string) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
