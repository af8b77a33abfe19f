// Package pool reuses object instances to avoid repeated construction.
//
// Template-backed pools hold scene objects (anything with an active flag and a
// pose). Class pools hold plain Go values keyed by type. A Manager is driven
// from the host loop: Update advances its clock and runs scheduled despawns.
package pool

import "errors"

// ErrNilTemplate is reported when Spawn is called without a template.
var ErrNilTemplate = errors.New("spawn with nil template")

// Pose is the placement applied to a spawned object.
type Pose struct {
	X, Y     float64
	Rotation float64
}

// Object is a poolable scene instance.
type Object interface {
	SetActive(active bool)
	SetPose(pose Pose, parent any)
	Destroy()
}

// Template creates Objects and gives the pool its identity.
type Template interface {
	TemplateID() int64
	Name() string
	Instantiate() Object
}

// Spawnable is implemented by objects that want a callback after each spawn.
type Spawnable interface {
	OnSpawn()
}

// Despawnable is implemented by objects that want a callback before each despawn.
type Despawnable interface {
	OnDespawn()
}

// Resetter is implemented by class-pooled values that clear themselves on return.
type Resetter interface {
	Reset()
}

// Overflow decides what Spawn does when a pool is at its active limit.
type Overflow int

const (
	// Expand creates a new instance beyond the limit.
	Expand Overflow = iota
	// ReturnNull refuses the spawn and returns nil.
	ReturnNull
	// RecycleOldest despawns the longest-active instance and reuses it.
	RecycleOldest
)

// String returns the string representation of the overflow policy
func (o Overflow) String() string {
	switch o {
	case Expand:
		return "Expand"
	case ReturnNull:
		return "ReturnNull"
	case RecycleOldest:
		return "RecycleOldest"
	default:
		return "Unknown"
	}
}

// ParseOverflow maps a config name to a policy.
func ParseOverflow(name string) (Overflow, bool) {
	switch name {
	case "", "expand", "Expand":
		return Expand, true
	case "return_null", "ReturnNull":
		return ReturnNull, true
	case "recycle_oldest", "RecycleOldest":
		return RecycleOldest, true
	default:
		return Expand, false
	}
}

// Config tunes one pool. Zero limits mean unlimited.
type Config struct {
	Preload  int
	MaxSize  int
	MaxIdle  int
	Overflow Overflow
}

// DefaultConfig is used for pools created lazily by Spawn.
func DefaultConfig() Config {
	return Config{
		Preload:  0,
		MaxSize:  0,
		MaxIdle:  64,
		Overflow: Expand,
	}
}

// SpawnOption customizes a single Spawn call.
type SpawnOption func(*spawnOptions)

type spawnOptions struct {
	category    string
	fallback    string
	autoRecycle float64
}

// WithCategory tags the template's pool with a category.
func WithCategory(category string) SpawnOption {
	return func(o *spawnOptions) {
		o.category = category
	}
}

// WithDefaultCategory tags the template's pool with category only when the
// pool has no category yet.
func WithDefaultCategory(category string) SpawnOption {
	return func(o *spawnOptions) {
		o.fallback = category
	}
}

// WithAutoRecycle schedules a despawn after the given number of seconds.
func WithAutoRecycle(seconds float64) SpawnOption {
	return func(o *spawnOptions) {
		o.autoRecycle = seconds
	}
}
