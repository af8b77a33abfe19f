// Package input holds the two pieces of input the toolkit cares about: a
// reference-counted blocker raised around window transitions, and the back
// button.
package input

import (
	"sort"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"go.uber.org/zap"
)

// Blocker counts block requests per key. Input is blocked while any key holds
// a positive count.
type Blocker struct {
	mu     sync.Mutex
	counts map[string]int
	log    *zap.Logger

	// Callbacks
	OnChanged func(blocked bool)
}

// NewBlocker creates an unblocked blocker.
func NewBlocker(log *zap.Logger) *Blocker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Blocker{
		counts: make(map[string]int),
		log:    log.Named("input"),
	}
}

// Block raises key's count.
func (b *Blocker) Block(key string) {
	b.mu.Lock()
	was := len(b.counts) > 0
	b.counts[key]++
	b.mu.Unlock()

	if !was {
		b.changed(true)
	}
}

// Unblock lowers key's count. Unbalanced calls are logged and ignored.
func (b *Blocker) Unblock(key string) {
	b.mu.Lock()
	n, ok := b.counts[key]
	if !ok {
		b.mu.Unlock()
		b.log.Warn("unblock without block", zap.String("key", key))
		return
	}
	if n <= 1 {
		delete(b.counts, key)
	} else {
		b.counts[key] = n - 1
	}
	now := len(b.counts) > 0
	b.mu.Unlock()

	if !now {
		b.changed(false)
	}
}

func (b *Blocker) changed(blocked bool) {
	if b.OnChanged != nil {
		b.OnChanged(blocked)
	}
}

// Blocked reports whether any key is held.
func (b *Blocker) Blocked() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.counts) > 0
}

// Keys returns the held keys, sorted.
func (b *Blocker) Keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	keys := make([]string, 0, len(b.counts))
	for k := range b.counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// BackSource reports a back press for the current frame.
type BackSource interface {
	BackPressed() bool
}

// Keyboard reads the back button from ebiten: Escape, Backspace, or the
// standard gamepad's right-cluster right button.
type Keyboard struct{}

// BackPressed is true on the frame a back key goes down.
func (Keyboard) BackPressed() bool {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) || inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
		return true
	}
	for _, id := range ebiten.AppendGamepadIDs(nil) {
		if !ebiten.IsStandardGamepadLayoutAvailable(id) {
			continue
		}
		if inpututil.IsStandardGamepadButtonJustPressed(id, ebiten.StandardGamepadButtonRightRight) {
			return true
		}
	}
	return false
}

// BackFunc adapts a function to BackSource.
type BackFunc func() bool

// BackPressed calls f.
func (f BackFunc) BackPressed() bool {
	return f()
}
