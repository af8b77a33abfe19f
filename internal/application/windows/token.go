package windows

import (
	"sync"

	"github.com/younwookim/stagecraft/internal/domain/window"
)

// token resolves once with the reason a window closed.
type token struct {
	once sync.Once
	done chan struct{}

	reason    window.CloseReason
	immediate bool
	result    any
}

func newToken() *token {
	return &token{done: make(chan struct{})}
}

// resolve reports whether this call was the one that resolved the token.
func (t *token) resolve(reason window.CloseReason, immediate bool, result any) bool {
	resolved := false
	t.once.Do(func() {
		t.reason, t.immediate, t.result = reason, immediate, result
		close(t.done)
		resolved = true
	})
	return resolved
}

// outcome must only be called after done is closed.
func (t *token) outcome() (window.CloseReason, bool, any) {
	return t.reason, t.immediate, t.result
}

type closer struct {
	t *token
}

func (c closer) Close(result any) {
	c.t.resolve(window.CloseNormal, false, result)
}
