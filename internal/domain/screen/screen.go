// Package screen defines the static screen configuration and the navigation
// vocabulary shared by the screen manager and the screen flow.
package screen

import (
	"errors"
	"fmt"
)

// ErrScreenNotFound is returned when a registry lookup misses.
var ErrScreenNotFound = errors.New("screen not found")

// ErrDuplicateScreen is returned when two screens share an ID.
var ErrDuplicateScreen = errors.New("duplicate screen id")

// ErrInvalidScreen is returned for a screen without a main scene.
var ErrInvalidScreen = errors.New("invalid screen")

// ID identifies a screen within a registry.
type ID string

// AdditiveScene is a scene loaded on top of a screen's main scene.
type AdditiveScene struct {
	Key           string
	UnloadOnClose bool
}

// Screen is one navigable screen: a main scene plus additive scenes.
// Screens are loaded once at startup and never mutated afterwards.
type Screen struct {
	ID                ID
	MainScene         string
	Additive          []AdditiveScene
	SoftCache         bool
	ShowLoadingScreen bool
	PreloadTasks      []string
}

// SceneKeys returns the main scene key followed by every additive key.
func (s *Screen) SceneKeys() []string {
	keys := make([]string, 0, 1+len(s.Additive))
	keys = append(keys, s.MainScene)
	for _, a := range s.Additive {
		keys = append(keys, a.Key)
	}
	return keys
}

// References reports whether the screen uses the scene key.
func (s *Screen) References(key string) bool {
	if s == nil {
		return false
	}
	if s.MainScene == key {
		return true
	}
	for _, a := range s.Additive {
		if a.Key == key {
			return true
		}
	}
	return false
}

func (s *Screen) String() string {
	if s == nil {
		return "<none>"
	}
	return string(s.ID)
}

// Registry holds every screen of the application keyed by ID.
type Registry struct {
	screens map[ID]*Screen
	order   []ID
}

// NewRegistry validates and indexes the given screens.
func NewRegistry(screens ...*Screen) (*Registry, error) {
	r := &Registry{
		screens: make(map[ID]*Screen, len(screens)),
		order:   make([]ID, 0, len(screens)),
	}
	for _, s := range screens {
		if s == nil || s.ID == "" || s.MainScene == "" {
			return nil, fmt.Errorf("%w: %v", ErrInvalidScreen, s)
		}
		if _, ok := r.screens[s.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateScreen, s.ID)
		}
		r.screens[s.ID] = s
		r.order = append(r.order, s.ID)
	}
	return r, nil
}

// Get returns the screen with the given ID.
func (r *Registry) Get(id ID) (*Screen, error) {
	s, ok := r.screens[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrScreenNotFound, id)
	}
	return s, nil
}

// MustGet is like Get but panics when the screen is missing.
func (r *Registry) MustGet(id ID) *Screen {
	s, err := r.Get(id)
	if err != nil {
		panic(err)
	}
	return s
}

// IDs returns screen IDs in registration order.
func (r *Registry) IDs() []ID {
	out := make([]ID, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered screens.
func (r *Registry) Len() int {
	return len(r.order)
}
