// Package resource defines the asset and scene loading contract consumed by the
// screen and window managers.
//
// Implementations report failure through the returned error rather than by
// panicking, and must tolerate a resource that is already loaded.
package resource

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key does not name a known resource.
var ErrNotFound = errors.New("resource not found")

// ErrEmpty is returned when a load completes without producing a result.
var ErrEmpty = errors.New("resource load returned no result")

// SceneHandle is a scene loaded additively by a SceneLoader.
type SceneHandle interface {
	// Key returns the resource key the scene was loaded from.
	Key() string
	// Valid reports whether the handle still refers to a loaded scene.
	Valid() bool
	// SetActive toggles the scene's root objects.
	SetActive(active bool)
}

// SceneLoader loads and unloads scenes.
type SceneLoader interface {
	LoadScene(ctx context.Context, key string) (SceneHandle, error)
	UnloadScene(ctx context.Context, h SceneHandle) error
}

// AssetLoader loads single assets such as window templates.
type AssetLoader interface {
	LoadAsset(ctx context.Context, key string) (any, error)
}

// Loader is the full resource loader collaborator.
type Loader interface {
	SceneLoader
	AssetLoader
}
