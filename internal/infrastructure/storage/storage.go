// Package storage opens the per-user save location. It falls back to an
// in-memory store when the platform storage is unavailable, so the game keeps
// running without persistence.
package storage

import (
	"fmt"
	"sync"

	"github.com/quasilyte/gdata/v2"
	"go.uber.org/zap"
)

// Backend is the blob store shared by everything that persists state.
type Backend interface {
	ObjectPropExists(object, property string) bool
	LoadObjectProp(object, property string) ([]byte, error)
	SaveObjectProp(object, property string, data []byte) error
}

// Open returns the gdata manager for appName, or a memory store when it
// cannot be opened.
func Open(appName string, log *zap.Logger) Backend {
	if log == nil {
		log = zap.NewNop()
	}
	m, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		log.Warn("persistent storage unavailable, using memory", zap.String("app", appName), zap.Error(err))
		return NewMemory()
	}
	return m
}

// Memory is a Backend that lives for the process only.
type Memory struct {
	mu    sync.Mutex
	props map[string][]byte
}

// NewMemory creates an empty memory store.
func NewMemory() *Memory {
	return &Memory{props: make(map[string][]byte)}
}

func memoryKey(object, property string) string {
	return object + "/" + property
}

// ObjectPropExists reports whether the property was saved.
func (m *Memory) ObjectPropExists(object, property string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.props[memoryKey(object, property)]
	return ok
}

// LoadObjectProp returns a copy of the saved bytes.
func (m *Memory) LoadObjectProp(object, property string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.props[memoryKey(object, property)]
	if !ok {
		return nil, fmt.Errorf("%s/%s: not saved", object, property)
	}
	return append([]byte(nil), data...), nil
}

// SaveObjectProp stores a copy of data.
func (m *Memory) SaveObjectProp(object, property string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.props[memoryKey(object, property)] = append([]byte(nil), data...)
	return nil
}
