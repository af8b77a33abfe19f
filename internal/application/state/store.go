package state

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

const (
	flowObject   = "flow"
	flowProperty = "state.yaml"
)

// Backend stores named byte blobs. *gdata.Manager satisfies it.
type Backend interface {
	ObjectPropExists(object, property string) bool
	LoadObjectProp(object, property string) ([]byte, error)
	SaveObjectProp(object, property string, data []byte) error
}

// Store persists a Flow as YAML. A nil backend makes Save and Load no-ops.
type Store struct {
	backend Backend
}

// NewStore creates a store over backend.
func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// Save writes the flow snapshot.
func (s *Store) Save(f *Flow) error {
	if s.backend == nil {
		return nil
	}
	data, err := yaml.Marshal(f.Snapshot())
	if err != nil {
		return fmt.Errorf("failed to marshal flow state: %w", err)
	}
	if err := s.backend.SaveObjectProp(flowObject, flowProperty, data); err != nil {
		return fmt.Errorf("failed to save flow state: %w", err)
	}
	return nil
}

// Load restores f from the last saved snapshot. It reports false when
// nothing was saved yet.
func (s *Store) Load(f *Flow) (bool, error) {
	if s.backend == nil || !s.backend.ObjectPropExists(flowObject, flowProperty) {
		return false, nil
	}
	data, err := s.backend.LoadObjectProp(flowObject, flowProperty)
	if err != nil {
		return false, fmt.Errorf("failed to load flow state: %w", err)
	}
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return false, fmt.Errorf("failed to unmarshal flow state: %w", err)
	}
	if err := f.Restore(snap); err != nil {
		return false, fmt.Errorf("failed to restore flow state: %w", err)
	}
	return true, nil
}
