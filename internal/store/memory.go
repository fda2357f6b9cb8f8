// ABOUTME: In-memory attribute store for tests and embedded use
// ABOUTME: Same version-token semantics as the file-backed store
package store

import (
	"encoding/json"
	"sync"
)

// MemoryStore is an Attributes implementation with no persistence.
type MemoryStore struct {
	mu       sync.Mutex
	entities map[string]map[string]attribute
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entities: make(map[string]map[string]attribute)}
}

// Get returns the attribute value and its current version token
func (ms *MemoryStore) Get(entity, key string) ([]byte, int64, bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	attrs, ok := ms.entities[entity]
	if !ok {
		return nil, 0, false, nil
	}
	attr, ok := attrs[key]
	if !ok {
		return nil, 0, false, nil
	}

	value := make([]byte, len(attr.Value))
	copy(value, attr.Value)
	return value, attr.Version, true, nil
}

// Set writes the attribute if version matches the stored token
func (ms *MemoryStore) Set(entity, key string, value []byte, version int64) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	attrs, ok := ms.entities[entity]
	if !ok {
		attrs = make(map[string]attribute)
		ms.entities[entity] = attrs
	}

	if attrs[key].Version != version {
		return ErrVersionConflict
	}

	stored := make(json.RawMessage, len(value))
	copy(stored, value)
	attrs[key] = attribute{Value: stored, Version: version + 1}
	return nil
}
