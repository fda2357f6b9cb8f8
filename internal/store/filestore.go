// ABOUTME: File-backed attribute store with optimistic version tokens
// ABOUTME: Persists entity attributes as a single JSON document
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// attribute is the on-disk shape of one stored value
type attribute struct {
	Value   json.RawMessage `json:"value"`
	Version int64           `json:"version"`
}

// FileStore keeps entity attributes in one JSON file. Writes are
// atomic (temp file + rename) so a crash never leaves a torn document.
type FileStore struct {
	path string

	mu       sync.Mutex
	entities map[string]map[string]attribute
}

// NewFileStore opens or creates the attribute store at path
func NewFileStore(path string) (*FileStore, error) {
	fs := &FileStore{
		path:     path,
		entities: make(map[string]map[string]attribute),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fs, nil
		}
		return nil, fmt.Errorf("failed to read attribute store: %w", err)
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &fs.entities); err != nil {
			return nil, fmt.Errorf("failed to parse attribute store: %w", err)
		}
	}

	return fs, nil
}

// Get returns the attribute value and its current version token
func (fs *FileStore) Get(entity, key string) ([]byte, int64, bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	attrs, ok := fs.entities[entity]
	if !ok {
		return nil, 0, false, nil
	}
	attr, ok := attrs[key]
	if !ok {
		return nil, 0, false, nil
	}

	// Copy so callers can't mutate the stored document
	value := make([]byte, len(attr.Value))
	copy(value, attr.Value)
	return value, attr.Version, true, nil
}

// Set writes the attribute if version matches the stored token.
// Version 0 means the caller observed the attribute as absent.
func (fs *FileStore) Set(entity, key string, value []byte, version int64) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	attrs, ok := fs.entities[entity]
	if !ok {
		attrs = make(map[string]attribute)
		fs.entities[entity] = attrs
	}

	previous, existed := attrs[key]
	if previous.Version != version {
		return ErrVersionConflict
	}

	stored := make(json.RawMessage, len(value))
	copy(stored, value)
	attrs[key] = attribute{Value: stored, Version: previous.Version + 1}

	if err := fs.flush(); err != nil {
		// Roll back so memory and disk stay consistent
		if existed {
			attrs[key] = previous
		} else {
			delete(attrs, key)
		}
		return err
	}

	return nil
}

// flush writes the document atomically. Caller holds the lock.
func (fs *FileStore) flush() error {
	data, err := json.MarshalIndent(fs.entities, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal attribute store: %w", err)
	}

	dir := filepath.Dir(fs.path)
	tmp, err := os.CreateTemp(dir, ".attributes-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write attribute store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), fs.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace attribute store: %w", err)
	}

	return nil
}
