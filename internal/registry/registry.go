// ABOUTME: Per-entity audio asset registry over the attribute store
// ABOUTME: Handles append, remove-by-name, and list with conflict retry
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cuecast/cuecast-go/internal/store"
	"github.com/google/uuid"
)

// AttributeKey is the fixed attribute under which an entity's audio
// registry is stored.
const AttributeKey = "audioFiles"

// maxRetries bounds the read-modify-write retry loop when two writers
// race on the same entity's registry.
const maxRetries = 5

var (
	// ErrNotAudio rejects uploads whose media type is not audio/*
	ErrNotAudio = errors.New("only audio files are allowed")

	// ErrAssetNotFound is returned when removing an unknown asset name
	ErrAssetNotFound = errors.New("audio asset not found")
)

// Record is one uploaded audio asset. ID is generated at append time
// and is stable for the record's lifetime; Name is the display label
// and the operational key for removal and playback triggers.
type Record struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Location   string `json:"location"`
	UploadedAt string `json:"uploadedAt"`
	UploadedBy string `json:"uploadedBy"`
}

// Registry manages per-entity audio asset lists. It owns no state of
// its own; everything lives in the attribute store, so any number of
// Registry values over the same store see the same data.
type Registry struct {
	store store.Attributes
	now   func() time.Time
}

// New creates a registry over the given attribute store
func New(attrs store.Attributes) *Registry {
	return &Registry{store: attrs, now: time.Now}
}

// Append validates and adds a record to the end of the entity's
// registry. An absent registry is an empty one. The write is retried
// on version conflicts so a concurrent append is not lost.
func (r *Registry) Append(entity, name, location, contentType, uploadedBy string) (Record, error) {
	if !strings.HasPrefix(contentType, "audio/") {
		return Record{}, fmt.Errorf("%w (got %q)", ErrNotAudio, contentType)
	}

	record := Record{
		ID:         uuid.New().String(),
		Name:       name,
		Location:   location,
		UploadedAt: r.now().UTC().Format(time.RFC3339),
		UploadedBy: uploadedBy,
	}

	err := r.mutate(entity, func(records []Record) ([]Record, error) {
		return append(records, record), nil
	})
	if err != nil {
		return Record{}, err
	}
	return record, nil
}

// Remove deletes the first record whose name matches. The stored file
// behind the record is logically orphaned; physical deletion belongs
// to the storage collaborator.
func (r *Registry) Remove(entity, name string) (Record, error) {
	var removed Record

	err := r.mutate(entity, func(records []Record) ([]Record, error) {
		for i, rec := range records {
			if rec.Name == name {
				removed = rec
				return append(records[:i:i], records[i+1:]...), nil
			}
		}
		return nil, fmt.Errorf("%w: %q", ErrAssetNotFound, name)
	})
	if err != nil {
		return Record{}, err
	}
	return removed, nil
}

// List returns the entity's registry in append order. Never fails on
// an absent registry; that is simply an empty slice.
func (r *Registry) List(entity string) ([]Record, error) {
	records, _, err := r.read(entity)
	return records, err
}

// Find returns the first record with the given name
func (r *Registry) Find(entity, name string) (Record, error) {
	records, err := r.List(entity)
	if err != nil {
		return Record{}, err
	}
	for _, rec := range records {
		if rec.Name == name {
			return rec, nil
		}
	}
	return Record{}, fmt.Errorf("%w: %q", ErrAssetNotFound, name)
}

// read loads the registry and its version token
func (r *Registry) read(entity string) ([]Record, int64, error) {
	value, version, ok, err := r.store.Get(entity, AttributeKey)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read audio registry: %w", err)
	}
	if !ok {
		return []Record{}, version, nil
	}

	var records []Record
	if err := json.Unmarshal(value, &records); err != nil {
		return nil, 0, fmt.Errorf("failed to parse audio registry: %w", err)
	}
	return records, version, nil
}

// mutate runs a read-modify-write cycle with retry on version conflict
func (r *Registry) mutate(entity string, apply func([]Record) ([]Record, error)) error {
	for attempt := 0; attempt < maxRetries; attempt++ {
		records, version, err := r.read(entity)
		if err != nil {
			return err
		}

		updated, err := apply(records)
		if err != nil {
			return err
		}

		value, err := json.Marshal(updated)
		if err != nil {
			return fmt.Errorf("failed to marshal audio registry: %w", err)
		}

		err = r.store.Set(entity, AttributeKey, value, version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return fmt.Errorf("failed to write audio registry: %w", err)
		}
		// Another writer got in first; re-read and try again
	}
	return fmt.Errorf("failed to write audio registry: too many concurrent writers")
}
