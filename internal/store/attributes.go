// ABOUTME: Entity attribute store interface and error definitions
// ABOUTME: Persistence collaborator contract used by the asset registry
package store

import "errors"

// ErrVersionConflict is returned by Set when the caller's version token
// no longer matches the stored attribute. Callers re-read and retry.
var ErrVersionConflict = errors.New("attribute version conflict")

// Attributes is the persistence collaborator contract. An attribute is
// an opaque JSON value stored per entity under a string key. Get
// returns the current version token alongside the value; Set only
// applies when the token still matches (0 means "attribute absent").
type Attributes interface {
	Get(entity, key string) (value []byte, version int64, ok bool, err error)
	Set(entity, key string, value []byte, version int64) error
}
