// Package localstore is the device-local durable cache behind the entity
// store. It holds one serialized blob per collection namespace and is
// strictly non-authoritative: it only bootstraps the in-memory state
// before the remote authority is reachable.
package localstore

import "errors"

// ErrNotFound is returned by Load when no blob exists for a namespace.
var ErrNotFound = errors.New("namespace not found")

// Store persists whole collections keyed by namespace. Writes overwrite
// wholesale; there is no field-level persistence. All operations are
// best-effort: callers log and ignore failures.
type Store interface {
	// Save overwrites the blob stored under ns.
	Save(ns string, data []byte) error
	// Load returns the blob stored under ns, or ErrNotFound.
	Load(ns string) ([]byte, error)
	Close() error
}
