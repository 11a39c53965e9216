// Package models defines the shared entity types replicated between a
// device and the remote authority. Records are immutable per version:
// every change produces a whole new record carrying the same identifier,
// and identity is always the identifier, never structural equality.
package models

import "strings"

// LocalIDPrefix marks identifiers synthesized on-device for records the
// remote authority has not acknowledged yet.
const LocalIDPrefix = "local-"

// Record is implemented by every replicated entity type.
type Record interface {
	RecordID() string
	IsDeleted() bool
}

// Deletable is the constraint for collections holding records of type T.
// AsDeleted returns a tombstoned copy; records are never hard-deleted so
// that stale caches cannot resurrect them.
type Deletable[T any] interface {
	Record
	AsDeleted() T
}

// IsLocalID reports whether id was synthesized on-device and is still
// awaiting an authoritative echo.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}
