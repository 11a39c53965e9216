package store

import (
	"sync"

	"github.com/lessonloop/lessonloop-go/pkg/models"
)

// Collection is an insertion-ordered set of records indexed by
// identifier. Lookup is O(1); iteration follows first-insertion order.
// All mutators are synchronous: the collection is never observable in a
// partially updated state.
type Collection[T models.Deletable[T]] struct {
	mu    sync.RWMutex
	ns    string
	order []string
	items map[string]T

	// persist receives a copy of the full collection after every
	// mutation, in mutation order. Nil disables write-through.
	persist func(ns string, items any)
}

func newCollection[T models.Deletable[T]](ns string, persist func(ns string, items any)) *Collection[T] {
	return &Collection[T]{
		ns:      ns,
		items:   make(map[string]T),
		persist: persist,
	}
}

// Namespace returns the persistence key for this collection.
func (c *Collection[T]) Namespace() string { return c.ns }

// Get returns the record with the given identifier.
func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[id]
	return item, ok
}

// All returns the records in insertion order. The returned slice is a
// copy; callers never alias internal state.
func (c *Collection[T]) All() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.snapshotLocked()
}

// Find returns the first record, in insertion order, matching the
// predicate.
func (c *Collection[T]) Find(match func(T) bool) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, id := range c.order {
		if item := c.items[id]; match(item) {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Len returns the number of records, tombstones included.
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.order)
}

// ReplaceAll swaps the whole collection for items, deduplicating by
// identifier (first occurrence wins). Used for full-snapshot merges.
func (c *Collection[T]) ReplaceAll(items []T) {
	c.mu.Lock()
	c.order = c.order[:0]
	c.items = make(map[string]T, len(items))
	for _, item := range items {
		id := item.RecordID()
		if _, dup := c.items[id]; dup {
			continue
		}
		c.order = append(c.order, id)
		c.items[id] = item
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.persistSnapshot(snap)
}

// Upsert inserts the record or structurally replaces the record sharing
// its identifier. Two records with the same identifier never coexist.
func (c *Collection[T]) Upsert(item T) {
	c.mu.Lock()
	id := item.RecordID()
	if _, ok := c.items[id]; !ok {
		c.order = append(c.order, id)
	}
	c.items[id] = item
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.persistSnapshot(snap)
}

// Remove hard-deletes the record. Reserved for rolling back optimistic
// creations the authority never saw; replicated deletions go through
// MarkDeleted instead.
func (c *Collection[T]) Remove(id string) {
	c.mu.Lock()
	if _, ok := c.items[id]; !ok {
		c.mu.Unlock()
		return
	}
	delete(c.items, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.persistSnapshot(snap)
}

// MarkDeleted tombstones the record in place. No-op when absent.
func (c *Collection[T]) MarkDeleted(id string) {
	c.mu.Lock()
	item, ok := c.items[id]
	if !ok {
		c.mu.Unlock()
		return
	}
	c.items[id] = item.AsDeleted()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.persistSnapshot(snap)
}

// load replaces contents without triggering write-through. Used when
// bootstrapping from the local cache.
func (c *Collection[T]) load(items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order = c.order[:0]
	c.items = make(map[string]T, len(items))
	for _, item := range items {
		id := item.RecordID()
		if _, dup := c.items[id]; dup {
			continue
		}
		c.order = append(c.order, id)
		c.items[id] = item
	}
}

func (c *Collection[T]) snapshotLocked() []T {
	out := make([]T, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.items[id])
	}
	return out
}

func (c *Collection[T]) persistSnapshot(snap []T) {
	if c.persist != nil {
		c.persist(c.ns, snap)
	}
}
