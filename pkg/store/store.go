// Package store holds the canonical in-memory copy of every replicated
// collection. It is the single source of truth consumers read from; all
// mutation flows through the dispatcher or the reconciler, never through
// direct field assignment.
package store

import (
	"errors"
	"sync"

	"github.com/lessonloop/lessonloop-go/internal/codec"
	"github.com/lessonloop/lessonloop-go/pkg/localstore"
	"github.com/lessonloop/lessonloop-go/pkg/logger"
	"github.com/lessonloop/lessonloop-go/pkg/models"
)

// Collection namespaces, also used as persistence keys.
const (
	NamespaceSlots           = "slots"
	NamespaceLessons         = "lessons"
	NamespaceChats           = "chats"
	NamespaceTeacherProfiles = "teacher_profiles"
	NamespaceStudentProfiles = "student_profiles"
	NamespaceUsers           = "users"
	NamespacePosts           = "posts"
	NamespaceNotifications   = "notifications"
)

// writeQueueSize bounds the write-through backlog. Persistence is
// best-effort: when the queue is full the oldest unwritten state for a
// namespace is superseded by a later whole-collection write anyway.
const writeQueueSize = 256

type persistJob struct {
	ns    string
	items any
}

// Store owns one collection per entity type.
type Store struct {
	Slots           *Collection[models.AvailabilitySlot]
	Lessons         *Collection[models.Lesson]
	Chats           *Collection[models.Chat]
	TeacherProfiles *Collection[models.Profile]
	StudentProfiles *Collection[models.Profile]
	Users           *Collection[models.User]
	Posts           *Collection[models.Post]
	Notifications   *Collection[models.Notification]

	cache     localstore.Store
	marshaler codec.Marshaler
	log       logger.Logger

	jobs      chan persistJob
	closeOnce sync.Once
	done      chan struct{}
}

// New creates a store with write-through to cache. cache may be nil, in
// which case the store is purely in-memory.
func New(cache localstore.Store, marshaler codec.Marshaler, log logger.Logger) *Store {
	if log == nil {
		log = logger.Nop{}
	}

	s := &Store{
		cache:     cache,
		marshaler: marshaler,
		log:       log,
		jobs:      make(chan persistJob, writeQueueSize),
		done:      make(chan struct{}),
	}

	persist := s.enqueue
	if cache == nil {
		persist = nil
	}

	s.Slots = newCollection[models.AvailabilitySlot](NamespaceSlots, persist)
	s.Lessons = newCollection[models.Lesson](NamespaceLessons, persist)
	s.Chats = newCollection[models.Chat](NamespaceChats, persist)
	s.TeacherProfiles = newCollection[models.Profile](NamespaceTeacherProfiles, persist)
	s.StudentProfiles = newCollection[models.Profile](NamespaceStudentProfiles, persist)
	s.Users = newCollection[models.User](NamespaceUsers, persist)
	s.Posts = newCollection[models.Post](NamespacePosts, persist)
	s.Notifications = newCollection[models.Notification](NamespaceNotifications, persist)

	go s.writeLoop()

	return s
}

// enqueue schedules a whole-collection write. Mutators stay synchronous
// and fast; serialization and the actual write happen on the write loop,
// in mutation order.
func (s *Store) enqueue(ns string, items any) {
	select {
	case s.jobs <- persistJob{ns: ns, items: items}:
	default:
		s.log.Warn("local cache write queue full, dropping write", "namespace", ns)
	}
}

func (s *Store) writeLoop() {
	defer close(s.done)

	for job := range s.jobs {
		data, err := s.marshaler.Marshal(job.items)
		if err != nil {
			s.log.Error("failed to serialize collection for cache", "namespace", job.ns, "error", err)
			continue
		}
		if err := s.cache.Save(job.ns, data); err != nil {
			// The in-memory store stays authoritative regardless of
			// whether the durable copy succeeded.
			s.log.Error("failed to persist collection", "namespace", job.ns, "error", err)
		}
	}
}

// Bootstrap loads every collection from the local cache without
// triggering write-through. Missing namespaces are skipped; a corrupt
// blob is logged and skipped, leaving that collection empty.
func (s *Store) Bootstrap(unmarshaler codec.Unmarshaler) {
	if s.cache == nil {
		return
	}

	bootstrapCollection(s, s.Slots, unmarshaler)
	bootstrapCollection(s, s.Lessons, unmarshaler)
	bootstrapCollection(s, s.Chats, unmarshaler)
	bootstrapCollection(s, s.TeacherProfiles, unmarshaler)
	bootstrapCollection(s, s.StudentProfiles, unmarshaler)
	bootstrapCollection(s, s.Users, unmarshaler)
	bootstrapCollection(s, s.Posts, unmarshaler)
	bootstrapCollection(s, s.Notifications, unmarshaler)
}

func bootstrapCollection[T models.Deletable[T]](s *Store, c *Collection[T], unmarshaler codec.Unmarshaler) {
	data, err := s.cache.Load(c.Namespace())
	if errors.Is(err, localstore.ErrNotFound) {
		return
	}
	if err != nil {
		s.log.Warn("failed to read cached collection", "namespace", c.Namespace(), "error", err)
		return
	}

	var items []T
	if err := unmarshaler.Unmarshal(data, &items); err != nil {
		s.log.Warn("discarding corrupt cached collection", "namespace", c.Namespace(), "error", err)
		return
	}

	c.load(items)
}

// Close drains the write-through queue and stops the write loop. The
// local cache itself is owned by the caller and is not closed here.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.jobs)
		<-s.done
	})
}
