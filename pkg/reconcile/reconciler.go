// Package reconcile merges the engine's three inputs (the cached local
// snapshot, full remote snapshots and the incremental event stream) into
// the entity store under one deterministic policy:
//
//  1. identity-based dedup: records are "the same" iff identifiers match;
//  2. collection-replace for full snapshots, preserving locally-pending
//     optimistic writes the authority has not echoed yet;
//  3. whole-record replace for incremental events, no field-level merge.
//
// Field-level conflict resolution is deliberately absent: every record
// has exactly one legitimate writer (the slot owner, the message sender,
// the profile owner), so last-writer-wins at record granularity is safe.
// The one known gap is two students racing to book the same slot: the
// later-arriving event wins and there is no compare-and-swap. That gap
// is inherited from the platform design and documented rather than
// papered over here.
package reconcile

import (
	"github.com/lessonloop/lessonloop-go/pkg/events"
	"github.com/lessonloop/lessonloop-go/pkg/logger"
	"github.com/lessonloop/lessonloop-go/pkg/models"
	"github.com/lessonloop/lessonloop-go/pkg/store"
)

// PendingTracker is how the reconciler learns which locally-created
// records are still awaiting an authoritative echo, and reports back
// identifiers the authority has now confirmed.
type PendingTracker interface {
	// IsPending reports whether the record exists only locally as an
	// optimistic write not yet acknowledged by the authority.
	IsPending(ns, id string) bool
	// Confirm marks a record as acknowledged. Called for every
	// identifier delivered by the authority, snapshot or event.
	Confirm(ns, id string)
}

// nopTracker treats nothing as pending.
type nopTracker struct{}

func (nopTracker) IsPending(string, string) bool { return false }
func (nopTracker) Confirm(string, string)        {}

type Reconciler struct {
	store   *store.Store
	pending PendingTracker
	log     logger.Logger
}

func New(s *store.Store, pending PendingTracker, log logger.Logger) *Reconciler {
	if pending == nil {
		pending = nopTracker{}
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Reconciler{store: s, pending: pending, log: log}
}

// MergeSnapshot applies a full snapshot from the remote authority. A nil
// collection means the authority omitted it and the local copy stands
// untouched, never "empty the collection". The merge is idempotent:
// applying the same snapshot twice yields an identical store.
func (r *Reconciler) MergeSnapshot(snap models.Snapshot) {
	if snap.Slots != nil {
		mergeCollection(r, r.store.Slots, *snap.Slots, nil)
	}
	if snap.Lessons != nil {
		mergeCollection(r, r.store.Lessons, *snap.Lessons, keepTerminalStatus)
	}
	if snap.Chats != nil {
		mergeCollection(r, r.store.Chats, *snap.Chats, keepLocalMessages)
	}
	if snap.TeacherProfiles != nil {
		mergeCollection(r, r.store.TeacherProfiles, *snap.TeacherProfiles, nil)
	}
	if snap.StudentProfiles != nil {
		mergeCollection(r, r.store.StudentProfiles, *snap.StudentProfiles, nil)
	}
	if snap.Users != nil {
		mergeCollection(r, r.store.Users, *snap.Users, nil)
	}
	if snap.Posts != nil {
		mergeCollection(r, r.store.Posts, *snap.Posts, nil)
	}
	if snap.Notifications != nil {
		mergeCollection(r, r.store.Notifications, *snap.Notifications, nil)
	}

	if snap.Slots != nil || snap.Lessons != nil {
		r.RepairBookingInvariant()
	}
}

// mergeCollection implements the collection-replace rule: the incoming
// list wins structurally for every identifier it carries; records that
// exist only locally survive only while they are pending optimistic
// writes. An in-flight creation on a slow network is therefore never
// lost to a snapshot that predates it.
func mergeCollection[T models.Deletable[T]](
	r *Reconciler,
	c *store.Collection[T],
	incoming []T,
	mergeItem func(existing T, found bool, incoming T) T,
) {
	ns := c.Namespace()

	merged := make([]T, 0, len(incoming))
	seen := make(map[string]struct{}, len(incoming))
	for _, item := range incoming {
		id := item.RecordID()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if mergeItem != nil {
			existing, found := c.Get(id)
			item = mergeItem(existing, found, item)
		}
		merged = append(merged, item)
		r.pending.Confirm(ns, id)
	}

	for _, local := range c.All() {
		id := local.RecordID()
		if _, present := seen[id]; present {
			continue
		}
		if r.pending.IsPending(ns, id) {
			merged = append(merged, local)
		}
	}

	c.ReplaceAll(merged)
}

// keepTerminalStatus guards the monotonic lesson lifecycle: once a
// lesson is completed or cancelled locally, an incoming record may
// update anything except revert the status to scheduled.
func keepTerminalStatus(existing models.Lesson, found bool, incoming models.Lesson) models.Lesson {
	if found && existing.Status.Terminal() && !existing.Status.CanTransitionTo(incoming.Status) {
		incoming.Status = existing.Status
	}
	return incoming
}

// Apply folds one incremental event into the store: whole-record replace
// keyed by identifier. Duplicate delivery is harmless because the dedup
// rule collapses records by identity.
func (r *Reconciler) Apply(ev events.Event) {
	switch e := ev.(type) {
	case events.SlotCreated:
		r.upsertSlot(e.Slot)
		r.RepairBookingInvariant()
	case events.SlotUpdated:
		r.upsertSlot(e.Slot)
		r.RepairBookingInvariant()
	case events.SlotCancelled:
		r.store.Slots.MarkDeleted(e.SlotID)
		r.RepairBookingInvariant()
	case events.LessonBooked:
		r.upsertLesson(e.Lesson)
		if e.Slot != nil {
			r.upsertSlot(*e.Slot)
		}
		r.RepairBookingInvariant()
	case events.LessonUpdated:
		r.upsertLesson(e.Lesson)
		if e.Slot != nil {
			r.upsertSlot(*e.Slot)
		}
		r.RepairBookingInvariant()
	case events.ChatCreated:
		r.pending.Confirm(store.NamespaceChats, e.Chat.ID)
		existing, found := r.store.Chats.Get(e.Chat.ID)
		r.store.Chats.Upsert(keepLocalMessages(existing, found, e.Chat))
	case events.ChatMessage:
		r.applyChatMessage(e.Message)
	case events.ChatRead:
		if chat, ok := r.store.Chats.Get(e.ChatID); ok {
			r.store.Chats.Upsert(chat.WithReadBy(e.ReaderID))
		}
	case events.ProfileUpdated:
		r.applyProfile(e.Profile)
	case events.UserRegistered:
		r.pending.Confirm(store.NamespaceUsers, e.User.ID)
		r.store.Users.Upsert(e.User)
	case events.NotificationCreated:
		r.pending.Confirm(store.NamespaceNotifications, e.Notification.ID)
		r.store.Notifications.Upsert(e.Notification)
	case events.NotificationRead:
		if n, ok := r.store.Notifications.Get(e.NotificationID); ok {
			r.store.Notifications.Upsert(n.AsRead())
		}
	case events.PostCreated:
		r.pending.Confirm(store.NamespacePosts, e.Post.ID)
		r.store.Posts.Upsert(e.Post)
	case events.PostUpdated:
		r.pending.Confirm(store.NamespacePosts, e.Post.ID)
		r.store.Posts.Upsert(e.Post)
	default:
		r.log.Warn("dropping event of unknown type", "kind", ev.EventKind())
	}
}

func (r *Reconciler) upsertSlot(slot models.AvailabilitySlot) {
	r.pending.Confirm(store.NamespaceSlots, slot.ID)
	r.store.Slots.Upsert(slot)
}

func (r *Reconciler) upsertLesson(lesson models.Lesson) {
	r.pending.Confirm(store.NamespaceLessons, lesson.ID)
	existing, found := r.store.Lessons.Get(lesson.ID)
	r.store.Lessons.Upsert(keepTerminalStatus(existing, found, lesson))
}

// applyChatMessage appends a message to its chat, deduplicating by
// message identifier so duplicate channel delivery never doubles a
// message. A message for an unknown chat creates a skeleton chat that a
// later snapshot or chat.created event fills in.
func (r *Reconciler) applyChatMessage(msg models.Message) {
	chat, ok := r.store.Chats.Get(msg.ChatID)
	if !ok {
		chat = models.Chat{ID: msg.ChatID}
	}
	r.pending.Confirm(store.NamespaceChats, msg.ID)
	if chat.HasMessage(msg.ID) {
		// Duplicate delivery of an already appended message.
		return
	}
	r.store.Chats.Upsert(chat.WithMessage(msg))
}

// keepLocalMessages carries not-yet-echoed local messages over into an
// incoming chat record so a snapshot or chat push that predates them
// never drops them. Local messages are recognizable by their provisional
// identifier prefix, which the authoritative echo replaces.
func keepLocalMessages(existing models.Chat, found bool, incoming models.Chat) models.Chat {
	if !found {
		return incoming
	}
	for _, msg := range existing.Messages {
		if models.IsLocalID(msg.ID) && !incoming.HasMessage(msg.ID) {
			incoming = incoming.WithMessage(msg)
		}
	}
	return incoming
}

// applyProfile routes a profile to its role collection and re-derives
// the user projection, since users are projected from profiles rather
// than independently authoritative.
func (r *Reconciler) applyProfile(p models.Profile) {
	switch p.Role {
	case models.RoleTeacher:
		r.pending.Confirm(store.NamespaceTeacherProfiles, p.ID)
		r.store.TeacherProfiles.Upsert(p)
	case models.RoleStudent:
		r.pending.Confirm(store.NamespaceStudentProfiles, p.ID)
		r.store.StudentProfiles.Upsert(p)
	default:
		r.log.Warn("dropping profile with unknown role", "profile_id", p.ID, "role", p.Role)
		return
	}
	r.store.Users.Upsert(models.UserFromProfile(p))
}

// RepairBookingInvariant re-derives every slot's booked/booked-by pair
// from the presence of a non-cancelled lesson referencing it, instead of
// trusting the slot's own flag. This keeps slots and lessons from
// drifting apart when an event payload carried only one of the two.
//
// A slot occupied only by a pending local lesson keeps its optimistic
// booked state: the authoritative echo settles it later.
func (r *Reconciler) RepairBookingInvariant() {
	occupants := make(map[string]models.Lesson)
	for _, lesson := range r.store.Lessons.All() {
		if lesson.Status != models.LessonCancelled && !lesson.Deleted {
			occupants[lesson.SlotID] = lesson
		}
	}

	for _, slot := range r.store.Slots.All() {
		lesson, occupied := occupants[slot.ID]

		var booked bool
		var bookedBy string
		if occupied {
			booked = true
			bookedBy = lesson.StudentID
		}

		if slot.Booked == booked && slot.BookedBy == bookedBy {
			continue
		}
		slot.Booked = booked
		slot.BookedBy = bookedBy
		r.store.Slots.Upsert(slot)
	}
}
