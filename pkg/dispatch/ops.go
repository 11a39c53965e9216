package dispatch

import (
	"time"

	"github.com/lessonloop/lessonloop-go/pkg/connection"
	"github.com/lessonloop/lessonloop-go/pkg/models"
	"github.com/lessonloop/lessonloop-go/pkg/store"
)

// Wire payloads, one per mutation method. The authority deduplicates
// intents by the client-generated record identifier they carry, so
// re-sending after a reconnect never doubles a record.

type CreateSlotParams struct {
	Slot   models.AvailabilitySlot `json:"slot" cbor:"slot"`
	Lesson *models.Lesson          `json:"lesson,omitempty" cbor:"lesson,omitempty"`
}

type CancelSlotParams struct {
	SlotID string `json:"slot_id" cbor:"slot_id"`
}

type BookSlotParams struct {
	SlotID string        `json:"slot_id" cbor:"slot_id"`
	Lesson models.Lesson `json:"lesson" cbor:"lesson"`
}

type CancelLessonParams struct {
	LessonID string `json:"lesson_id" cbor:"lesson_id"`
}

type CompleteLessonParams struct {
	LessonID string `json:"lesson_id" cbor:"lesson_id"`
}

type RescheduleLessonParams struct {
	LessonID  string    `json:"lesson_id" cbor:"lesson_id"`
	StartTime time.Time `json:"start_time" cbor:"start_time"`
	EndTime   time.Time `json:"end_time" cbor:"end_time"`
}

type OpenChatParams struct {
	Chat models.Chat `json:"chat" cbor:"chat"`
}

type SendMessageParams struct {
	Message models.Message `json:"message" cbor:"message"`
}

type MarkChatReadParams struct {
	ChatID   string `json:"chat_id" cbor:"chat_id"`
	ReaderID string `json:"reader_id" cbor:"reader_id"`
}

type UpdateProfileParams struct {
	Profile models.Profile `json:"profile" cbor:"profile"`
}

type MarkNotificationReadParams struct {
	NotificationID string `json:"notification_id" cbor:"notification_id"`
}

type ReactToPostParams struct {
	PostID   string `json:"post_id" cbor:"post_id"`
	UserID   string `json:"user_id" cbor:"user_id"`
	Reaction string `json:"reaction" cbor:"reaction"`
}

type BookmarkPostParams struct {
	PostID     string `json:"post_id" cbor:"post_id"`
	UserID     string `json:"user_id" cbor:"user_id"`
	Bookmarked bool   `json:"bookmarked" cbor:"bookmarked"`
}

// Occupant identifies the student a slot is booked for.
type Occupant struct {
	ID   string
	Name string
}

// SlotSpec is the teacher-facing shape of a new availability slot.
type SlotSpec struct {
	TeacherID   string
	TeacherName string
	Subject     string
	StartTime   time.Time
	EndTime     time.Time
	Price       int64
	Format      models.SlotFormat
	Capacity    int
}

// CreateAvailabilitySlot publishes a new slot, optionally pre-booked for
// occupant (a teacher entering an arranged lesson directly).
func (d *Dispatcher) CreateAvailabilitySlot(spec SlotSpec, occupant *Occupant) (models.AvailabilitySlot, error) {
	if spec.TeacherID == "" {
		return models.AvailabilitySlot{}, ErrMissingTeacher
	}

	slot := models.AvailabilitySlot{
		ID:          newLocalID(),
		TeacherID:   spec.TeacherID,
		TeacherName: spec.TeacherName,
		Subject:     spec.Subject,
		StartTime:   spec.StartTime,
		EndTime:     spec.EndTime,
		Price:       spec.Price,
		Format:      spec.Format,
		Capacity:    spec.Capacity,
	}
	if !slot.ValidWindow() {
		return models.AvailabilitySlot{}, ErrInvalidWindow
	}

	var lesson *models.Lesson
	if occupant != nil {
		slot.Booked = true
		slot.BookedBy = occupant.ID
		l := lessonForSlot(slot, *occupant)
		lesson = &l
	}

	d.store.Slots.Upsert(slot)
	if lesson != nil {
		d.store.Lessons.Upsert(*lesson)
		d.enqueue(&Intent{
			Namespace: store.NamespaceLessons,
			RecordID:  lesson.ID,
			Method:    connection.MethodBookSlot,
			payload:   BookSlotParams{SlotID: slot.ID, Lesson: *lesson},
			creation:  true,
			rollback:  func() { d.store.Lessons.Remove(lesson.ID) },
			discard:   func() { d.store.Lessons.Remove(lesson.ID) },
		})
	}

	d.enqueue(&Intent{
		Namespace: store.NamespaceSlots,
		RecordID:  slot.ID,
		Method:    connection.MethodCreateSlot,
		payload:   CreateSlotParams{Slot: slot, Lesson: lesson},
		creation:  true,
		rollback:  func() { d.store.Slots.Remove(slot.ID) },
		discard:   func() { d.store.Slots.Remove(slot.ID) },
	})

	return slot, nil
}

// CancelSlot soft-deletes an unbooked slot owned by teacherID.
func (d *Dispatcher) CancelSlot(slotID, teacherID string) error {
	slot, ok := d.store.Slots.Get(slotID)
	if !ok || slot.Deleted {
		return ErrSlotNotFound
	}
	if slot.TeacherID != teacherID {
		return ErrNotOwnSlot
	}
	if slot.Booked {
		return ErrSlotBooked
	}

	prior := slot
	d.store.Slots.MarkDeleted(slotID)

	d.enqueue(&Intent{
		Namespace: store.NamespaceSlots,
		RecordID:  slotID,
		Method:    connection.MethodCancelSlot,
		payload:   CancelSlotParams{SlotID: slotID},
		rollback:  func() { d.store.Slots.Upsert(prior) },
	})

	return nil
}

// BookSlot books a free slot for occupant, creating the lesson with the
// slot's attributes denormalized into it.
func (d *Dispatcher) BookSlot(slotID string, occupant Occupant) (models.Lesson, error) {
	slot, ok := d.store.Slots.Get(slotID)
	if !ok || slot.Deleted {
		return models.Lesson{}, ErrSlotNotFound
	}
	if slot.Booked {
		return models.Lesson{}, ErrSlotUnavailable
	}

	priorSlot := slot
	slot.Booked = true
	slot.BookedBy = occupant.ID
	lesson := lessonForSlot(slot, occupant)

	d.store.Slots.Upsert(slot)
	d.store.Lessons.Upsert(lesson)

	d.enqueue(&Intent{
		Namespace: store.NamespaceLessons,
		RecordID:  lesson.ID,
		Method:    connection.MethodBookSlot,
		payload:   BookSlotParams{SlotID: slotID, Lesson: lesson},
		creation:  true,
		rollback: func() {
			d.store.Lessons.Remove(lesson.ID)
			d.store.Slots.Upsert(priorSlot)
		},
		discard: func() { d.store.Lessons.Remove(lesson.ID) },
	})

	return lesson, nil
}

func lessonForSlot(slot models.AvailabilitySlot, occupant Occupant) models.Lesson {
	return models.Lesson{
		ID:          newLocalID(),
		SlotID:      slot.ID,
		TeacherID:   slot.TeacherID,
		TeacherName: slot.TeacherName,
		StudentID:   occupant.ID,
		StudentName: occupant.Name,
		Subject:     slot.Subject,
		StartTime:   slot.StartTime,
		EndTime:     slot.EndTime,
		Price:       slot.Price,
		Status:      models.LessonScheduled,
	}
}

// CancelLesson cancels a scheduled lesson and frees its slot.
func (d *Dispatcher) CancelLesson(lessonID string) error {
	return d.endLesson(lessonID, models.LessonCancelled, connection.MethodCancelLesson,
		CancelLessonParams{LessonID: lessonID})
}

// CompleteLesson marks a scheduled lesson completed. The slot stays
// booked: a completed lesson still occupies its window.
func (d *Dispatcher) CompleteLesson(lessonID string) error {
	return d.endLesson(lessonID, models.LessonCompleted, connection.MethodCompleteLesson,
		CompleteLessonParams{LessonID: lessonID})
}

func (d *Dispatcher) endLesson(lessonID string, status models.LessonStatus, method string, payload any) error {
	lesson, ok := d.store.Lessons.Get(lessonID)
	if !ok || lesson.Deleted {
		return ErrLessonNotFound
	}
	if !lesson.Status.CanTransitionTo(status) || lesson.Status.Terminal() {
		return ErrLessonNotActive
	}

	priorLesson := lesson
	priorSlot, hadSlot := d.store.Slots.Get(lesson.SlotID)

	lesson.Status = status
	d.store.Lessons.Upsert(lesson)

	if status == models.LessonCancelled && hadSlot {
		freed := priorSlot
		freed.Booked = false
		freed.BookedBy = ""
		d.store.Slots.Upsert(freed)
	}

	d.enqueue(&Intent{
		Namespace: store.NamespaceLessons,
		RecordID:  lessonID,
		Method:    method,
		payload:   payload,
		rollback: func() {
			d.store.Lessons.Upsert(priorLesson)
			if hadSlot {
				d.store.Slots.Upsert(priorSlot)
			}
		},
	})

	return nil
}

// RescheduleLesson moves a scheduled lesson to a new window. The
// original slot is freed; the lesson keeps its own denormalized window.
func (d *Dispatcher) RescheduleLesson(lessonID string, start, end time.Time) error {
	lesson, ok := d.store.Lessons.Get(lessonID)
	if !ok || lesson.Deleted {
		return ErrLessonNotFound
	}
	if lesson.Status.Terminal() {
		return ErrLessonNotActive
	}
	if !end.After(start) || start.IsZero() {
		return ErrInvalidWindow
	}

	priorLesson := lesson
	priorSlot, hadSlot := d.store.Slots.Get(lesson.SlotID)

	lesson.StartTime = start
	lesson.EndTime = end
	lesson.SlotID = ""
	d.store.Lessons.Upsert(lesson)

	if hadSlot {
		freed := priorSlot
		freed.Booked = false
		freed.BookedBy = ""
		d.store.Slots.Upsert(freed)
	}

	d.enqueue(&Intent{
		Namespace: store.NamespaceLessons,
		RecordID:  lessonID,
		Method:    connection.MethodRescheduleLesson,
		payload:   RescheduleLessonParams{LessonID: lessonID, StartTime: start, EndTime: end},
		rollback: func() {
			d.store.Lessons.Upsert(priorLesson)
			if hadSlot {
				d.store.Slots.Upsert(priorSlot)
			}
		},
	})

	return nil
}

// OpenChat returns the existing chat for exactly the given participants,
// or creates one optimistically.
func (d *Dispatcher) OpenChat(participantIDs []string, names map[string]string) (models.Chat, error) {
	existing, found := d.store.Chats.Find(func(c models.Chat) bool {
		return !c.Deleted && c.HasParticipants(participantIDs...)
	})
	if found {
		return existing, nil
	}

	chat := models.Chat{
		ID:               newLocalID(),
		ParticipantIDs:   participantIDs,
		ParticipantNames: names,
		Messages:         []models.Message{},
	}
	d.store.Chats.Upsert(chat)

	d.enqueue(&Intent{
		Namespace: store.NamespaceChats,
		RecordID:  chat.ID,
		Method:    connection.MethodOpenChat,
		payload:   OpenChatParams{Chat: chat},
		creation:  true,
		rollback:  func() { d.store.Chats.Remove(chat.ID) },
		discard:   func() { d.store.Chats.Remove(chat.ID) },
	})

	return chat, nil
}

// SendMessage appends a message to an existing chat.
func (d *Dispatcher) SendMessage(chatID, senderID, body string) (models.Message, error) {
	if body == "" {
		return models.Message{}, ErrEmptyMessage
	}
	chat, ok := d.store.Chats.Get(chatID)
	if !ok || chat.Deleted {
		return models.Message{}, ErrChatNotFound
	}

	msg := models.Message{
		ID:       newLocalID(),
		ChatID:   chatID,
		SenderID: senderID,
		Body:     body,
		SentAt:   time.Now().UTC(),
	}
	d.store.Chats.Upsert(chat.WithMessage(msg))

	removeMsg := func() {
		current, ok := d.store.Chats.Get(chatID)
		if !ok {
			return
		}
		kept := make([]models.Message, 0, len(current.Messages))
		for _, m := range current.Messages {
			if m.ID != msg.ID {
				kept = append(kept, m)
			}
		}
		current.Messages = kept
		d.store.Chats.Upsert(current)
	}

	d.enqueue(&Intent{
		Namespace: store.NamespaceChats,
		RecordID:  msg.ID,
		Method:    connection.MethodSendMessage,
		payload:   SendMessageParams{Message: msg},
		creation:  true,
		rollback:  removeMsg,
		discard:   removeMsg,
	})

	return msg, nil
}

// MarkChatRead flags every message in the chat not sent by readerID as
// read. Read-state is the only mutable part of a delivered message.
func (d *Dispatcher) MarkChatRead(chatID, readerID string) error {
	chat, ok := d.store.Chats.Get(chatID)
	if !ok || chat.Deleted {
		return ErrChatNotFound
	}

	prior := chat
	d.store.Chats.Upsert(chat.WithReadBy(readerID))

	d.enqueue(&Intent{
		Namespace: store.NamespaceChats,
		RecordID:  chatID,
		Method:    connection.MethodMarkChatRead,
		payload:   MarkChatReadParams{ChatID: chatID, ReaderID: readerID},
		rollback:  func() { d.store.Chats.Upsert(prior) },
	})

	return nil
}

// UpdateProfile overwrites the owner's profile wholesale and re-derives
// the user projection.
func (d *Dispatcher) UpdateProfile(profile models.Profile) error {
	if profile.ID == "" {
		return ErrMissingOwner
	}

	var coll *store.Collection[models.Profile]
	switch profile.Role {
	case models.RoleTeacher:
		coll = d.store.TeacherProfiles
	case models.RoleStudent:
		coll = d.store.StudentProfiles
	default:
		return ErrProfileNotFound
	}

	prior, found := coll.Get(profile.ID)
	priorUser, hadUser := d.store.Users.Get(profile.ID)

	coll.Upsert(profile)
	d.store.Users.Upsert(models.UserFromProfile(profile))

	d.enqueue(&Intent{
		Namespace: coll.Namespace(),
		RecordID:  profile.ID,
		Method:    connection.MethodUpdateProfile,
		payload:   UpdateProfileParams{Profile: profile},
		creation:  !found,
		rollback: func() {
			if found {
				coll.Upsert(prior)
			} else {
				coll.Remove(profile.ID)
			}
			if hadUser {
				d.store.Users.Upsert(priorUser)
			} else {
				d.store.Users.Remove(profile.ID)
			}
		},
		discard: func() { coll.Remove(profile.ID) },
	})

	return nil
}

// MarkNotificationRead sets the read flag on a notification.
func (d *Dispatcher) MarkNotificationRead(notificationID string) error {
	n, ok := d.store.Notifications.Get(notificationID)
	if !ok || n.Deleted {
		return ErrNotifNotFound
	}

	prior := n
	d.store.Notifications.Upsert(n.AsRead())

	d.enqueue(&Intent{
		Namespace: store.NamespaceNotifications,
		RecordID:  notificationID,
		Method:    connection.MethodMarkNotifRead,
		payload:   MarkNotificationReadParams{NotificationID: notificationID},
		rollback:  func() { d.store.Notifications.Upsert(prior) },
	})

	return nil
}

// ReactToPost sets (or clears, with an empty reaction) userID's reaction.
func (d *Dispatcher) ReactToPost(postID, userID, reaction string) error {
	post, ok := d.store.Posts.Get(postID)
	if !ok || post.Deleted {
		return ErrPostNotFound
	}

	prior := post
	d.store.Posts.Upsert(post.WithReaction(userID, reaction))

	d.enqueue(&Intent{
		Namespace: store.NamespacePosts,
		RecordID:  postID,
		Method:    connection.MethodReactToPost,
		payload:   ReactToPostParams{PostID: postID, UserID: userID, Reaction: reaction},
		rollback:  func() { d.store.Posts.Upsert(prior) },
	})

	return nil
}

// BookmarkPost toggles userID's bookmark on a post.
func (d *Dispatcher) BookmarkPost(postID, userID string, bookmarked bool) error {
	post, ok := d.store.Posts.Get(postID)
	if !ok || post.Deleted {
		return ErrPostNotFound
	}

	prior := post
	d.store.Posts.Upsert(post.WithBookmark(userID, bookmarked))

	d.enqueue(&Intent{
		Namespace: store.NamespacePosts,
		RecordID:  postID,
		Method:    connection.MethodBookmarkPost,
		payload:   BookmarkPostParams{PostID: postID, UserID: userID, Bookmarked: bookmarked},
		rollback:  func() { d.store.Posts.Upsert(prior) },
	})

	return nil
}
