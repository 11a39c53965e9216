// Package events defines the closed set of incremental change events the
// remote authority pushes over the event channel. Each mutation or
// broadcast kind is its own variant type, so consumers dispatch with an
// exhaustive type switch instead of inspecting ad hoc payload maps.
package events

import (
	"fmt"

	"github.com/lessonloop/lessonloop-go/internal/codec"
	"github.com/lessonloop/lessonloop-go/pkg/models"
)

type Kind string

const (
	KindSlotCreated     Kind = "slot.created"
	KindSlotUpdated     Kind = "slot.updated"
	KindSlotCancelled   Kind = "slot.cancelled"
	KindLessonBooked    Kind = "lesson.booked"
	KindLessonUpdated   Kind = "lesson.updated"
	KindChatCreated     Kind = "chat.created"
	KindChatMessage     Kind = "chat.message"
	KindChatRead        Kind = "chat.read"
	KindProfileUpdated  Kind = "profile.updated"
	KindUserRegistered  Kind = "user.registered"
	KindNotification    Kind = "notification.created"
	KindNotificationRead Kind = "notification.read"
	KindPostCreated     Kind = "post.created"
	KindPostUpdated     Kind = "post.updated"
)

// Event is the closed union of everything the channel can deliver.
type Event interface {
	EventKind() Kind
}

type SlotCreated struct {
	Slot models.AvailabilitySlot `json:"slot" cbor:"slot"`
}

type SlotUpdated struct {
	Slot models.AvailabilitySlot `json:"slot" cbor:"slot"`
}

// SlotCancelled is a soft delete: the slot is tombstoned, never removed.
type SlotCancelled struct {
	SlotID string `json:"slot_id" cbor:"slot_id"`
}

// LessonBooked carries the new lesson and, when the authority included
// it, the slot it occupies. The slot is optional: the reconciler
// re-derives slot booking state either way.
type LessonBooked struct {
	Lesson models.Lesson            `json:"lesson" cbor:"lesson"`
	Slot   *models.AvailabilitySlot `json:"slot,omitempty" cbor:"slot,omitempty"`
}

// LessonUpdated covers cancellation, completion and reschedule: the
// record is replaced wholesale.
type LessonUpdated struct {
	Lesson models.Lesson            `json:"lesson" cbor:"lesson"`
	Slot   *models.AvailabilitySlot `json:"slot,omitempty" cbor:"slot,omitempty"`
}

type ChatCreated struct {
	Chat models.Chat `json:"chat" cbor:"chat"`
}

type ChatMessage struct {
	Message models.Message `json:"message" cbor:"message"`
}

type ChatRead struct {
	ChatID   string `json:"chat_id" cbor:"chat_id"`
	ReaderID string `json:"reader_id" cbor:"reader_id"`
}

type ProfileUpdated struct {
	Profile models.Profile `json:"profile" cbor:"profile"`
}

type UserRegistered struct {
	User models.User `json:"user" cbor:"user"`
}

type NotificationCreated struct {
	Notification models.Notification `json:"notification" cbor:"notification"`
}

type NotificationRead struct {
	NotificationID string `json:"notification_id" cbor:"notification_id"`
}

type PostCreated struct {
	Post models.Post `json:"post" cbor:"post"`
}

type PostUpdated struct {
	Post models.Post `json:"post" cbor:"post"`
}

func (SlotCreated) EventKind() Kind         { return KindSlotCreated }
func (SlotUpdated) EventKind() Kind         { return KindSlotUpdated }
func (SlotCancelled) EventKind() Kind       { return KindSlotCancelled }
func (LessonBooked) EventKind() Kind        { return KindLessonBooked }
func (LessonUpdated) EventKind() Kind       { return KindLessonUpdated }
func (ChatCreated) EventKind() Kind         { return KindChatCreated }
func (ChatMessage) EventKind() Kind         { return KindChatMessage }
func (ChatRead) EventKind() Kind            { return KindChatRead }
func (ProfileUpdated) EventKind() Kind      { return KindProfileUpdated }
func (UserRegistered) EventKind() Kind      { return KindUserRegistered }
func (NotificationCreated) EventKind() Kind { return KindNotification }
func (NotificationRead) EventKind() Kind    { return KindNotificationRead }
func (PostCreated) EventKind() Kind         { return KindPostCreated }
func (PostUpdated) EventKind() Kind         { return KindPostUpdated }

// Envelope is the wire form of a push: a kind tag plus the undecoded
// variant payload.
type Envelope struct {
	Kind    Kind   `json:"kind" cbor:"kind"`
	Payload []byte `json:"payload" cbor:"payload"`
}

// Decode resolves an envelope into its concrete variant.
func Decode(env Envelope, dec codec.Unmarshaler) (Event, error) {
	var ev Event
	switch env.Kind {
	case KindSlotCreated:
		ev = &SlotCreated{}
	case KindSlotUpdated:
		ev = &SlotUpdated{}
	case KindSlotCancelled:
		ev = &SlotCancelled{}
	case KindLessonBooked:
		ev = &LessonBooked{}
	case KindLessonUpdated:
		ev = &LessonUpdated{}
	case KindChatCreated:
		ev = &ChatCreated{}
	case KindChatMessage:
		ev = &ChatMessage{}
	case KindChatRead:
		ev = &ChatRead{}
	case KindProfileUpdated:
		ev = &ProfileUpdated{}
	case KindUserRegistered:
		ev = &UserRegistered{}
	case KindNotification:
		ev = &NotificationCreated{}
	case KindNotificationRead:
		ev = &NotificationRead{}
	case KindPostCreated:
		ev = &PostCreated{}
	case KindPostUpdated:
		ev = &PostUpdated{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.Kind)
	}

	if err := dec.Unmarshal(env.Payload, ev); err != nil {
		return nil, fmt.Errorf("decoding %q event: %w", env.Kind, err)
	}

	return deref(ev), nil
}

// deref returns the value variant so type switches match non-pointer
// cases.
func deref(ev Event) Event {
	switch v := ev.(type) {
	case *SlotCreated:
		return *v
	case *SlotUpdated:
		return *v
	case *SlotCancelled:
		return *v
	case *LessonBooked:
		return *v
	case *LessonUpdated:
		return *v
	case *ChatCreated:
		return *v
	case *ChatMessage:
		return *v
	case *ChatRead:
		return *v
	case *ProfileUpdated:
		return *v
	case *UserRegistered:
		return *v
	case *NotificationCreated:
		return *v
	case *NotificationRead:
		return *v
	case *PostCreated:
		return *v
	case *PostUpdated:
		return *v
	default:
		return ev
	}
}

// Encode wraps an event into its wire envelope.
func Encode(ev Event, enc codec.Marshaler) (Envelope, error) {
	payload, err := enc.Marshal(ev)
	if err != nil {
		return Envelope{}, fmt.Errorf("encoding %q event: %w", ev.EventKind(), err)
	}
	return Envelope{Kind: ev.EventKind(), Payload: payload}, nil
}
