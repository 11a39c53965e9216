package dispatch

import "errors"

// Locally-checkable precondition failures. These reject the mutation
// before anything is applied; nothing reaches the store or the wire.
var (
	ErrSlotNotFound     = errors.New("slot not found")
	ErrSlotUnavailable  = errors.New("slot is not available")
	ErrSlotBooked       = errors.New("slot is booked")
	ErrLessonNotFound   = errors.New("lesson not found")
	ErrLessonNotActive  = errors.New("lesson is not scheduled")
	ErrChatNotFound     = errors.New("chat not found")
	ErrPostNotFound     = errors.New("post not found")
	ErrNotifNotFound    = errors.New("notification not found")
	ErrProfileNotFound  = errors.New("profile not found")
	ErrInvalidWindow    = errors.New("invalid time window")
	ErrMissingTeacher   = errors.New("teacher id is required")
	ErrMissingOwner     = errors.New("owner id is required")
	ErrEmptyMessage     = errors.New("message body is empty")
	ErrNotOwnSlot       = errors.New("slot belongs to another teacher")
)
