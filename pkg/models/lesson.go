package models

import "time"

type LessonStatus string

const (
	LessonScheduled LessonStatus = "scheduled"
	LessonCompleted LessonStatus = "completed"
	LessonCancelled LessonStatus = "cancelled"
)

// Terminal reports whether the status is an end state. Terminal statuses
// never transition back to scheduled, regardless of event arrival order.
func (s LessonStatus) Terminal() bool {
	return s == LessonCompleted || s == LessonCancelled
}

// CanTransitionTo reports whether moving from s to next is a legal,
// monotonic status transition.
func (s LessonStatus) CanTransitionTo(next LessonStatus) bool {
	if s == next {
		return true
	}
	return s == LessonScheduled && next.Terminal()
}

// Lesson is a booked slot. Subject, window and price are denormalized
// from the slot at booking time so the lesson stays self-describing even
// if the slot is later cancelled or rescheduled.
type Lesson struct {
	ID          string       `json:"id" cbor:"id"`
	SlotID      string       `json:"slot_id" cbor:"slot_id"`
	TeacherID   string       `json:"teacher_id" cbor:"teacher_id"`
	TeacherName string       `json:"teacher_name,omitempty" cbor:"teacher_name,omitempty"`
	StudentID   string       `json:"student_id" cbor:"student_id"`
	StudentName string       `json:"student_name,omitempty" cbor:"student_name,omitempty"`
	Subject     string       `json:"subject" cbor:"subject"`
	StartTime   time.Time    `json:"start_time" cbor:"start_time"`
	EndTime     time.Time    `json:"end_time" cbor:"end_time"`
	Price       int64        `json:"price" cbor:"price"`
	Status      LessonStatus `json:"status" cbor:"status"`
	Deleted     bool         `json:"deleted,omitempty" cbor:"deleted,omitempty"`
}

func (l Lesson) RecordID() string { return l.ID }
func (l Lesson) IsDeleted() bool  { return l.Deleted }

func (l Lesson) AsDeleted() Lesson {
	l.Deleted = true
	return l
}

// Occupies reports whether the lesson keeps the given slot booked.
func (l Lesson) Occupies(slotID string) bool {
	return l.SlotID == slotID && l.Status != LessonCancelled && !l.Deleted
}
