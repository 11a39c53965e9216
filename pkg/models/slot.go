package models

import "time"

// SlotFormat describes how a lesson in a slot is delivered.
type SlotFormat string

const (
	FormatOnline   SlotFormat = "online"
	FormatInPerson SlotFormat = "in_person"
)

// AvailabilitySlot is a bookable window published by a teacher.
//
// Booked and BookedBy are derived state: they must agree with the
// presence of a non-cancelled lesson referencing this slot. The
// reconciler re-derives them after every merge rather than trusting
// either side of a partial payload.
type AvailabilitySlot struct {
	ID          string     `json:"id" cbor:"id"`
	TeacherID   string     `json:"teacher_id" cbor:"teacher_id"`
	TeacherName string     `json:"teacher_name,omitempty" cbor:"teacher_name,omitempty"`
	Subject     string     `json:"subject" cbor:"subject"`
	StartTime   time.Time  `json:"start_time" cbor:"start_time"`
	EndTime     time.Time  `json:"end_time" cbor:"end_time"`
	Price       int64      `json:"price" cbor:"price"`
	Format      SlotFormat `json:"format,omitempty" cbor:"format,omitempty"`
	Capacity    int        `json:"capacity,omitempty" cbor:"capacity,omitempty"`
	Booked      bool       `json:"booked" cbor:"booked"`
	BookedBy    string     `json:"booked_by,omitempty" cbor:"booked_by,omitempty"`
	Deleted     bool       `json:"deleted,omitempty" cbor:"deleted,omitempty"`
}

func (s AvailabilitySlot) RecordID() string { return s.ID }
func (s AvailabilitySlot) IsDeleted() bool  { return s.Deleted }

func (s AvailabilitySlot) AsDeleted() AvailabilitySlot {
	s.Deleted = true
	return s
}

// ValidWindow reports whether the slot covers a non-empty time window.
func (s AvailabilitySlot) ValidWindow() bool {
	return !s.StartTime.IsZero() && s.EndTime.After(s.StartTime)
}
