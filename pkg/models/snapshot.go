package models

// Snapshot is a full point-in-time copy of one or more collections as
// returned by the remote authority.
//
// Every field is a pointer: a nil collection means "the authority did
// not include this collection", which the reconciler must treat as "no
// change", never as "empty the collection". This is what makes partial
// snapshot responses lossless.
type Snapshot struct {
	Slots           *[]AvailabilitySlot `json:"slots,omitempty" cbor:"slots,omitempty"`
	Lessons         *[]Lesson           `json:"lessons,omitempty" cbor:"lessons,omitempty"`
	Chats           *[]Chat             `json:"chats,omitempty" cbor:"chats,omitempty"`
	TeacherProfiles *[]Profile          `json:"teacher_profiles,omitempty" cbor:"teacher_profiles,omitempty"`
	StudentProfiles *[]Profile          `json:"student_profiles,omitempty" cbor:"student_profiles,omitempty"`
	Users           *[]User             `json:"users,omitempty" cbor:"users,omitempty"`
	Posts           *[]Post             `json:"posts,omitempty" cbor:"posts,omitempty"`
	Notifications   *[]Notification     `json:"notifications,omitempty" cbor:"notifications,omitempty"`
}
