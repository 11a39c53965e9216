package models

import "time"

// Notification is append-only except for the read flag.
type Notification struct {
	ID        string    `json:"id" cbor:"id"`
	UserID    string    `json:"user_id" cbor:"user_id"`
	Kind      string    `json:"kind" cbor:"kind"`
	Text      string    `json:"text" cbor:"text"`
	CreatedAt time.Time `json:"created_at" cbor:"created_at"`
	Read      bool      `json:"read,omitempty" cbor:"read,omitempty"`
	Deleted   bool      `json:"deleted,omitempty" cbor:"deleted,omitempty"`
}

func (n Notification) RecordID() string { return n.ID }
func (n Notification) IsDeleted() bool  { return n.Deleted }

func (n Notification) AsDeleted() Notification {
	n.Deleted = true
	return n
}

// AsRead returns a copy with the read flag set.
func (n Notification) AsRead() Notification {
	n.Read = true
	return n
}
