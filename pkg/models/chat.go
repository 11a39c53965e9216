package models

import (
	"slices"
	"time"
)

// Message is immutable once appended to a chat; only the read flag may
// change afterwards.
type Message struct {
	ID       string    `json:"id" cbor:"id"`
	ChatID   string    `json:"chat_id" cbor:"chat_id"`
	SenderID string    `json:"sender_id" cbor:"sender_id"`
	Body     string    `json:"body" cbor:"body"`
	SentAt   time.Time `json:"sent_at" cbor:"sent_at"`
	Read     bool      `json:"read,omitempty" cbor:"read,omitempty"`
}

// Chat holds an ordered, append-only message sequence between a fixed
// set of participants.
type Chat struct {
	ID               string            `json:"id" cbor:"id"`
	ParticipantIDs   []string          `json:"participant_ids" cbor:"participant_ids"`
	ParticipantNames map[string]string `json:"participant_names,omitempty" cbor:"participant_names,omitempty"`
	Messages         []Message         `json:"messages" cbor:"messages"`
	Deleted          bool              `json:"deleted,omitempty" cbor:"deleted,omitempty"`
}

func (c Chat) RecordID() string { return c.ID }
func (c Chat) IsDeleted() bool  { return c.Deleted }

func (c Chat) AsDeleted() Chat {
	c.Deleted = true
	return c
}

// HasParticipants reports whether the chat is between exactly the given
// participants, in any order.
func (c Chat) HasParticipants(ids ...string) bool {
	if len(c.ParticipantIDs) != len(ids) {
		return false
	}
	for _, id := range ids {
		if !slices.Contains(c.ParticipantIDs, id) {
			return false
		}
	}
	return true
}

// HasMessage reports whether a message with the given identifier has
// already been appended.
func (c Chat) HasMessage(msgID string) bool {
	return slices.ContainsFunc(c.Messages, func(m Message) bool { return m.ID == msgID })
}

// WithMessage returns a copy of the chat with msg appended. The caller
// is responsible for the HasMessage dedup check.
func (c Chat) WithMessage(msg Message) Chat {
	messages := make([]Message, 0, len(c.Messages)+1)
	messages = append(messages, c.Messages...)
	messages = append(messages, msg)
	c.Messages = messages
	return c
}

// WithReadBy returns a copy of the chat in which every message not sent
// by readerID is flagged read.
func (c Chat) WithReadBy(readerID string) Chat {
	messages := make([]Message, len(c.Messages))
	copy(messages, c.Messages)
	for i := range messages {
		if messages[i].SenderID != readerID {
			messages[i].Read = true
		}
	}
	c.Messages = messages
	return c
}
