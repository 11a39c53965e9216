package models

import "time"

// Post is append-mostly: the body is immutable after creation, while the
// reaction and bookmark sets may change.
type Post struct {
	ID         string            `json:"id" cbor:"id"`
	AuthorID   string            `json:"author_id" cbor:"author_id"`
	AuthorName string            `json:"author_name,omitempty" cbor:"author_name,omitempty"`
	Body       string            `json:"body" cbor:"body"`
	CreatedAt  time.Time         `json:"created_at" cbor:"created_at"`
	Reactions  map[string]string `json:"reactions,omitempty" cbor:"reactions,omitempty"`
	Bookmarks  map[string]bool   `json:"bookmarks,omitempty" cbor:"bookmarks,omitempty"`
	Deleted    bool              `json:"deleted,omitempty" cbor:"deleted,omitempty"`
}

func (p Post) RecordID() string { return p.ID }
func (p Post) IsDeleted() bool  { return p.Deleted }

func (p Post) AsDeleted() Post {
	p.Deleted = true
	return p
}

// WithReaction returns a copy with userID's reaction set, or removed
// when reaction is empty.
func (p Post) WithReaction(userID, reaction string) Post {
	reactions := make(map[string]string, len(p.Reactions)+1)
	for k, v := range p.Reactions {
		reactions[k] = v
	}
	if reaction == "" {
		delete(reactions, userID)
	} else {
		reactions[userID] = reaction
	}
	p.Reactions = reactions
	return p
}

// WithBookmark returns a copy with userID's bookmark toggled to the
// given state.
func (p Post) WithBookmark(userID string, bookmarked bool) Post {
	bookmarks := make(map[string]bool, len(p.Bookmarks)+1)
	for k, v := range p.Bookmarks {
		bookmarks[k] = v
	}
	if bookmarked {
		bookmarks[userID] = true
	} else {
		delete(bookmarks, userID)
	}
	p.Bookmarks = bookmarks
	return p
}
