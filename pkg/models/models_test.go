package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLessonStatusTransitions(t *testing.T) {
	assert.True(t, LessonScheduled.CanTransitionTo(LessonCompleted))
	assert.True(t, LessonScheduled.CanTransitionTo(LessonCancelled))
	assert.False(t, LessonCompleted.CanTransitionTo(LessonScheduled))
	assert.False(t, LessonCancelled.CanTransitionTo(LessonCompleted))

	assert.False(t, LessonScheduled.Terminal())
	assert.True(t, LessonCompleted.Terminal())
	assert.True(t, LessonCancelled.Terminal())
}

func TestLessonOccupies(t *testing.T) {
	l := Lesson{ID: "l-1", SlotID: "s-1", Status: LessonScheduled}
	assert.True(t, l.Occupies("s-1"))
	assert.False(t, l.Occupies("s-2"))

	l.Status = LessonCancelled
	assert.False(t, l.Occupies("s-1"), "a cancelled lesson frees its slot")

	l.Status = LessonCompleted
	assert.True(t, l.Occupies("s-1"), "a completed lesson still occupies its window")
}

func TestSlotValidWindow(t *testing.T) {
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	s := AvailabilitySlot{StartTime: start, EndTime: start.Add(time.Hour)}
	assert.True(t, s.ValidWindow())

	s.EndTime = start
	assert.False(t, s.ValidWindow())

	s = AvailabilitySlot{}
	assert.False(t, s.ValidWindow())
}

func TestIsLocalID(t *testing.T) {
	assert.True(t, IsLocalID(LocalIDPrefix+"abc"))
	assert.False(t, IsLocalID("srv-abc"))
}

func TestChatHasParticipantsIsOrderInsensitive(t *testing.T) {
	c := Chat{ParticipantIDs: []string{"a", "b"}}
	assert.True(t, c.HasParticipants("b", "a"))
	assert.False(t, c.HasParticipants("a"))
	assert.False(t, c.HasParticipants("a", "c"))
}

func TestPostReactionAndBookmarkAreCopyOnWrite(t *testing.T) {
	p := Post{ID: "p-1"}

	reacted := p.WithReaction("u-1", "👍")
	assert.Empty(t, p.Reactions, "the original is untouched")
	assert.Equal(t, "👍", reacted.Reactions["u-1"])

	cleared := reacted.WithReaction("u-1", "")
	assert.NotContains(t, cleared.Reactions, "u-1")

	marked := p.WithBookmark("u-1", true)
	assert.True(t, marked.Bookmarks["u-1"])
	unmarked := marked.WithBookmark("u-1", false)
	assert.NotContains(t, unmarked.Bookmarks, "u-1")
}

func TestUserFromProfile(t *testing.T) {
	u := UserFromProfile(Profile{ID: "t-1", Role: RoleTeacher, Name: "Vera"})
	assert.Equal(t, "t-1", u.ID)
	assert.Equal(t, "t-1", u.ProfileID)
	assert.Equal(t, RoleTeacher, u.Role)
	assert.Equal(t, "Vera", u.Name)
}
