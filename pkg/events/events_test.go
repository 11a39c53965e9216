package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lessonloop/lessonloop-go/internal/codec"
	"github.com/lessonloop/lessonloop-go/pkg/models"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cb := codec.NewCBOR()

	for _, ev := range []Event{
		SlotCreated{Slot: models.AvailabilitySlot{ID: "s-1", TeacherID: "t-1", Subject: "piano"}},
		SlotCancelled{SlotID: "s-1"},
		LessonBooked{Lesson: models.Lesson{ID: "l-1", SlotID: "s-1", StudentID: "stu-1"}},
		ChatMessage{Message: models.Message{ID: "m-1", ChatID: "c-1", Body: "hi"}},
		ChatRead{ChatID: "c-1", ReaderID: "b"},
		ProfileUpdated{Profile: models.Profile{ID: "t-1", Role: models.RoleTeacher}},
		NotificationRead{NotificationID: "n-1"},
		PostCreated{Post: models.Post{ID: "p-1", AuthorID: "t-1"}},
	} {
		env, err := Encode(ev, cb)
		require.NoError(t, err, "kind %s", ev.EventKind())
		assert.Equal(t, ev.EventKind(), env.Kind)

		got, err := Decode(env, cb)
		require.NoError(t, err, "kind %s", ev.EventKind())
		assert.Equal(t, ev, got)
	}
}

func TestLessonBookedCarriesOptionalSlot(t *testing.T) {
	cb := codec.NewCBOR()

	slot := models.AvailabilitySlot{ID: "s-1", TeacherID: "t-1", Booked: true, BookedBy: "stu-1"}
	env, err := Encode(LessonBooked{
		Lesson: models.Lesson{ID: "l-1", SlotID: "s-1", StudentID: "stu-1"},
		Slot:   &slot,
	}, cb)
	require.NoError(t, err)

	got, err := Decode(env, cb)
	require.NoError(t, err)
	booked, ok := got.(LessonBooked)
	require.True(t, ok)
	require.NotNil(t, booked.Slot)
	assert.Equal(t, "stu-1", booked.Slot.BookedBy)
}

func TestDecodeUnknownKind(t *testing.T) {
	cb := codec.NewCBOR()

	_, err := Decode(Envelope{Kind: "slot.exploded"}, cb)
	assert.ErrorIs(t, err, ErrUnknownKind)
}
