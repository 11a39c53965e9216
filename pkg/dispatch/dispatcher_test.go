package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lessonloop/lessonloop-go/internal/codec"
	"github.com/lessonloop/lessonloop-go/internal/fakeauthority"
	"github.com/lessonloop/lessonloop-go/pkg/connection"
	"github.com/lessonloop/lessonloop-go/pkg/events"
	"github.com/lessonloop/lessonloop-go/pkg/models"
	"github.com/lessonloop/lessonloop-go/pkg/reconcile"
	"github.com/lessonloop/lessonloop-go/pkg/store"
)

func newDispatcher(t *testing.T) (*Dispatcher, *store.Store) {
	t.Helper()
	s := store.New(nil, nil, nil)
	t.Cleanup(s.Close)

	d := New(s, codec.NewCBOR(), nil)
	d.BindSink(reconcile.New(s, d, nil))
	return d, s
}

func validSpec() SlotSpec {
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	return SlotSpec{
		TeacherID:   "t-1",
		TeacherName: "Vera",
		Subject:     "piano",
		StartTime:   start,
		EndTime:     start.Add(time.Hour),
		Price:       4500,
		Capacity:    1,
	}
}

func TestCreateAvailabilitySlotValidation(t *testing.T) {
	d, _ := newDispatcher(t)

	spec := validSpec()
	spec.TeacherID = ""
	_, err := d.CreateAvailabilitySlot(spec, nil)
	assert.ErrorIs(t, err, ErrMissingTeacher)

	spec = validSpec()
	spec.EndTime = spec.StartTime
	_, err = d.CreateAvailabilitySlot(spec, nil)
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestCreateAvailabilitySlotAppliesOptimistically(t *testing.T) {
	d, s := newDispatcher(t)

	slot, err := d.CreateAvailabilitySlot(validSpec(), nil)
	require.NoError(t, err)

	assert.True(t, models.IsLocalID(slot.ID))
	_, ok := s.Slots.Get(slot.ID)
	assert.True(t, ok, "the caller sees the slot before any network round trip")
	assert.True(t, d.IsPending(store.NamespaceSlots, slot.ID))
	assert.Equal(t, 1, d.PendingCount())
}

func TestCreateAvailabilitySlotPreBooked(t *testing.T) {
	d, s := newDispatcher(t)

	slot, err := d.CreateAvailabilitySlot(validSpec(), &Occupant{ID: "stu-1", Name: "Ona"})
	require.NoError(t, err)

	got, _ := s.Slots.Get(slot.ID)
	assert.True(t, got.Booked)
	assert.Equal(t, "stu-1", got.BookedBy)

	lesson, ok := s.Lessons.Find(func(l models.Lesson) bool { return l.SlotID == slot.ID })
	require.True(t, ok)
	assert.Equal(t, models.LessonScheduled, lesson.Status)
	assert.Equal(t, "Ona", lesson.StudentName)
}

func TestBookSlotPreconditions(t *testing.T) {
	d, s := newDispatcher(t)

	_, err := d.BookSlot("s-404", Occupant{ID: "stu-1"})
	assert.ErrorIs(t, err, ErrSlotNotFound)

	booked := models.AvailabilitySlot{ID: "s-1", TeacherID: "t-1", Booked: true, BookedBy: "other"}
	s.Slots.Upsert(booked)
	_, err = d.BookSlot("s-1", Occupant{ID: "stu-1"})
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestBookSlotAppliesOptimistically(t *testing.T) {
	d, s := newDispatcher(t)
	s.Slots.Upsert(models.AvailabilitySlot{ID: "s-1", TeacherID: "t-1", Subject: "piano", Price: 4500})

	lesson, err := d.BookSlot("s-1", Occupant{ID: "stu-1", Name: "Ona"})
	require.NoError(t, err)

	assert.Equal(t, "piano", lesson.Subject, "slot attributes denormalize into the lesson")
	assert.Equal(t, int64(4500), lesson.Price)

	slot, _ := s.Slots.Get("s-1")
	assert.True(t, slot.Booked)
	assert.Equal(t, "stu-1", slot.BookedBy)
}

func TestRejectionRollsBackOptimisticBooking(t *testing.T) {
	d, s := newDispatcher(t)
	s.Slots.Upsert(models.AvailabilitySlot{ID: "s-1", TeacherID: "t-1"})

	lesson, err := d.BookSlot("s-1", Occupant{ID: "stu-1"})
	require.NoError(t, err)

	var rejectedMethod string
	d.OnRejection = func(method, recordID string, err error) {
		rejectedMethod = method
	}

	fake := fakeauthority.New()
	fake.Reject(connection.MethodBookSlot, 409, "slot already booked")
	d.Attach(fake)
	d.ResendPending(context.Background())

	_, ok := s.Lessons.Get(lesson.ID)
	assert.False(t, ok, "the provisional lesson is rolled back")
	slot, _ := s.Slots.Get("s-1")
	assert.False(t, slot.Booked, "the slot reverts to free")
	assert.Equal(t, connection.MethodBookSlot, rejectedMethod)
	assert.Equal(t, 0, d.PendingCount())
}

func TestTransientFailureKeepsIntentQueued(t *testing.T) {
	d, s := newDispatcher(t)
	s.Slots.Upsert(models.AvailabilitySlot{ID: "s-1", TeacherID: "t-1"})

	_, err := d.BookSlot("s-1", Occupant{ID: "stu-1"})
	require.NoError(t, err)

	fake := fakeauthority.New()
	require.NoError(t, fake.Close(context.Background()))
	d.Attach(fake)
	d.ResendPending(context.Background())

	assert.Equal(t, 1, d.PendingCount(), "a transport error is not a rejection")
	slot, _ := s.Slots.Get("s-1")
	assert.True(t, slot.Booked, "the optimistic state stands")
}

func TestAcknowledgmentWithServerIdentifierReplacesProvisionalRecord(t *testing.T) {
	d, s := newDispatcher(t)

	local, err := d.CreateAvailabilitySlot(validSpec(), nil)
	require.NoError(t, err)

	server := local
	server.ID = "s-srv-1"

	fake := fakeauthority.New()
	fake.Echo(connection.MethodCreateSlot, events.SlotCreated{Slot: server})
	d.Attach(fake)
	d.ResendPending(context.Background())

	_, ok := s.Slots.Get(local.ID)
	assert.False(t, ok, "the provisional record is replaced, not duplicated")
	_, ok = s.Slots.Get("s-srv-1")
	assert.True(t, ok)
	assert.Equal(t, 0, d.PendingCount())
}

func TestResendPendingForwardsInIssueOrder(t *testing.T) {
	d, s := newDispatcher(t)
	s.Slots.Upsert(models.AvailabilitySlot{ID: "s-1", TeacherID: "t-1"})

	_, err := d.CreateAvailabilitySlot(validSpec(), nil)
	require.NoError(t, err)
	_, err = d.BookSlot("s-1", Occupant{ID: "stu-1"})
	require.NoError(t, err)

	fake := fakeauthority.New()
	d.Attach(fake)
	d.ResendPending(context.Background())

	sent := fake.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, connection.MethodCreateSlot, sent[0].Method)
	assert.Equal(t, connection.MethodBookSlot, sent[1].Method)
}

func TestCancelSlotPreconditions(t *testing.T) {
	d, s := newDispatcher(t)

	assert.ErrorIs(t, d.CancelSlot("s-404", "t-1"), ErrSlotNotFound)

	s.Slots.Upsert(models.AvailabilitySlot{ID: "s-1", TeacherID: "t-1"})
	assert.ErrorIs(t, d.CancelSlot("s-1", "t-2"), ErrNotOwnSlot)

	s.Slots.Upsert(models.AvailabilitySlot{ID: "s-2", TeacherID: "t-1", Booked: true})
	assert.ErrorIs(t, d.CancelSlot("s-2", "t-1"), ErrSlotBooked)

	require.NoError(t, d.CancelSlot("s-1", "t-1"))
	got, _ := s.Slots.Get("s-1")
	assert.True(t, got.Deleted)
}

func TestCancelLessonFreesSlot(t *testing.T) {
	d, s := newDispatcher(t)
	s.Slots.Upsert(models.AvailabilitySlot{ID: "s-1", TeacherID: "t-1", Booked: true, BookedBy: "stu-1"})
	s.Lessons.Upsert(models.Lesson{ID: "l-1", SlotID: "s-1", StudentID: "stu-1", Status: models.LessonScheduled})

	require.NoError(t, d.CancelLesson("l-1"))

	lesson, _ := s.Lessons.Get("l-1")
	assert.Equal(t, models.LessonCancelled, lesson.Status)
	slot, _ := s.Slots.Get("s-1")
	assert.False(t, slot.Booked)

	assert.ErrorIs(t, d.CancelLesson("l-1"), ErrLessonNotActive)
}

func TestCompleteLessonKeepsSlotBooked(t *testing.T) {
	d, s := newDispatcher(t)
	s.Slots.Upsert(models.AvailabilitySlot{ID: "s-1", TeacherID: "t-1", Booked: true, BookedBy: "stu-1"})
	s.Lessons.Upsert(models.Lesson{ID: "l-1", SlotID: "s-1", StudentID: "stu-1", Status: models.LessonScheduled})

	require.NoError(t, d.CompleteLesson("l-1"))

	lesson, _ := s.Lessons.Get("l-1")
	assert.Equal(t, models.LessonCompleted, lesson.Status)
	slot, _ := s.Slots.Get("s-1")
	assert.True(t, slot.Booked)
}

func TestRescheduleLessonFreesOriginalSlot(t *testing.T) {
	d, s := newDispatcher(t)
	s.Slots.Upsert(models.AvailabilitySlot{ID: "s-1", TeacherID: "t-1", Booked: true, BookedBy: "stu-1"})
	s.Lessons.Upsert(models.Lesson{ID: "l-1", SlotID: "s-1", StudentID: "stu-1", Status: models.LessonScheduled})

	start := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	require.NoError(t, d.RescheduleLesson("l-1", start, start.Add(time.Hour)))

	lesson, _ := s.Lessons.Get("l-1")
	assert.Equal(t, start, lesson.StartTime)
	assert.Empty(t, lesson.SlotID)
	slot, _ := s.Slots.Get("s-1")
	assert.False(t, slot.Booked)

	assert.ErrorIs(t, d.RescheduleLesson("l-1", start, start), ErrInvalidWindow)
}

func TestOpenChatReturnsExisting(t *testing.T) {
	d, s := newDispatcher(t)
	existing := models.Chat{ID: "c-1", ParticipantIDs: []string{"a", "b"}}
	s.Chats.Upsert(existing)

	chat, err := d.OpenChat([]string{"b", "a"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "c-1", chat.ID)
	assert.Equal(t, 0, d.PendingCount(), "no intent for an existing chat")
}

func TestSendMessagePreconditionsAndOptimisticAppend(t *testing.T) {
	d, s := newDispatcher(t)

	_, err := d.SendMessage("c-404", "a", "hi")
	assert.ErrorIs(t, err, ErrChatNotFound)

	s.Chats.Upsert(models.Chat{ID: "c-1", ParticipantIDs: []string{"a", "b"}})
	_, err = d.SendMessage("c-1", "a", "")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	msg, err := d.SendMessage("c-1", "a", "hi")
	require.NoError(t, err)
	assert.True(t, models.IsLocalID(msg.ID))

	chat, _ := s.Chats.Get("c-1")
	assert.True(t, chat.HasMessage(msg.ID))
}

func TestUpdateProfileRollbackRestoresPrior(t *testing.T) {
	d, s := newDispatcher(t)
	s.TeacherProfiles.Upsert(models.Profile{ID: "t-1", Role: models.RoleTeacher, Name: "Vera"})
	s.Users.Upsert(models.User{ID: "t-1", Name: "Vera", Role: models.RoleTeacher, ProfileID: "t-1"})

	require.NoError(t, d.UpdateProfile(models.Profile{ID: "t-1", Role: models.RoleTeacher, Name: "Vera K."}))
	got, _ := s.TeacherProfiles.Get("t-1")
	assert.Equal(t, "Vera K.", got.Name)

	fake := fakeauthority.New()
	fake.Reject(connection.MethodUpdateProfile, 403, "not the owner")
	d.Attach(fake)
	d.ResendPending(context.Background())

	got, _ = s.TeacherProfiles.Get("t-1")
	assert.Equal(t, "Vera", got.Name)
	user, _ := s.Users.Get("t-1")
	assert.Equal(t, "Vera", user.Name)
}

func TestMarkNotificationReadAndPostOps(t *testing.T) {
	d, s := newDispatcher(t)

	assert.ErrorIs(t, d.MarkNotificationRead("n-404"), ErrNotifNotFound)
	assert.ErrorIs(t, d.ReactToPost("p-404", "u-1", "👍"), ErrPostNotFound)
	assert.ErrorIs(t, d.BookmarkPost("p-404", "u-1", true), ErrPostNotFound)

	s.Notifications.Upsert(models.Notification{ID: "n-1"})
	require.NoError(t, d.MarkNotificationRead("n-1"))
	n, _ := s.Notifications.Get("n-1")
	assert.True(t, n.Read)

	s.Posts.Upsert(models.Post{ID: "p-1", AuthorID: "t-1"})
	require.NoError(t, d.ReactToPost("p-1", "u-1", "👍"))
	require.NoError(t, d.BookmarkPost("p-1", "u-1", true))
	post, _ := s.Posts.Get("p-1")
	assert.Equal(t, "👍", post.Reactions["u-1"])
	assert.True(t, post.Bookmarks["u-1"])
}

// An offline creation survives a snapshot that predates it, then
// converges with the authoritative echo under a server identifier.
func TestOfflineCreationConvergesWithServerEcho(t *testing.T) {
	d, s := newDispatcher(t)
	r := reconcile.New(s, d, nil)
	d.BindSink(r)

	local, err := d.CreateAvailabilitySlot(validSpec(), nil)
	require.NoError(t, err)

	// A reconnect delivers a snapshot taken before the creation landed.
	other := []models.AvailabilitySlot{{ID: "s-other", TeacherID: "t-2"}}
	r.MergeSnapshot(models.Snapshot{Slots: &other})

	_, ok := s.Slots.Get(local.ID)
	require.True(t, ok, "the pending creation outlives the stale snapshot")

	server := local
	server.ID = "s-srv-9"
	fake := fakeauthority.New()
	fake.Echo(connection.MethodCreateSlot, events.SlotCreated{Slot: server})
	d.Attach(fake)
	d.ResendPending(context.Background())

	_, ok = s.Slots.Get(local.ID)
	assert.False(t, ok)
	got, ok := s.Slots.Get("s-srv-9")
	require.True(t, ok, "the record converges under the server identifier")
	assert.Equal(t, local.Subject, got.Subject)
	assert.Equal(t, 0, d.PendingCount())
}
