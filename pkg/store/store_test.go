package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lessonloop/lessonloop-go/internal/codec"
	"github.com/lessonloop/lessonloop-go/pkg/localstore"
	"github.com/lessonloop/lessonloop-go/pkg/models"
)

func TestStoreWriteThroughAndBootstrap(t *testing.T) {
	cache := localstore.NewMemory()
	cb := codec.NewCBOR()

	s := New(cache, cb, nil)
	s.Slots.Upsert(slotFixture("s-1"))
	s.Slots.Upsert(slotFixture("s-2"))
	s.Lessons.Upsert(models.Lesson{ID: "l-1", SlotID: "s-1", Status: models.LessonScheduled})
	s.Close()

	restarted := New(cache, cb, nil)
	defer restarted.Close()
	restarted.Bootstrap(cb)

	assert.Equal(t, 2, restarted.Slots.Len())
	lesson, ok := restarted.Lessons.Get("l-1")
	require.True(t, ok)
	assert.Equal(t, models.LessonScheduled, lesson.Status)
	assert.Equal(t, "s-1", lesson.SlotID)
}

func TestStoreBootstrapSkipsMissingNamespaces(t *testing.T) {
	cache := localstore.NewMemory()
	cb := codec.NewCBOR()

	s := New(cache, cb, nil)
	defer s.Close()

	s.Bootstrap(cb)
	assert.Equal(t, 0, s.Slots.Len())
}

func TestStoreBootstrapSkipsCorruptBlob(t *testing.T) {
	cache := localstore.NewMemory()
	require.NoError(t, cache.Save(NamespaceSlots, []byte{0xff, 0x00, 0x01}))
	cb := codec.NewCBOR()

	s := New(cache, cb, nil)
	defer s.Close()

	s.Bootstrap(cb)
	assert.Equal(t, 0, s.Slots.Len())
}

func TestStoreWithoutCache(t *testing.T) {
	s := New(nil, nil, nil)
	defer s.Close()

	s.Slots.Upsert(slotFixture("s-1"))
	s.Bootstrap(nil)

	assert.Equal(t, 1, s.Slots.Len())
}

func TestStoreCloseIsIdempotent(t *testing.T) {
	s := New(localstore.NewMemory(), codec.NewCBOR(), nil)
	s.Close()
	s.Close()
}
