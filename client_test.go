package lessonloop

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lessonloop/lessonloop-go/pkg/supervise"
)

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

func TestNewRejectsInvalidURL(t *testing.T) {
	_, err := New(&Config{URL: "not a url"})
	assert.Error(t, err)
}

func TestClientWorksOffline(t *testing.T) {
	client, err := New(&Config{URL: "ws://127.0.0.1:1"})
	require.NoError(t, err)
	defer client.Close(context.Background())

	slot, err := client.CreateAvailabilitySlot(validSpec(), nil)
	require.NoError(t, err)

	require.Len(t, client.Slots(), 1, "reads serve the local replica without a connection")
	assert.Equal(t, 1, client.PendingCount())
	assert.Equal(t, supervise.StateDisconnected, client.State())

	_, err = client.BookSlot(slot.ID, Occupant{ID: "stu-1", Name: "Ona"})
	require.NoError(t, err)

	lessons := client.Lessons()
	require.Len(t, lessons, 1)
	assert.Equal(t, slot.ID, lessons[0].SlotID)
}

func TestClientReadsExcludeTombstones(t *testing.T) {
	client, err := New(&Config{URL: "ws://127.0.0.1:1"})
	require.NoError(t, err)
	defer client.Close(context.Background())

	slot, err := client.CreateAvailabilitySlot(validSpec(), nil)
	require.NoError(t, err)
	require.NoError(t, client.CancelSlot(slot.ID, "t-1"))

	assert.Empty(t, client.Slots())
}

func TestClientReplicaSurvivesRestart(t *testing.T) {
	cache := filepath.Join(t.TempDir(), "replica.db")

	client, err := New(&Config{URL: "ws://127.0.0.1:1", CachePath: cache})
	require.NoError(t, err)
	_, err = client.CreateAvailabilitySlot(validSpec(), nil)
	require.NoError(t, err)
	require.NoError(t, client.Close(context.Background()))

	restarted, err := New(&Config{URL: "ws://127.0.0.1:1", CachePath: cache})
	require.NoError(t, err)
	defer restarted.Close(context.Background())

	require.NoError(t, restarted.Connect(context.Background()))
	assert.Len(t, restarted.Slots(), 1, "the cached replica warms the store on startup")
}

func TestFromEnv(t *testing.T) {
	t.Setenv("LESSONLOOP_URL", "")
	_, err := FromEnv()
	assert.Error(t, err)

	t.Setenv("LESSONLOOP_URL", "wss://sync.lessonloop.dev")
	t.Setenv("LESSONLOOP_CACHE", "/tmp/replica.db")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "wss://sync.lessonloop.dev", cfg.URL)
	assert.Equal(t, "/tmp/replica.db", cfg.CachePath)
}
