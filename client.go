package lessonloop

import (
	"context"
	"errors"
	"net/url"
	"time"

	icodec "github.com/lessonloop/lessonloop-go/internal/codec"
	"github.com/lessonloop/lessonloop-go/pkg/connection"
	"github.com/lessonloop/lessonloop-go/pkg/dispatch"
	"github.com/lessonloop/lessonloop-go/pkg/localstore"
	"github.com/lessonloop/lessonloop-go/pkg/logger"
	"github.com/lessonloop/lessonloop-go/pkg/models"
	"github.com/lessonloop/lessonloop-go/pkg/reconcile"
	"github.com/lessonloop/lessonloop-go/pkg/store"
	"github.com/lessonloop/lessonloop-go/pkg/supervise"
)

// Convenience aliases so callers rarely need the subpackages directly.
type (
	Occupant = dispatch.Occupant
	SlotSpec = dispatch.SlotSpec
)

// Client is the top-level handle: a local replica plus the machinery
// that keeps it converged with the remote authority.
type Client struct {
	log        logger.Logger
	cache      localstore.Store
	codec      *icodec.CBOR
	store      *store.Store
	dispatcher *dispatch.Dispatcher
	reconciler *reconcile.Reconciler
	supervisor *supervise.Supervisor
}

// New wires a Client from cfg. No network activity happens until
// Connect; reads and writes work immediately against the local replica.
func New(cfg *Config) (*Client, error) {
	u, err := url.ParseRequestURI(cfg.URL)
	if err != nil {
		return nil, err
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Nop{}
	}

	var cache localstore.Store
	if cfg.CachePath != "" {
		cache, err = localstore.OpenSQLite(cfg.CachePath)
		if err != nil {
			return nil, err
		}
	} else {
		cache = localstore.NewMemory()
	}

	cb := icodec.NewCBOR()
	st := store.New(cache, cb, log)

	disp := dispatch.New(st, cb, log)
	disp.OnRejection = cfg.OnRejection

	rec := reconcile.New(st, disp, log)
	disp.BindSink(rec)

	connCfg := connection.NewConfig(u)
	connCfg.Logger = log
	dial := func(ctx context.Context) (connection.Connection, error) {
		conn := connection.NewWebSocketConnection(connCfg)
		if err := conn.Connect(ctx); err != nil {
			return nil, err
		}
		return conn, nil
	}

	sup := supervise.New(dial, rec, disp, log)
	sup.OnStateChange = cfg.OnStateChange
	sup.OnEvent = cfg.OnEvent

	return &Client{
		log:        log,
		cache:      cache,
		codec:      cb,
		store:      st,
		dispatcher: disp,
		reconciler: rec,
		supervisor: sup,
	}, nil
}

// Connect warms the replica from the local cache and starts the
// supervision loop. It returns without waiting for the first successful
// connection: the replica is usable offline.
func (c *Client) Connect(ctx context.Context) error {
	c.store.Bootstrap(c.codec)
	c.supervisor.Start(ctx)
	return nil
}

// Close stops the supervisor, flushes the write-behind queue and closes
// the cache.
func (c *Client) Close(ctx context.Context) error {
	err := c.supervisor.Close(ctx)
	c.store.Close()
	return errors.Join(err, c.cache.Close())
}

// State returns the connection lifecycle state.
func (c *Client) State() supervise.State {
	return c.supervisor.State()
}

// PendingCount returns the number of intents awaiting acknowledgement.
func (c *Client) PendingCount() int {
	return c.dispatcher.PendingCount()
}

// live filters tombstoned records out of read results.
func live[T models.Record](items []T) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if !item.IsDeleted() {
			out = append(out, item)
		}
	}
	return out
}

// Slots returns all non-deleted availability slots.
func (c *Client) Slots() []models.AvailabilitySlot { return live(c.store.Slots.All()) }

// Lessons returns all non-deleted lessons, terminal ones included.
func (c *Client) Lessons() []models.Lesson { return live(c.store.Lessons.All()) }

// Chats returns all non-deleted chats.
func (c *Client) Chats() []models.Chat { return live(c.store.Chats.All()) }

// Chat returns one chat by identifier.
func (c *Client) Chat(id string) (models.Chat, bool) {
	chat, ok := c.store.Chats.Get(id)
	if !ok || chat.Deleted {
		return models.Chat{}, false
	}
	return chat, true
}

// TeacherProfiles returns all non-deleted teacher profiles.
func (c *Client) TeacherProfiles() []models.Profile { return live(c.store.TeacherProfiles.All()) }

// StudentProfiles returns all non-deleted student profiles.
func (c *Client) StudentProfiles() []models.Profile { return live(c.store.StudentProfiles.All()) }

// Users returns the projected user directory.
func (c *Client) Users() []models.User { return live(c.store.Users.All()) }

// Posts returns all non-deleted posts.
func (c *Client) Posts() []models.Post { return live(c.store.Posts.All()) }

// Notifications returns all non-deleted notifications.
func (c *Client) Notifications() []models.Notification { return live(c.store.Notifications.All()) }

// CreateAvailabilitySlot publishes a new slot, optionally pre-booked.
func (c *Client) CreateAvailabilitySlot(spec SlotSpec, occupant *Occupant) (models.AvailabilitySlot, error) {
	return c.dispatcher.CreateAvailabilitySlot(spec, occupant)
}

// CancelSlot withdraws an unbooked slot owned by teacherID.
func (c *Client) CancelSlot(slotID, teacherID string) error {
	return c.dispatcher.CancelSlot(slotID, teacherID)
}

// BookSlot books a free slot for occupant and returns the lesson.
func (c *Client) BookSlot(slotID string, occupant Occupant) (models.Lesson, error) {
	return c.dispatcher.BookSlot(slotID, occupant)
}

// CancelLesson cancels a scheduled lesson, freeing its slot.
func (c *Client) CancelLesson(lessonID string) error {
	return c.dispatcher.CancelLesson(lessonID)
}

// CompleteLesson marks a scheduled lesson completed.
func (c *Client) CompleteLesson(lessonID string) error {
	return c.dispatcher.CompleteLesson(lessonID)
}

// RescheduleLesson moves a scheduled lesson to a new window.
func (c *Client) RescheduleLesson(lessonID string, start, end time.Time) error {
	return c.dispatcher.RescheduleLesson(lessonID, start, end)
}

// OpenChat returns the chat shared by exactly the given participants,
// creating it if absent.
func (c *Client) OpenChat(participantIDs []string, names map[string]string) (models.Chat, error) {
	return c.dispatcher.OpenChat(participantIDs, names)
}

// SendMessage appends a message to an existing chat.
func (c *Client) SendMessage(chatID, senderID, body string) (models.Message, error) {
	return c.dispatcher.SendMessage(chatID, senderID, body)
}

// MarkChatRead marks every message not sent by readerID as read.
func (c *Client) MarkChatRead(chatID, readerID string) error {
	return c.dispatcher.MarkChatRead(chatID, readerID)
}

// UpdateProfile overwrites the owner's profile wholesale.
func (c *Client) UpdateProfile(profile models.Profile) error {
	return c.dispatcher.UpdateProfile(profile)
}

// MarkNotificationRead sets the read flag on a notification.
func (c *Client) MarkNotificationRead(notificationID string) error {
	return c.dispatcher.MarkNotificationRead(notificationID)
}

// ReactToPost sets, or clears with an empty reaction, a user's reaction.
func (c *Client) ReactToPost(postID, userID, reaction string) error {
	return c.dispatcher.ReactToPost(postID, userID, reaction)
}

// BookmarkPost toggles a user's bookmark on a post.
func (c *Client) BookmarkPost(postID, userID string, bookmarked bool) error {
	return c.dispatcher.BookmarkPost(postID, userID, bookmarked)
}
