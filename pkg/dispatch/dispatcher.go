// Package dispatch accepts user-initiated mutation intents, applies them
// optimistically to the entity store, and forwards them to the remote
// authority. Every mutation follows the same contract: validate local
// preconditions, synthesize a local identifier for new records, apply to
// the store synchronously, then forward fire-and-forget. The
// authoritative echo is terminal state; the reconciler's identity dedup
// collapses it with the optimistic copy.
//
// An optimistic write is never rolled back because of a transient
// network failure; only an explicit rejection from the authority
// reverts it.
package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lessonloop/lessonloop-go/internal/codec"
	"github.com/lessonloop/lessonloop-go/pkg/connection"
	"github.com/lessonloop/lessonloop-go/pkg/events"
	"github.com/lessonloop/lessonloop-go/pkg/logger"
	"github.com/lessonloop/lessonloop-go/pkg/models"
	"github.com/lessonloop/lessonloop-go/pkg/store"
)

// EventSink consumes authoritative echoes carried on direct
// acknowledgments. Wired to the reconciler.
type EventSink interface {
	Apply(ev events.Event)
}

// RejectionHandler is notified when the authority explicitly rejects an
// intent, after the optimistic state has been rolled back.
type RejectionHandler func(method, recordID string, err error)

// Intent is one queued mutation: the wire method, its payload, and how
// to undo the optimistic application if the authority rejects it.
type Intent struct {
	Namespace string
	RecordID  string
	Method    string

	payload  any
	creation bool
	rollback func()
	// discard removes the provisional local record when the echo arrives
	// under a different, server-assigned identifier.
	discard func()
}

type Dispatcher struct {
	store       *store.Store
	sink        EventSink
	unmarshaler codec.Unmarshaler
	log         logger.Logger

	// SendTimeout bounds each forward attempt.
	SendTimeout time.Duration

	OnRejection RejectionHandler

	mu        sync.Mutex
	conn      connection.Connection
	outbox    []*Intent
	creations map[string]*Intent
}

func New(s *store.Store, unmarshaler codec.Unmarshaler, log logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.Nop{}
	}
	return &Dispatcher{
		store:       s,
		unmarshaler: unmarshaler,
		log:         log,
		SendTimeout: connection.DefaultTimeout,
		creations:   make(map[string]*Intent),
	}
}

// BindSink wires the consumer of authoritative echoes; normally the
// reconciler.
func (d *Dispatcher) BindSink(sink EventSink) {
	d.sink = sink
}

// Attach gives the dispatcher a live connection to forward through.
func (d *Dispatcher) Attach(conn connection.Connection) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.conn = conn
}

// Detach drops the connection. Queued intents stay in the outbox and are
// re-sent after the next Attach via ResendPending.
func (d *Dispatcher) Detach() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.conn = nil
}

// IsPending implements reconcile.PendingTracker: true for records that
// exist only locally as unechoed optimistic creations. The snapshot
// merge preserves exactly these.
func (d *Dispatcher) IsPending(ns, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.creations[ns+"/"+id]
	return ok
}

// Confirm implements reconcile.PendingTracker: the authority delivered
// this identifier, so a matching optimistic creation is settled.
func (d *Dispatcher) Confirm(ns, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := ns + "/" + id
	it, ok := d.creations[key]
	if !ok {
		return
	}
	delete(d.creations, key)
	d.dropFromOutboxLocked(it)
}

// PendingCount returns the number of unacknowledged intents.
func (d *Dispatcher) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.outbox)
}

// ResendPending re-forwards every unacknowledged intent in issue order.
// Called by the supervisor after each successful resynchronization, so
// that records created while unreachable reach the authority. Safe to
// call arbitrarily often: echoes collapse by identifier.
func (d *Dispatcher) ResendPending(ctx context.Context) {
	d.mu.Lock()
	queued := make([]*Intent, len(d.outbox))
	copy(queued, d.outbox)
	d.mu.Unlock()

	for _, it := range queued {
		d.send(ctx, it)
	}
}

// enqueue registers the intent and forwards it if a connection is up.
// Forwarding is fire-and-forget: the caller already holds the optimistic
// result and is never blocked on the network.
func (d *Dispatcher) enqueue(it *Intent) {
	d.mu.Lock()
	d.outbox = append(d.outbox, it)
	if it.creation {
		d.creations[it.Namespace+"/"+it.RecordID] = it
	}
	connected := d.conn != nil
	d.mu.Unlock()

	if connected {
		go d.send(context.Background(), it)
	}
}

// ackResult is the authority's direct acknowledgment: the same event
// envelope it broadcasts to every other client.
type ackResult struct {
	Event *events.Envelope `json:"event,omitempty" cbor:"event,omitempty"`
}

func (d *Dispatcher) send(ctx context.Context, it *Intent) {
	d.mu.Lock()
	conn := d.conn
	d.mu.Unlock()
	if conn == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, d.SendTimeout)
	defer cancel()

	var res ackResult
	err := conn.Send(ctx, &res, it.Method, it.payload)

	var rpcErr *connection.RPCError
	switch {
	case errors.As(err, &rpcErr):
		d.rejected(it, rpcErr)
	case err != nil:
		// Transient: the intent stays queued and the optimistic state
		// stands. The next resync retries it.
		d.log.Warn("intent forward failed, will retry on reconnect",
			"method", it.Method, "record_id", it.RecordID, "error", err)
	default:
		d.acknowledged(it, res)
	}
}

// rejected rolls back the optimistic state. This is the only path that
// ever reverts a local write.
func (d *Dispatcher) rejected(it *Intent, rpcErr *connection.RPCError) {
	d.log.Warn("authority rejected intent",
		"method", it.Method, "record_id", it.RecordID, "error", rpcErr)

	d.mu.Lock()
	delete(d.creations, it.Namespace+"/"+it.RecordID)
	d.dropFromOutboxLocked(it)
	d.mu.Unlock()

	if it.rollback != nil {
		it.rollback()
	}
	if d.OnRejection != nil {
		d.OnRejection(it.Method, it.RecordID, rpcErr)
	}
}

func (d *Dispatcher) acknowledged(it *Intent, res ackResult) {
	var echo events.Event
	if res.Event != nil {
		var err error
		echo, err = events.Decode(*res.Event, d.unmarshaler)
		if err != nil {
			d.log.Error("dropping undecodable acknowledgment echo",
				"method", it.Method, "error", err)
		}
	}

	// If the authority assigned its own identifier to a record created
	// locally, drop the provisional copy before applying the echo; the
	// user's record is replaced, never silently lost.
	if echo != nil && it.creation {
		if _, echoID, ok := echoRecordID(echo); ok && echoID != it.RecordID && it.discard != nil {
			it.discard()
		}
	}

	d.mu.Lock()
	delete(d.creations, it.Namespace+"/"+it.RecordID)
	d.dropFromOutboxLocked(it)
	d.mu.Unlock()

	if echo != nil && d.sink != nil {
		d.sink.Apply(echo)
	}
}

func (d *Dispatcher) dropFromOutboxLocked(it *Intent) {
	for i, queued := range d.outbox {
		if queued == it {
			d.outbox = append(d.outbox[:i], d.outbox[i+1:]...)
			return
		}
	}
}

// echoRecordID extracts the primary record identity from an echo event.
func echoRecordID(ev events.Event) (ns, id string, ok bool) {
	switch e := ev.(type) {
	case events.SlotCreated:
		return store.NamespaceSlots, e.Slot.ID, true
	case events.SlotUpdated:
		return store.NamespaceSlots, e.Slot.ID, true
	case events.LessonBooked:
		return store.NamespaceLessons, e.Lesson.ID, true
	case events.LessonUpdated:
		return store.NamespaceLessons, e.Lesson.ID, true
	case events.ChatCreated:
		return store.NamespaceChats, e.Chat.ID, true
	case events.ChatMessage:
		return store.NamespaceChats, e.Message.ID, true
	case events.ProfileUpdated:
		ns = store.NamespaceStudentProfiles
		if e.Profile.Role == models.RoleTeacher {
			ns = store.NamespaceTeacherProfiles
		}
		return ns, e.Profile.ID, true
	case events.PostCreated:
		return store.NamespacePosts, e.Post.ID, true
	case events.PostUpdated:
		return store.NamespacePosts, e.Post.ID, true
	case events.NotificationCreated:
		return store.NamespaceNotifications, e.Notification.ID, true
	default:
		return "", "", false
	}
}

// newLocalID synthesizes an identifier for a record created on-device,
// so the UI has something to render before the authority echoes.
func newLocalID() string {
	return models.LocalIDPrefix + uuid.NewString()
}
