// Package fakeauthority is an in-memory stand-in for the remote
// authority, used by tests. It serves a scripted snapshot, records every
// forwarded intent, and can inject rejections, acknowledgment echoes and
// connection drops.
package fakeauthority

import (
	"context"
	"sync"

	"github.com/lessonloop/lessonloop-go/internal/codec"
	"github.com/lessonloop/lessonloop-go/pkg/connection"
	"github.com/lessonloop/lessonloop-go/pkg/events"
	"github.com/lessonloop/lessonloop-go/pkg/models"
)

// Call is one recorded intent forward.
type Call struct {
	Method string
	Params []any
}

type Conn struct {
	// Snapshot is served for every snapshot request.
	Snapshot models.Snapshot

	// SnapshotErr, when set, fails snapshot requests instead.
	SnapshotErr error

	// DialErr, when set, fails Connect.
	DialErr error

	mu         sync.Mutex
	closed     bool
	sent       []Call
	rejections map[string]*connection.RPCError
	echoes     map[string][]events.Event
	eventCh    chan events.Event
	codec      *codec.CBOR
}

func New() *Conn {
	return &Conn{
		rejections: make(map[string]*connection.RPCError),
		echoes:     make(map[string][]events.Event),
		eventCh:    make(chan events.Event, 64),
		codec:      codec.NewCBOR(),
	}
}

func (f *Conn) Connect(ctx context.Context) error { return f.DialErr }

func (f *Conn) Events() <-chan events.Event { return f.eventCh }

func (f *Conn) IsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Close also closes the events channel, which is exactly what a real
// connection does when its read loop exits. Tests use it to simulate
// server-side drops as well as orderly shutdown.
func (f *Conn) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	close(f.eventCh)
	return nil
}

// Push delivers an unsolicited event, as a broadcast from the authority
// would.
func (f *Conn) Push(ev events.Event) {
	f.eventCh <- ev
}

// Reject makes every call to method fail with an explicit rejection.
func (f *Conn) Reject(method string, code int, msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejections[method] = &connection.RPCError{Code: code, Message: msg}
}

// Echo queues an acknowledgment echo for the next call to method.
func (f *Conn) Echo(method string, ev events.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.echoes[method] = append(f.echoes[method], ev)
}

// Sent returns every recorded intent forward, in order.
func (f *Conn) Sent() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *Conn) Send(ctx context.Context, dest any, method string, params ...any) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return connection.ErrClosed
	}
	f.sent = append(f.sent, Call{Method: method, Params: params})

	if rej := f.rejections[method]; rej != nil {
		f.mu.Unlock()
		return rej
	}

	var echo events.Event
	if queue := f.echoes[method]; len(queue) > 0 {
		echo = queue[0]
		f.echoes[method] = queue[1:]
	}
	f.mu.Unlock()

	if method == connection.MethodSnapshot {
		if f.SnapshotErr != nil {
			return f.SnapshotErr
		}
		if snap, ok := dest.(*models.Snapshot); ok && snap != nil {
			*snap = f.Snapshot
		}
		return nil
	}

	if echo == nil || dest == nil {
		return nil
	}

	env, err := events.Encode(echo, f.codec)
	if err != nil {
		return err
	}
	// The ack shares the wire shape of a response frame result; a codec
	// round-trip fills the caller's destination without naming its type.
	raw, err := f.codec.Marshal(struct {
		Event *events.Envelope `cbor:"event,omitempty"`
	}{Event: &env})
	if err != nil {
		return err
	}
	return f.codec.Unmarshal(raw, dest)
}
