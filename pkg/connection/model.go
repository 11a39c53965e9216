package connection

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/lessonloop/lessonloop-go/pkg/events"
)

// RPCError is an explicit rejection from the remote authority, e.g.
// booking a slot that is no longer free. It is the only error class that
// rolls back an optimistic write.
type RPCError struct {
	Code    int    `json:"code" cbor:"code"`
	Message string `json:"message,omitempty" cbor:"message,omitempty"`
}

func (r *RPCError) Error() string {
	return r.Message
}

func (r *RPCError) Is(target error) bool {
	if target == nil {
		return r == nil
	}
	_, ok := target.(*RPCError)
	return ok
}

// RPCRequest is a client-to-server intent: one method per mutation type.
type RPCRequest struct {
	ID     string `json:"id" cbor:"id"`
	Method string `json:"method" cbor:"method"`
	Params []any  `json:"params,omitempty" cbor:"params,omitempty"`
}

// inboundFrame is every message the server sends. A frame carrying an ID
// answers a request; a frame carrying an event is an unsolicited push.
type inboundFrame struct {
	ID     string           `json:"id,omitempty" cbor:"id,omitempty"`
	Error  *RPCError        `json:"error,omitempty" cbor:"error,omitempty"`
	Result cbor.RawMessage  `json:"result,omitempty" cbor:"result,omitempty"`
	Event  *events.Envelope `json:"event,omitempty" cbor:"event,omitempty"`
}

// Mutation intent methods understood by the remote authority.
const (
	MethodSnapshot         = "snapshot"
	MethodCreateSlot       = "slot.create"
	MethodCancelSlot       = "slot.cancel"
	MethodBookSlot         = "slot.book"
	MethodCancelLesson     = "lesson.cancel"
	MethodCompleteLesson   = "lesson.complete"
	MethodRescheduleLesson = "lesson.reschedule"
	MethodOpenChat         = "chat.open"
	MethodSendMessage      = "chat.send"
	MethodMarkChatRead     = "chat.read"
	MethodUpdateProfile    = "profile.update"
	MethodMarkNotifRead    = "notification.read"
	MethodReactToPost      = "post.react"
	MethodBookmarkPost     = "post.bookmark"
)
