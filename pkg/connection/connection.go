// Package connection implements the bidirectional event channel to the
// remote authority: request/response calls correlated by id, plus
// unsolicited server pushes delivered as decoded events.
package connection

import (
	"context"
	"fmt"
	"sync"

	"github.com/lessonloop/lessonloop-go/internal/codec"
	"github.com/lessonloop/lessonloop-go/pkg/events"
	"github.com/lessonloop/lessonloop-go/pkg/logger"
)

// Connection is the transport the supervisor and dispatcher talk
// through.
type Connection interface {
	Connect(ctx context.Context) error
	// Close tears the channel down. The context bounds how long to wait
	// for a clean shutdown; the connection is closed regardless.
	Close(ctx context.Context) error
	// Send issues a request and decodes the result into dest, which may
	// be nil to discard it. A *RPCError return means the authority
	// explicitly rejected the request; any other error is transient.
	Send(ctx context.Context, dest any, method string, params ...any) error
	// Events returns the push stream. The channel is closed when the
	// underlying connection is lost or closed, which is the consumer's
	// disconnect signal.
	Events() <-chan events.Event
	IsClosed() bool
}

// BaseConnection carries the bookkeeping shared by transport
// implementations: per-request response channels and the push stream.
type BaseConnection struct {
	baseURL     string
	marshaler   codec.Marshaler
	unmarshaler codec.Unmarshaler
	logger      logger.Logger

	responseChannels     map[string]chan inboundFrame
	responseChannelsLock sync.RWMutex

	eventCh chan events.Event
}

func (bc *BaseConnection) createResponseChannel(id string) (chan inboundFrame, error) {
	bc.responseChannelsLock.Lock()
	defer bc.responseChannelsLock.Unlock()

	if _, ok := bc.responseChannels[id]; ok {
		return nil, fmt.Errorf("%w: %v", ErrIDInUse, id)
	}

	ch := make(chan inboundFrame, 1)
	bc.responseChannels[id] = ch

	return ch, nil
}

func (bc *BaseConnection) getResponseChannel(id string) (chan inboundFrame, bool) {
	bc.responseChannelsLock.RLock()
	defer bc.responseChannelsLock.RUnlock()
	ch, ok := bc.responseChannels[id]
	return ch, ok
}

func (bc *BaseConnection) removeResponseChannel(id string) {
	bc.responseChannelsLock.Lock()
	defer bc.responseChannelsLock.Unlock()
	delete(bc.responseChannels, id)
}

func (bc *BaseConnection) preConnectionChecks() error {
	if bc.baseURL == "" {
		return ErrNoBaseURL
	}
	if bc.marshaler == nil {
		return ErrNoMarshaler
	}
	if bc.unmarshaler == nil {
		return ErrNoUnmarshaler
	}
	return nil
}
