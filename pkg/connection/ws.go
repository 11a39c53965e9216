package connection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	gorilla "github.com/gorilla/websocket"

	"github.com/lessonloop/lessonloop-go/internal/rand"
	"github.com/lessonloop/lessonloop-go/pkg/events"
	"github.com/lessonloop/lessonloop-go/pkg/logger"
)

// DefaultDialer is the gorilla dialer used by WebSocketConnection, with
// compression enabled and the cbor subprotocol announced.
var DefaultDialer = &gorilla.Dialer{
	Proxy:             gorilla.DefaultDialer.Proxy,
	HandshakeTimeout:  gorilla.DefaultDialer.HandshakeTimeout,
	EnableCompression: true,
	Subprotocols:      []string{"cbor"},
}

// WebSocketConnection is the production transport: one socket carrying
// both request/response calls and server pushes.
type WebSocketConnection struct {
	BaseConnection

	Conn     *gorilla.Conn
	connLock sync.Mutex

	// Timeout bounds waiting for a response after a request was written.
	// Zero disables the wrap; use context.WithTimeout instead.
	Timeout time.Duration

	closed     atomic.Bool
	closeChan  chan struct{}
	closeError error
}

func NewWebSocketConnection(cfg *Config) *WebSocketConnection {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop{}
	}

	return &WebSocketConnection{
		BaseConnection: BaseConnection{
			baseURL:          cfg.BaseURL,
			marshaler:        cfg.Marshaler,
			unmarshaler:      cfg.Unmarshaler,
			logger:           log,
			responseChannels: make(map[string]chan inboundFrame),
			eventCh:          make(chan events.Event, eventBuffer),
		},
		Timeout:   DefaultTimeout,
		closeChan: make(chan struct{}),
	}
}

func (ws *WebSocketConnection) Connect(ctx context.Context) error {
	if err := ws.preConnectionChecks(); err != nil {
		return err
	}

	conn, res, err := DefaultDialer.DialContext(ctx, fmt.Sprintf("%s/events", ws.baseURL), nil)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	ws.Conn = conn

	go ws.readLoop()
	return nil
}

func (ws *WebSocketConnection) Events() <-chan events.Event {
	return ws.eventCh
}

func (ws *WebSocketConnection) IsClosed() bool {
	return ws.closed.Load()
}

// Close sends a close message and tears the socket down. If the write
// stalls past the context deadline the socket is closed anyway so local
// resources are not leaked.
func (ws *WebSocketConnection) Close(ctx context.Context) error {
	ws.connLock.Lock()
	defer ws.connLock.Unlock()

	if ws.closed.Swap(true) {
		return nil
	}
	close(ws.closeChan)

	writeErr := make(chan error, 1)
	go func() {
		writeErr <- ws.Conn.WriteMessage(gorilla.CloseMessage, gorilla.FormatCloseMessage(CloseMessageCode, ""))
	}()

	select {
	case err := <-writeErr:
		if err != nil {
			ws.logger.Error("failed to write close message", "error", err)
		}
	case <-ctx.Done():
	}

	return ws.Conn.Close()
}

// Send issues a request and waits for the matching response.
func (ws *WebSocketConnection) Send(ctx context.Context, dest any, method string, params ...any) error {
	if ws.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ws.Timeout)
		defer cancel()
	}

	select {
	case <-ws.closeChan:
		return ws.closeErr()
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	id := rand.NewRequestID(RequestIDLength)
	request := &RPCRequest{
		ID:     id,
		Method: method,
		Params: params,
	}

	responseChan, err := ws.createResponseChannel(id)
	if err != nil {
		return err
	}
	defer ws.removeResponseChannel(id)

	if err := ws.write(request); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ws.closeChan:
		return ws.closeErr()
	case res := <-responseChan:
		if res.Error != nil {
			return res.Error
		}
		if dest == nil || res.Result == nil {
			return nil
		}
		raw, err := res.Result.MarshalCBOR()
		if err != nil {
			return fmt.Errorf("reading response result: %w", err)
		}
		if err := ws.unmarshaler.Unmarshal(raw, dest); err != nil {
			return fmt.Errorf("unmarshaling response result: %w", err)
		}
		return nil
	}
}

func (ws *WebSocketConnection) closeErr() error {
	if ws.closeError != nil {
		return ws.closeError
	}
	return ErrClosed
}

func (ws *WebSocketConnection) write(v any) error {
	data, err := ws.marshaler.Marshal(v)
	if err != nil {
		return err
	}

	ws.connLock.Lock()
	defer ws.connLock.Unlock()
	return ws.Conn.WriteMessage(gorilla.BinaryMessage, data)
}

// readLoop drains the socket until the connection dies. Frames with an
// id resolve pending requests; frames carrying an event land on the
// push stream. Closing the event channel on exit is the disconnect
// signal consumers key off.
func (ws *WebSocketConnection) readLoop() {
	defer func() {
		ws.closed.Store(true)
		close(ws.eventCh)
	}()

	for {
		select {
		case <-ws.closeChan:
			return
		default:
			_, data, err := ws.Conn.ReadMessage()
			if err != nil {
				if ws.handleReadError(err) {
					return
				}
				continue
			}
			ws.handleFrame(data)
		}
	}
}

// handleReadError reports whether the read loop should exit.
func (ws *WebSocketConnection) handleReadError(err error) bool {
	if errors.Is(err, net.ErrClosed) {
		ws.closeError = net.ErrClosed
		return true
	}
	if gorilla.IsUnexpectedCloseError(err) || gorilla.IsCloseError(err, CloseMessageCode) {
		ws.closeError = io.ErrClosedPipe
		return true
	}

	ws.logger.Error("websocket read failed", "error", err)
	return false
}

func (ws *WebSocketConnection) handleFrame(data []byte) {
	var frame inboundFrame
	if err := ws.unmarshaler.Unmarshal(data, &frame); err != nil {
		// A malformed frame is dropped, never fatal to the channel.
		ws.logger.Error("dropping malformed frame", "error", err)
		return
	}

	if frame.ID != "" {
		responseChan, ok := ws.getResponseChannel(frame.ID)
		if !ok {
			ws.logger.Error("response for unknown request id", "id", frame.ID)
			return
		}
		responseChan <- frame
		return
	}

	if frame.Event == nil {
		ws.logger.Error("dropping frame with neither id nor event")
		return
	}

	ev, err := events.Decode(*frame.Event, ws.unmarshaler)
	if err != nil {
		ws.logger.Error("dropping undecodable event", "kind", frame.Event.Kind, "error", err)
		return
	}

	ws.eventCh <- ev
}
