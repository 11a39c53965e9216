package connection

import (
	"errors"
	"time"
)

const (
	// RequestIDLength is the size of the correlation id sent with each
	// channel request.
	RequestIDLength = 16
	// DefaultTimeout bounds how long Send waits for a response after the
	// request was written successfully.
	DefaultTimeout = 30 * time.Second
	// CloseMessageCode is the websocket close code sent on Close.
	CloseMessageCode = 1000
	// eventBuffer bounds pushes queued between reads by the consumer.
	eventBuffer = 64
)

var (
	ErrIDInUse       = errors.New("request id already in use")
	ErrNoBaseURL     = errors.New("base url not set")
	ErrNoMarshaler   = errors.New("marshaler is not set")
	ErrNoUnmarshaler = errors.New("unmarshaler is not set")
	ErrClosed        = errors.New("connection closed")
)
