package events

import "errors"

var ErrUnknownKind = errors.New("unknown event kind")
