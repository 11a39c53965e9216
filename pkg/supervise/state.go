package supervise

import "fmt"

// State tracks the connection lifecycle. Degraded means the retry budget
// for a reconnection burst is spent and the supervisor has dropped to
// slow periodic probing; the local replica stays fully readable and
// writable throughout.
type State int

const (
	StateUnknown State = iota
	StateDisconnected
	StateConnecting
	StateConnected
	StateDegraded
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "Unknown"
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateDegraded:
		return "Degraded"
	case StateClosing:
		return "Closing"
	case StateClosed:
		return "Closed"
	default:
		return "InvalidState"
	}
}

func (s State) validateTransitionTo(next State) error {
	switch s {
	case StateDisconnected:
		switch next {
		case StateConnecting, StateDisconnected, StateClosing:
			return nil
		}
	case StateConnecting:
		switch next {
		case StateConnected, StateDisconnected, StateDegraded, StateClosing:
			return nil
		}
	case StateConnected:
		// Connected to Connecting happens when an established connection
		// drops and the supervisor immediately redials.
		switch next {
		case StateConnecting, StateDisconnected, StateClosing:
			return nil
		}
	case StateDegraded:
		switch next {
		case StateConnecting, StateClosing:
			return nil
		}
	case StateClosing:
		if next == StateClosed {
			return nil
		}
	}

	return fmt.Errorf("invalid state transition from %v to %v", s, next)
}
