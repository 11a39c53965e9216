// Package supervise owns the connection lifecycle: dialing, the initial
// resynchronization on every (re)connection, pumping the event stream
// into the reconciler, and backing off when the authority is
// unreachable. The local replica is never gated on connectivity.
package supervise

import (
	"context"
	"sync"
	"time"

	"github.com/lessonloop/lessonloop-go/pkg/connection"
	"github.com/lessonloop/lessonloop-go/pkg/events"
	"github.com/lessonloop/lessonloop-go/pkg/logger"
	"github.com/lessonloop/lessonloop-go/pkg/models"
)

const (
	defaultProbeInterval   = 60 * time.Second
	defaultSnapshotTimeout = 30 * time.Second
)

// Reconciler folds authoritative data into the replica.
type Reconciler interface {
	MergeSnapshot(snap models.Snapshot)
	Apply(ev events.Event)
}

// Dispatcher is rebound to each new connection so queued intents flush
// after a reconnect.
type Dispatcher interface {
	Attach(conn connection.Connection)
	Detach()
	ResendPending(ctx context.Context)
}

// Dial establishes a ready-to-use connection.
type Dial func(ctx context.Context) (connection.Connection, error)

type Supervisor struct {
	// Retryer paces one reconnection burst. Exhausting it drops the
	// supervisor into the degraded state, where it re-probes every
	// ProbeInterval. Defaults to NewExponentialBackoffRetryer.
	Retryer Retryer

	// ProbeInterval is the re-dial cadence while degraded.
	ProbeInterval time.Duration

	// SnapshotTimeout bounds the post-connect snapshot fetch.
	SnapshotTimeout time.Duration

	// OnStateChange observes lifecycle transitions. Called synchronously
	// from the supervisor goroutine.
	OnStateChange func(State)

	// OnEvent observes every applied event, after the reconciler has
	// folded it in.
	OnEvent func(events.Event)

	dial       Dial
	reconciler Reconciler
	dispatcher Dispatcher
	log        logger.Logger

	stateMu sync.Mutex
	state   State
	conn    connection.Connection

	startOnce sync.Once
	started   bool
	closeCh   chan int
	loopDone  chan int
}

func New(dial Dial, rec Reconciler, disp Dispatcher, log logger.Logger) *Supervisor {
	if log == nil {
		log = logger.Nop{}
	}
	return &Supervisor{
		Retryer:    NewExponentialBackoffRetryer(),
		dial:       dial,
		reconciler: rec,
		dispatcher: disp,
		log:        log,
		state:      StateDisconnected,
		closeCh:    make(chan int),
		loopDone:   make(chan int),
	}
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

// Start launches the supervision loop. Subsequent calls are no-ops.
func (s *Supervisor) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.started = true
		go func() {
			defer close(s.loopDone)
			s.run(ctx)
		}()
	})
}

func (s *Supervisor) run(ctx context.Context) {
	attempt := 0
	for {
		if err := s.transition(StateConnecting); err != nil {
			// Closing raced ahead of the loop.
			return
		}

		conn, err := s.dial(ctx)
		if err != nil {
			delay, retry := s.Retryer.NextDelay(attempt, err)
			attempt++
			if !retry {
				s.log.Warn("reconnection burst exhausted, probing slowly",
					"attempts", attempt, "error", err)
				if s.transition(StateDegraded) != nil {
					return
				}
				delay = s.probeInterval()
				attempt = 0
			} else {
				s.log.Info("connect failed, retrying",
					"attempt", attempt, "delay", delay, "error", err)
				if s.transition(StateDisconnected) != nil {
					return
				}
			}
			if !s.sleep(ctx, delay) {
				return
			}
			continue
		}

		attempt = 0
		s.Retryer.Reset()
		s.setConn(conn)
		if s.transition(StateConnected) != nil {
			_ = conn.Close(ctx)
			s.setConn(nil)
			return
		}

		s.resync(ctx, conn)
		s.dispatcher.Attach(conn)
		s.dispatcher.ResendPending(ctx)

		// The events channel closes when the read loop exits, which is
		// the disconnect signal regardless of cause.
		for ev := range conn.Events() {
			s.reconciler.Apply(ev)
			if s.OnEvent != nil {
				s.OnEvent(ev)
			}
		}

		s.dispatcher.Detach()
		s.setConn(nil)

		select {
		case <-s.closeCh:
			return
		case <-ctx.Done():
			return
		default:
		}
		s.log.Info("connection lost, reconnecting")
	}
}

// resync fetches a full snapshot and merges it. A failed fetch keeps the
// last known replica rather than blanking it; the event stream and the
// next reconnect catch the replica up.
func (s *Supervisor) resync(ctx context.Context, conn connection.Connection) {
	sctx, cancel := context.WithTimeout(ctx, s.snapshotTimeout())
	defer cancel()

	var snap models.Snapshot
	if err := conn.Send(sctx, &snap, connection.MethodSnapshot); err != nil {
		s.log.Warn("snapshot fetch failed, keeping last known replica", "error", err)
		return
	}
	s.reconciler.MergeSnapshot(snap)
}

// Close shuts the supervisor down and closes any live connection.
func (s *Supervisor) Close(ctx context.Context) error {
	s.stateMu.Lock()
	if s.state == StateClosing || s.state == StateClosed {
		s.stateMu.Unlock()
		return nil
	}
	s.state = StateClosing
	conn := s.conn
	started := s.started
	s.stateMu.Unlock()
	s.notify(StateClosing)

	close(s.closeCh)

	var err error
	if conn != nil {
		err = conn.Close(ctx)
	}

	if started {
		select {
		case <-s.loopDone:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.stateMu.Lock()
	s.state = StateClosed
	s.stateMu.Unlock()
	s.notify(StateClosed)

	return err
}

func (s *Supervisor) transition(next State) error {
	s.stateMu.Lock()
	if err := s.state.validateTransitionTo(next); err != nil {
		s.stateMu.Unlock()
		return err
	}
	s.state = next
	s.stateMu.Unlock()

	s.notify(next)
	return nil
}

func (s *Supervisor) notify(state State) {
	s.log.Debug("connection state changed", "state", state.String())
	if s.OnStateChange != nil {
		s.OnStateChange(state)
	}
}

func (s *Supervisor) setConn(conn connection.Connection) {
	s.stateMu.Lock()
	s.conn = conn
	s.stateMu.Unlock()
}

// sleep waits for d unless the supervisor is closed or the context ends.
func (s *Supervisor) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-s.closeCh:
		return false
	case <-ctx.Done():
		return false
	}
}

func (s *Supervisor) probeInterval() time.Duration {
	if s.ProbeInterval > 0 {
		return s.ProbeInterval
	}
	return defaultProbeInterval
}

func (s *Supervisor) snapshotTimeout() time.Duration {
	if s.SnapshotTimeout > 0 {
		return s.SnapshotTimeout
	}
	return defaultSnapshotTimeout
}
