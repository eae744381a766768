package pubsub

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// State is the session lifecycle state.
type State int

const (
	// StateOpen accepts deliverable events and tracks subscription acks.
	StateOpen State = iota
	// StateDraining means the last expected ack arrived; the next inbound
	// frame disconnects the transport.
	StateDraining
	// StateClosed is terminal until Reset rebinds a fresh transport.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// EventHandler is the application callback. It is invoked at most once per
// inbound frame, synchronously on the transport's delivery goroutine, and is
// never invoked concurrently with itself for a given session.
type EventHandler func(event Event, s *Session)

// Session tracks one pub/sub subscriber connection. It forwards subscription
// commands to the transport, turns raw reply frames into events for the
// callback, and infers from subscription counts when the connection has fully
// drained and should be dropped.
type Session struct {
	handler EventHandler
	logger  zerolog.Logger
	metrics *sessionMetrics

	mu        sync.Mutex
	transport Transport
	state     State
}

// New binds a session to one connected transport and one callback and
// registers the session as the transport's frame handler. No I/O is performed.
func New(transport Transport, handler EventHandler, opts ...Option) *Session {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	s := &Session{
		handler:   handler,
		logger:    options.Logger,
		transport: transport,
		state:     StateOpen,
	}
	if options.Registry != nil {
		s.metrics = newSessionMetrics(options.Registry)
	}

	transport.Bind(s.HandleFrame)
	return s
}

// Transport returns the currently bound transport.
func (s *Session) Transport() Transport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transport
}

// State reports the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe asks the server to add the given channels to this connection's
// subscription set. The returned future resolves on the server's ack.
func (s *Session) Subscribe(ctx context.Context, channels ...string) *Future[Ack] {
	return s.send(ctx, kindSubscribe, channels)
}

// Unsubscribe removes channels from the subscription set. With no arguments
// the server unsubscribes every channel.
func (s *Session) Unsubscribe(ctx context.Context, channels ...string) *Future[Ack] {
	return s.send(ctx, kindUnsubscribe, channels)
}

// PSubscribe adds pattern subscriptions.
func (s *Session) PSubscribe(ctx context.Context, patterns ...string) *Future[Ack] {
	return s.send(ctx, kindPSubscribe, patterns)
}

// PUnsubscribe removes pattern subscriptions; with no arguments, all of them.
func (s *Session) PUnsubscribe(ctx context.Context, patterns ...string) *Future[Ack] {
	return s.send(ctx, kindPUnsubscribe, patterns)
}

// Ping sends a keepalive with an optional single payload. Passing more than
// one payload is a caller error reported synchronously, not via the future.
func (s *Session) Ping(ctx context.Context, payload ...string) (*Future[Ack], error) {
	if len(payload) > 1 {
		return nil, ErrPingPayload
	}
	return s.send(ctx, kindPing, payload), nil
}

func (s *Session) send(ctx context.Context, command string, args []string) *Future[Ack] {
	s.mu.Lock()
	t := s.transport
	s.mu.Unlock()
	return t.Send(ctx, command, args)
}

// Quit tears the session down immediately without waiting for outstanding
// acknowledgements. Frames still in flight are dropped, not delivered.
func (s *Session) Quit() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	t := s.transport
	s.mu.Unlock()

	s.logger.Debug().Msg("session quit, disconnecting transport")
	t.Disconnect()
}

// Reset rebinds a closed session to a freshly connected transport and reopens
// it. Reusing a session that is not closed is refused.
func (s *Session) Reset(transport Transport) error {
	s.mu.Lock()
	if s.state != StateClosed {
		s.mu.Unlock()
		return ErrSessionOpen
	}
	s.transport = transport
	s.state = StateOpen
	s.mu.Unlock()

	transport.Bind(s.HandleFrame)
	return nil
}

// HandleFrame is the frame-delivery handler registered with the transport.
// Frames must arrive one at a time. A returned *ProtocolError is fatal and
// must not be swallowed by the caller.
func (s *Session) HandleFrame(frame Frame) error {
	s.mu.Lock()
	switch s.state {
	case StateClosed:
		// In flight after Quit; consume silently.
		s.mu.Unlock()
		s.metrics.frameSuppressed()
		return nil
	case StateDraining:
		s.state = StateClosed
		t := s.transport
		s.mu.Unlock()

		s.metrics.frameSuppressed()
		s.logger.Debug().Msg("drain complete, disconnecting transport")
		t.Disconnect()
		return nil
	}

	res, err := classify(frame, false)
	if err != nil {
		s.mu.Unlock()
		s.metrics.protocolError()
		s.logger.Error().Err(err).Msg("unclassifiable frame")
		return err
	}

	switch {
	case res.suppressed:
		s.mu.Unlock()
		s.metrics.frameSuppressed()
		return nil
	case res.control:
		if res.remaining == 0 {
			s.state = StateDraining
			s.mu.Unlock()
			s.logger.Debug().Msg("no subscriptions remain, draining")
		} else {
			s.mu.Unlock()
		}
		s.metrics.controlAck()
		return nil
	default:
		// Callback runs outside the lock so it may call back into the
		// session (ping, unsubscribe, quit).
		s.mu.Unlock()
		s.metrics.eventDelivered(res.event)
		s.handler(res.event, s)
		return nil
	}
}
