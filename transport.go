package pubsub

import "context"

// FrameHandler receives every inbound frame from the transport, one at a time.
// A non-nil error is fatal to the session and the transport should stop
// delivering.
type FrameHandler func(frame Frame) error

// Transport is the connected collaborator the session drives. Implementations
// own connection lifecycle and wire serialization; the session only forwards
// commands and consumes decoded frames.
type Transport interface {
	// Send forwards a named command with its arguments and returns a future
	// resolved when the server acknowledges it. Send never blocks.
	Send(ctx context.Context, command string, args []string) *Future[Ack]

	// Disconnect tears down the connection. Idempotent; safe to call when
	// already disconnected.
	Disconnect()

	// Bind registers the single frame-delivery handler. A transport delivers
	// frames to at most one handler; a later Bind replaces the earlier one.
	Bind(h FrameHandler)
}
