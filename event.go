package pubsub

// Frame is one decoded unit of inbound protocol data, already split into an
// ordered tuple by the transport. Elements are []byte (bulk string), int64
// (integer), or nil (null). A transport that has already interpreted a push
// may instead deliver a single-element frame holding an Event; the session
// passes such frames through untouched.
type Frame []any

// Event is a deliverable pub/sub event handed to the session callback.
type Event interface {
	event()
}

// Message is a publication received on a directly subscribed channel.
type Message struct {
	Channel string
	Payload []byte
}

// PatternMessage is a publication received through a pattern subscription.
type PatternMessage struct {
	Pattern string
	Channel string
	Payload []byte
}

// Pong acknowledges a keepalive ping. Payload is nil when the ping carried
// none.
type Pong struct {
	Payload []byte
}

func (Message) event()        {}
func (PatternMessage) event() {}
func (Pong) event()           {}
