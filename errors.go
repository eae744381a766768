package pubsub

import (
	"errors"
	"fmt"
)

var (
	ErrPingPayload     = errors.New("ping accepts at most one payload")
	ErrTransportClosed = errors.New("transport closed")
	ErrSessionOpen     = errors.New("session is not closed")
)

// ProtocolError reports an inbound frame the session cannot interpret. It is
// fatal: the frame handler propagates it and the session should be torn down.
type ProtocolError struct {
	Kind   string
	Reason string
}

func (e *ProtocolError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("pubsub: %s", e.Reason)
	}
	return fmt.Sprintf("pubsub: %s (kind %q)", e.Reason, e.Kind)
}

func arityError(kind string, want, got int) *ProtocolError {
	return &ProtocolError{Kind: kind, Reason: fmt.Sprintf("expected %d elements, got %d", want, got)}
}
