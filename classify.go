package pubsub

const (
	kindSubscribe    = "subscribe"
	kindUnsubscribe  = "unsubscribe"
	kindPSubscribe   = "psubscribe"
	kindPUnsubscribe = "punsubscribe"
	kindMessage      = "message"
	kindPMessage     = "pmessage"
	kindPing         = "ping"
	kindPong         = "pong"
)

// classification is the outcome of inspecting one inbound frame. Exactly one
// of event, control, or suppressed is set.
type classification struct {
	event      Event
	remaining  int64
	control    bool
	suppressed bool
}

// classify maps a raw reply frame to a deliverable event, a subscription-count
// control ack, or a suppression while the session is draining. The discriminant
// is decoded first and the exact arity for that tag is enforced; anything else
// is a fatal *ProtocolError.
func classify(frame Frame, closing bool) (classification, error) {
	if len(frame) == 1 {
		if ev, ok := frame[0].(Event); ok {
			// Pre-classified by the transport; deliver untouched.
			return classification{event: ev}, nil
		}
	}
	if closing {
		return classification{suppressed: true}, nil
	}
	if len(frame) == 0 {
		return classification{}, &ProtocolError{Reason: "empty frame"}
	}
	kind, ok := frameString(frame[0])
	if !ok {
		return classification{}, &ProtocolError{Reason: "non-string discriminant"}
	}

	switch kind {
	case kindSubscribe, kindUnsubscribe, kindPSubscribe, kindPUnsubscribe:
		if len(frame) != 3 {
			return classification{}, arityError(kind, 3, len(frame))
		}
		if _, ok := frameString(frame[1]); !ok {
			return classification{}, &ProtocolError{Kind: kind, Reason: "non-string target"}
		}
		n, ok := frameInt(frame[2])
		if !ok {
			return classification{}, &ProtocolError{Kind: kind, Reason: "non-integer remaining count"}
		}
		return classification{control: true, remaining: n}, nil

	case kindMessage:
		if len(frame) != 3 {
			return classification{}, arityError(kind, 3, len(frame))
		}
		channel, ok := frameString(frame[1])
		if !ok {
			return classification{}, &ProtocolError{Kind: kind, Reason: "non-string channel"}
		}
		payload, ok := frameBytes(frame[2])
		if !ok {
			return classification{}, &ProtocolError{Kind: kind, Reason: "unreadable payload"}
		}
		return classification{event: Message{Channel: channel, Payload: payload}}, nil

	case kindPMessage:
		if len(frame) != 4 {
			return classification{}, arityError(kind, 4, len(frame))
		}
		pattern, ok := frameString(frame[1])
		if !ok {
			return classification{}, &ProtocolError{Kind: kind, Reason: "non-string pattern"}
		}
		channel, ok := frameString(frame[2])
		if !ok {
			return classification{}, &ProtocolError{Kind: kind, Reason: "non-string channel"}
		}
		payload, ok := frameBytes(frame[3])
		if !ok {
			return classification{}, &ProtocolError{Kind: kind, Reason: "unreadable payload"}
		}
		return classification{event: PatternMessage{Pattern: pattern, Channel: channel, Payload: payload}}, nil

	case kindPong:
		if len(frame) != 2 {
			return classification{}, arityError(kind, 2, len(frame))
		}
		if frame[1] == nil {
			return classification{event: Pong{}}, nil
		}
		payload, ok := frameBytes(frame[1])
		if !ok {
			return classification{}, &ProtocolError{Kind: kind, Reason: "unreadable payload"}
		}
		return classification{event: Pong{Payload: payload}}, nil

	default:
		return classification{}, &ProtocolError{Kind: kind, Reason: "unknown frame kind"}
	}
}

func frameString(v any) (string, bool) {
	switch s := v.(type) {
	case []byte:
		return string(s), true
	case string:
		return s, true
	default:
		return "", false
	}
}

func frameBytes(v any) ([]byte, bool) {
	switch b := v.(type) {
	case []byte:
		return b, true
	case string:
		return []byte(b), true
	default:
		return nil, false
	}
}

func frameInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}
