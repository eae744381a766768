package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Gateway frames are JSON arrays mirroring the reply tuples: strings become
// bulk elements, numbers become integers. An ["ack", id] frame acknowledges
// the outbound command that carried that id; everything else is handed to the
// bound frame handler.
const kindAck = "ack"

// wsCommand is the outbound JSON envelope.
type wsCommand struct {
	ID      string   `json:"id"`
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

type pendingSend struct {
	fut *Future[Ack]
	ack Ack
}

// WSTransport implements Transport over a WebSocket pub/sub gateway.
type WSTransport struct {
	conn *websocket.Conn

	mu      sync.Mutex
	handler FrameHandler
	pending map[string]pendingSend

	closeOnce sync.Once
	closed    chan struct{}
	logger    zerolog.Logger
}

// DialWS connects to a gateway and starts the read pump.
func DialWS(ctx context.Context, url string, opts ...Option) (*WSTransport, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial gateway: %w", err)
	}
	return NewWSTransport(conn, opts...), nil
}

// NewWSTransport wraps an already-established connection and starts the read
// pump. The transport takes ownership of the connection.
func NewWSTransport(conn *websocket.Conn, opts ...Option) *WSTransport {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	t := &WSTransport{
		conn:    conn,
		pending: make(map[string]pendingSend),
		closed:  make(chan struct{}),
		logger:  options.Logger,
	}
	go t.readPump()
	return t
}

// Bind registers the frame handler.
func (t *WSTransport) Bind(h FrameHandler) {
	t.mu.Lock()
	t.handler = h
	t.mu.Unlock()
}

// Send writes the command envelope with a fresh request id and parks the
// future until the matching ack frame arrives.
func (t *WSTransport) Send(ctx context.Context, command string, args []string) *Future[Ack] {
	fut := NewFuture[Ack]()
	id := uuid.NewString()

	t.mu.Lock()
	select {
	case <-t.closed:
		t.mu.Unlock()
		fut.Reject(ErrTransportClosed)
		return fut
	default:
	}
	t.pending[id] = pendingSend{fut: fut, ack: Ack{Command: command, Args: args}}
	err := t.conn.WriteJSON(wsCommand{ID: id, Command: command, Args: args})
	t.mu.Unlock()

	if err != nil {
		t.forget(id)
		fut.Reject(err)
	}
	return fut
}

// Disconnect closes the socket and rejects every pending future. Idempotent.
func (t *WSTransport) Disconnect() {
	t.closeOnce.Do(func() {
		close(t.closed)
		t.conn.Close()

		t.mu.Lock()
		pending := t.pending
		t.pending = make(map[string]pendingSend)
		t.mu.Unlock()

		for _, p := range pending {
			p.fut.Reject(ErrTransportClosed)
		}
	})
}

func (t *WSTransport) forget(id string) {
	t.mu.Lock()
	delete(t.pending, id)
	t.mu.Unlock()
}

func (t *WSTransport) readPump() {
	defer t.Disconnect()

	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				t.logger.Debug().Err(err).Msg("read pump ended")
			}
			return
		}

		frame, ackID, err := decodeWSFrame(data)
		if err != nil {
			t.logger.Warn().Err(err).Msg("dropping undecodable frame")
			continue
		}
		if ackID != "" {
			t.resolveAck(ackID)
			continue
		}

		t.mu.Lock()
		h := t.handler
		t.mu.Unlock()
		if h == nil {
			continue
		}
		if err := h(frame); err != nil {
			t.logger.Error().Err(err).Msg("frame handler failed, disconnecting")
			return
		}
	}
}

func (t *WSTransport) resolveAck(id string) {
	t.mu.Lock()
	p, ok := t.pending[id]
	delete(t.pending, id)
	t.mu.Unlock()

	if !ok {
		t.logger.Debug().Str("id", id).Msg("ack for unknown request")
		return
	}
	p.fut.Resolve(p.ack)
}

// decodeWSFrame turns a JSON array into a Frame, or reports the request id
// when the array is an ack.
func decodeWSFrame(data []byte) (Frame, string, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, "", fmt.Errorf("decode frame: %w", err)
	}

	frame := make(Frame, 0, len(elems))
	for _, raw := range elems {
		switch {
		case len(raw) > 0 && raw[0] == '"':
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return nil, "", fmt.Errorf("decode frame element: %w", err)
			}
			frame = append(frame, []byte(s))
		case string(raw) == "null":
			frame = append(frame, nil)
		default:
			var n int64
			if err := json.Unmarshal(raw, &n); err != nil {
				return nil, "", fmt.Errorf("unsupported frame element %s", raw)
			}
			frame = append(frame, n)
		}
	}

	if len(frame) == 2 {
		if kind, ok := frameString(frame[0]); ok && kind == kindAck {
			id, _ := frameString(frame[1])
			return nil, id, nil
		}
	}
	return frame, "", nil
}
