package pubsub

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/valkey-io/valkey-go"
)

// ValkeyTransport implements Transport over a dedicated Valkey pub/sub
// connection. Inbound publications arrive through the client's pub/sub hooks
// already typed, so they are delivered as pre-classified frames; subscription
// acknowledgements are delivered as control frames so the session's drain
// accounting still sees them.
type ValkeyTransport struct {
	client valkey.DedicatedClient
	cancel func()

	mu      sync.RWMutex
	handler FrameHandler

	sendMu    sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
	logger    zerolog.Logger
}

// NewValkeyTransport dedicates one connection from the client for pub/sub
// traffic. The transport owns the dedicated connection; the client itself
// stays usable for regular commands and remains the caller's to close.
func NewValkeyTransport(client valkey.Client, opts ...Option) *ValkeyTransport {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	dc, cancel := client.Dedicate()
	t := &ValkeyTransport{
		client: dc,
		cancel: cancel,
		closed: make(chan struct{}),
		logger: options.Logger,
	}

	wait := dc.SetPubSubHooks(valkey.PubSubHooks{
		OnMessage:      t.onMessage,
		OnSubscription: t.onSubscription,
	})
	go func() {
		if err, ok := <-wait; ok && err != nil {
			t.logger.Warn().Err(err).Msg("pubsub hooks ended")
		}
	}()

	return t
}

func (t *ValkeyTransport) onMessage(m valkey.PubSubMessage) {
	var ev Event
	if m.Pattern != "" {
		ev = PatternMessage{Pattern: m.Pattern, Channel: m.Channel, Payload: []byte(m.Message)}
	} else {
		ev = Message{Channel: m.Channel, Payload: []byte(m.Message)}
	}
	t.deliver(Frame{ev})
}

func (t *ValkeyTransport) onSubscription(sub valkey.PubSubSubscription) {
	t.deliver(Frame{[]byte(sub.Kind), []byte(sub.Channel), sub.Count})
}

func (t *ValkeyTransport) deliver(frame Frame) {
	t.mu.RLock()
	h := t.handler
	t.mu.RUnlock()

	if h == nil {
		return
	}
	if err := h(frame); err != nil {
		t.logger.Error().Err(err).Msg("frame handler failed, disconnecting")
		t.Disconnect()
	}
}

// Bind registers the frame handler. Must be called before any subscription is
// issued or early frames are dropped.
func (t *ValkeyTransport) Bind(h FrameHandler) {
	t.mu.Lock()
	t.handler = h
	t.mu.Unlock()
}

// Send forwards the command on the dedicated connection. Sends are serialized
// so acknowledgements cannot interleave on the single connection.
func (t *ValkeyTransport) Send(ctx context.Context, command string, args []string) *Future[Ack] {
	select {
	case <-t.closed:
		return RejectedFuture[Ack](ErrTransportClosed)
	default:
	}

	fut := NewFuture[Ack]()
	go func() {
		t.sendMu.Lock()
		defer t.sendMu.Unlock()

		cmd := t.client.B().Arbitrary(strings.ToUpper(command)).Args(args...).Build()
		if err := t.client.Do(ctx, cmd).Error(); err != nil {
			fut.Reject(err)
			return
		}
		fut.Resolve(Ack{Command: command, Args: args})
	}()
	return fut
}

// Disconnect releases the dedicated connection. Idempotent.
func (t *ValkeyTransport) Disconnect() {
	t.closeOnce.Do(func() {
		close(t.closed)
		t.cancel()
	})
}

// NewValkeyClient creates a valkey client with common configuration.
func NewValkeyClient(address string, options ...valkey.ClientOption) (valkey.Client, error) {
	clientOption := valkey.ClientOption{
		InitAddress: []string{address},
	}
	if len(options) > 0 {
		clientOption = options[0]
		if len(clientOption.InitAddress) == 0 {
			clientOption.InitAddress = []string{address}
		}
	}

	return valkey.NewClient(clientOption)
}
