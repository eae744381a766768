package pubsub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestDecodeWSFrame(t *testing.T) {
	frame, ackID, err := decodeWSFrame([]byte(`["message","news","hello"]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ackID != "" {
		t.Fatalf("expected no ack id, got: %q", ackID)
	}
	if len(frame) != 3 {
		t.Fatalf("expected 3 elements, got: %d", len(frame))
	}
	if kind, _ := frameString(frame[0]); kind != "message" {
		t.Fatalf("expected message discriminant, got: %q", kind)
	}

	frame, _, err = decodeWSFrame([]byte(`["subscribe","news",3]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, ok := frameInt(frame[2]); !ok || n != 3 {
		t.Fatalf("expected integer 3, got: %#v", frame[2])
	}

	frame, _, err = decodeWSFrame([]byte(`["pong",null]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frame[1] != nil {
		t.Fatalf("expected nil element, got: %#v", frame[1])
	}

	_, ackID, err = decodeWSFrame([]byte(`["ack","req-1"]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ackID != "req-1" {
		t.Fatalf("expected ack id req-1, got: %q", ackID)
	}

	if _, _, err := decodeWSFrame([]byte(`{"not":"an array"}`)); err == nil {
		t.Fatal("expected error for non-array frame")
	}
	if _, _, err := decodeWSFrame([]byte(`[["nested"]]`)); err == nil {
		t.Fatal("expected error for unsupported element")
	}
}

// newGateway runs a WebSocket endpoint that acks every command and lets the
// per-command hook push additional frames.
func newGateway(t *testing.T, onCommand func(conn *websocket.Conn, cmd wsCommand)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			var cmd wsCommand
			if err := conn.ReadJSON(&cmd); err != nil {
				return
			}
			if err := conn.WriteJSON([]any{"ack", cmd.ID}); err != nil {
				return
			}
			if onCommand != nil {
				onCommand(conn, cmd)
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWSTransportSessionFlow(t *testing.T) {
	srv := newGateway(t, func(conn *websocket.Conn, cmd wsCommand) {
		switch cmd.Command {
		case "subscribe":
			for i, ch := range cmd.Args {
				conn.WriteJSON([]any{"subscribe", ch, i + 1})
			}
			conn.WriteJSON([]any{"message", cmd.Args[0], "hello"})
		case "unsubscribe":
			conn.WriteJSON([]any{"unsubscribe", cmd.Args[0], 0})
			// Residual frame completes the session drain.
			conn.WriteJSON([]any{"message", cmd.Args[0], "late"})
		}
	})
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	transport, err := DialWS(ctx, wsURL(srv))
	if err != nil {
		t.Fatalf("failed to dial gateway: %v", err)
	}
	defer transport.Disconnect()

	events := make(chan Event, 16)
	sess := New(transport, func(ev Event, _ *Session) {
		events <- ev
	})

	if _, err := sess.Subscribe(ctx, "news").Wait(ctx); err != nil {
		t.Fatalf("subscribe not acked: %v", err)
	}

	select {
	case ev := <-events:
		msg, ok := ev.(Message)
		if !ok || msg.Channel != "news" || string(msg.Payload) != "hello" {
			t.Fatalf("unexpected event: %#v", ev)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for message delivery")
	}

	if _, err := sess.Unsubscribe(ctx, "news").Wait(ctx); err != nil {
		t.Fatalf("unsubscribe not acked: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for sess.State() != StateClosed {
		if time.Now().After(deadline) {
			t.Fatalf("session never closed, state: %v", sess.State())
		}
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case ev := <-events:
		t.Fatalf("expected the late frame to be suppressed, got: %#v", ev)
	default:
	}
}

func TestWSTransportDisconnectRejectsPending(t *testing.T) {
	// Gateway that never acks, so the send stays pending.
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	transport, err := DialWS(ctx, wsURL(srv))
	if err != nil {
		t.Fatalf("failed to dial gateway: %v", err)
	}

	fut := transport.Send(ctx, "subscribe", []string{"news"})
	transport.Disconnect()

	if _, err := fut.Wait(ctx); err != ErrTransportClosed {
		t.Fatalf("expected ErrTransportClosed, got: %v", err)
	}

	// Sends after disconnect fail the same way.
	fut = transport.Send(ctx, "ping", nil)
	if _, err := fut.Wait(ctx); err != ErrTransportClosed {
		t.Fatalf("expected ErrTransportClosed after disconnect, got: %v", err)
	}
}
