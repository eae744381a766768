package pubsub

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFutureResolveOnce(t *testing.T) {
	fut := NewFuture[Ack]()
	fut.Resolve(Ack{Command: "subscribe"})
	fut.Resolve(Ack{Command: "other"})
	fut.Reject(errors.New("too late"))

	ack, err := fut.Wait(context.Background())
	if err != nil {
		t.Fatalf("expected resolved future, got: %v", err)
	}
	if ack.Command != "subscribe" {
		t.Fatalf("expected first resolution to win, got: %q", ack.Command)
	}
}

func TestFutureReject(t *testing.T) {
	fut := NewFuture[Ack]()
	want := errors.New("send failed")
	fut.Reject(want)

	if _, err := fut.Wait(context.Background()); !errors.Is(err, want) {
		t.Fatalf("expected rejection error, got: %v", err)
	}

	select {
	case <-fut.Done():
	default:
		t.Fatal("expected Done to be closed after rejection")
	}
}

func TestFutureWaitCancelled(t *testing.T) {
	fut := NewFuture[Ack]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := fut.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got: %v", err)
	}

	// The future itself is still pending and can complete later.
	fut.Resolve(Ack{Command: "ping"})
	ack, err := fut.Wait(context.Background())
	if err != nil || ack.Command != "ping" {
		t.Fatalf("expected late resolution, got: %v %v", ack, err)
	}
}

func TestRejectedFuture(t *testing.T) {
	fut := RejectedFuture[Ack](ErrTransportClosed)
	if _, err := fut.Wait(context.Background()); !errors.Is(err, ErrTransportClosed) {
		t.Fatalf("expected ErrTransportClosed, got: %v", err)
	}
}
