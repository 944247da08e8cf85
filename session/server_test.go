package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/aufam/delameta-go/descriptor"
	"github.com/aufam/delameta-go/session"
	"github.com/aufam/delameta-go/stream"
)

func echoHandler(_ context.Context, _ descriptor.Descriptor, _ string, frame []byte) (*stream.Stream, error) {
	return stream.FromBytes(append([]byte(nil), frame...)), nil
}

func TestServerEchoesOneRequest(t *testing.T) {
	acc, err := session.ListenTCP("127.0.0.1:0", descriptor.NetOptions{KeepAlive: true, Max: -1})
	if err != nil {
		t.Fatalf("ListenTCP: %v", err)
	}
	srv, err := session.NewServer(acc, echoHandler, 4)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	done := make(chan struct{})
	go func() {
		srv.Start(context.Background())
		close(done)
	}()
	defer func() {
		srv.Stop()
		<-done
	}()

	cli := session.NewClient("tcp://" + acc.Addr().String() + "?timeout=2")
	defer cli.Close()

	reply, err := cli.Request(context.Background(), []byte("ping"))
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if string(reply) != "ping" {
		t.Fatalf("reply = %q, want %q", reply, "ping")
	}
}

func TestServerStopIsIdempotent(t *testing.T) {
	acc, err := session.ListenTCP("127.0.0.1:0", descriptor.NetOptions{})
	if err != nil {
		t.Fatalf("ListenTCP: %v", err)
	}
	srv, err := session.NewServer(acc, echoHandler, 2)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	var stopped int
	srv.OnStop(func() { stopped++ })

	done := make(chan struct{})
	go func() { srv.Start(context.Background()); close(done) }()
	time.Sleep(10 * time.Millisecond)

	srv.Stop()
	srv.Stop() // must be a no-op
	<-done

	if stopped != 1 {
		t.Fatalf("onStop called %d times, want 1", stopped)
	}
}

func TestNewServerRejectsNonPositiveMaxSocket(t *testing.T) {
	acc, err := session.ListenTCP("127.0.0.1:0", descriptor.NetOptions{})
	if err != nil {
		t.Fatalf("ListenTCP: %v", err)
	}
	defer acc.Close()
	if _, err := session.NewServer(acc, echoHandler, 0); err == nil {
		t.Fatal("expected error for maxSocket=0")
	}
}
