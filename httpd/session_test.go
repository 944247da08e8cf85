package httpd_test

import (
	"context"
	"testing"

	"github.com/aufam/delameta-go/descriptor"
	"github.com/aufam/delameta-go/httpd"
	"github.com/aufam/delameta-go/session"
)

// Full loopback: engine bound to a session.Server over TCP, exercised
// through session.Client and httpd.Request (C5+C6+C7+C8 wired
// together, spec.md §4.5-§4.8).
func TestEngineBoundOverTCPRoundTrip(t *testing.T) {
	e := httpd.NewEngine()
	e.Get("/hello", []httpd.Extractor{httpd.DefaultVal("name", "world")}, func(name string) string {
		return "hello " + name
	})

	acc, err := session.ListenTCP("127.0.0.1:0", descriptor.NetOptions{KeepAlive: true, Max: -1})
	if err != nil {
		t.Fatalf("ListenTCP: %v", err)
	}
	srv, err := session.NewServer(acc, e.Bind(), 4)
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

	req := &httpd.Request{Method: "GET", Version: "HTTP/1.1"}
	req.URL.FullPath = "/hello?name=delameta"
	req.URL.Path = "/hello"
	req.Headers = httpd.Headers{}

	res, err := httpd.Request(context.Background(), cli, req)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if res.Status != httpd.StatusOK {
		t.Fatalf("status = %d, want 200", res.Status)
	}
	body, err := res.Text()
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if body != "hello delameta" {
		t.Fatalf("body = %q, want %q", body, "hello delameta")
	}
}
