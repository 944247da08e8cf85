package httpd_test

import (
	"context"
	"testing"

	"github.com/aufam/delameta-go/httpd"
)

// spec.md §8 scenario 2: HTTP round-trip.
func TestParseRequestContentLengthBody(t *testing.T) {
	raw := "POST /submit HTTP/1.1\r\nHost: x\r\nContent-Length: 5\r\n\r\nhello"
	req := httpd.ParseRequest(context.Background(), nil, []byte(raw))

	if req.Method != "POST" {
		t.Fatalf("method = %q, want POST", req.Method)
	}
	if req.URL.Path != "/submit" {
		t.Fatalf("path = %q, want /submit", req.URL.Path)
	}
	if v, _ := req.Headers.Get("Content-Length"); v != "5" {
		t.Fatalf("Content-Length = %q, want 5", v)
	}
	body, err := req.Text()
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if body != "hello" {
		t.Fatalf("body = %q, want hello", body)
	}
}

func TestParseRequestToleratesLFOnly(t *testing.T) {
	raw := "GET /a HTTP/1.1\nHost: x\n\n"
	req := httpd.ParseRequest(context.Background(), nil, []byte(raw))
	if req.Method != "GET" || req.URL.Path != "/a" {
		t.Fatalf("unexpected parse: %+v", req)
	}
}

func TestResponseDumpFillsContentLength(t *testing.T) {
	res := httpd.NewResponse()
	res.Body = "abcd"
	wire, err := res.Dump().Collect()
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	s := string(wire)
	if !contains(s, "Content-Length: 4") {
		t.Fatalf("missing Content-Length in %q", s)
	}
	if !contains(s, "200 OK") {
		t.Fatalf("missing status line in %q", s)
	}
}

func contains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
