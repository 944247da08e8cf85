package httpd_test

import (
	"context"
	"testing"

	"github.com/aufam/delameta-go/httpd"
)

// spec.md §8 scenario 3: HTTP routing.
func TestEngineRoutingMethodAndNotFound(t *testing.T) {
	e := httpd.NewEngine()
	e.Get("/test", []httpd.Extractor{httpd.Body(), httpd.DefaultVal("id", "0")}, func(body, id string) string {
		return body + " id=" + id
	})

	raw := "GET /test?id=7 HTTP/1.1\r\nContent-Length:4\r\n\r\nabcd"
	_, res := e.Execute(context.Background(), nil, []byte(raw))
	if res.Status != httpd.StatusOK {
		t.Fatalf("status = %d, want 200", res.Status)
	}
	if res.Body != "abcd id=7" {
		t.Fatalf("body = %q, want %q", res.Body, "abcd id=7")
	}

	raw = "POST /test HTTP/1.1\r\nContent-Length:4\r\n\r\nabcd"
	_, res = e.Execute(context.Background(), nil, []byte(raw))
	if res.Status != httpd.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", res.Status)
	}

	raw = "GET /nope HTTP/1.1\r\n\r\n"
	_, res = e.Execute(context.Background(), nil, []byte(raw))
	if res.Status != httpd.StatusNotFound {
		t.Fatalf("status = %d, want 404", res.Status)
	}
}

func TestEngineNumericHandlerResult(t *testing.T) {
	e := httpd.NewEngine()
	e.Get("/count", nil, func() int { return 42 })

	raw := "GET /count HTTP/1.1\r\n\r\n"
	_, res := e.Execute(context.Background(), nil, []byte(raw))
	if res.Status != httpd.StatusOK {
		t.Fatalf("status = %d, want 200", res.Status)
	}
	if res.Body != "42" {
		t.Fatalf("body = %q, want 42", res.Body)
	}
}

func TestEngineErrorHandlerOnExtractorFailure(t *testing.T) {
	e := httpd.NewEngine()
	e.Get("/strict", []httpd.Extractor{httpd.Arg("missing")}, func(v string) string { return v })

	raw := "GET /strict HTTP/1.1\r\n\r\n"
	_, res := e.Execute(context.Background(), nil, []byte(raw))
	if res.Status != httpd.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.Status)
	}
}
